package models

import "time"

// Candle is an immutable OHLCV bar keyed by (tenant, symbol, timeframe, timestamp).
type Candle struct {
	TenantID  string    `json:"tenantId"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// CandleInput is a candle as submitted by clients, before parsing and normalization.
// OHLC relations are not checked.
type CandleInput struct {
	Symbol    string  `json:"symbol" validate:"required,max=32"`
	Timeframe string  `json:"timeframe" validate:"required,max=16"`
	Timestamp string  `json:"timestamp" validate:"required"`
	Open      float64 `json:"open" validate:"gt=0"`
	High      float64 `json:"high" validate:"gt=0"`
	Low       float64 `json:"low" validate:"gt=0"`
	Close     float64 `json:"close" validate:"gt=0"`
	Volume    float64 `json:"volume" validate:"gte=0"`
}

// CandleBatchMessage is the payload of the candle ingest topic.
type CandleBatchMessage struct {
	TenantID       string        `json:"tenantId" validate:"required"`
	IdempotencyKey string        `json:"idempotencyKey"`
	Candles        []CandleInput `json:"candles" validate:"required,min=1,max=5000,dive"`
}
