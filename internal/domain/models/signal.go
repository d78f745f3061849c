package models

import "time"

type Output string

const (
	OutputBuy  Output = "BUY"
	OutputSell Output = "SELL"
	OutputHold Output = "HOLD"
)

type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

const (
	VetoInsufficientCandles = "INSUFFICIENT_CANDLES"
	VetoVolatilitySpike     = "VOLATILITY_SPIKE"
)

type Features struct {
	EMAFast float64 `json:"emaFast"`
	EMASlow float64 `json:"emaSlow"`
	ATR     float64 `json:"atr"`
	Trend   Trend   `json:"trend"`
}

// SignalResult is the pure output of the indicator engine.
type SignalResult struct {
	Output     Output   `json:"output"`
	Confidence float64  `json:"confidence"`
	Features   Features `json:"features"`
	Vetoes     []string `json:"vetoes"`
	Summary    string   `json:"summary"`
}

// Signal is a persisted SignalResult. At most one exists per job and it is never mutated.
type Signal struct {
	ID         string    `json:"id"`
	JobID      string    `json:"jobId"`
	TenantID   string    `json:"tenantId"`
	Output     Output    `json:"output"`
	Confidence float64   `json:"confidence"`
	Features   Features  `json:"features"`
	Vetoes     []string  `json:"vetoes"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SignalPage is one page of a tenant's signal history, newest first.
type SignalPage struct {
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
	Total int64    `json:"total"`
	Data  []Signal `json:"data"`
}

// SignalEvent is published after a job reaches SUCCESS.
type SignalEvent struct {
	Signal    Signal `json:"signal"`
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}
