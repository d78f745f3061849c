package models

// Principal is the authenticated caller.
type Principal struct {
	UserID   string
	TenantID string
}

type GenerateSignalRequest struct {
	Symbol    string `query:"symbol" validate:"required,max=32"`
	Timeframe string `query:"timeframe" validate:"required,max=16"`
}

type SignalHistoryRequest struct {
	Page  int `query:"page" default:"1" validate:"min=1"`
	Limit int `query:"limit" default:"20" validate:"min=1,max=50"`
}

type IngestCandlesRequest struct {
	Candles []CandleInput `json:"candles" validate:"required,min=1,max=5000,dive"`
}

type IngestCandlesResponse struct {
	InsertedCount int64 `json:"insertedCount"`
}

type GenerateSignalResponse struct {
	JobID string `json:"job_id"`
}
