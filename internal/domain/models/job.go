package models

import "time"

const JobTypeSignalGeneration = "SIGNAL_GENERATION"

// JobState is the lifecycle state of a job. SUCCESS and FAILED are terminal.
type JobState string

const (
	JobPending JobState = "PENDING"
	JobRunning JobState = "RUNNING"
	JobSuccess JobState = "SUCCESS"
	JobFailed  JobState = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s JobState) Terminal() bool {
	return s == JobSuccess || s == JobFailed
}

// Job is the durable record of one signal generation request.
type Job struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Type      string    `json:"type"`
	Status    JobState  `json:"status"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Error     string    `json:"error,omitempty"`
	SignalID  string    `json:"signalId,omitempty"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// JobStatus is the client view of a job.
type JobStatus struct {
	Status JobState `json:"status"`
	Signal *Signal  `json:"signal,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// SignalJobMessage is the dispatch queue payload for a signal generation job.
type SignalJobMessage struct {
	JobID     string `json:"jobId" validate:"required"`
	TenantID  string `json:"tenantId" validate:"required"`
	Symbol    string `json:"symbol" validate:"required"`
	Timeframe string `json:"timeframe" validate:"required"`
}
