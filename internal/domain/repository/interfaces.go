package repository

import (
	"context"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
)

// JobStore persists jobs. Every method is scoped by tenant; a job of another
// tenant behaves as absent.
type JobStore interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, tenantID, id string) (*models.Job, error)
	// Claim moves PENDING (or RUNNING last touched before staleBefore) to
	// RUNNING. It reports whether this caller won the claim.
	Claim(ctx context.Context, tenantID, id string, staleBefore time.Time) (bool, error)
	// Complete moves RUNNING to SUCCESS; ErrStaleTransition otherwise.
	Complete(ctx context.Context, tenantID, id, signalID string) error
	// Fail moves RUNNING to FAILED; ErrStaleTransition otherwise.
	Fail(ctx context.Context, tenantID, id, message string) error
}

type SignalStore interface {
	// Create inserts s unless a signal already exists for s.JobID, and
	// returns the stored row either way.
	Create(ctx context.Context, s *models.Signal) (*models.Signal, error)
	GetByJob(ctx context.Context, tenantID, jobID string) (*models.Signal, error)
	Latest(ctx context.Context, tenantID string) (*models.Signal, error)
	History(ctx context.Context, tenantID string, offset, limit int) ([]models.Signal, error)
	Count(ctx context.Context, tenantID string) (int64, error)
}

type CandleStore interface {
	// LatestN returns up to n most recent candles in ascending time order.
	LatestN(ctx context.Context, tenantID, symbol, timeframe string, n int) ([]models.Candle, error)
	// InsertBatch skips candles whose natural key exists. With a non-empty key
	// the batch is recorded under it atomically, and a key seen before makes
	// the call a no-op returning 0.
	InsertBatch(ctx context.Context, tenantID string, candles []models.Candle, idempotencyKey string) (int64, error)
	HasIdempotencyKey(ctx context.Context, tenantID, key string) (bool, error)
}

type SignalPublisher interface {
	PublishSignal(ctx context.Context, event models.SignalEvent) error
}

type SignalArchive interface {
	Store(ctx context.Context, event models.SignalEvent) error
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Principal, error)
}

type Metrics interface {
	RecordJob(outcome string, seconds float64)
	RecordCache(result string)
	RecordCandlesInserted(n int64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// SignalSubscription delivers signal events until closed.
type SignalSubscription interface {
	Events() <-chan models.SignalEvent
	Close() error
}

type SignalSubscriber interface {
	Subscribe(ctx context.Context, tenantID string) (SignalSubscription, error)
}
