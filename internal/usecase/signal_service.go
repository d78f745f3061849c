package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
	svccache "github.com/kumbhanChoksi/Signals-Backend/internal/service/cache"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/queue"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/util"

	"github.com/google/uuid"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 50
)

// SignalService submits signal jobs and serves a tenant's signals.
type SignalService struct {
	jobs    domrepo.JobStore
	signals domrepo.SignalStore
	queue   queue.QueueService
	cache   *svccache.SignalCache
	metrics domrepo.Metrics
	l       *logger.Logger
}

func NewSignalService(
	jobs domrepo.JobStore,
	signals domrepo.SignalStore,
	q queue.QueueService,
	cache *svccache.SignalCache,
	metrics domrepo.Metrics,
	l *logger.Logger,
) *SignalService {
	return &SignalService{jobs: jobs, signals: signals, queue: q, cache: cache, metrics: metrics, l: l}
}

// Submit records a PENDING job and enqueues it. Job creation and enqueue are
// separate writes: if the enqueue fails the job stays PENDING and the error
// is returned.
func (s *SignalService) Submit(ctx context.Context, tenantID, symbol, timeframe string) (string, error) {
	symbol = util.NormalizeSymbol(symbol)
	timeframe = strings.TrimSpace(timeframe)
	if tenantID == "" || symbol == "" || timeframe == "" {
		return "", fmt.Errorf("%w: symbol and timeframe are required", domrepo.ErrValidation)
	}

	job := &models.Job{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Type:      models.JobTypeSignalGeneration,
		Status:    models.JobPending,
		Symbol:    symbol,
		Timeframe: timeframe,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	err := s.queue.PublishMessage(ctx, SignalJobType, models.SignalJobMessage{
		JobID:     job.ID,
		TenantID:  tenantID,
		Symbol:    symbol,
		Timeframe: timeframe,
	})
	if err != nil {
		s.metrics.RecordError("enqueue")
		s.l.Error("enqueue signal job failed",
			logger.String("job_id", job.ID),
			logger.String("tenant_id", tenantID),
			logger.Error(err))
		return "", fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	s.l.Debug("signal job submitted",
		logger.String("job_id", job.ID),
		logger.String("tenant_id", tenantID),
		logger.String("symbol", symbol),
		logger.String("timeframe", timeframe))
	return job.ID, nil
}

// Latest returns the tenant's newest signal, or nil when there is none.
func (s *SignalService) Latest(ctx context.Context, tenantID string) (*models.Signal, error) {
	start := time.Now()
	defer func() { s.metrics.RecordLatency("signal_latest", time.Since(start).Seconds()) }()

	if sig, ok := s.cache.Get(ctx, tenantID); ok {
		return sig, nil
	}

	token := s.cache.Fence(ctx, tenantID)
	sig, err := s.signals.Latest(ctx, tenantID)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest signal: %w", err)
	}

	s.cache.Fill(ctx, tenantID, sig, token)
	return sig, nil
}

// History returns one page of the tenant's signals, newest first. Out of
// range paging values are clamped.
func (s *SignalService) History(ctx context.Context, tenantID string, page, limit int) (*models.SignalPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	total, err := s.signals.Count(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("count signals: %w", err)
	}
	data, err := s.signals.History(ctx, tenantID, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("signal history: %w", err)
	}
	if data == nil {
		data = []models.Signal{}
	}

	return &models.SignalPage{Page: page, Limit: limit, Total: total, Data: data}, nil
}
