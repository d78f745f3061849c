package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
	svccache "github.com/kumbhanChoksi/Signals-Backend/internal/service/cache"
	"github.com/kumbhanChoksi/Signals-Backend/internal/services/indicators"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/queue"

	"github.com/google/uuid"
)

// SignalJobType is the dispatch queue message type for signal generation.
const SignalJobType = "signal-generation"

type WorkerConfig struct {
	ProcessingDelay time.Duration
	ClaimTimeout    time.Duration
	CandleWindow    int
}

// SignalWorker runs signal generation jobs off the dispatch queue. Handling
// the same message twice never produces a second signal or a second
// transition: the job row decides who works and what is left to do.
type SignalWorker struct {
	jobs      domrepo.JobStore
	signals   domrepo.SignalStore
	candles   domrepo.CandleStore
	cache     *svccache.SignalCache
	publisher domrepo.SignalPublisher
	metrics   domrepo.Metrics
	cfg       WorkerConfig
	l         *logger.Logger
	now       func() time.Time
}

func NewSignalWorker(
	jobs domrepo.JobStore,
	signals domrepo.SignalStore,
	candles domrepo.CandleStore,
	cache *svccache.SignalCache,
	publisher domrepo.SignalPublisher,
	metrics domrepo.Metrics,
	cfg WorkerConfig,
	l *logger.Logger,
) *SignalWorker {
	if cfg.CandleWindow <= 0 {
		cfg.CandleWindow = indicators.CandleWindow
	}
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = 5 * time.Minute
	}
	return &SignalWorker{
		jobs:      jobs,
		signals:   signals,
		candles:   candles,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		l:         l,
		now:       time.Now,
	}
}

func (w *SignalWorker) Name() string { return "signal-worker" }

func (w *SignalWorker) Type() string { return SignalJobType }

func (w *SignalWorker) Handle(ctx context.Context, payload interface{}) error {
	msg, err := queue.ParsePayload[models.SignalJobMessage](payload)
	if err != nil {
		return fmt.Errorf("parse signal job payload: %w", err)
	}
	if msg.JobID == "" || msg.TenantID == "" {
		return fmt.Errorf("signal job payload: %w: jobId and tenantId are required", domrepo.ErrValidation)
	}

	l := w.l.With(
		logger.String("job_id", msg.JobID),
		logger.String("tenant_id", msg.TenantID),
		logger.String("symbol", msg.Symbol),
		logger.String("timeframe", msg.Timeframe),
	)
	start := w.now()

	claimed, err := w.jobs.Claim(ctx, msg.TenantID, msg.JobID, start.Add(-w.cfg.ClaimTimeout))
	if err != nil {
		return fmt.Errorf("claim job %s: %w", msg.JobID, err)
	}
	if !claimed {
		return w.handleUnclaimed(ctx, msg, l)
	}
	l.Info("signal job started")

	if err := w.wait(ctx); err != nil {
		// Left RUNNING; a later delivery reclaims it after the claim timeout.
		l.Warn("signal job interrupted", logger.Error(err))
		return err
	}

	sig, err := w.generate(ctx, msg)
	if err != nil {
		l.Error("signal job failed", logger.Error(err))
		if ferr := w.jobs.Fail(ctx, msg.TenantID, msg.JobID, err.Error()); ferr != nil {
			l.Error("mark job failed", logger.Error(ferr))
		}
		w.metrics.RecordJob("failed", w.now().Sub(start).Seconds())
		return err
	}

	w.cache.Invalidate(ctx, msg.TenantID)

	if err := w.jobs.Complete(ctx, msg.TenantID, msg.JobID, sig.ID); err != nil {
		return fmt.Errorf("complete job %s: %w", msg.JobID, err)
	}
	w.metrics.RecordJob("success", w.now().Sub(start).Seconds())
	l.Info("signal job succeeded",
		logger.String("signal_id", sig.ID),
		logger.String("output", string(sig.Output)))

	w.publish(ctx, sig, msg, l)
	return nil
}

// handleUnclaimed decides what a delivery that lost the claim should do.
func (w *SignalWorker) handleUnclaimed(ctx context.Context, msg *models.SignalJobMessage, l *logger.Logger) error {
	job, err := w.jobs.Get(ctx, msg.TenantID, msg.JobID)
	if errors.Is(err, domrepo.ErrNotFound) {
		l.Warn("signal job not found")
		return fmt.Errorf("job %s: %w", msg.JobID, domrepo.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load job %s: %w", msg.JobID, err)
	}

	switch job.Status {
	case models.JobSuccess, models.JobFailed:
		l.Info("skip replayed signal job", logger.String("status", string(job.Status)))
		w.metrics.RecordJob("skipped", 0)
		return nil
	case models.JobRunning:
		sig, err := w.signals.GetByJob(ctx, msg.TenantID, msg.JobID)
		if errors.Is(err, domrepo.ErrNotFound) {
			// The queue must keep redelivering until the owner finishes or the
			// claim goes stale and can be taken over.
			l.Info("signal job still running elsewhere")
			return fmt.Errorf("job %s still running: %w", msg.JobID, domrepo.ErrStaleTransition)
		}
		if err != nil {
			return fmt.Errorf("load signal for job %s: %w", msg.JobID, err)
		}

		w.cache.Invalidate(ctx, msg.TenantID)
		err = w.jobs.Complete(ctx, msg.TenantID, msg.JobID, sig.ID)
		if errors.Is(err, domrepo.ErrStaleTransition) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("complete job %s: %w", msg.JobID, err)
		}
		l.Info("finished interrupted signal job", logger.String("signal_id", sig.ID))
		w.metrics.RecordJob("success", 0)
		w.publish(ctx, sig, msg, l)
		return nil
	default:
		return fmt.Errorf("job %s is %s but could not be claimed", msg.JobID, job.Status)
	}
}

func (w *SignalWorker) wait(ctx context.Context) error {
	if w.cfg.ProcessingDelay <= 0 {
		return nil
	}
	t := time.NewTimer(w.cfg.ProcessingDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (w *SignalWorker) generate(ctx context.Context, msg *models.SignalJobMessage) (*models.Signal, error) {
	candles, err := w.candles.LatestN(ctx, msg.TenantID, msg.Symbol, msg.Timeframe, w.cfg.CandleWindow)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}

	res := indicators.GenerateSignal(candles)

	sig, err := w.signals.Create(ctx, &models.Signal{
		ID:         uuid.NewString(),
		JobID:      msg.JobID,
		TenantID:   msg.TenantID,
		Output:     res.Output,
		Confidence: res.Confidence,
		Features:   res.Features,
		Vetoes:     res.Vetoes,
		Summary:    res.Summary,
	})
	if err != nil {
		return nil, fmt.Errorf("store signal: %w", err)
	}
	return sig, nil
}

func (w *SignalWorker) publish(ctx context.Context, sig *models.Signal, msg *models.SignalJobMessage, l *logger.Logger) {
	if w.publisher == nil {
		return
	}
	event := models.SignalEvent{Signal: *sig, Symbol: msg.Symbol, Timeframe: msg.Timeframe}
	if err := w.publisher.PublishSignal(ctx, event); err != nil {
		w.metrics.RecordError("signal_publish")
		l.Warn("publish signal event failed", logger.Error(err))
	}
}

var _ queue.Job = (*SignalWorker)(nil)
