package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/database"
)

// SQLJobStore implements JobStore. State changes are single-row conditional
// updates; the affected row count decides which caller wins.
type SQLJobStore struct {
	db *database.Client
}

func NewSQLJobStore(db *database.Client) *SQLJobStore {
	return &SQLJobStore{db: db}
}

func (s *SQLJobStore) Create(ctx context.Context, job *models.Job) error {
	ts := now()
	job.CreatedAt, job.UpdatedAt = ts, ts
	if job.Status == "" {
		job.Status = models.JobPending
	}

	q := s.db.Rebind(`INSERT INTO jobs (id, tenant_id, type, status, symbol, timeframe, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`)
	if _, err := s.db.DB().ExecContext(ctx, q,
		job.ID, job.TenantID, job.Type, string(job.Status), job.Symbol, job.Timeframe, ts, ts,
	); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *SQLJobStore) Get(ctx context.Context, tenantID, id string) (*models.Job, error) {
	q := s.db.Rebind(`SELECT id, tenant_id, type, status, symbol, timeframe, error, signal_id, attempts, created_at, updated_at
		FROM jobs WHERE id = ? AND tenant_id = ?`)

	var (
		job      models.Job
		status   string
		errMsg   sql.NullString
		signalID sql.NullString
	)
	err := s.db.DB().QueryRowContext(ctx, q, id, tenantID).Scan(
		&job.ID, &job.TenantID, &job.Type, &status, &job.Symbol, &job.Timeframe,
		&errMsg, &signalID, &job.Attempts, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, domrepo.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select job: %w", err)
	}

	job.Status = models.JobState(status)
	job.Error = errMsg.String
	job.SignalID = signalID.String
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return &job, nil
}

func (s *SQLJobStore) Claim(ctx context.Context, tenantID, id string, staleBefore time.Time) (bool, error) {
	q := s.db.Rebind(`UPDATE jobs SET status = ?, attempts = attempts + 1, updated_at = ?
		WHERE id = ? AND tenant_id = ?
		AND (status = ? OR (status = ? AND updated_at < ?))`)
	res, err := s.db.DB().ExecContext(ctx, q,
		string(models.JobRunning), now(), id, tenantID,
		string(models.JobPending), string(models.JobRunning), staleBefore.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim job rows: %w", err)
	}
	return n == 1, nil
}

func (s *SQLJobStore) Complete(ctx context.Context, tenantID, id, signalID string) error {
	q := s.db.Rebind(`UPDATE jobs SET status = ?, signal_id = ?, error = NULL, updated_at = ?
		WHERE id = ? AND tenant_id = ? AND status = ?`)
	return s.transition(ctx, q, string(models.JobSuccess), signalID, now(), id, tenantID, string(models.JobRunning))
}

func (s *SQLJobStore) Fail(ctx context.Context, tenantID, id, message string) error {
	q := s.db.Rebind(`UPDATE jobs SET status = ?, error = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ? AND status = ?`)
	return s.transition(ctx, q, string(models.JobFailed), message, now(), id, tenantID, string(models.JobRunning))
}

func (s *SQLJobStore) transition(ctx context.Context, q string, args ...interface{}) error {
	res, err := s.db.DB().ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job rows: %w", err)
	}
	if n == 0 {
		return domrepo.ErrStaleTransition
	}
	return nil
}
