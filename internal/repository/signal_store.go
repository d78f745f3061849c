package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/database"
)

const signalColumns = `id, job_id, tenant_id, output, confidence, features, vetoes, summary, created_at`

// SQLSignalStore implements SignalStore. Features and vetoes are stored as JSON text.
type SQLSignalStore struct {
	db *database.Client
}

func NewSQLSignalStore(db *database.Client) *SQLSignalStore {
	return &SQLSignalStore{db: db}
}

func (s *SQLSignalStore) Create(ctx context.Context, sig *models.Signal) (*models.Signal, error) {
	features, err := json.Marshal(sig.Features)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}
	vetoes := sig.Vetoes
	if vetoes == nil {
		vetoes = []string{}
	}
	vetoJSON, err := json.Marshal(vetoes)
	if err != nil {
		return nil, fmt.Errorf("encode vetoes: %w", err)
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = now()
	}

	q := s.db.Rebind(`INSERT INTO signals (` + signalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id) DO NOTHING`)
	if _, err := s.db.DB().ExecContext(ctx, q,
		sig.ID, sig.JobID, sig.TenantID, string(sig.Output), sig.Confidence,
		string(features), string(vetoJSON), sig.Summary, sig.CreatedAt.UTC(),
	); err != nil {
		return nil, fmt.Errorf("insert signal: %w", err)
	}

	return s.GetByJob(ctx, sig.TenantID, sig.JobID)
}

func (s *SQLSignalStore) GetByJob(ctx context.Context, tenantID, jobID string) (*models.Signal, error) {
	q := s.db.Rebind(`SELECT ` + signalColumns + ` FROM signals WHERE job_id = ? AND tenant_id = ?`)
	sig, err := scanSignal(s.db.DB().QueryRowContext(ctx, q, jobID, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("signal for job %s: %w", jobID, domrepo.ErrNotFound)
	}
	return sig, err
}

func (s *SQLSignalStore) Latest(ctx context.Context, tenantID string) (*models.Signal, error) {
	q := s.db.Rebind(`SELECT ` + signalColumns + ` FROM signals WHERE tenant_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`)
	sig, err := scanSignal(s.db.DB().QueryRowContext(ctx, q, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest signal: %w", domrepo.ErrNotFound)
	}
	return sig, err
}

func (s *SQLSignalStore) History(ctx context.Context, tenantID string, offset, limit int) ([]models.Signal, error) {
	q := s.db.Rebind(`SELECT ` + signalColumns + ` FROM signals WHERE tenant_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	rows, err := s.db.DB().QueryContext(ctx, q, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select signals: %w", err)
	}
	defer rows.Close()

	out := make([]models.Signal, 0, limit)
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *SQLSignalStore) Count(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	q := s.db.Rebind(`SELECT COUNT(*) FROM signals WHERE tenant_id = ?`)
	if err := s.db.DB().QueryRowContext(ctx, q, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count signals: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(row rowScanner) (*models.Signal, error) {
	var (
		sig      models.Signal
		output   string
		features string
		vetoes   string
	)
	if err := row.Scan(&sig.ID, &sig.JobID, &sig.TenantID, &output, &sig.Confidence,
		&features, &vetoes, &sig.Summary, &sig.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan signal: %w", err)
	}
	if err := json.Unmarshal([]byte(features), &sig.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	if err := json.Unmarshal([]byte(vetoes), &sig.Vetoes); err != nil {
		return nil, fmt.Errorf("decode vetoes: %w", err)
	}
	sig.Output = models.Output(output)
	sig.CreatedAt = sig.CreatedAt.UTC()
	return &sig, nil
}
