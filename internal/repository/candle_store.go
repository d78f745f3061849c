package repository

import (
	"context"
	"fmt"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/database"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"
)

// SQLCandleStore implements CandleStore.
type SQLCandleStore struct {
	db *database.Client
	l  *logger.Logger
}

func NewSQLCandleStore(db *database.Client, l *logger.Logger) *SQLCandleStore {
	return &SQLCandleStore{db: db, l: l}
}

func (s *SQLCandleStore) LatestN(ctx context.Context, tenantID, symbol, timeframe string, n int) ([]models.Candle, error) {
	q := s.db.Rebind(`SELECT tenant_id, symbol, timeframe, ts, open, high, low, close, volume
		FROM candles WHERE tenant_id = ? AND symbol = ? AND timeframe = ?
		ORDER BY ts DESC LIMIT ?`)
	rows, err := s.db.DB().QueryContext(ctx, q, tenantID, symbol, timeframe, n)
	if err != nil {
		s.l.Error("select candles failed",
			logger.String("symbol", symbol),
			logger.String("timeframe", timeframe),
			logger.Error(err))
		return nil, fmt.Errorf("select candles: %w", err)
	}
	defer rows.Close()

	desc := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.TenantID, &c.Symbol, &c.Timeframe, &c.Timestamp,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.Timestamp = c.Timestamp.UTC()
		desc = append(desc, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for i, j := 0, len(desc)-1; i < j; i, j = i+1, j-1 {
		desc[i], desc[j] = desc[j], desc[i]
	}
	return desc, nil
}

func (s *SQLCandleStore) InsertBatch(ctx context.Context, tenantID string, candles []models.Candle, idempotencyKey string) (inserted int64, err error) {
	tx, err := s.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if idempotencyKey != "" {
		// Recording the key first makes a concurrent duplicate wait on the
		// row lock and then see the conflict.
		res, err := tx.ExecContext(ctx,
			s.db.Rebind(`INSERT INTO idempotency_keys (tenant_id, idem_key, created_at) VALUES (?, ?, ?)
				ON CONFLICT (tenant_id, idem_key) DO NOTHING`),
			tenantID, idempotencyKey, now())
		if err != nil {
			return 0, fmt.Errorf("insert idempotency key: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return 0, fmt.Errorf("idempotency key rows: %w", err)
		} else if n == 0 {
			_ = tx.Rollback()
			return 0, nil
		}
	}

	stmt, err := tx.PrepareContext(ctx, s.db.Rebind(`INSERT INTO candles
		(tenant_id, symbol, timeframe, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, symbol, timeframe, ts) DO NOTHING`))
	if err != nil {
		return 0, fmt.Errorf("prepare candle insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		res, err := stmt.ExecContext(ctx, tenantID, c.Symbol, c.Timeframe, c.Timestamp.UTC(),
			c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return 0, fmt.Errorf("insert candle: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("candle rows: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (s *SQLCandleStore) HasIdempotencyKey(ctx context.Context, tenantID, key string) (bool, error) {
	var n int
	q := s.db.Rebind(`SELECT COUNT(*) FROM idempotency_keys WHERE tenant_id = ? AND idem_key = ?`)
	if err := s.db.DB().QueryRowContext(ctx, q, tenantID, key).Scan(&n); err != nil {
		return false, fmt.Errorf("select idempotency key: %w", err)
	}
	return n > 0, nil
}
