package repository

import (
	"context"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/pkg/database"
)

// SchemaStatements is the relational schema. Types are chosen so the same
// DDL runs on postgres and sqlite3.
var SchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id         VARCHAR(36) PRIMARY KEY,
		tenant_id  VARCHAR(64) NOT NULL,
		type       VARCHAR(32) NOT NULL,
		status     VARCHAR(16) NOT NULL,
		symbol     VARCHAR(32) NOT NULL,
		timeframe  VARCHAR(16) NOT NULL,
		error      TEXT,
		signal_id  VARCHAR(36),
		attempts   INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_tenant ON jobs (tenant_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS candles (
		tenant_id VARCHAR(64) NOT NULL,
		symbol    VARCHAR(32) NOT NULL,
		timeframe VARCHAR(16) NOT NULL,
		ts        TIMESTAMP NOT NULL,
		open      DOUBLE PRECISION NOT NULL,
		high      DOUBLE PRECISION NOT NULL,
		low       DOUBLE PRECISION NOT NULL,
		close     DOUBLE PRECISION NOT NULL,
		volume    DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (tenant_id, symbol, timeframe, ts)
	)`,
	`CREATE TABLE IF NOT EXISTS signals (
		id         VARCHAR(36) PRIMARY KEY,
		job_id     VARCHAR(36) NOT NULL UNIQUE,
		tenant_id  VARCHAR(64) NOT NULL,
		output     VARCHAR(8) NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		features   TEXT NOT NULL,
		vetoes     TEXT NOT NULL,
		summary    TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_tenant_created ON signals (tenant_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		tenant_id  VARCHAR(64) NOT NULL,
		idem_key   VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (tenant_id, idem_key)
	)`,
}

// Migrate creates missing tables and indexes.
func Migrate(ctx context.Context, db *database.Client) error {
	return db.InitSchema(ctx, SchemaStatements)
}

// now is the store clock: UTC, truncated to what postgres keeps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
