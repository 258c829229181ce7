package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// HistoryStore persists summaries of finished runs.
type HistoryStore interface {
	RecordRun(ctx context.Context, s RunSummary) error
	RecentRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// DefaultHistoryLimit caps RecentRuns when the caller passes no limit.
const DefaultHistoryLimit = 50

const createBulkRunsTable = `
CREATE TABLE IF NOT EXISTS bulk_runs (
	run_id      UUID PRIMARY KEY,
	file_name   TEXT        NOT NULL,
	status      TEXT        NOT NULL,
	rows_total  INTEGER     NOT NULL,
	succeeded   INTEGER     NOT NULL,
	failed      INTEGER     NOT NULL,
	duration_ms BIGINT      NOT NULL,
	client_ip   TEXT        NOT NULL DEFAULT '',
	error       TEXT        NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
)`

const createBulkRunsIndex = `
CREATE INDEX IF NOT EXISTS bulk_runs_finished_at_idx ON bulk_runs (finished_at DESC)`

const insertBulkRun = `
INSERT INTO bulk_runs (
	run_id, file_name, status, rows_total, succeeded, failed,
	duration_ms, client_ip, error, started_at, finished_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (run_id) DO NOTHING`

const selectRecentRuns = `
SELECT run_id::text, file_name, status, rows_total, succeeded, failed,
       duration_ms, client_ip, error, started_at, finished_at
FROM bulk_runs
ORDER BY finished_at DESC
LIMIT $1`

// PgHistoryStore keeps run summaries in the bulk_runs table.
type PgHistoryStore struct {
	db DBTX
}

// NewPgHistoryStore creates a store backed by db.
func NewPgHistoryStore(db DBTX) *PgHistoryStore {
	return &PgHistoryStore{db: db}
}

// EnsureSchema creates the bulk_runs table when it does not exist.
func (s *PgHistoryStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createBulkRunsTable); err != nil {
		return fmt.Errorf("create bulk_runs: %w", err)
	}
	if _, err := s.db.Exec(ctx, createBulkRunsIndex); err != nil {
		return fmt.Errorf("create bulk_runs index: %w", err)
	}
	return nil
}

// RecordRun inserts a run summary. Recording the same run twice is a no-op.
func (s *PgHistoryStore) RecordRun(ctx context.Context, r RunSummary) error {
	_, err := s.db.Exec(ctx, insertBulkRun,
		r.RunID, r.FileName, string(r.Status), r.Rows, r.Succeeded, r.Failed,
		r.Duration.Milliseconds(), r.ClientIP, r.Error, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bulk run %s: %w", r.RunID, err)
	}
	return nil
}

// RecentRuns returns the most recently finished runs, newest first.
func (s *PgHistoryStore) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.Query(ctx, selectRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("query bulk runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r          RunSummary
			status     string
			durationMs int64
		)
		if err := rows.Scan(
			&r.RunID, &r.FileName, &status, &r.Rows, &r.Succeeded, &r.Failed,
			&durationMs, &r.ClientIP, &r.Error, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan bulk run: %w", err)
		}
		r.Status = RunPhase(status)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bulk runs: %w", err)
	}

	return out, nil
}
