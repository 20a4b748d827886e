// Package ledger persists a record of every distributed run and its
// per-item outcomes. Recording is optional and advisory: the combined
// result tree stays the deliverable, so callers log ledger failures
// instead of aborting the run on them.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/eventlog-tools/distqual/internal/domain"
)

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Run is one ledger row summarizing a whole batch.
type Run struct {
	ID            string
	EventLogsPath string
	OutputFolder  string
	TotalItems    int
	FailedItems   int
	WallTime      time.Duration
	CreatedAt     time.Time
}

func (r Run) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(r.EventLogsPath) == "" {
		return fmt.Errorf("event logs path is required")
	}
	if strings.TrimSpace(r.OutputFolder) == "" {
		return fmt.Errorf("output folder is required")
	}
	return nil
}

const Schema = `
CREATE TABLE IF NOT EXISTS qualification_runs (
	run_id          TEXT PRIMARY KEY,
	event_logs_path TEXT NOT NULL,
	output_folder   TEXT NOT NULL,
	total_items     INTEGER NOT NULL,
	failed_items    INTEGER NOT NULL,
	wall_time_ms    BIGINT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS qualification_run_items (
	run_id       TEXT NOT NULL REFERENCES qualification_runs,
	item_id      TEXT NOT NULL,
	input_path   TEXT NOT NULL,
	output_dir   TEXT NOT NULL,
	exit_code    INTEGER NOT NULL,
	elapsed_ms   BIGINT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, item_id)
);
`

type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// EnsureSchema creates the ledger tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("ledger store not initialized")
	}
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// RecordRun writes one run row plus one row per item.
func (s *Store) RecordRun(ctx context.Context, run Run, results []domain.ExecutionResult) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("ledger store not initialized")
	}
	if err := run.Validate(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, runInsertQuery, runInsertArgs(run)...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, res := range results {
		if _, err := s.db.ExecContext(ctx, itemInsertQuery, itemInsertArgs(run.ID, res)...); err != nil {
			return fmt.Errorf("insert run item %s: %w", res.Item.ID, err)
		}
	}
	return nil
}

const runInsertQuery = `INSERT INTO qualification_runs (
	run_id, event_logs_path, output_folder, total_items, failed_items, wall_time_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)`

const itemInsertQuery = `INSERT INTO qualification_run_items (
	run_id, item_id, input_path, output_dir, exit_code, elapsed_ms, started_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)`

func runInsertArgs(run Run) []any {
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return []any{
		strings.TrimSpace(run.ID),
		strings.TrimSpace(run.EventLogsPath),
		strings.TrimSpace(run.OutputFolder),
		run.TotalItems,
		run.FailedItems,
		run.WallTime.Milliseconds(),
		createdAt.UTC(),
	}
}

func itemInsertArgs(runID string, res domain.ExecutionResult) []any {
	return []any{
		strings.TrimSpace(runID),
		res.Item.ID,
		res.Item.InputPath,
		res.Item.OutputDir,
		res.ExitCode,
		res.Elapsed.Milliseconds(),
		res.StartedAt.UTC(),
	}
}
