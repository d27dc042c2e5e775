package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

const schemaLockID int64 = 2026101401

// RunRepository stores finished processing runs in processing_runs.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across cli/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS processing_runs (
	id TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	file_size BIGINT NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	succeeded INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	options JSONB NOT NULL DEFAULT '{}'::jsonb,
	steps JSONB NOT NULL DEFAULT '[]'::jsonb,
	results JSONB NOT NULL DEFAULT '{}'::jsonb,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_processing_runs_started_at ON processing_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_processing_runs_status ON processing_runs(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) SaveRun(ctx context.Context, run domain.Run) error {
	if run.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save run", errors.New("run id is empty"))
	}
	optionsJSON, err := json.Marshal(run.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	steps := run.Steps
	if steps == nil {
		steps = []domain.ProcessingStep{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	resultsJSON, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	succeeded, failed := run.Counts()

	var finishedAt sql.NullTime
	if run.Finished() {
		finishedAt = sql.NullTime{Time: run.FinishedAt.UTC(), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO processing_runs (
	id, file_name, mime_type, file_size, status, succeeded, failed, options, steps, results, started_at, finished_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	succeeded = EXCLUDED.succeeded,
	failed = EXCLUDED.failed,
	steps = EXCLUDED.steps,
	results = EXCLUDED.results,
	finished_at = EXCLUDED.finished_at
`,
		run.ID, run.FileName, run.MimeType, run.FileSize, run.Status(), succeeded, failed,
		optionsJSON, stepsJSON, resultsJSON, run.StartedAt.UTC(), finishedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

const selectRun = `
SELECT id, file_name, mime_type, file_size, options, steps, results, started_at, finished_at
FROM processing_runs
`

func (r *RunRepository) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	row := r.db.QueryRowContext(ctx, selectRun+`WHERE id = $1`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get run", fmt.Errorf("run %s", id))
		}
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, selectRun+`ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.Run, error) {
	var (
		run        domain.Run
		optionsRaw []byte
		stepsRaw   []byte
		resultsRaw []byte
		finishedAt sql.NullTime
	)
	err := row.Scan(
		&run.ID, &run.FileName, &run.MimeType, &run.FileSize,
		&optionsRaw, &stepsRaw, &resultsRaw, &run.StartedAt, &finishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if err := json.Unmarshal(optionsRaw, &run.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if err := json.Unmarshal(stepsRaw, &run.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	if err := json.Unmarshal(resultsRaw, &run.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	for i := range run.Steps {
		if res, ok := run.Results.Get(run.Steps[i].ID); ok {
			run.Steps[i].Result = res
		}
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return &run, nil
}
