// Package history persists run summaries and their per-template outcomes.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/store"
	"github.com/fin-tools/macro-sync/pkg/store/duckdb"
)

const defaultListLimit = 50

// Store writes and reads run history records. SaveRun replaces any existing
// record for the same run id, so re-recording a run is safe.
type Store interface {
	SaveRun(ctx context.Context, run store.Run, details []store.TemplateRun) error
	GetRun(ctx context.Context, id string) (*store.Run, []store.TemplateRun, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

type defaultStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &defaultStore{db: db}, nil
}

func (s *defaultStore) SaveRun(ctx context.Context, run store.Run, details []store.TemplateRun) error {
	tx := duckdb.GetTransaction(ctx)
	owned := false
	if tx == nil {
		var err error
		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		owned = true
		defer func() { _ = tx.Rollback() }()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, mode, started_at, finished_at, total, succeeded, failed, rows_written_total
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Mode,
		run.StartedAt,
		run.FinishedAt,
		run.Total,
		run.Succeeded,
		run.Failed,
		run.RowsWrittenTotal,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM template_runs WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clear template runs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO template_runs (
			run_id, template, status, stage, rows_written, range_start, range_end, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, detail := range details {
		_, err = stmt.ExecContext(ctx,
			run.ID,
			detail.Template,
			detail.Status,
			detail.Stage,
			detail.RowsWritten,
			detail.RangeStart,
			detail.RangeEnd,
			detail.Error,
		)
		if err != nil {
			return fmt.Errorf("insert template run %s: %w", detail.Template, err)
		}
	}

	if owned {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit run: %w", err)
		}
	}
	return nil
}

func (s *defaultStore) GetRun(ctx context.Context, id string) (*store.Run, []store.TemplateRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mode, started_at, finished_at, total, succeeded, failed, rows_written_total
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("run %s: %w", id, errs.ErrRunNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, template, status, stage, rows_written, range_start, range_end, error
		FROM template_runs WHERE run_id = ?
		ORDER BY template`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("query template runs: %w", err)
	}
	defer rows.Close()

	details := make([]store.TemplateRun, 0)
	for rows.Next() {
		var (
			detail     store.TemplateRun
			start, end sql.NullTime
			errText    sql.NullString
		)
		err := rows.Scan(
			&detail.RunID,
			&detail.Template,
			&detail.Status,
			&detail.Stage,
			&detail.RowsWritten,
			&start,
			&end,
			&errText,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("scan template run: %w", err)
		}
		detail.RangeStart = nullableTime(start)
		detail.RangeEnd = nullableTime(end)
		if errText.Valid {
			detail.Error = &errText.String
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate template runs: %w", err)
	}
	return run, details, nil
}

func (s *defaultStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, started_at, finished_at, total, succeeded, failed, rows_written_total
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]store.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*store.Run, error) {
	var (
		run      store.Run
		finished sql.NullTime
	)
	err := row.Scan(
		&run.ID,
		&run.Mode,
		&run.StartedAt,
		&finished,
		&run.Total,
		&run.Succeeded,
		&run.Failed,
		&run.RowsWrittenTotal,
	)
	if err != nil {
		return nil, err
	}
	run.FinishedAt = nullableTime(finished)
	return &run, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
