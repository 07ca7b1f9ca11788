package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// timeLayout is fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Status summarizes a run's outcome.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one recorded stage job.
type Run struct {
	ID         string
	Stage      string
	Workspace  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      string
}

// Status derives the run outcome from its finish time and error text.
func (r Run) Status() Status {
	switch {
	case r.FinishedAt == nil:
		return StatusRunning
	case r.Error != "":
		return StatusFailed
	default:
		return StatusSucceeded
	}
}

// Duration reports elapsed time for finished runs and zero otherwise.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Record inserts a run at job start.
func (s *Store) Record(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("record run: id is required")
	}
	if strings.TrimSpace(run.Stage) == "" {
		return errors.New("record run: stage is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, stage, workspace, started_at, finished_at, error_message) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Stage, run.Workspace, formatTime(run.StartedAt), nullableTime(run.FinishedAt), nullableString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// Finish stamps completion on a recorded run. An empty errMsg marks success.
func (s *Store) Finish(ctx context.Context, id string, finishedAt time.Time, errMsg string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, error_message = ? WHERE id = ?`,
		formatTime(finishedAt), nullableString(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

// Get loads one run by id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, stage, workspace, started_at, finished_at, error_message FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// List returns the most recent runs first. limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	return s.ListStage(ctx, "", limit)
}

// ListStage is List restricted to one stage. An empty stage matches all.
func (s *Store) ListStage(ctx context.Context, stage string, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT id, stage, workspace, started_at, finished_at, error_message FROM runs`
	args := []any{}
	if stage != "" {
		query += " WHERE stage = ?"
		args = append(args, stage)
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
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

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		errRaw      sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Stage, &run.Workspace, &startedRaw, &finishedRaw, &errRaw); err != nil {
		return nil, err
	}
	started, err := time.Parse(timeLayout, startedRaw)
	if err != nil {
		return nil, fmt.Errorf("parse started_at %q: %w", startedRaw, err)
	}
	run.StartedAt = started
	if finishedRaw.Valid {
		finished, err := time.Parse(timeLayout, finishedRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at %q: %w", finishedRaw.String, err)
		}
		run.FinishedAt = &finished
	}
	run.Error = errRaw.String
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}
