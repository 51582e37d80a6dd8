// Package history records qtbuild runs and their steps in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/qtbuild/internal/models"
)

// ErrRunNotFound is returned when no run matches an id or id prefix.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRun is returned when an id prefix matches more than one run.
var ErrAmbiguousRun = errors.New("run id prefix is ambiguous")

// Run is a stored run summary.
type Run struct {
	ID         string
	Label      string
	Build      string
	Target     string
	Command    string
	Packages   string
	WorkingDir string
	Success    bool
	Message    string
	StartedAt  time.Time
	Duration   time.Duration
}

// Step is a stored step of a run.
type Step struct {
	RunID       string
	Sequence    int
	Step        string
	Target      string
	CommandLine string
	ExitCode    int
	Success     bool
	Message     string
	Duration    time.Duration
}

// Store manages the SQLite run history database
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database at dbPath and applies
// pending migrations. dbPath may be ":memory:".
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return store, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores report and all of its steps atomically.
func (s *Store) RecordRun(ctx context.Context, report *models.RunReport) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("record run: report has no id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	task := report.Task
	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, label, build, target, command, packages, working_dir, success, message, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, task.Label(), task.WithDefaults().Build, task.Target, task.Command, task.Packages,
		report.Context.WorkingDirectory, report.Result.Success, report.Result.Message,
		report.StartedAt.UTC(), report.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, step := range report.Steps {
		_, err = tx.ExecContext(ctx, `INSERT INTO steps
			(run_id, sequence, step, target, command_line, exit_code, success, message, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.ID, step.Sequence, string(step.Step), step.Target, step.CommandLine,
			step.ExitCode, step.Result.Success, step.Result.Message, step.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("insert step %d: %w", step.Sequence, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `id, label, build, target, command, packages, working_dir, success, message, started_at, duration_ms`

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
// failedOnly restricts the result to failed runs.
func (s *Store) ListRuns(ctx context.Context, limit int, failedOnly bool) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	if failedOnly {
		query += ` WHERE success = 0`
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run whose id equals or uniquely starts with id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrRunNotFound
	}
	pattern := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(id) + "%"
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, pattern)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return &run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	}
}

// GetSteps returns the steps of a run in execution order.
func (s *Store) GetSteps(ctx context.Context, runID string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, sequence, step, target, command_line, exit_code, success, message, duration_ms
		FROM steps WHERE run_id = ? ORDER BY sequence ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var (
			st       Step
			target   sql.NullString
			line     sql.NullString
			message  sql.NullString
			duration int64
		)
		if err := rows.Scan(&st.RunID, &st.Sequence, &st.Step, &target, &line, &st.ExitCode, &st.Success, &message, &duration); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		st.Target = target.String
		st.CommandLine = line.String
		st.Message = message.String
		st.Duration = time.Duration(duration) * time.Millisecond
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// Prune deletes all but the keep most recent runs along with their steps.
// keep <= 0 keeps everything. Returns the number of runs deleted.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stale := `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT -1 OFFSET ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE run_id IN (`+stale+`)`, keep); err != nil {
		return 0, fmt.Errorf("prune steps: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run                            Run
		target, command, pkgs, message sql.NullString
		duration                       int64
	)
	if err := row.Scan(&run.ID, &run.Label, &run.Build, &target, &command, &pkgs, &run.WorkingDir,
		&run.Success, &message, &run.StartedAt, &duration); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Target = target.String
	run.Command = command.String
	run.Packages = pkgs.String
	run.Message = message.String
	run.Duration = time.Duration(duration) * time.Millisecond
	return run, nil
}
