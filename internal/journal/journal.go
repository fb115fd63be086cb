// Package journal records per-app outcomes of crawl and migration runs in SQLite.
// Failed apps leave no file behind; the journal is where they can be listed again.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite" // pure Go driver

	"steamscraper/internal/logger"
)

// Outcomes written to the journal.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
	OutcomeTrash     = "trash"
	OutcomeFailed    = "failed"
)

// Run kinds.
const (
	KindCrawl   = "crawl"
	KindMigrate = "migrate"
)

// ErrRunNotFound is returned when a run id is not in the journal.
var ErrRunNotFound = errors.New("run not found")

// Entry is one app outcome within a run.
type Entry struct {
	RunID   string
	AppID   int
	Outcome string
	Detail  string
	At      time.Time
}

// Run describes one crawl or migration invocation.
type Run struct {
	ID         string
	Kind       string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Journal is a SQLite-backed run journal.
type Journal struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRunID returns a fresh, time-ordered run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// Open opens or creates the journal at path. ":memory:" keeps it in memory.
func Open(path string, log *logger.Logger) (*Journal, error) {
	if log == nil {
		log = logger.Discard()
	}

	var connStr string

	if path == ":memory:" {
		connStr = "file::memory:?cache=shared"
	} else {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create journal directory: %w", err)
			}
		}

		connStr = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	j := &Journal{db: db, logger: log}

	if err := j.migrate(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}

	log.Debug("journal opened", "path", path)

	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);
	CREATE TABLE IF NOT EXISTS entries (
		run_id TEXT NOT NULL REFERENCES runs(id),
		app_id INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_run ON entries(run_id, outcome);
	CREATE INDEX IF NOT EXISTS idx_entries_app ON entries(app_id);
	`

	_, err := j.db.Exec(schema)

	return err
}

// BeginRun registers a new run of kind and returns its id.
func (j *Journal) BeginRun(ctx context.Context, kind string) (string, error) {
	return j.BeginRunWithID(ctx, NewRunID(), kind)
}

// BeginRunWithID registers a run under an id chosen by the caller.
func (j *Journal) BeginRunWithID(ctx context.Context, id, kind string) (string, error) {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, started_at) VALUES (?, ?, ?)`,
		id, kind, formatTime(time.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to begin run: %w", err)
	}

	return id, nil
}

// FinishRun stamps the run as finished.
func (j *Journal) FinishRun(ctx context.Context, runID string) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ? WHERE id = ?`,
		formatTime(time.Now()), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return nil
}

// Record appends one outcome. A zero At is stamped with the current time.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO entries (run_id, app_id, outcome, detail, at) VALUES (?, ?, ?, ?, ?)`,
		e.RunID, e.AppID, e.Outcome, e.Detail, formatTime(e.At),
	)
	if err != nil {
		return fmt.Errorf("failed to record app %d: %w", e.AppID, err)
	}

	return nil
}

// Entries returns every entry of a run in insertion order.
func (j *Journal) Entries(ctx context.Context, runID string) ([]Entry, error) {
	return j.query(ctx,
		`SELECT run_id, app_id, outcome, detail, at FROM entries WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
}

// Failed returns the failed entries of a run.
func (j *Journal) Failed(ctx context.Context, runID string) ([]Entry, error) {
	return j.query(ctx,
		`SELECT run_id, app_id, outcome, detail, at FROM entries WHERE run_id = ? AND outcome = ? ORDER BY rowid`,
		runID, OutcomeFailed,
	)
}

// LastRun returns the most recently started run of kind.
func (j *Journal) LastRun(ctx context.Context, kind string) (*Run, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, kind, started_at, finished_at FROM runs WHERE kind = ? ORDER BY id DESC LIMIT 1`,
		kind,
	)

	var (
		run      Run
		started  string
		finished sql.NullString
	)

	if err := row.Scan(&run.ID, &run.Kind, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no %s runs", ErrRunNotFound, kind)
		}

		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	run.StartedAt = parseTime(started)

	if finished.Valid {
		t := parseTime(finished.String)
		run.FinishedAt = &t
	}

	return &run, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e  Entry
			at string
		)

		if err := rows.Scan(&e.RunID, &e.AppID, &e.Outcome, &e.Detail, &at); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		e.At = parseTime(at)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
