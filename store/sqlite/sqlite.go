/*
Package sqlite provides the SQLite-backed snapshot and completion stores.

PURPOSE:
  Persists the two-table schedule snapshot and the per-task completion
  facts. The two live in the same database file but have independent
  lifecycles: a snapshot replace never touches task_completions.

KEY TABLES:
  monthly_schedule: One row-blob (JSON array of strings) per monthly row
  daily_schedule:   Row-blobs plus an extracted date column so date
                    filters don't reparse every blob
  task_completions: Completion facts keyed by task id
  metadata:         Key/value; holds the snapshot updated_at stamp

ATOMIC REPLACE:
  ReplaceSnapshot runs inside a single SQL transaction: delete both
  tables, insert the new rows, stamp updated_at, commit. A reader
  either sees the full previous snapshot or the full new one, and a
  crash mid-replace rolls back to the previous snapshot.

CONCURRENCY:
  sync.RWMutex on top of SQLite in WAL mode. Multiple readers don't
  block; one writer at a time.

USAGE:
  store, err := sqlite.New("./data/schedule.db", loc)
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New() and is idempotent: every statement
  is CREATE ... IF NOT EXISTS.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/scribe/study-engine/schedule"
)

// Store implements the snapshot and completion stores using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	loc *time.Location
}

// New creates a new SQLite store at dbPath, stamping timestamps in loc.
// Use ":memory:" for an in-memory database.
func New(dbPath string, loc *time.Location) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection gets its own in-memory database;
		// pin the pool to one so the migrated schema is visible.
		db.SetMaxOpenConns(1)
	}
	if loc == nil {
		loc = time.UTC
	}

	store := &Store{db: db, loc: loc}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema. Idempotent.
func (s *Store) migrate() error {
	schemaSQL := `
	-- Snapshot metadata (updated_at stamp)
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Monthly snapshot rows (header included, insertion order preserved)
	CREATE TABLE IF NOT EXISTS monthly_schedule (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		row_data TEXT NOT NULL
	);

	-- Daily snapshot rows with the date extracted for range queries
	CREATE TABLE IF NOT EXISTS daily_schedule (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		row_data TEXT NOT NULL,
		date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_daily_date
		ON daily_schedule(date);

	-- Completion facts, independent of the snapshot lifecycle.
	-- Daily tasks use the three stage flags; monthly tasks use completed.
	CREATE TABLE IF NOT EXISTS task_completions (
		task_id TEXT PRIMARY KEY,
		task_type TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		first_read INTEGER NOT NULL DEFAULT 0,
		notes INTEGER NOT NULL DEFAULT 0,
		revision INTEGER NOT NULL DEFAULT 0,
		completed_at TEXT,
		month_year TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_completions_month
		ON task_completions(month_year);
	`

	_, err := s.db.Exec(schemaSQL)
	return err
}

// now returns the current timestamp in the store's timezone, ISO-8601.
func (s *Store) now() string {
	return time.Now().In(s.loc).Format(time.RFC3339)
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

const metaUpdatedAt = "updated_at"

// ReplaceSnapshot atomically replaces both tables and the updated_at
// stamp. On any failure the previous snapshot remains fully readable.
// Returns the new stamp.
func (s *Store) ReplaceSnapshot(ctx context.Context, monthly, daily schedule.Table) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM monthly_schedule"); err != nil {
		return "", fmt.Errorf("failed to clear monthly snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM daily_schedule"); err != nil {
		return "", fmt.Errorf("failed to clear daily snapshot: %w", err)
	}

	for _, row := range monthly {
		blob, err := json.Marshal(row)
		if err != nil {
			return "", fmt.Errorf("failed to encode monthly row: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO monthly_schedule (row_data) VALUES (?)", string(blob)); err != nil {
			return "", fmt.Errorf("failed to insert monthly row: %w", err)
		}
	}

	dateIdx, hasDate := -1, false
	if len(daily) > 0 {
		dateIdx, hasDate = schedule.ResolveSchema(daily.Header()).Column(schedule.ColumnDate)
	}
	for _, row := range daily {
		blob, err := json.Marshal(row)
		if err != nil {
			return "", fmt.Errorf("failed to encode daily row: %w", err)
		}
		var date sql.NullString
		if hasDate && dateIdx < len(row) && row[dateIdx] != "" {
			d := row[dateIdx]
			if len(d) > 10 {
				d = d[:10]
			}
			date = sql.NullString{String: d, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO daily_schedule (row_data, date) VALUES (?, ?)", string(blob), date); err != nil {
			return "", fmt.Errorf("failed to insert daily row: %w", err)
		}
	}

	stamp := s.now()
	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)", metaUpdatedAt, stamp); err != nil {
		return "", fmt.Errorf("failed to stamp snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return stamp, nil
}

// Snapshot returns copies of both tables plus the updated_at stamp.
// A fresh store yields empty tables and an empty stamp.
func (s *Store) Snapshot(ctx context.Context) (monthly, daily schedule.Table, updatedAt string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	monthly, err = s.readRows(ctx, "SELECT row_data FROM monthly_schedule ORDER BY id")
	if err != nil {
		return nil, nil, "", err
	}
	daily, err = s.readRows(ctx, "SELECT row_data FROM daily_schedule ORDER BY id")
	if err != nil {
		return nil, nil, "", err
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT value FROM metadata WHERE key = ?", metaUpdatedAt).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		err = nil
	}
	if err != nil {
		return nil, nil, "", err
	}
	return monthly, daily, updatedAt, nil
}

func (s *Store) readRows(ctx context.Context, query string) (schedule.Table, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	table := schedule.Table{}
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		var row []string
		if err := json.Unmarshal([]byte(blob), &row); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot row: %w", err)
		}
		table = append(table, row)
	}
	return table, rows.Err()
}

// =============================================================================
// COMPLETION STORE
// =============================================================================

// Completions returns all completion facts keyed by task id.
func (s *Store) Completions(ctx context.Context) (map[string]schedule.CompletionFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, task_type, completed, first_read, notes, revision,
		       completed_at, month_year
		FROM task_completions
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	facts := make(map[string]schedule.CompletionFact)
	for rows.Next() {
		var (
			f                      schedule.CompletionFact
			kind                   string
			completed, first       int
			notes, revision        int
			completedAt, monthYear sql.NullString
		)
		if err := rows.Scan(&f.TaskID, &kind, &completed, &first, &notes, &revision,
			&completedAt, &monthYear); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		f.Kind = schedule.TaskKind(kind)
		f.Completed = completed == 1
		f.FirstRead = first == 1
		f.Notes = notes == 1
		f.Revision = revision == 1
		f.CompletedAt = completedAt.String
		f.MonthYear = monthYear.String
		facts[f.TaskID] = f
	}
	return facts, rows.Err()
}

// MarkStage upserts exactly one stage flag. A missing record is created
// with the other stages and completed defaulted to 0; an existing record
// keeps its other fields. completed_at is always refreshed.
func (s *Store) MarkStage(ctx context.Context, taskID string, kind schedule.TaskKind, stage schedule.Stage, done bool, monthYear string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", schedule.ErrUnknownTaskKind, kind)
	}
	if !stage.Valid() {
		return fmt.Errorf("%w: %q", schedule.ErrUnknownStage, stage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// stage comes from the closed Stage set, so splicing the column
	// name into SQL is safe.
	col := string(stage)
	query := fmt.Sprintf(`
		INSERT INTO task_completions
			(task_id, task_type, completed, first_read, notes, revision, completed_at, month_year)
		VALUES (?, ?, 0, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			%s = excluded.%s,
			completed_at = excluded.completed_at
	`, col, col)

	flags := map[schedule.Stage]int{}
	if done {
		flags[stage] = 1
	}

	_, err := s.db.ExecContext(ctx, query,
		taskID, string(kind),
		flags[schedule.StageFirstRead], flags[schedule.StageNotes], flags[schedule.StageRevision],
		s.now(), nullString(monthYear),
	)
	if err != nil {
		return fmt.Errorf("failed to mark stage: %w", err)
	}
	return nil
}

// MarkComplete handles monthly-style completion. done=true upserts a
// completed record with all stage flags reset; done=false deletes the
// record entirely, stages included.
func (s *Store) MarkComplete(ctx context.Context, taskID string, kind schedule.TaskKind, done bool, monthYear string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", schedule.ErrUnknownTaskKind, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !done {
		_, err := s.db.ExecContext(ctx,
			"DELETE FROM task_completions WHERE task_id = ?", taskID)
		if err != nil {
			return fmt.Errorf("failed to unmark task: %w", err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO task_completions
			(task_id, task_type, completed, first_read, notes, revision, completed_at, month_year)
		VALUES (?, ?, 1, 0, 0, 0, ?, ?)
	`, taskID, string(kind), s.now(), nullString(monthYear))
	if err != nil {
		return fmt.Errorf("failed to mark task complete: %w", err)
	}
	return nil
}

// CompletionStats counts facts with completed set, optionally filtered
// by month_year. Only meaningful for monthly-style facts: daily stage
// marking never sets completed.
func (s *Store) CompletionStats(ctx context.Context, monthYear string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		count int
		err   error
	)
	if monthYear != "" {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM task_completions WHERE month_year = ? AND completed = 1",
			monthYear).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM task_completions WHERE completed = 1").Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, nil
}

// ProgressCounts are the raw numbers behind the daily progress figure.
// TotalRows includes the stored header row; the caller subtracts it.
type ProgressCounts struct {
	TotalRows       int
	CompletedStages int
}

// Progress returns the daily row count and the summed stage flags,
// optionally restricted to rows whose extracted date matches date.
// The date-filtered stage sum joins on the first cell of each stored
// row, which is the id column.
func (s *Store) Progress(ctx context.Context, date string) (ProgressCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pc ProgressCounts
	var err error

	if date != "" {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM daily_schedule WHERE date = ?", date).Scan(&pc.TotalRows)
	} else {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM daily_schedule").Scan(&pc.TotalRows)
	}
	if err != nil {
		return ProgressCounts{}, fmt.Errorf("failed to count daily rows: %w", err)
	}

	if date != "" {
		err = s.db.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(first_read) + SUM(notes) + SUM(revision), 0)
			FROM task_completions
			WHERE task_type = 'daily'
			  AND task_id IN (
				SELECT 'daily_' || json_extract(row_data, '$[0]')
				FROM daily_schedule
				WHERE date = ?
			  )
		`, date).Scan(&pc.CompletedStages)
	} else {
		err = s.db.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(first_read) + SUM(notes) + SUM(revision), 0)
			FROM task_completions
			WHERE task_type = 'daily'
		`).Scan(&pc.CompletedStages)
	}
	if err != nil {
		return ProgressCounts{}, fmt.Errorf("failed to sum stages: %w", err)
	}
	return pc, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
