/*
Package cache orchestrates the schedule cache: refresh from the remote
source into the snapshot store, and merged reads that project local
completion facts onto the stored tables.

REFRESH:
  Fetch -> Validate -> Normalize dates -> atomic snapshot replace.
  Any failure leaves the previous snapshot fully intact; the caller is
  told which phase failed via the wrapped error.

READ:
  Snapshot rows + completion facts -> Merge. Read never fails: if the
  store is unavailable a blank schedule is a safer default for the read
  path than an error propagating up through UI code.

MUTATIONS:
  MarkStage/MarkComplete report success as a boolean. On failure the
  record keeps its prior state and the caller should retry.
*/
package cache

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scribe/study-engine/schedule"
	"github.com/scribe/study-engine/sheets"
	"github.com/scribe/study-engine/store/sqlite"
)

// Config wires the cache's collaborators. Store and Fetcher are
// required; zero values elsewhere fall back to defaults.
type Config struct {
	Store    *sqlite.Store
	Fetcher  *sheets.Fetcher
	Location *time.Location

	// Payload field names for the two tables.
	MonthlyKey string
	DailyKey   string
}

// Cache is the facade over the snapshot store, completion store, and
// remote fetcher. Construct one at process start and pass it by handle;
// there is no package-level state.
type Cache struct {
	store      *sqlite.Store
	fetcher    *sheets.Fetcher
	loc        *time.Location
	monthlyKey string
	dailyKey   string
}

// New creates a cache from cfg.
func New(cfg Config) *Cache {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	monthlyKey := cfg.MonthlyKey
	if monthlyKey == "" {
		monthlyKey = sheets.DefaultMonthlyKey
	}
	dailyKey := cfg.DailyKey
	if dailyKey == "" {
		dailyKey = sheets.DefaultDailyKey
	}
	return &Cache{
		store:      cfg.Store,
		fetcher:    cfg.Fetcher,
		loc:        loc,
		monthlyKey: monthlyKey,
		dailyKey:   dailyKey,
	}
}

// View is the merged, externally visible pair of tables.
type View struct {
	Monthly   schedule.Table
	Daily     schedule.Table
	UpdatedAt string
}

// Stats is the monthly completion count.
type Stats struct {
	Completed int
}

// Progress is the daily three-stage progress figure.
type Progress struct {
	TotalTasks      int
	TotalStages     int
	CompletedStages int
	Percentage      float64
}

// Refresh fetches the remote payload, validates and normalizes it, and
// atomically replaces the stored snapshot. Returns the new updated_at
// stamp. On any error the previous snapshot remains authoritative.
func (c *Cache) Refresh(ctx context.Context, sourceURL string) (string, error) {
	raw, err := c.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	monthly, daily, err := sheets.Validate(raw, c.monthlyKey, c.dailyKey)
	if err != nil {
		return "", err
	}

	daily = schedule.NormalizeDates(daily, c.loc)

	stamp, err := c.store.ReplaceSnapshot(ctx, monthly, daily)
	if err != nil {
		return "", err
	}
	return stamp, nil
}

// Read returns the current snapshot merged with completion facts.
// It always succeeds; a storage failure degrades to empty tables.
func (c *Cache) Read(ctx context.Context) View {
	monthly, daily, updatedAt, err := c.store.Snapshot(ctx)
	if err != nil {
		log.Printf("[Cache] snapshot read failed, serving empty tables: %v", err)
		return View{Monthly: schedule.Table{}, Daily: schedule.Table{}}
	}

	facts, err := c.store.Completions(ctx)
	if err != nil {
		log.Printf("[Cache] completions read failed, serving empty tables: %v", err)
		return View{Monthly: schedule.Table{}, Daily: schedule.Table{}}
	}

	return View{
		Monthly:   schedule.Merge(monthly, facts, schedule.KindMonthly),
		Daily:     schedule.Merge(daily, facts, schedule.KindDaily),
		UpdatedAt: updatedAt,
	}
}

// MarkStage flips one stage of a daily task. Reports success; on
// failure the stored record is unchanged.
func (c *Cache) MarkStage(ctx context.Context, taskID string, kind schedule.TaskKind, stage schedule.Stage, done bool, monthYear string) bool {
	if err := c.store.MarkStage(ctx, taskID, kind, stage, done, monthYear); err != nil {
		log.Printf("[Cache] mark stage failed for %s: %v", taskID, err)
		return false
	}
	return true
}

// MarkComplete marks a task complete, or on done=false deletes its
// completion record entirely - for daily tasks that is a destructive
// full reset of all three stages, unlike an individual stage unmark.
func (c *Cache) MarkComplete(ctx context.Context, taskID string, kind schedule.TaskKind, done bool, monthYear string) bool {
	if err := c.store.MarkComplete(ctx, taskID, kind, done, monthYear); err != nil {
		log.Printf("[Cache] mark complete failed for %s: %v", taskID, err)
		return false
	}
	return true
}

// Stats returns the monthly completion count, optionally filtered by
// month_year. Degrades to zero on storage failure.
func (c *Cache) Stats(ctx context.Context, monthYear string) Stats {
	count, err := c.store.CompletionStats(ctx, monthYear)
	if err != nil {
		log.Printf("[Cache] stats failed: %v", err)
		return Stats{}
	}
	return Stats{Completed: count}
}

// ProgressFor computes the three-stage progress figure for the daily
// table, optionally restricted to one calendar day.
func (c *Cache) ProgressFor(ctx context.Context, date string) Progress {
	counts, err := c.store.Progress(ctx, date)
	if err != nil {
		log.Printf("[Cache] progress failed: %v", err)
		return Progress{}
	}

	totalTasks := counts.TotalRows
	if totalTasks > 0 {
		// The stored table includes its header row.
		totalTasks--
	}
	totalStages := totalTasks * 3

	p := Progress{
		TotalTasks:      totalTasks,
		TotalStages:     totalStages,
		CompletedStages: counts.CompletedStages,
	}
	if totalStages > 0 {
		p.Percentage = decimal.NewFromInt(int64(counts.CompletedStages)).
			Div(decimal.NewFromInt(int64(totalStages))).
			Mul(decimal.NewFromInt(100)).
			Round(2).
			InexactFloat64()
	}
	return p
}
