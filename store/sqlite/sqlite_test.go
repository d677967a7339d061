package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe/study-engine/schedule"
	"github.com/scribe/study-engine/store/sqlite"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:", ist)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func monthlyTable() schedule.Table {
	return schedule.Table{
		{"id", "to_do", "Status"},
		{"3", "Calculus", "Pending"},
	}
}

func dailyTable() schedule.Table {
	return schedule.Table{
		{"id", "Date", "Status"},
		{"7", "2025-10-02", "Pending"},
	}
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

func TestInit_IdempotentOnExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.db")

	first, err := sqlite.New(path, ist)
	require.NoError(t, err)
	_, err = first.ReplaceSnapshot(context.Background(), monthlyTable(), dailyTable())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Re-opening migrates again; existing data survives.
	second, err := sqlite.New(path, ist)
	require.NoError(t, err)
	defer second.Close()

	monthly, daily, updatedAt, err := second.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, monthlyTable(), monthly)
	assert.Equal(t, dailyTable(), daily)
	assert.NotEmpty(t, updatedAt)
}

func TestSnapshot_EmptyOnColdStart(t *testing.T) {
	store := newTestStore(t)

	monthly, daily, updatedAt, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, monthly)
	assert.Empty(t, daily)
	assert.Empty(t, updatedAt)
}

func TestReplaceSnapshot_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stamp, err := store.ReplaceSnapshot(ctx, monthlyTable(), dailyTable())
	require.NoError(t, err)

	parsed, err := time.Parse(time.RFC3339, stamp)
	require.NoError(t, err)
	_, offset := parsed.Zone()
	assert.Equal(t, 5*3600+1800, offset)

	monthly, daily, updatedAt, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, monthlyTable(), monthly)
	assert.Equal(t, dailyTable(), daily)
	assert.Equal(t, stamp, updatedAt)
}

func TestReplaceSnapshot_DiscardsPreviousContents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ReplaceSnapshot(ctx, monthlyTable(), dailyTable())
	require.NoError(t, err)

	next := schedule.Table{{"id"}, {"42"}}
	_, err = store.ReplaceSnapshot(ctx, next, schedule.Table{})
	require.NoError(t, err)

	monthly, daily, _, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, monthly)
	assert.Empty(t, daily)
}

func TestReplaceSnapshot_AtomicUnderConcurrentReads(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "schedule.db"), ist)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	gen := func(tag string) (schedule.Table, schedule.Table) {
		return schedule.Table{{"id", "gen"}, {"1", tag}},
			schedule.Table{{"id", "Date", "gen"}, {"1", "2025-10-02", tag}}
	}

	m, d := gen("a")
	_, err = store.ReplaceSnapshot(ctx, m, d)
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		tags := []string{"a", "b"}
		for i := 0; i < 50; i++ {
			m, d := gen(tags[i%2])
			if _, err := store.ReplaceSnapshot(ctx, m, d); err != nil {
				t.Errorf("replace failed: %v", err)
				return
			}
		}
		close(done)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				monthly, daily, _, err := store.Snapshot(ctx)
				if err != nil {
					t.Errorf("read failed: %v", err)
					return
				}
				if len(monthly) != 2 || len(daily) != 2 {
					t.Errorf("partial snapshot observed: %v / %v", monthly, daily)
					return
				}
				// Both tables must belong to the same replace generation.
				if monthly[1][1] != daily[1][2] {
					t.Errorf("mixed generations: monthly=%s daily=%s", monthly[1][1], daily[1][2])
					return
				}
			}
		}()
	}

	wg.Wait()
}

// =============================================================================
// COMPLETION STORE
// =============================================================================

func TestCompletions_SurviveSnapshotReplace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ReplaceSnapshot(ctx, monthlyTable(), dailyTable())
	require.NoError(t, err)

	require.NoError(t, store.MarkStage(ctx, "daily_7", schedule.KindDaily, schedule.StageFirstRead, true, "2025-10"))
	require.NoError(t, store.MarkComplete(ctx, "monthly_3", schedule.KindMonthly, true, "2025-10"))

	// Refresh overwrites the snapshot; facts are keyed by row id, not
	// snapshot generation.
	_, err = store.ReplaceSnapshot(ctx, monthlyTable(), dailyTable())
	require.NoError(t, err)

	facts, err := store.Completions(ctx)
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.True(t, facts["daily_7"].FirstRead)
	assert.True(t, facts["monthly_3"].Completed)
}

func TestMarkStage_CreatesRecordWithDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkStage(ctx, "daily_7", schedule.KindDaily, schedule.StageNotes, true, "2025-10"))

	facts, err := store.Completions(ctx)
	require.NoError(t, err)

	f := facts["daily_7"]
	assert.Equal(t, schedule.KindDaily, f.Kind)
	assert.False(t, f.Completed)
	assert.False(t, f.FirstRead)
	assert.True(t, f.Notes)
	assert.False(t, f.Revision)
	assert.NotEmpty(t, f.CompletedAt)
	assert.Equal(t, "2025-10", f.MonthYear)
}

func TestMarkStage_UpdatesOnlyNamedStage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkStage(ctx, "daily_7", schedule.KindDaily, schedule.StageFirstRead, true, ""))
	require.NoError(t, store.MarkStage(ctx, "daily_7", schedule.KindDaily, schedule.StageNotes, true, ""))

	facts, err := store.Completions(ctx)
	require.NoError(t, err)

	f := facts["daily_7"]
	assert.True(t, f.FirstRead)
	assert.True(t, f.Notes)
	assert.False(t, f.Revision)

	// Unmarking one stage leaves the other intact.
	require.NoError(t, store.MarkStage(ctx, "daily_7", schedule.KindDaily, schedule.StageFirstRead, false, ""))
	facts, err = store.Completions(ctx)
	require.NoError(t, err)
	assert.False(t, facts["daily_7"].FirstRead)
	assert.True(t, facts["daily_7"].Notes)
}

func TestMarkStage_RejectsUnknownStage(t *testing.T) {
	store := newTestStore(t)
	err := store.MarkStage(context.Background(), "daily_7", schedule.KindDaily, schedule.Stage("review"), true, "")
	assert.ErrorIs(t, err, schedule.ErrUnknownStage)
}

func TestMarkComplete_ResetsStageFlags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkStage(ctx, "daily_7", schedule.KindDaily, schedule.StageFirstRead, true, ""))
	require.NoError(t, store.MarkComplete(ctx, "daily_7", schedule.KindDaily, true, ""))

	facts, err := store.Completions(ctx)
	require.NoError(t, err)
	f := facts["daily_7"]
	assert.True(t, f.Completed)
	assert.False(t, f.FirstRead)
}

func TestMarkComplete_FalseDeletesEntireRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// All three stages marked, then a full un-complete: the whole
	// record goes, stages included.
	for _, st := range []schedule.Stage{schedule.StageFirstRead, schedule.StageNotes, schedule.StageRevision} {
		require.NoError(t, store.MarkStage(ctx, "daily_7", schedule.KindDaily, st, true, ""))
	}
	require.NoError(t, store.MarkComplete(ctx, "daily_7", schedule.KindDaily, false, ""))

	facts, err := store.Completions(ctx)
	require.NoError(t, err)
	assert.NotContains(t, facts, "daily_7")
}

func TestCompletionStats_CountsCompletedOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkComplete(ctx, "monthly_1", schedule.KindMonthly, true, "2025-10"))
	require.NoError(t, store.MarkComplete(ctx, "monthly_2", schedule.KindMonthly, true, "2025-11"))
	// Daily stage marks never set completed.
	require.NoError(t, store.MarkStage(ctx, "daily_7", schedule.KindDaily, schedule.StageFirstRead, true, "2025-10"))

	all, err := store.CompletionStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, all)

	oct, err := store.CompletionStats(ctx, "2025-10")
	require.NoError(t, err)
	assert.Equal(t, 1, oct)
}

func TestProgress_CountsRowsAndStages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ReplaceSnapshot(ctx, schedule.Table{}, dailyTable())
	require.NoError(t, err)

	require.NoError(t, store.MarkStage(ctx, "daily_7", schedule.KindDaily, schedule.StageFirstRead, true, ""))
	require.NoError(t, store.MarkStage(ctx, "daily_7", schedule.KindDaily, schedule.StageNotes, true, ""))

	pc, err := store.Progress(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, pc.TotalRows) // header + one task row
	assert.Equal(t, 2, pc.CompletedStages)
}

func TestProgress_DateFilterJoinsOnRowID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	daily := schedule.Table{
		{"id", "Date"},
		{"7", "2025-10-02"},
		{"8", "2025-10-03"},
	}
	_, err := store.ReplaceSnapshot(ctx, schedule.Table{}, daily)
	require.NoError(t, err)

	require.NoError(t, store.MarkStage(ctx, "daily_7", schedule.KindDaily, schedule.StageFirstRead, true, ""))
	require.NoError(t, store.MarkStage(ctx, "daily_8", schedule.KindDaily, schedule.StageFirstRead, true, ""))

	pc, err := store.Progress(ctx, "2025-10-02")
	require.NoError(t, err)
	assert.Equal(t, 1, pc.TotalRows)
	assert.Equal(t, 1, pc.CompletedStages) // daily_8 is on another day
}
