/*
Package schedule provides the domain core of the study-planner cache:
tables, task kinds, completion facts, date normalization, and the
read-time merge that projects completion state onto snapshot rows.

KEY CONCEPTS IN THIS FILE (types.go):
  - Table: A 2-D grid of strings; row 0 is the header
  - TaskKind: Closed variant distinguishing monthly and daily tasks
  - Stage: One of the three daily sub-steps (first_read, notes, revision)
  - CompletionFact: Locally persisted completion state for one task

DESIGN PRINCIPLES:
  1. No I/O: this package is pure data and pure functions
  2. Tolerance: short rows and missing columns are states, not errors
  3. Type Safety: task kinds and stages are checked at the boundary,
     never passed around as free-form strings

SEE ALSO:
  - schema.go: One-time column resolution for a table header
  - merge.go: Completion-fact projection onto snapshot rows
  - normalize.go: Calendar-day normalization of the Date column
*/
package schedule

import "fmt"

// =============================================================================
// TABLE - 2-D grid of strings, header in row 0
// =============================================================================

// Table is a 2-D grid of strings. Row 0 is the header; rows may be
// shorter than the header, in which case the missing cells are absent.
type Table [][]string

// Header returns the header row, or nil for an empty table.
func (t Table) Header() []string {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// Rows returns the data rows (everything after the header).
func (t Table) Rows() [][]string {
	if len(t) <= 1 {
		return nil
	}
	return t[1:]
}

// Clone returns a deep copy of the table. Merge and normalization
// operate on copies so callers never see shared row slices.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for i, row := range t {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Cell returns the cell at idx in row, reporting absence for short rows.
func Cell(row []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(row) {
		return "", false
	}
	return row[idx], true
}

// =============================================================================
// TASK KIND - closed variant, parsed once at the boundary
// =============================================================================

// TaskKind discriminates the two task families. It is a closed set:
// construct values via the constants or ParseTaskKind, never by casting
// arbitrary strings.
type TaskKind string

const (
	KindMonthly TaskKind = "monthly"
	KindDaily   TaskKind = "daily"
)

// ParseTaskKind validates an external task-type string.
func ParseTaskKind(s string) (TaskKind, error) {
	switch TaskKind(s) {
	case KindMonthly:
		return KindMonthly, nil
	case KindDaily:
		return KindDaily, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTaskKind, s)
}

// Valid reports whether k is one of the two known kinds.
func (k TaskKind) Valid() bool {
	return k == KindMonthly || k == KindDaily
}

// FactID builds the completion-fact key for a snapshot row id,
// e.g. "daily_7" or "monthly_3".
func (k TaskKind) FactID(rowID string) string {
	return string(k) + "_" + rowID
}

// =============================================================================
// STAGE - the three daily sub-steps
// =============================================================================

// Stage is one of the three independent completion sub-steps tracked
// for daily tasks.
type Stage string

const (
	StageFirstRead Stage = "first_read"
	StageNotes     Stage = "notes"
	StageRevision  Stage = "revision"
)

// ParseStage validates an external stage string.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageFirstRead, StageNotes, StageRevision:
		return Stage(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
}

// Valid reports whether st is one of the three known stages.
func (st Stage) Valid() bool {
	_, err := ParseStage(string(st))
	return err == nil
}

// =============================================================================
// COMPLETION FACT
// =============================================================================

// CompletionFact is the locally persisted completion state for one task.
// It survives snapshot refreshes: the key is the stable row id, not a
// snapshot generation.
//
// For monthly facts only Completed is meaningful; for daily facts only
// the three stage booleans are. CompletedAt records the last mutation;
// MonthYear is a free-form grouping label for statistics.
type CompletionFact struct {
	TaskID      string
	Kind        TaskKind
	Completed   bool
	FirstRead   bool
	Notes       bool
	Revision    bool
	CompletedAt string
	MonthYear   string
}

// FullyDone reports whether a daily task has all three stages marked.
func (f CompletionFact) FullyDone() bool {
	return f.FirstRead && f.Notes && f.Revision
}

// Stage returns the value of the named stage.
func (f CompletionFact) Stage(st Stage) bool {
	switch st {
	case StageFirstRead:
		return f.FirstRead
	case StageNotes:
		return f.Notes
	case StageRevision:
		return f.Revision
	}
	return false
}
