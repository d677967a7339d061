/*
merge.go - Read-time projection of completion facts onto snapshot rows

Merge is a pure, total function: it never errors on malformed input and
never mutates its arguments. A table with no header or no id column is
returned as-is.

DAILY TABLES:
  The header gains first_read/notes/revision columns (once). Each row
  gains the three stage cells, defaulting to 0. The Status cell, when
  present, is recomputed: "done" iff all three stages are marked, else
  "Pending" - whatever status arrived from the source is overwritten.

MONTHLY TABLES:
  A row whose fact is locally completed gets Status "done". A row with
  no local fact does not get to claim completion on its own: source
  status words like "done" or "finished" are rewritten to "Pending".

Merging an already-merged table is a no-op: the header is not extended
twice and stage cells are overwritten in place rather than re-appended.
*/
package schedule

import "strings"

// Status words written by the merge.
const (
	StatusDone    = "done"
	StatusPending = "Pending"
)

// ColumnID and ColumnStatus are the join and status columns of both tables.
const (
	ColumnID     = "id"
	ColumnStatus = "Status"
)

// stageColumns is the order in which stage cells extend a daily row.
var stageColumns = []string{string(StageFirstRead), string(StageNotes), string(StageRevision)}

// sourceDoneWords are status values a source row may carry that claim
// completion. They are not trusted unless corroborated by a local fact.
var sourceDoneWords = map[string]bool{
	"done":      true,
	"completed": true,
	"finished":  true,
	"1":         true,
	"true":      true,
}

// Merge projects completion facts onto a snapshot table and returns the
// externally visible view. kind selects daily or monthly semantics.
func Merge(t Table, facts map[string]CompletionFact, kind TaskKind) Table {
	if len(t) == 0 {
		return t
	}

	header := t.Header()
	sch := ResolveSchema(header)
	idIdx, ok := sch.Column(ColumnID)
	if !ok {
		return t
	}
	statusIdx, hasStatus := sch.Column(ColumnStatus)

	out := t.Clone()
	if kind == KindDaily {
		mergeDaily(out, facts, sch, idIdx, statusIdx, hasStatus)
	} else {
		mergeMonthly(out, facts, sch, idIdx, statusIdx, hasStatus)
	}
	return out
}

func mergeDaily(out Table, facts map[string]CompletionFact, sch Schema, idIdx, statusIdx int, hasStatus bool) {
	// Extend the header once; on a re-merge the stage columns already
	// exist and rows are overwritten at their resolved offsets.
	stageStart, merged := sch.Column(string(StageFirstRead))
	if !merged {
		stageStart = len(out[0])
		out[0] = append(out[0], stageColumns...)
	}

	for i, row := range out.Rows() {
		id, ok := Cell(row, idIdx)
		if !ok {
			continue
		}
		fact := facts[KindDaily.FactID(id)]

		if !merged && len(row) == stageStart {
			row = append(row, boolCell(fact.FirstRead), boolCell(fact.Notes), boolCell(fact.Revision))
			out[i+1] = row
		} else if merged && stageStart+2 < len(row) {
			row[stageStart] = boolCell(fact.FirstRead)
			row[stageStart+1] = boolCell(fact.Notes)
			row[stageStart+2] = boolCell(fact.Revision)
		}

		if hasStatus && statusIdx < len(row) {
			if fact.FullyDone() {
				row[statusIdx] = StatusDone
			} else {
				row[statusIdx] = StatusPending
			}
		}
	}
}

func mergeMonthly(out Table, facts map[string]CompletionFact, sch Schema, idIdx, statusIdx int, hasStatus bool) {
	for i, row := range out.Rows() {
		id, ok := Cell(row, idIdx)
		if !ok {
			continue
		}

		// A stored fact with completed unset is treated as no fact.
		fact, exists := facts[KindMonthly.FactID(id)]
		if exists && !fact.Completed {
			exists = false
		}

		if exists {
			if hasStatus && statusIdx < len(row) {
				row[statusIdx] = StatusDone
			} else if !hasStatus && len(row) == sch.Width() {
				out[i+1] = append(row, StatusDone)
			}
		} else if hasStatus && statusIdx < len(row) {
			if claimsDone(row[statusIdx]) {
				row[statusIdx] = StatusPending
			}
		}
	}
}

func claimsDone(status string) bool {
	return sourceDoneWords[strings.ToLower(strings.TrimSpace(status))]
}

func boolCell(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
