/*
normalize.go - Calendar-day normalization of the daily Date column

Incoming Date cells arrive in several shapes: plain YYYY-MM-DD dates,
ISO datetimes with a Z marker or an explicit offset, and naive
datetimes (assumed UTC). All of them are rewritten to a plain
YYYY-MM-DD calendar day in the target timezone.

The rewrite is deterministic and idempotent: a cell that is already a
plain date passes through unchanged, so normalizing twice is a no-op.
*/
package schedule

import (
	"strings"
	"time"
)

// DayFormat is the canonical calendar-day layout.
const DayFormat = "2006-01-02"

// ColumnDate is the daily table column holding the task date.
const ColumnDate = "Date"

// naive layouts are parsed in UTC; offset-aware values go through RFC 3339.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// NormalizeDates rewrites the Date column of a daily table to calendar
// days in loc. A table with no header or no Date column is returned
// unchanged. The input table is not mutated.
func NormalizeDates(daily Table, loc *time.Location) Table {
	if len(daily) == 0 {
		return daily
	}

	sch := ResolveSchema(daily.Header())
	dateIdx, ok := sch.Column(ColumnDate)
	if !ok {
		return daily
	}

	out := daily.Clone()
	for _, row := range out.Rows() {
		if dateIdx < len(row) {
			row[dateIdx] = NormalizeDay(row[dateIdx], loc)
		}
	}
	return out
}

// NormalizeDay converts a single date string to a YYYY-MM-DD day in loc.
//
// Unparseable values fall back to their first 10 characters when they
// look date-shaped (dashes at positions 4 and 7), else pass through
// verbatim. An empty cell stays empty.
func NormalizeDay(value string, loc *time.Location) string {
	if value == "" {
		return ""
	}

	s := strings.TrimSpace(value)

	// Already a plain date?
	if looksLikeDay(s) {
		return s
	}

	// Z marker becomes an explicit zero offset before parsing.
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc).Format(DayFormat)
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.In(loc).Format(DayFormat)
		}
	}

	if len(value) >= 10 && value[4] == '-' && value[7] == '-' {
		return value[:10]
	}
	return value
}

func looksLikeDay(s string) bool {
	return len(s) == 10 && s[4] == '-' && s[7] == '-'
}
