// validate.go - shape check for the remote payload.
//
// The payload must be a JSON object carrying the two named tables as
// lists of lists. A missing table defaults to empty; anything else
// about the shape is a ShapeError. Scalar cells of any JSON type are
// accepted and stringified.
package sheets

import (
	"encoding/json"
	"fmt"

	"github.com/scribe/study-engine/schedule"
)

// Default payload field names for the two tables.
const (
	DefaultMonthlyKey = "Monthly"
	DefaultDailyKey   = "Daily"
)

// Validate asserts that raw is an object holding 2-D tables under
// monthlyKey and dailyKey, and returns them with every cell
// stringified. Missing fields yield empty tables.
func Validate(raw any, monthlyKey, dailyKey string) (schedule.Table, schedule.Table, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, nil, &schedule.ShapeError{Reason: "payload is not a JSON object"}
	}

	monthly, err := tableField(obj, monthlyKey)
	if err != nil {
		return nil, nil, err
	}
	daily, err := tableField(obj, dailyKey)
	if err != nil {
		return nil, nil, err
	}
	return monthly, daily, nil
}

func tableField(obj map[string]any, key string) (schedule.Table, error) {
	field, present := obj[key]
	if !present || field == nil {
		return schedule.Table{}, nil
	}

	rows, ok := field.([]any)
	if !ok {
		return nil, &schedule.ShapeError{Field: key, Reason: "not a 2-D list"}
	}

	table := make(schedule.Table, 0, len(rows))
	for i, r := range rows {
		cells, ok := r.([]any)
		if !ok {
			return nil, &schedule.ShapeError{Field: key, Reason: fmt.Sprintf("row %d is not a list", i)}
		}
		row := make([]string, len(cells))
		for j, c := range cells {
			row[j] = stringify(c)
		}
		table = append(table, row)
	}
	return table, nil
}

// stringify renders a scalar JSON cell as its string form.
func stringify(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case json.Number:
		return c.String()
	case bool:
		if c {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", c)
	}
}
