/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response / *DTO: Types returned to clients

Validation happens in handlers, not in DTOs. DTOs are pure data
carriers between the HTTP layer and the cache facade.
*/
package api

import "github.com/scribe/study-engine/schedule"

// TablesResponse is the merged schedule view.
type TablesResponse struct {
	Monthly   schedule.Table `json:"monthly"`
	Daily     schedule.Table `json:"daily"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// RefreshResponse reports a successful snapshot replace.
type RefreshResponse struct {
	UpdatedAt string `json:"updated_at"`
}

// MarkCompleteRequest marks a task complete/incomplete (monthly
// semantics; incomplete deletes the whole record).
type MarkCompleteRequest struct {
	TaskID    string `json:"task_id"`
	TaskType  string `json:"task_type"`
	Completed bool   `json:"completed"`
	MonthYear string `json:"month_year,omitempty"`
}

// MarkStageRequest flips a single stage of a daily task.
type MarkStageRequest struct {
	TaskID    string `json:"task_id"`
	TaskType  string `json:"task_type"`
	Stage     string `json:"stage"`
	Completed bool   `json:"completed"`
	MonthYear string `json:"month_year,omitempty"`
}

// MarkResponse reports whether a completion mutation took effect.
type MarkResponse struct {
	OK bool `json:"ok"`
}

// StatsResponse is the monthly completion count.
type StatsResponse struct {
	Completed int `json:"completed"`
}

// ProgressResponse is the daily three-stage progress figure.
type ProgressResponse struct {
	TotalTasks      int     `json:"total_tasks"`
	TotalStages     int     `json:"total_stages"`
	CompletedStages int     `json:"completed_stages"`
	Percentage      float64 `json:"percentage"`
}

// HealthResponse reports liveness and the last refresh stamp.
type HealthResponse struct {
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
