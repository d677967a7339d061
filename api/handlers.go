/*
handlers.go - HTTP API handlers for the study-planner cache

ENDPOINTS:
  POST /api/refresh         Fetch the remote sheet and replace the snapshot
  GET  /api/tables          Merged schedule view (monthly + daily)
  POST /api/tasks/complete  Mark a task complete / delete its record
  POST /api/tasks/stage     Flip one stage of a daily task
  GET  /api/stats           Monthly completion count (?month_year=)
  GET  /api/progress        Daily stage progress (?date=YYYY-MM-DD)
  GET  /api/health          Liveness + last refresh stamp

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: invalid body, unknown task kind/stage, bad payload shape, missing URL
  - 502: remote fetch exhausted its retry budget
  - 500: storage failures
  A failed refresh never corrupts the visible schedule; readers keep
  getting the last good snapshot.
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/scribe/study-engine/cache"
	"github.com/scribe/study-engine/schedule"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Cache     *cache.Cache
	SourceURL string
}

// NewHandler creates a new handler around the cache facade.
func NewHandler(c *cache.Cache, sourceURL string) *Handler {
	return &Handler{Cache: c, SourceURL: sourceURL}
}

// Refresh triggers a full snapshot replace from the remote source.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	stamp, err := h.Cache.Refresh(r.Context(), h.SourceURL)
	if err != nil {
		switch {
		case schedule.IsClientError(err):
			writeError(w, http.StatusBadRequest, "Refresh rejected", err)
		case errors.Is(err, schedule.ErrFetchFailed):
			writeError(w, http.StatusBadGateway, "Remote source unavailable", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to refresh snapshot", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{UpdatedAt: stamp})
}

// Tables returns the merged schedule view. Always succeeds; a cold or
// broken store serves empty tables.
func (h *Handler) Tables(w http.ResponseWriter, r *http.Request) {
	view := h.Cache.Read(r.Context())
	writeJSON(w, http.StatusOK, TablesResponse{
		Monthly:   view.Monthly,
		Daily:     view.Daily,
		UpdatedAt: view.UpdatedAt,
	})
}

// MarkComplete marks a task complete or deletes its completion record.
func (h *Handler) MarkComplete(w http.ResponseWriter, r *http.Request) {
	var req MarkCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TaskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required", nil)
		return
	}
	kind, err := schedule.ParseTaskKind(req.TaskType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task_type", err)
		return
	}

	if ok := h.Cache.MarkComplete(r.Context(), req.TaskID, kind, req.Completed, req.MonthYear); !ok {
		writeJSON(w, http.StatusInternalServerError, MarkResponse{OK: false})
		return
	}
	writeJSON(w, http.StatusOK, MarkResponse{OK: true})
}

// MarkStage flips a single stage of a daily task.
func (h *Handler) MarkStage(w http.ResponseWriter, r *http.Request) {
	var req MarkStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TaskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required", nil)
		return
	}
	kind, err := schedule.ParseTaskKind(req.TaskType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task_type", err)
		return
	}
	stage, err := schedule.ParseStage(req.Stage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid stage", err)
		return
	}

	if ok := h.Cache.MarkStage(r.Context(), req.TaskID, kind, stage, req.Completed, req.MonthYear); !ok {
		writeJSON(w, http.StatusInternalServerError, MarkResponse{OK: false})
		return
	}
	writeJSON(w, http.StatusOK, MarkResponse{OK: true})
}

// Stats returns the monthly completion count.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.Cache.Stats(r.Context(), r.URL.Query().Get("month_year"))
	writeJSON(w, http.StatusOK, StatsResponse{Completed: stats.Completed})
}

// Progress returns the daily three-stage progress figure.
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	p := h.Cache.ProgressFor(r.Context(), r.URL.Query().Get("date"))
	writeJSON(w, http.StatusOK, ProgressResponse{
		TotalTasks:      p.TotalTasks,
		TotalStages:     p.TotalStages,
		CompletedStages: p.CompletedStages,
		Percentage:      p.Percentage,
	})
}

// Health reports liveness and the last refresh stamp.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	view := h.Cache.Read(r.Context())
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", UpdatedAt: view.UpdatedAt})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
