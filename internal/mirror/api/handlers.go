package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/todomirror/todomirror/internal/mirror/db"
	"github.com/todomirror/todomirror/internal/mirror/schema"
)

// ForceSyncResponse is the body of POST /sync/force
type ForceSyncResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Written   int       `json:"written"`
}

// ClearResponse is the body of DELETE /sync/clear
type ClearResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Removed   int       `json:"removed"`
}

// StatusResponse is the body of GET /sync/status
type StatusResponse struct {
	Status       string         `json:"status"`
	Database     string         `json:"database"`
	HasLocalData bool           `json:"hasLocalData"`
	Statistics   *db.Statistics `json:"statistics"`
	Endpoints    []string       `json:"endpoints"`
}

var endpoints = []string{
	"GET /todos?title=",
	"GET /todos/{id}",
	"POST /sync/force",
	"GET /sync/status",
	"DELETE /sync/clear",
	"GET /sync/statistics",
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")

	tasks, err := s.deps.Tasks.ListTasks(r.Context(), title)
	if err != nil {
		s.logger.Printf("ERROR: list tasks (title=%q): %v", title, err)
		s.writeError(w, http.StatusInternalServerError, "failed to list tasks", err)
		return
	}

	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "id must be a positive integer", fmt.Errorf("invalid id %q", raw))
		return
	}

	task, err := s.deps.Tasks.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, schema.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("task %d not found", id), nil)
			return
		}
		s.logger.Printf("ERROR: get task (id=%d): %v", id, err)
		s.writeError(w, http.StatusInternalServerError, "failed to get task", err)
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleForceSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Syncer.ForceResync(r.Context())
	if err != nil {
		s.logger.Printf("ERROR: force resync: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to resync", err)
		return
	}

	msg := fmt.Sprintf("resync complete: %d records", res.Written)
	if res.Skipped {
		msg = "remote returned no records; mirror left unchanged"
	}

	s.writeJSON(w, http.StatusOK, ForceSyncResponse{
		Message:   msg,
		Timestamp: time.Now().UTC(),
		Written:   res.Written,
	})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	has, err := s.deps.Syncer.HasLocalData(ctx)
	if err != nil {
		s.logger.Printf("ERROR: sync status: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read mirror status", err)
		return
	}

	stats, err := s.deps.Syncer.Statistics(ctx)
	if err != nil {
		s.logger.Printf("ERROR: sync status: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read statistics", err)
		return
	}

	s.writeJSON(w, http.StatusOK, StatusResponse{
		Status:       "ok",
		Database:     s.cfg.DatabasePath,
		HasLocalData: has,
		Statistics:   stats,
		Endpoints:    endpoints,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	removed, err := s.deps.Syncer.Clear(r.Context())
	if err != nil {
		s.logger.Printf("ERROR: clear mirror: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to clear mirror", err)
		return
	}

	s.writeJSON(w, http.StatusOK, ClearResponse{
		Message:   fmt.Sprintf("removed %d records", removed),
		Timestamp: time.Now().UTC(),
		Removed:   removed,
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Syncer.Statistics(r.Context())
	if err != nil {
		s.logger.Printf("ERROR: statistics: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read statistics", err)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"mode":   string(s.cfg.Mode),
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
