package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/tasker/internal/engine"
	"github.com/seantiz/tasker/internal/store"
)

const maxBodySize = 1 << 20 // 1 MB

const msgTaskNotFound = "task not found"

// createTaskRequest is the JSON body for POST /tasks.
type createTaskRequest struct {
	Name *string `json:"name"`
}

// updateTaskRequest is the JSON body for PATCH /tasks/{id}.
type updateTaskRequest struct {
	Status *string `json:"status"`
	Name   *string `json:"name"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	task, err := s.engine.Create(r.Context(), req.Name)
	if err != nil {
		s.logger.Error("create task", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	s.writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	tasks, err := s.engine.List(r.Context(), status, limit)
	if err != nil {
		s.logger.Error("list tasks", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := s.engine.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, msgTaskNotFound)
		return
	}
	if err != nil {
		s.logger.Error("get task", "task_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateTaskRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	task, err := s.engine.Update(r.Context(), id, engine.TaskUpdate{
		Status: req.Status,
		Name:   req.Name,
	})
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, msgTaskNotFound)
		return
	}
	if err != nil {
		s.logger.Error("update task", "task_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.engine.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, msgTaskNotFound)
		return
	}
	if err != nil {
		s.logger.Error("delete task", "task_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched. It writes a 400 and returns false on malformed input.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
