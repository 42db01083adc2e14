package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/tasker/internal/model"
	"github.com/seantiz/tasker/internal/store"
)

// SSE event names besides the model.TaskEvent types.
const (
	sseEventTask = "task"
	sseEventDone = "done"
)

// handleTaskEvents streams a task's changes as server-sent events. The first
// event is a "task" snapshot; the stream ends with "done" once the task is
// completed or deleted.
func (s *Server) handleTaskEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Verify the task exists before creating a topic for it.
	if _, err := s.engine.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, msgTaskNotFound)
			return
		}
		s.logger.Error("get task for events", "task_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}

	// Subscribe before taking the snapshot so no change between the two is
	// lost.
	ch, unsub := s.engine.Broker().Subscribe(id)
	defer unsub()

	task, err := s.engine.Get(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("get task snapshot", "task_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("set write deadline for SSE", "error", err)
	}

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	flush := func() {
		if canFlush {
			flusher.Flush()
		}
	}

	// Deleted between the existence check and the snapshot.
	if task == nil {
		_ = writeSSEEvent(w, sseEventDone, "task deleted")
		flush()
		return
	}

	if err := writeSSEJSON(w, sseEventTask, task); err != nil {
		return
	}
	if task.Status == model.StatusCompleted {
		_ = writeSSEEvent(w, sseEventDone, "task completed")
		flush()
		return
	}
	flush()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				_ = writeSSEEvent(w, sseEventDone, "stream complete")
				flush()
				return
			}
			if err := writeSSEJSON(w, ev.Type, ev.Task); err != nil {
				return // Client gone.
			}
			if ev.Type == model.EventDeleted || ev.Task.Status == model.StatusCompleted {
				_ = writeSSEEvent(w, sseEventDone, "stream complete")
				flush()
				return
			}
			flush()
		case <-r.Context().Done():
			return
		}
	}
}

// writeSSEJSON writes v as the JSON data of a named SSE event.
func writeSSEJSON(w http.ResponseWriter, eventType string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeSSEEvent(w, eventType, string(data))
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
