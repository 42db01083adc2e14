package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/seantiz/tasker/internal/engine"
	"github.com/seantiz/tasker/internal/model"
)

// readSSEEvents reads "event:" names from an SSE stream until EOF.
func readSSEEvents(t *testing.T, resp *http.Response) []string {
	t.Helper()
	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}
	return events
}

func TestTaskEventsNotFound(t *testing.T) {
	srv := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/tasks/nonexistent/events")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTaskEventsCompletedTask(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	task, err := srv.engine.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	completed := model.StatusCompleted
	if _, err := srv.engine.Update(ctx, task.ID, engine.TaskUpdate{Status: &completed}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/tasks/" + task.ID + "/events")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	events := readSSEEvents(t, resp)
	if len(events) != 2 || events[0] != sseEventTask || events[1] != sseEventDone {
		t.Errorf("events = %v, want [task done]", events)
	}
}

func TestTaskEventsStreamUntilCompleted(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	task, err := srv.engine.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(reqCtx, http.MethodGet, ts.URL+"/tasks/"+task.ID+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	// Headers arrive once the snapshot is flushed, so the subscription exists.
	name := "renamed"
	if _, err := srv.engine.Update(ctx, task.ID, engine.TaskUpdate{Name: &name}); err != nil {
		t.Fatalf("Update name: %v", err)
	}
	completed := model.StatusCompleted
	if _, err := srv.engine.Update(ctx, task.ID, engine.TaskUpdate{Status: &completed}); err != nil {
		t.Fatalf("Update status: %v", err)
	}

	events := readSSEEvents(t, resp)
	want := []string{sseEventTask, model.EventUpdated, model.EventUpdated, sseEventDone}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestTaskEventsStreamUntilDeleted(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	task, err := srv.engine.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(reqCtx, http.MethodGet, ts.URL+"/tasks/"+task.ID+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if err := srv.engine.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	events := readSSEEvents(t, resp)
	want := []string{sseEventTask, model.EventDeleted, sseEventDone}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", events, want)
	}
}
