package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seantiz/tasker/internal/model"
	"github.com/seantiz/tasker/internal/store"
)

// CompletionDelay is how long a task stays running before it is marked
// completed.
const CompletionDelay = 20 * time.Second

// TaskUpdate carries the caller-settable fields of a task. Nil and empty
// strings are both treated as not provided.
type TaskUpdate struct {
	Status *string
	Name   *string
}

// Engine drives the task lifecycle on top of a Store.
type Engine struct {
	store  store.Store
	logger *slog.Logger
	broker *EventBroker
	delay  time.Duration
	now    func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

// NewEngine creates a new lifecycle engine.
func NewEngine(s store.Store, logger *slog.Logger) *Engine {
	return &Engine{
		store:  s,
		logger: logger,
		broker: NewEventBroker(),
		delay:  CompletionDelay,
		now:    func() time.Time { return time.Now().UTC() },
		timers: make(map[string]*time.Timer),
	}
}

// Broker returns the engine's event broker for SSE subscription.
func (e *Engine) Broker() *EventBroker {
	return e.broker
}

// Create stores a new running task and arms its deferred completion. It
// returns as soon as the record is stored.
func (e *Engine) Create(ctx context.Context, name *string) (*model.Task, error) {
	t := &model.Task{
		ID:        model.NewID(),
		Name:      name,
		Status:    model.StatusRunning,
		CreatedAt: e.now(),
	}

	if err := e.store.InsertTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	tasksCreated.Inc()

	e.arm(t.ID)
	e.logger.Debug("task created", "task_id", t.ID)

	return t, nil
}

// Get returns a task by ID.
func (e *Engine) Get(ctx context.Context, id string) (*model.Task, error) {
	return e.store.GetTask(ctx, id)
}

// List returns tasks newest first, optionally filtered by status and capped
// at limit when limit is positive.
func (e *Engine) List(ctx context.Context, status string, limit int) ([]*model.Task, error) {
	return e.store.ListTasks(ctx, store.ListFilter{Status: status, Limit: limit})
}

// Update applies the provided fields and returns the updated task. Setting
// status to "completed" also stamps completed_at; any other status leaves
// completed_at as it was.
func (e *Engine) Update(ctx context.Context, id string, u TaskUpdate) (*model.Task, error) {
	var p model.TaskPatch
	if u.Name != nil && *u.Name != "" {
		p.Name = u.Name
	}
	if u.Status != nil && *u.Status != "" {
		p.Status = u.Status
		if *u.Status == model.StatusCompleted {
			now := e.now()
			p.CompletedAt = &now
		}
	}

	if err := e.store.UpdateTask(ctx, id, p); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	t, err := e.store.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload task: %w", err)
	}

	if p.CompletedAt != nil {
		tasksCompleted.WithLabelValues(sourceUpdate).Inc()
	}
	if !p.IsEmpty() {
		e.broker.Publish(model.TaskEvent{Type: model.EventUpdated, Task: t})
	}

	return t, nil
}

// Delete removes a task. A pending completion for the task is left armed and
// becomes a no-op when it fires.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	e.broker.Publish(model.TaskEvent{Type: model.EventDeleted, Task: &model.Task{ID: id}})
	e.broker.Close(id)
	e.logger.Debug("task deleted", "task_id", id)

	return nil
}

// Pending reports the number of armed completions that have not fired.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}

// Shutdown stops all unfired completion timers and waits for completions
// already in flight. Stopped completions are dropped; the tasks stay running.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	dropped := 0
	for id, t := range e.timers {
		if t.Stop() {
			dropped++
			pendingCompletions.Dec()
			e.wg.Done()
		}
		delete(e.timers, id)
	}
	e.mu.Unlock()

	if dropped > 0 {
		e.logger.Warn("dropped pending task completions", "count", dropped)
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// arm schedules the deferred completion of a task. No lock is held while
// the timer waits.
func (e *Engine) arm(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.logger.Warn("engine shut down, completion not armed", "task_id", id)
		return
	}

	e.wg.Add(1)
	pendingCompletions.Inc()
	e.timers[id] = time.AfterFunc(e.delay, func() {
		defer e.wg.Done()

		e.mu.Lock()
		delete(e.timers, id)
		e.mu.Unlock()
		pendingCompletions.Dec()

		e.complete(id)
	})
}

// complete marks a task completed. A task deleted in the meantime is
// skipped silently since no caller is waiting on the result.
func (e *Engine) complete(id string) {
	defer e.broker.Close(id)

	ctx := context.Background()
	status := model.StatusCompleted
	now := e.now()

	err := e.store.UpdateTask(ctx, id, model.TaskPatch{Status: &status, CompletedAt: &now})
	if errors.Is(err, store.ErrNotFound) {
		completionsAbandoned.Inc()
		e.logger.Debug("task gone before completion", "task_id", id)
		return
	}
	if err != nil {
		e.logger.Error("failed to complete task", "task_id", id, "error", err)
		return
	}
	tasksCompleted.WithLabelValues(sourceTimer).Inc()
	e.logger.Info("task completed", "task_id", id)

	t, err := e.store.GetTask(ctx, id)
	if err != nil {
		e.logger.Debug("reload completed task", "task_id", id, "error", err)
		return
	}
	e.broker.Publish(model.TaskEvent{Type: model.EventCompleted, Task: t})
}
