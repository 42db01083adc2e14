package store

import (
	"context"
	"errors"

	"github.com/seantiz/tasker/internal/model"
)

// ErrNotFound is returned when a task is not found.
var ErrNotFound = errors.New("task not found")

// ListFilter narrows a task listing. A zero value lists everything.
type ListFilter struct {
	// Status restricts results to tasks with exactly this status when non-empty.
	Status string
	// Limit caps the number of results when positive.
	Limit int
}

// TaskStats holds aggregate task counts.
type TaskStats struct {
	Total         int            `json:"total"`
	CountByStatus map[string]int `json:"count_by_status"`
}

// Store defines the persistence operations for tasks. Each operation is
// atomic on its own; implementations must be safe for concurrent use.
type Store interface {
	InsertTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, f ListFilter) ([]*model.Task, error)
	UpdateTask(ctx context.Context, id string, p model.TaskPatch) error
	DeleteTask(ctx context.Context, id string) error
	TaskStats(ctx context.Context) (*TaskStats, error)
	Ping(ctx context.Context) error
	Close() error
}
