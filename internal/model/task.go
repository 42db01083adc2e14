package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Task status constants. The engine only ever writes these two; callers may
// store any other string through an explicit update.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

// NewID returns a fresh task ID. IDs are ULIDs: unique, never reused, and
// monotonically increasing within a process.
func NewID() string {
	return ulid.Make().String()
}

// Task is a unit of tracked work.
type Task struct {
	ID          string     `json:"id"`
	Name        *string    `json:"name"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// TaskPatch is a partial update. A nil field is not applied.
type TaskPatch struct {
	Name        *string
	Status      *string
	CompletedAt *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Name == nil && p.Status == nil && p.CompletedAt == nil
}

// Task event types.
const (
	EventUpdated   = "updated"
	EventCompleted = "completed"
	EventDeleted   = "deleted"
)

// TaskEvent describes a change to a single task.
type TaskEvent struct {
	Type string `json:"type"`
	Task *Task  `json:"task"`
}
