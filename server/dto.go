package server

import (
	"time"

	"github.com/cidxb/rark/internal/task"
)

// SubmitRequest is the POST /tasks request body.
type SubmitRequest struct {
	Name      string         `json:"name"`
	Priority  int            `json:"priority"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	BlockedBy []string       `json:"blocked_by,omitempty"`
}

// InterruptRequest is the POST /interrupt request body.
type InterruptRequest struct {
	Name     string         `json:"name"`
	Priority int            `json:"priority"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskOut is the JSON representation of a Task returned by the task
// routes (and nested in HealthOut).
type TaskOut struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	State     string         `json:"state"`
	Priority  int            `json:"priority"`
	Metadata  map[string]any `json:"metadata"`
	BlockedBy []string       `json:"blocked_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func toTaskOut(t *task.Task) TaskOut {
	return TaskOut{
		ID:        t.ID,
		Name:      t.Name,
		State:     string(t.State),
		Priority:  t.Priority,
		Metadata:  t.Metadata,
		BlockedBy: t.BlockedByIDs(),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// HealthOut is the GET /health response body.
type HealthOut struct {
	Status     string   `json:"status"`
	ActiveTask *TaskOut `json:"active_task"`
}
