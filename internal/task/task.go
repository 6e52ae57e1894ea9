// Package task defines the durable unit of scheduled work (Task) and the
// lifecycle state machine that governs its transitions.
package task

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Reserved metadata keys. The kernel and runner read/write these; every
// other key is opaque skill-owned checkpoint data.
const (
	MetaRetryCount = "retry_count"
	MetaMaxRetries = "max_retries"
	MetaRetryDelay = "retry_delay"
)

// Task is the central entity of the scheduler: identity, priority,
// lifecycle state, free-form checkpoint metadata, and the set of task
// IDs that must complete before this one becomes eligible.
type Task struct {
	ID        string
	Name      string
	Priority  int
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
	Metadata  map[string]any
	BlockedBy map[string]struct{}
}

// New creates a Task in StatePending with a fresh UUID and both
// timestamps stamped from the same instant.
func New(name string, priority int) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        uuid.NewString(),
		Name:      name,
		Priority:  priority,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]any{},
		BlockedBy: map[string]struct{}{},
	}
}

// Transition validates and applies a state change, advancing UpdatedAt
// only when the transition succeeds. On failure the task is unchanged
// and the *InvalidTransitionError is returned for the caller to handle.
func (t *Task) Transition(target State) error {
	next, err := ApplyTransition(t.State, target)
	if err != nil {
		return err
	}
	t.State = next
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// BlockedByIDs returns blocked_by as a sorted slice, used for stable
// persistence and HTTP serialization.
func (t *Task) BlockedByIDs() []string {
	ids := make([]string, 0, len(t.BlockedBy))
	for id := range t.BlockedBy {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Unblock removes id from blocked_by, if present. blocked_by only ever
// shrinks: an id removed here is never re-added.
func (t *Task) Unblock(id string) {
	delete(t.BlockedBy, id)
}

// IsBlocked reports whether any dependency remains unresolved.
func (t *Task) IsBlocked() bool {
	return len(t.BlockedBy) > 0
}

// RetryCount reads metadata[retry_count], defaulting to 0.
func (t *Task) RetryCount() int {
	return metaInt(t.Metadata, MetaRetryCount, 0)
}

// MaxRetries reads metadata[max_retries], defaulting to 0.
func (t *Task) MaxRetries() int {
	return metaInt(t.Metadata, MetaMaxRetries, 0)
}

// RetryDelaySeconds reads metadata[retry_delay], defaulting to 0.
func (t *Task) RetryDelaySeconds() float64 {
	switch v := t.Metadata[MetaRetryDelay].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func metaInt(meta map[string]any, key string, def int) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
