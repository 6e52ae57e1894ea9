// Package events defines the kernel's control-event vocabulary: a closed,
// tagged union consumed single-consumer by the kernel loop.
package events

import (
	"time"

	"github.com/cidxb/rark/internal/task"
)

// Type identifies an Event's kind. The set is closed — the kernel's
// dispatch table (internal/kernel) switches exhaustively over it.
type Type string

const (
	TaskSubmit   Type = "task_submit"
	TaskComplete Type = "task_complete"
	TaskFail     Type = "task_fail"
	TaskCancel   Type = "task_cancel"
	TaskRetry    Type = "task_retry"
	Interrupt    Type = "interrupt"

	// taskRetryRequeue is not part of the public vocabulary in spec §4.4;
	// it is the kernel's internal mechanism for posting a delayed retry
	// back onto the loop without a second goroutine touching the
	// scheduler directly (spec §9, "Delayed retry enqueue").
	taskRetryRequeue Type = "task_retry_requeue"
)

// TaskRetryRequeue is exported read-only so internal/kernel can both
// emit and switch on it without a second package needing to know the
// literal string.
func TaskRetryRequeue() Type { return taskRetryRequeue }

// Event is the single payload shape for every Type; the active fields
// depend on Type the way the Python original's dataclass used an
// untyped payload dict, but here each field is named and the unused
// ones are simply left zero.
type Event struct {
	Type      Type
	TaskID    string
	Task      *task.Task // TASK_SUBMIT, INTERRUPT, and the internal requeue carry a full task
	Error     string     // TASK_FAIL
	Timestamp time.Time
}

// New stamps Timestamp at construction, mirroring the Python dataclass's
// default_factory=lambda: datetime.now(timezone.utc).
func New(typ Type, taskID string) Event {
	return Event{Type: typ, TaskID: taskID, Timestamp: time.Now().UTC()}
}

// WithTask attaches a full task payload (TASK_SUBMIT / INTERRUPT).
func WithTask(typ Type, t *task.Task) Event {
	e := New(typ, t.ID)
	e.Task = t
	return e
}

// WithError attaches an error string (TASK_FAIL).
func (e Event) WithError(msg string) Event {
	e.Error = msg
	return e
}
