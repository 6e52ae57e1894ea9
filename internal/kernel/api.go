package kernel

import "github.com/cidxb/rark/internal/events"

// Complete emits TASK_COMPLETE for id. Convenience wrapper around Emit
// for callers (the skill runner) that only need to name an event type.
func (k *Kernel) Complete(id string) {
	k.queue.Emit(events.New(events.TaskComplete, id))
}

// Fail emits TASK_FAIL for id, carrying msg as the failure reason.
func (k *Kernel) Fail(id, msg string) {
	k.queue.Emit(events.New(events.TaskFail, id).WithError(msg))
}

// Cancel emits TASK_CANCEL for id.
func (k *Kernel) Cancel(id string) {
	k.queue.Emit(events.New(events.TaskCancel, id))
}

// Retry emits TASK_RETRY for id.
func (k *Kernel) Retry(id string) {
	k.queue.Emit(events.New(events.TaskRetry, id))
}
