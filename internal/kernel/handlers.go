package kernel

import (
	"context"
	"log/slog"
	"time"

	"github.com/cidxb/rark/internal/events"
	"github.com/cidxb/rark/internal/task"
)

// dispatch routes a single event to its handler. Runs on the loop
// goroutine only.
func (k *Kernel) dispatch(ctx context.Context, e events.Event) {
	k.metrics.ObserveEvent(string(e.Type))
	switch e.Type {
	case events.TaskSubmit:
		k.onSubmit(ctx, e)
	case events.TaskComplete:
		k.onComplete(ctx, e)
	case events.TaskFail:
		k.onFail(ctx, e)
	case events.TaskCancel:
		k.onCancel(ctx, e)
	case events.TaskRetry:
		k.onRetry(ctx, e)
	case events.Interrupt:
		k.onInterrupt(ctx, e)
	default:
		if e.Type == events.TaskRetryRequeue() {
			k.onRetryRequeue(ctx, e)
			return
		}
		slog.Warn("dispatch: unrecognized event type", "type", e.Type)
	}
}

// onSubmit adds an already-registered-and-persisted task to the ready
// structure. Submit already did the registration/persistence
// synchronously; this just makes the task schedulable.
func (k *Kernel) onSubmit(ctx context.Context, e events.Event) {
	t := e.Task
	if t == nil {
		k.mu.Lock()
		t = k.scheduler.Get(e.TaskID)
		k.mu.Unlock()
		if t == nil {
			return
		}
	}
	k.mu.Lock()
	k.scheduler.Add(t)
	k.mu.Unlock()
	slog.Info("submitted", "task", t.Name, "id", t.ID, "priority", t.Priority)
}

func (k *Kernel) onComplete(ctx context.Context, e events.Event) {
	k.mu.Lock()
	t := k.scheduler.Get(e.TaskID)
	if t == nil {
		k.mu.Unlock()
		return
	}
	if err := t.Transition(task.StateCompleted); err != nil {
		k.mu.Unlock()
		slog.Error("complete: rejected", "task", t.ID, "err", err)
		return
	}
	wasActive := k.active != nil && k.active.ID == t.ID
	if wasActive {
		k.active = nil
	}
	k.scheduler.ReleaseDependents(t.ID)
	k.mu.Unlock()

	if err := k.store.Upsert(ctx, t); err != nil {
		slog.Error("complete: persist failed", "task", t.ID, "err", err)
	}
	if wasActive {
		k.metrics.SetActive(false)
	}
	k.metrics.ObserveTransition(string(task.StateCompleted))
	slog.Info("completed", "task", t.Name, "id", t.ID)
}

func (k *Kernel) onFail(ctx context.Context, e events.Event) {
	k.mu.Lock()
	t := k.scheduler.Get(e.TaskID)
	if t == nil {
		k.mu.Unlock()
		return
	}
	if err := t.Transition(task.StateFailed); err != nil {
		k.mu.Unlock()
		slog.Error("fail: rejected", "task", t.ID, "err", err)
		return
	}
	wasActive := k.active != nil && k.active.ID == t.ID
	if wasActive {
		k.active = nil
	}
	k.mu.Unlock()

	if err := k.store.Upsert(ctx, t); err != nil {
		slog.Error("fail: persist failed", "task", t.ID, "err", err)
	}
	if wasActive {
		k.metrics.SetActive(false)
	}
	k.metrics.ObserveTransition(string(task.StateFailed))
	slog.Warn("failed", "task", t.Name, "id", t.ID, "error", e.Error)

	k.mu.Lock()
	observer := k.failObserver
	k.mu.Unlock()
	if observer != nil {
		observer(ctx, t, e.Error)
	}
}

func (k *Kernel) onCancel(ctx context.Context, e events.Event) {
	k.mu.Lock()
	t := k.scheduler.Get(e.TaskID)
	if t == nil {
		k.mu.Unlock()
		return
	}
	wasActive := k.active != nil && k.active.ID == t.ID
	k.mu.Unlock()

	if wasActive {
		k.hooks.BeforeCancel(ctx, t)
	}

	k.mu.Lock()
	if err := t.Transition(task.StateCancelled); err != nil {
		k.mu.Unlock()
		slog.Error("cancel: rejected", "task", t.ID, "err", err)
		return
	}
	if wasActive {
		k.active = nil
	}
	k.mu.Unlock()

	if err := k.store.Upsert(ctx, t); err != nil {
		slog.Error("cancel: persist failed", "task", t.ID, "err", err)
	}
	if wasActive {
		k.metrics.SetActive(false)
	}
	k.metrics.ObserveTransition(string(task.StateCancelled))
	slog.Info("cancelled", "task", t.Name, "id", t.ID)
}

// onRetry re-queues a task for another attempt (ACTIVE -> PENDING). Retry budget lives in task.metadata[retry_count/max_retries];
// an optional metadata[retry_delay] (seconds) defers the re-enqueue via
// a loop-owned TASK_RETRY_REQUEUE event rather than a second goroutine
// touching the scheduler (spec §9).
func (k *Kernel) onRetry(ctx context.Context, e events.Event) {
	k.mu.Lock()
	t := k.scheduler.Get(e.TaskID)
	if t == nil {
		k.mu.Unlock()
		return
	}
	if err := t.Transition(task.StatePending); err != nil {
		k.mu.Unlock()
		slog.Error("retry: rejected", "task", t.ID, "err", err)
		return
	}
	wasActive := k.active != nil && k.active.ID == t.ID
	if wasActive {
		k.active = nil
	}
	k.mu.Unlock()

	if err := k.store.Upsert(ctx, t); err != nil {
		slog.Error("retry: persist failed", "task", t.ID, "err", err)
	}
	if wasActive {
		k.metrics.SetActive(false)
	}
	k.metrics.ObserveRetry()
	slog.Info("retry", "task", t.Name, "id", t.ID, "attempt", t.RetryCount(), "max", t.MaxRetries())

	delay := t.RetryDelaySeconds()
	if delay > 0 {
		requeue := t
		time.AfterFunc(time.Duration(delay*float64(time.Second)), func() {
			k.queue.Emit(events.WithTask(events.TaskRetryRequeue(), requeue))
		})
		return
	}
	k.mu.Lock()
	k.scheduler.Add(t)
	k.mu.Unlock()
}

func (k *Kernel) onRetryRequeue(ctx context.Context, e events.Event) {
	if e.Task == nil {
		return
	}
	k.mu.Lock()
	k.scheduler.Add(e.Task)
	k.mu.Unlock()
}

// onInterrupt pauses and re-queues the active task, if any, then adds
// the injected interrupt task to the ready structure. Which of the two
// runs next is decided by priority (FIFO on a tie, so the paused task
// wins a tie).
func (k *Kernel) onInterrupt(ctx context.Context, e events.Event) {
	k.mu.Lock()
	active := k.active
	k.mu.Unlock()

	if active != nil {
		k.hooks.BeforeInterrupt(ctx, active)

		k.mu.Lock()
		if err := k.scheduler.Suspend(active.ID); err != nil {
			k.mu.Unlock()
			slog.Error("interrupt: suspend rejected", "task", active.ID, "err", err)
		} else {
			k.active = nil
			k.mu.Unlock()
			if err := k.store.Upsert(ctx, active); err != nil {
				slog.Error("interrupt: persist paused failed", "task", active.ID, "err", err)
			}
			k.metrics.SetActive(false)
			k.metrics.ObserveTransition(string(task.StatePaused))
			slog.Info("paused", "task", active.Name, "id", active.ID)
		}
	}

	t := e.Task
	if t == nil {
		return
	}
	k.mu.Lock()
	k.scheduler.Add(t)
	k.mu.Unlock()
	slog.Info("interrupt", "task", t.Name, "id", t.ID, "priority", t.Priority)
}
