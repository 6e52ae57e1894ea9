// Package kernel owns the scheduler, persistence store, and event
// queue, and runs the single control loop that dispatches events and
// is the only goroutine that moves tasks through the ready structure or
// the active-task slot (spec §5). Everything else — the HTTP boundary,
// the skill runner — talks to it through Submit/Interrupt/Cancel/Emit
// and reads it through GetTask/ListTasks; Submit and Interrupt also
// register the task in the scheduler's index under mu.
package kernel

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cidxb/rark/internal/config"
	"github.com/cidxb/rark/internal/events"
	"github.com/cidxb/rark/internal/metrics"
	"github.com/cidxb/rark/internal/scheduler"
	"github.com/cidxb/rark/internal/store"
	"github.com/cidxb/rark/internal/task"
)

// Kernel is the durable, preemptive, single-active-task scheduler.
type Kernel struct {
	crashPolicy  config.CrashPolicy
	tickInterval time.Duration

	store   store.Driver
	queue   *events.Queue
	metrics *metrics.Metrics
	hooks   Hooks

	// mu guards scheduler and active below. The loop goroutine takes it
	// around each scheduler/active-slot access in dispatch and tick, and
	// releases it before store writes and hook calls; Submit and
	// Interrupt also take it briefly so a task is queryable the instant
	// either call returns, without waiting for its event to reach the
	// loop.
	mu        sync.Mutex
	scheduler *scheduler.Scheduler
	active    *task.Task
	running   bool

	// failObserver, if set, is notified after a task durably transitions
	// to FAILED (e.g. internal/notify/telegram). It must not block the
	// loop; implementations should hand off and return quickly.
	failObserver func(ctx context.Context, t *task.Task, reason string)
}

// SetFailObserver installs fn to be called after every TASK_FAIL is
// persisted. Pass nil to disable.
func (k *Kernel) SetFailObserver(fn func(ctx context.Context, t *task.Task, reason string)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.failObserver = fn
}

// New constructs a Kernel against an already-constructed store.Driver.
// metrics may be nil (instrumentation is optional everywhere it's read).
func New(cfg config.Config, driver store.Driver, m *metrics.Metrics) *Kernel {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Kernel{
		crashPolicy:  cfg.CrashPolicy,
		tickInterval: interval,
		store:        driver,
		queue:        events.NewQueue(),
		metrics:      m,
		hooks:        noopHooks{},
		scheduler:    scheduler.New(),
	}
}

// SetHooks installs the runner (or any other observer) as the kernel's
// promotion/interrupt/cancel extension point. Must be called before
// Start.
func (k *Kernel) SetHooks(h Hooks) {
	if h == nil {
		h = noopHooks{}
	}
	k.hooks = h
}

// Start opens the store, recovers persisted state, and marks the
// kernel ready for RunLoop.
func (k *Kernel) Start(ctx context.Context) error {
	if err := k.store.Open(ctx); err != nil {
		return err
	}
	if err := k.recover(ctx); err != nil {
		return err
	}
	k.mu.Lock()
	k.running = true
	k.mu.Unlock()
	return nil
}

// Stop signals RunLoop to return after its current iteration and
// closes the store. It does not cancel a running skill; callers that
// also own a runner.Runner should cancel it first.
func (k *Kernel) Stop() error {
	k.mu.Lock()
	k.running = false
	k.mu.Unlock()
	return k.store.Close()
}

// Emit enqueues an event for the loop to dispatch. Safe from any
// goroutine.
func (k *Kernel) Emit(e events.Event) {
	k.queue.Emit(e)
}

// Submit registers and durably persists t, then emits TASK_SUBMIT so
// the loop adds it to the ready structure. After Submit returns,
// GetTask(t.ID) already resolves even though the loop has not yet
// processed the event.
func (k *Kernel) Submit(ctx context.Context, t *task.Task) error {
	k.mu.Lock()
	k.scheduler.Register(t)
	k.mu.Unlock()
	if err := k.store.Upsert(ctx, t); err != nil {
		return err
	}
	k.queue.Emit(events.WithTask(events.TaskSubmit, t))
	return nil
}

// Interrupt registers and durably persists t, then emits INTERRUPT so
// the loop suspends whatever is currently active and enqueues t. The
// next tick picks by priority: t runs before the suspended task only
// when its priority is higher.
func (k *Kernel) Interrupt(ctx context.Context, t *task.Task) error {
	k.mu.Lock()
	k.scheduler.Register(t)
	k.mu.Unlock()
	if err := k.store.Upsert(ctx, t); err != nil {
		return err
	}
	k.queue.Emit(events.WithTask(events.Interrupt, t))
	return nil
}

// GetTask returns the task tracked under id, or nil if unknown.
func (k *Kernel) GetTask(id string) *task.Task {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.scheduler.Get(id)
}

// ActiveTask returns the currently ACTIVE task, or nil if the kernel is
// idle.
func (k *Kernel) ActiveTask() *task.Task {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.active
}

// ListTasks returns every known task sorted by ID, for a stable HTTP
// response (the Python original leaves list_tasks order unspecified).
func (k *Kernel) ListTasks() []*task.Task {
	k.mu.Lock()
	out := k.scheduler.List()
	k.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RunLoop drains the event queue, falling back to tick() after
// tickInterval of inactivity, until Stop is called or ctx is
// cancelled. It is the only goroutine that changes the ready structure
// or the active slot; other goroutines only register tasks and read.
func (k *Kernel) RunLoop(ctx context.Context) error {
	for {
		k.mu.Lock()
		running := k.running
		k.mu.Unlock()
		if !running {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		e, ok := k.queue.Dequeue(ctx, k.tickInterval)
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			k.tick(ctx)
			continue
		}
		k.dispatch(ctx, e)
	}
}

// tick promotes the next eligible task to ACTIVE when the kernel is
// idle.
func (k *Kernel) tick(ctx context.Context) {
	k.mu.Lock()
	if k.active != nil {
		k.mu.Unlock()
		return
	}
	t := k.scheduler.PickNext()
	if t == nil {
		k.mu.Unlock()
		return
	}
	if err := t.Transition(task.StateActive); err != nil {
		k.mu.Unlock()
		slog.Error("tick: promote rejected", "task", t.ID, "err", err)
		return
	}
	k.active = t
	k.mu.Unlock()

	if err := k.store.Upsert(ctx, t); err != nil {
		slog.Error("tick: persist ACTIVE failed", "task", t.ID, "err", err)
	}
	k.metrics.SetActive(true)
	k.metrics.ObserveTransition(string(task.StateActive))
	slog.Info("started", "task", t.Name, "id", t.ID, "priority", t.Priority)
	k.hooks.AfterPromote(ctx, t)
}

// recover restores PENDING/PAUSED tasks and applies crashPolicy to any
// task found ACTIVE at startup (spec §4.5.3).
func (k *Kernel) recover(ctx context.Context) error {
	loaded, err := k.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, t := range loaded {
		switch t.State {
		case task.StatePending, task.StatePaused:
			k.scheduler.Add(t)
		case task.StateActive:
			if k.crashPolicy == config.CrashPolicyFail {
				_ = t.Transition(task.StateFailed)
				if err := k.store.Upsert(ctx, t); err != nil {
					return err
				}
				k.scheduler.Register(t)
				slog.Warn("recovered", "task", t.Name, "id", t.ID, "result", "active->failed, manual resubmit required")
			} else {
				_ = t.Transition(task.StatePaused)
				if err := k.store.Upsert(ctx, t); err != nil {
					return err
				}
				k.scheduler.Add(t)
				slog.Warn("recovered", "task", t.Name, "id", t.ID, "result", "active->paused, will resume")
			}
		default:
			k.scheduler.Register(t)
		}
	}
	if len(loaded) > 0 {
		slog.Info("recovery complete", "count", len(loaded))
	}
	return nil
}
