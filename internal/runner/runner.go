// Package runner is the skill execution layer: it launches a Go
// function per promoted task and translates its outcome back into
// kernel events. It is the idiomatic-Go analogue of the Python
// original's SkillRunner(RARKKernel) subclass, expressed instead as a
// *kernel.Kernel it composes and a kernel.Hooks it implements.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/cidxb/rark/internal/kernel"
	"github.com/cidxb/rark/internal/task"
)

// Skill is a unit of work bound to a task name. It must return
// promptly after ctx is cancelled (spec §4.6 cooperative cancellation);
// any checkpoint state it wants preserved across a retry or restart
// belongs in t.Metadata.
type Skill func(ctx context.Context, t *task.Task) error

// Runner composes a *kernel.Kernel and owns the single running skill
// slot. golang.org/x/sync/semaphore enforces "at most one skill runs at
// a time" defensively, on top of the kernel's own single-active-task
// invariant.
type Runner struct {
	*kernel.Kernel

	mu        sync.Mutex
	skills    map[string]Skill
	sem       *semaphore.Weighted
	cancel    context.CancelFunc
	done      chan struct{}
	runningID string
}

// New wraps k with a Runner and installs it as k's Hooks. Call
// RegisterSkill for every task name the runner should be able to
// execute before k.Start.
func New(k *kernel.Kernel) *Runner {
	r := &Runner{
		Kernel: k,
		skills: make(map[string]Skill),
		sem:    semaphore.NewWeighted(1),
	}
	k.SetHooks(r)
	return r
}

// RegisterSkill binds fn to name. Submitting a task with Name == name
// will run fn once that task is promoted to ACTIVE.
func (r *Runner) RegisterSkill(name string, fn Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[name] = fn
}

// Submit creates and submits a new task bound to a registered skill
// name, optionally blocked on prior task IDs.
func (r *Runner) Submit(ctx context.Context, name string, priority int, blockedBy ...string) (*task.Task, error) {
	t := task.New(name, priority)
	for _, id := range blockedBy {
		t.BlockedBy[id] = struct{}{}
	}
	if err := r.Kernel.Submit(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Interrupt creates a task with the given priority and injects it via
// kernel.Interrupt, which suspends whatever is currently active.
func (r *Runner) Interrupt(ctx context.Context, name string, priority int) (*task.Task, error) {
	t := task.New(name, priority)
	if err := r.Kernel.Interrupt(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// AfterPromote implements kernel.Hooks: launch the skill bound to the
// newly active task's name.
func (r *Runner) AfterPromote(ctx context.Context, t *task.Task) {
	r.mu.Lock()
	fn, ok := r.skills[t.Name]
	r.mu.Unlock()
	if !ok {
		r.Kernel.Fail(t.ID, fmt.Sprintf("no skill registered for %q", t.Name))
		return
	}

	if !r.sem.TryAcquire(1) {
		slog.Error("runner: refusing to launch, a skill is already running", "task", t.ID)
		r.Kernel.Fail(t.ID, "runner busy: a skill is already running")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.runningID = t.ID
	r.mu.Unlock()

	go r.run(runCtx, t, fn, done)
}

// BeforeInterrupt implements kernel.Hooks: cancel and wait for the
// active skill to unwind before the kernel pauses its task.
func (r *Runner) BeforeInterrupt(ctx context.Context, active *task.Task) {
	r.cancelRunning()
}

// BeforeCancel implements kernel.Hooks: same cancel-and-wait, invoked
// only when the cancelled task is the active one.
func (r *Runner) BeforeCancel(ctx context.Context, t *task.Task) {
	r.cancelRunning()
}

func (r *Runner) cancelRunning() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

// run executes fn and translates its outcome into a kernel event: a
// nil error completes the task, a non-nil error consults the task's
// retry budget (metadata[retry_count] / [max_retries]) to decide
// between TASK_RETRY and TASK_FAIL. A context.Canceled error means the
// kernel itself is already mid-interrupt/cancel and owns the
// transition, so run emits nothing in that case.
func (r *Runner) run(ctx context.Context, t *task.Task, fn Skill, done chan struct{}) {
	defer close(done)
	defer r.sem.Release(1)
	defer func() {
		r.mu.Lock()
		if r.runningID == t.ID {
			r.runningID = ""
			r.cancel = nil
			r.done = nil
		}
		r.mu.Unlock()
	}()

	err := fn(ctx, t)
	if err == nil {
		r.Kernel.Complete(t.ID)
		return
	}
	if ctx.Err() != nil {
		return // cancelled by BeforeInterrupt/BeforeCancel, which owns the transition
	}

	retryCount := t.RetryCount()
	maxRetries := t.MaxRetries()
	if retryCount < maxRetries {
		t.Metadata[task.MetaRetryCount] = retryCount + 1
		r.Kernel.Retry(t.ID)
		return
	}
	r.Kernel.Fail(t.ID, err.Error())
}
