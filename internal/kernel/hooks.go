package kernel

import (
	"context"

	"github.com/cidxb/rark/internal/task"
)

// Hooks lets a higher layer react to kernel lifecycle events without the
// kernel importing it back — the composition-over-inheritance
// equivalent of the Python original's RARKKernel subclassing
// (SkillRunner(RARKKernel) overriding _tick/_on_interrupt/_on_cancel).
// The skill runner is the canonical implementation: it launches a
// skill in AfterPromote and cancels the running one in
// BeforeInterrupt/BeforeCancel, then waits for it to unwind before the
// kernel proceeds.
type Hooks interface {
	// AfterPromote runs once a task has transitioned to ACTIVE and been
	// persisted, on the loop goroutine. It must not block the loop for
	// long — launch work asynchronously rather than running it inline.
	AfterPromote(ctx context.Context, t *task.Task)
	// BeforeInterrupt runs before the currently active task is
	// suspended to make room for an injected interrupt task. It may
	// block briefly (spec requires the running skill observe
	// cancellation promptly).
	BeforeInterrupt(ctx context.Context, active *task.Task)
	// BeforeCancel runs before t transitions to CANCELLED, only when t
	// is the currently active task.
	BeforeCancel(ctx context.Context, t *task.Task)
}

// noopHooks is the Kernel's default until a runner calls SetHooks.
type noopHooks struct{}

func (noopHooks) AfterPromote(context.Context, *task.Task)    {}
func (noopHooks) BeforeInterrupt(context.Context, *task.Task) {}
func (noopHooks) BeforeCancel(context.Context, *task.Task)    {}
