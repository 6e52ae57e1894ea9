package kernel

import (
	"context"
	"testing"

	"github.com/cidxb/rark/internal/config"
	"github.com/cidxb/rark/internal/events"
	"github.com/cidxb/rark/internal/task"
)

// memStore is an in-memory store.Driver for kernel tests.
type memStore struct {
	rows map[string]*task.Task
}

func newMemStore() *memStore { return &memStore{rows: map[string]*task.Task{}} }

func (m *memStore) Open(context.Context) error  { return nil }
func (m *memStore) Close() error                { return nil }
func (m *memStore) Upsert(_ context.Context, t *task.Task) error {
	cp := *t
	m.rows[t.ID] = &cp
	return nil
}
func (m *memStore) LoadAll(context.Context) ([]*task.Task, error) {
	out := make([]*task.Task, 0, len(m.rows))
	for _, t := range m.rows {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func newTestKernel(t *testing.T, cfg config.Config, st *memStore) *Kernel {
	t.Helper()
	k := New(cfg, st, nil)
	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return k
}

func TestTickPromotesHighestPriority(t *testing.T) {
	k := newTestKernel(t, config.Default(), newMemStore())
	ctx := context.Background()

	low := task.New("low", 1)
	high := task.New("high", 5)
	if err := k.Submit(ctx, low); err != nil {
		t.Fatalf("submit low: %v", err)
	}
	if err := k.Submit(ctx, high); err != nil {
		t.Fatalf("submit high: %v", err)
	}
	k.dispatch(ctx, events.WithTask(events.TaskSubmit, low))
	k.dispatch(ctx, events.WithTask(events.TaskSubmit, high))

	k.tick(ctx)
	if k.active == nil || k.active.ID != high.ID {
		t.Fatalf("expected high-priority task promoted first, got %+v", k.active)
	}
}

func TestAtMostOneActiveTask(t *testing.T) {
	k := newTestKernel(t, config.Default(), newMemStore())
	ctx := context.Background()

	a := task.New("a", 1)
	b := task.New("b", 1)
	k.Submit(ctx, a)
	k.Submit(ctx, b)
	k.dispatch(ctx, events.WithTask(events.TaskSubmit, a))
	k.dispatch(ctx, events.WithTask(events.TaskSubmit, b))

	k.tick(ctx)
	firstActive := k.active
	if firstActive == nil {
		t.Fatal("expected a task promoted")
	}
	k.tick(ctx) // should no-op: a task is already active
	if k.active.ID != firstActive.ID {
		t.Fatalf("tick promoted a second task while one was already active: %+v", k.active)
	}
}

func TestCompleteReleasesDependentsAndFreesActiveSlot(t *testing.T) {
	k := newTestKernel(t, config.Default(), newMemStore())
	ctx := context.Background()

	dep := task.New("dep", 1)
	dependent := task.New("dependent", 1)
	dependent.BlockedBy[dep.ID] = struct{}{}

	k.Submit(ctx, dep)
	k.Submit(ctx, dependent)
	k.dispatch(ctx, events.WithTask(events.TaskSubmit, dep))
	k.dispatch(ctx, events.WithTask(events.TaskSubmit, dependent))

	k.tick(ctx)
	if k.active == nil || k.active.ID != dep.ID {
		t.Fatalf("expected dep promoted (dependent is blocked), got %+v", k.active)
	}

	k.dispatch(ctx, events.New(events.TaskComplete, dep.ID))
	if k.active != nil {
		t.Fatalf("expected active slot freed after complete, got %+v", k.active)
	}
	if dependent.IsBlocked() {
		t.Fatal("expected dependent unblocked after dep completed")
	}

	k.tick(ctx)
	if k.active == nil || k.active.ID != dependent.ID {
		t.Fatalf("expected dependent promoted next, got %+v", k.active)
	}
}

func TestTerminalTaskRejectsFurtherTransitions(t *testing.T) {
	k := newTestKernel(t, config.Default(), newMemStore())
	ctx := context.Background()

	solo := task.New("solo", 1)
	k.Submit(ctx, solo)
	k.dispatch(ctx, events.WithTask(events.TaskSubmit, solo))
	k.tick(ctx)
	k.dispatch(ctx, events.New(events.TaskComplete, solo.ID))

	if solo.State != task.StateCompleted {
		t.Fatalf("expected completed, got %s", solo.State)
	}
	// A later cancel attempt must not panic or silently flip state.
	k.dispatch(ctx, events.New(events.TaskCancel, solo.ID))
	if solo.State != task.StateCompleted {
		t.Fatalf("terminal task must not accept a further transition, got %s", solo.State)
	}
}

func TestRecoverResumePolicyPausesActiveTasks(t *testing.T) {
	st := newMemStore()
	crashed := task.New("mid-flight", 1)
	crashed.Transition(task.StateActive)
	st.rows[crashed.ID] = crashed

	cfg := config.Default()
	cfg.CrashPolicy = config.CrashPolicyResume
	k := newTestKernel(t, cfg, st)

	recovered := k.GetTask(crashed.ID)
	if recovered == nil || recovered.State != task.StatePaused {
		t.Fatalf("expected recovered task PAUSED under resume policy, got %+v", recovered)
	}

	k.tick(context.Background())
	if k.active == nil || k.active.ID != crashed.ID {
		t.Fatal("expected recovered PAUSED task to be schedulable again")
	}
}

func TestRecoverFailPolicyFailsActiveTasks(t *testing.T) {
	st := newMemStore()
	crashed := task.New("mid-flight", 1)
	crashed.Transition(task.StateActive)
	st.rows[crashed.ID] = crashed

	cfg := config.Default()
	cfg.CrashPolicy = config.CrashPolicyFail
	k := newTestKernel(t, cfg, st)

	recovered := k.GetTask(crashed.ID)
	if recovered == nil || recovered.State != task.StateFailed {
		t.Fatalf("expected recovered task FAILED under fail policy, got %+v", recovered)
	}

	k.tick(context.Background())
	if k.active != nil {
		t.Fatal("a FAILED recovered task must never be scheduled")
	}
}

func TestInterruptPausesActiveAndPromotesInterruptTask(t *testing.T) {
	k := newTestKernel(t, config.Default(), newMemStore())
	ctx := context.Background()

	running := task.New("running", 1)
	k.Submit(ctx, running)
	k.dispatch(ctx, events.WithTask(events.TaskSubmit, running))
	k.tick(ctx)
	if k.active == nil || k.active.ID != running.ID {
		t.Fatal("setup: expected running task active")
	}

	urgent := task.New("urgent", 10)
	k.dispatch(ctx, events.WithTask(events.Interrupt, urgent))

	if running.State != task.StatePaused {
		t.Fatalf("expected previously-active task PAUSED, got %s", running.State)
	}
	if k.active != nil {
		t.Fatal("expected active slot cleared by interrupt")
	}

	k.tick(ctx)
	if k.active == nil || k.active.ID != urgent.ID {
		t.Fatalf("expected interrupt task promoted next, got %+v", k.active)
	}
}

func TestRetryWithNoDelayReenqueuesImmediately(t *testing.T) {
	k := newTestKernel(t, config.Default(), newMemStore())
	ctx := context.Background()

	flaky := task.New("flaky", 1)
	flaky.Metadata[task.MetaRetryCount] = 1
	flaky.Metadata[task.MetaMaxRetries] = 3
	k.Submit(ctx, flaky)
	k.dispatch(ctx, events.WithTask(events.TaskSubmit, flaky))
	k.tick(ctx)

	k.dispatch(ctx, events.New(events.TaskRetry, flaky.ID))
	if flaky.State != task.StatePending {
		t.Fatalf("expected PENDING after retry, got %s", flaky.State)
	}
	if k.active != nil {
		t.Fatal("expected active slot cleared after retry")
	}

	k.tick(ctx)
	if k.active == nil || k.active.ID != flaky.ID {
		t.Fatal("expected immediate re-enqueue (no retry_delay) to make the task schedulable again")
	}
}
