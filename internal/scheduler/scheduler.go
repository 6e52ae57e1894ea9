// Package scheduler holds the in-memory index of known tasks plus a
// priority-ordered ready structure. It carries no locking of its own:
// the kernel serializes every access under its own mutex.
package scheduler

import (
	"container/heap"

	"github.com/cidxb/rark/internal/task"
)

// Scheduler is the kernel's task index and ready queue.
type Scheduler struct {
	tasks    map[string]*task.Task
	ready    priorityQueue
	sequence uint64
}

// New constructs an empty Scheduler.
func New() *Scheduler {
	s := &Scheduler{tasks: make(map[string]*task.Task)}
	heap.Init(&s.ready)
	return s
}

// Register tracks a task in the by-id index without enqueueing it for
// scheduling. Used so a task is immediately queryable (by the HTTP
// boundary) before its TASK_SUBMIT/INTERRUPT event reaches the loop,
// and for recovered tasks that land in a terminal state.
func (s *Scheduler) Register(t *task.Task) {
	s.tasks[t.ID] = t
}

// Add registers t and pushes it onto the ready structure.
func (s *Scheduler) Add(t *task.Task) {
	s.Register(t)
	s.push(t)
}

func (s *Scheduler) push(t *task.Task) {
	s.sequence++
	heap.Push(&s.ready, entry{taskID: t.ID, priority: t.Priority, sequence: s.sequence})
}

// PickNext pops and returns the highest-priority PENDING or PAUSED task
// whose blocked_by is empty. Stale entries (task gone, or no longer in
// an eligible state) are discarded; entries still blocked on a
// dependency are set aside and reinserted once the scan completes.
func (s *Scheduler) PickNext() *task.Task {
	var skipped []entry
	var result *task.Task

	for s.ready.Len() > 0 {
		e := heap.Pop(&s.ready).(entry)
		t, ok := s.tasks[e.taskID]
		if !ok || (t.State != task.StatePending && t.State != task.StatePaused) {
			continue // stale
		}
		if t.IsBlocked() {
			skipped = append(skipped, e)
			continue
		}
		result = t
		break
	}

	for _, e := range skipped {
		heap.Push(&s.ready, e)
	}

	return result
}

// ReleaseDependents removes completedID from every known task's
// blocked_by. O(N) over known tasks, which spec §4.2 notes is
// acceptable.
func (s *Scheduler) ReleaseDependents(completedID string) {
	for _, t := range s.tasks {
		t.Unblock(completedID)
	}
}

// Suspend transitions the task to PAUSED and re-enqueues it. The caller
// is responsible for persisting the task afterward.
func (s *Scheduler) Suspend(id string) error {
	t, ok := s.tasks[id]
	if !ok {
		return ErrUnknownTask
	}
	if err := t.Transition(task.StatePaused); err != nil {
		return err
	}
	s.push(t)
	return nil
}

// Get returns the task tracked under id, or nil if unknown.
func (s *Scheduler) Get(id string) *task.Task {
	return s.tasks[id]
}

// Remove drops id from the by-id index. Any stale heap entries for it
// are discarded lazily by PickNext.
func (s *Scheduler) Remove(id string) {
	delete(s.tasks, id)
}

// List returns every known task. Order is unspecified; callers that
// need a stable order (e.g. the HTTP boundary) sort it themselves.
func (s *Scheduler) List() []*task.Task {
	out := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}
