package scheduler

import "container/heap"

// entry is one ready-structure slot: a task id plus the priority and
// sequence it was enqueued with. Priority and sequence are copied at
// push time rather than looked up live, so a task's entry keeps its
// place in heap order even if the task's own Priority field is read
// concurrently elsewhere — the heap only ever mutates on the loop
// goroutine, but copying avoids any temptation to reach back into the
// task map mid-sift.
type entry struct {
	taskID   string
	priority int
	sequence uint64
}

// priorityQueue is a max-heap on priority, tie-broken by ascending
// sequence (FIFO among equal priorities, per spec §4.2/§9).
type priorityQueue []entry

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority > pq[j].priority
	}
	return pq[i].sequence < pq[j].sequence
}

func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(entry))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	e := old[n-1]
	*pq = old[:n-1]
	return e
}

var _ heap.Interface = (*priorityQueue)(nil)
