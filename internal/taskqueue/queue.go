// Package taskqueue provides the ordered holding area for tasks awaiting an
// idle execution unit. Submission order is preserved among queued tasks; the
// one exception is crash-requeued work, which re-enters at the front so
// interrupted tasks are retried before fresh ones.
package taskqueue

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/AndreaCadonna/flexpool/internal/task"
)

// Queue is a FIFO task queue with a priority front segment for
// crash-requeued tasks and synchronous removal for cancellation.
// All methods are safe for concurrent use via an internal mutex.
type Queue struct {
	mu sync.Mutex

	// front holds crash-requeued tasks. The most recently requeued task is
	// dispatched first; all of them precede the main ring.
	front []*task.Task

	// ring holds tasks in submission order.
	ring *queue.Queue

	// removed marks task IDs cancelled while queued. The ring does not
	// support mid-queue removal, so Pop skips marked entries instead.
	removed map[string]bool

	count int
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{
		ring:    queue.New(),
		removed: make(map[string]bool),
	}
}

// Len returns the number of queued tasks, excluding cancelled entries that
// have not been physically dropped yet.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Push appends a task to the back of the queue.
func (q *Queue) Push(t *task.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ring.Add(t)
	q.count++
}

// PushFront places a task at the front of the queue, ahead of all waiting
// tasks. Used for crash-requeue so interrupted work minimizes added latency,
// at the cost of strict FIFO fairness.
func (q *Queue) PushFront(t *task.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.front = append(q.front, t)
	q.count++
}

// Pop removes and returns the earliest task, or nil if the queue is empty.
// Front-segment tasks are returned before ring tasks; cancelled entries are
// skipped and dropped.
func (q *Queue) Pop() *task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for n := len(q.front); n > 0; n = len(q.front) {
		t := q.front[n-1]
		q.front = q.front[:n-1]
		if q.removed[t.ID] {
			delete(q.removed, t.ID)
			continue
		}
		q.count--
		return t
	}

	for q.ring.Length() > 0 {
		t := q.ring.Remove().(*task.Task)
		if q.removed[t.ID] {
			delete(q.removed, t.ID)
			continue
		}
		q.count--
		return t
	}
	return nil
}

// Remove cancels a queued task by ID, returning it if found.
// The task is removed synchronously from the queue's accounting; ring
// entries are physically dropped lazily on a later Pop.
func (q *Queue) Remove(id string) *task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, t := range q.front {
		if t.ID == id {
			q.front = append(q.front[:i], q.front[i+1:]...)
			q.count--
			return t
		}
	}

	for i := 0; i < q.ring.Length(); i++ {
		t := q.ring.Get(i).(*task.Task)
		if t.ID == id && !q.removed[id] {
			q.removed[id] = true
			q.count--
			return t
		}
	}
	return nil
}

// Drain removes and returns all queued tasks in dispatch order.
// Used at shutdown to reject everything still waiting.
func (q *Queue) Drain() []*task.Task {
	var drained []*task.Task
	for {
		t := q.Pop()
		if t == nil {
			return drained
		}
		drained = append(drained, t)
	}
}
