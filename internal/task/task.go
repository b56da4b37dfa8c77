// Package task defines the unit of submitted work and its single-settlement
// completion future. A Task is created when the caller submits a payload and
// destroyed when its future settles exactly once (resolved, rejected, or
// shutdown-rejected).
package task

import (
	"time"

	"github.com/google/uuid"
)

// Payload is the caller-supplied work description handed to an execution
// unit. The pool treats it as opaque; crossing the unit boundary is assumed
// to serialize it.
type Payload any

// Task wraps a payload with an identity and a completion future.
type Task struct {
	// ID uniquely identifies the task across the pool's lifetime.
	ID string

	// Payload is the opaque work description.
	Payload Payload

	// SubmittedAt is when the task entered the queue.
	SubmittedAt time.Time

	// Attempts counts how many times the task has been dispatched to a
	// unit. A crash-requeued task is dispatched more than once.
	Attempts int

	future *Future
}

// New creates a Task wrapping the given payload with a fresh future.
func New(payload Payload) *Task {
	id := uuid.NewString()
	f := NewFuture()
	f.taskID = id
	return &Task{
		ID:          id,
		Payload:     payload,
		SubmittedAt: time.Now(),
		future:      f,
	}
}

// Future returns the completion future the caller observes.
func (t *Task) Future() *Future {
	return t.future
}

// WaitingFor returns how long the task has been waiting since submission.
func (t *Task) WaitingFor() time.Duration {
	return time.Since(t.SubmittedAt)
}
