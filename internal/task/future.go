package task

import (
	"context"
	"sync"
	"time"
)

// Result is the successful outcome of a task.
type Result struct {
	// Value is whatever the unit's handler returned.
	Value any

	// UnitID identifies the unit that executed the task.
	UnitID string

	// Duration is the wall time from dispatch to completion.
	Duration time.Duration
}

// Future is a write-once completion observed by the caller of Execute.
// It settles exactly once: the first Resolve or Reject wins and every
// subsequent attempt is a no-op. All methods are safe for concurrent use.
type Future struct {
	taskID string
	once   sync.Once
	done   chan struct{}
	result Result
	err    error
}

// NewFuture creates an unsettled Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// TaskID returns the ID of the task this future belongs to. It is the
// handle used to cancel the task.
func (f *Future) TaskID() string {
	return f.taskID
}

// Resolve settles the future with a successful result.
// Returns true if this call performed the settlement.
func (f *Future) Resolve(r Result) bool {
	settled := false
	f.once.Do(func() {
		f.result = r
		settled = true
		close(f.done)
	})
	return settled
}

// Reject settles the future with an error.
// Returns true if this call performed the settlement.
func (f *Future) Reject(err error) bool {
	settled := false
	f.once.Do(func() {
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// Done returns a channel that is closed when the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has settled.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future settles or the context is done.
// A context error does not settle the future; the task keeps running and
// the caller may Wait again.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Outcome returns the settled result and error.
// It must only be called after Done is closed; before settlement it returns
// zero values.
func (f *Future) Outcome() (Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	default:
		return Result{}, nil
	}
}
