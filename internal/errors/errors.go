// Package errors provides centralized error definitions and error handling
// utilities for the flexpool codebase. It defines domain-specific errors,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - TaskError: the work a unit performed for one task failed
//   - ShutdownError: the pool is draining or terminated
//   - PoolFatalError: a unit slot exhausted its restart budget
//   - UnitError: an execution unit misbehaved (bad assign, spawn failure)
//
// Semantic errors represent common error conditions:
//   - CancelledError: a task was cancelled before completion
//   - TimeoutError: a task exceeded its configured deadline
//
// # Usage
//
// Creating errors:
//
//	// Task-level failure, local to one future
//	err := errors.NewTaskError(taskID, cause)
//
//	// Pool refused the submission
//	err := errors.NewShutdownError("pool is draining")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrPoolDraining) { ... }
//
//	var taskErr *errors.TaskError
//	if errors.As(err, &taskErr) { ... }
//
//	if errors.IsShutdown(err) { ... }
//	if errors.IsFatal(err) { ... }
//
// # Propagation Policy
//
// Task-level failures never escalate to pool-level failures. A PoolFatalError
// is the only condition that halts new admissions; everything else is local
// to the future of the task that caused it.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Pool lifecycle sentinel errors
var (
	// ErrPoolDraining indicates the pool no longer accepts submissions
	// because Terminate has been called.
	ErrPoolDraining = New("pool is draining")
	// ErrPoolTerminated indicates the pool has fully shut down.
	ErrPoolTerminated = New("pool is terminated")
	// ErrPoolFatal indicates the pool stopped admitting work after a unit
	// slot exceeded its restart budget.
	ErrPoolFatal = New("pool is in fatal state")
)

// Task sentinel errors
var (
	// ErrTaskNotFound indicates that a task could not be found in the queue
	// or in-flight registry.
	ErrTaskNotFound = New("task not found")
	// ErrTaskCancelled indicates that a task was cancelled before completion.
	ErrTaskCancelled = New("task cancelled")
	// ErrTaskTimeout indicates that a task exceeded its configured deadline.
	ErrTaskTimeout = New("task deadline exceeded")
)

// Unit sentinel errors
var (
	// ErrUnitBusy indicates an assign was attempted on a unit that already
	// holds a task. This is a programming error in the dispatcher.
	ErrUnitBusy = New("unit already has a task assigned")
	// ErrUnitStopped indicates an operation on a unit that has exited.
	ErrUnitStopped = New("unit has stopped")
	// ErrUnitSpawnFailed indicates the unit factory failed to produce a unit.
	ErrUnitSpawnFailed = New("unit spawn failed")
)

// -----------------------------------------------------------------------------
// TaskError
// -----------------------------------------------------------------------------

// TaskError represents a payload-level failure: the work a unit performed
// for one task returned an error. It is local to that task's future and
// never affects pool health.
type TaskError struct {
	TaskID string
	cause  error
}

// NewTaskError creates a TaskError wrapping the handler's failure.
func NewTaskError(taskID string, cause error) *TaskError {
	return &TaskError{TaskID: taskID, cause: cause}
}

// Error returns the formatted error message.
func (e *TaskError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("task %s failed: %v", e.TaskID, e.cause)
	}
	return fmt.Sprintf("task %s failed", e.TaskID)
}

// Unwrap returns the underlying handler error.
func (e *TaskError) Unwrap() error {
	return e.cause
}

// -----------------------------------------------------------------------------
// ShutdownError
// -----------------------------------------------------------------------------

// ShutdownError is returned to any task queued or submitted during or after
// Terminate. It wraps ErrPoolDraining so errors.Is checks keep working.
type ShutdownError struct {
	Reason string
}

// NewShutdownError creates a ShutdownError with the given reason.
func NewShutdownError(reason string) *ShutdownError {
	return &ShutdownError{Reason: reason}
}

// Error returns the formatted error message.
func (e *ShutdownError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("pool shutting down: %s", e.Reason)
	}
	return "pool shutting down"
}

// Is reports whether target is one of the pool lifecycle sentinels.
func (e *ShutdownError) Is(target error) bool {
	return target == ErrPoolDraining || target == ErrPoolTerminated
}

// -----------------------------------------------------------------------------
// PoolFatalError
// -----------------------------------------------------------------------------

// PoolFatalError indicates a unit slot exceeded its restart budget. The pool
// rejects all new submissions once this error is emitted; the operator is
// expected to recreate the pool (there is no in-place reset).
type PoolFatalError struct {
	UnitID   string
	Slot     int
	Restarts int
}

// NewPoolFatalError creates a PoolFatalError for the given unit slot.
func NewPoolFatalError(unitID string, slot, restarts int) *PoolFatalError {
	return &PoolFatalError{UnitID: unitID, Slot: slot, Restarts: restarts}
}

// Error returns the formatted error message.
func (e *PoolFatalError) Error() string {
	return fmt.Sprintf("pool fatal: unit %s (slot %d) crashed %d times, restart budget exhausted",
		e.UnitID, e.Slot, e.Restarts)
}

// Is reports whether target is the pool fatal sentinel.
func (e *PoolFatalError) Is(target error) bool {
	return target == ErrPoolFatal
}

// -----------------------------------------------------------------------------
// CancelledError
// -----------------------------------------------------------------------------

// CancelledError is returned on the future of a task that was cancelled
// while still queued (synchronous removal) or whose in-flight result was
// discarded at the next completion boundary.
type CancelledError struct {
	TaskID string
}

// NewCancelledError creates a CancelledError for the given task.
func NewCancelledError(taskID string) *CancelledError {
	return &CancelledError{TaskID: taskID}
}

// Error returns the formatted error message.
func (e *CancelledError) Error() string {
	return fmt.Sprintf("task %s cancelled", e.TaskID)
}

// Is reports whether target is the cancellation sentinel.
func (e *CancelledError) Is(target error) bool {
	return target == ErrTaskCancelled
}

// -----------------------------------------------------------------------------
// TimeoutError
// -----------------------------------------------------------------------------

// TimeoutError is returned on the future of a task that exceeded the
// configured per-task deadline. The owning unit is killed, which counts as
// a crash for recovery purposes.
type TimeoutError struct {
	TaskID  string
	Elapsed time.Duration
}

// NewTimeoutError creates a TimeoutError for the given task.
func NewTimeoutError(taskID string, elapsed time.Duration) *TimeoutError {
	return &TimeoutError{TaskID: taskID, Elapsed: elapsed}
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s timed out after %v", e.TaskID, e.Elapsed)
}

// Is reports whether target is the timeout sentinel.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTaskTimeout
}

// -----------------------------------------------------------------------------
// UnitError
// -----------------------------------------------------------------------------

// UnitError represents errors related to execution unit management.
type UnitError struct {
	UnitID string
	msg    string
	cause  error
}

// NewUnitError creates a new UnitError.
func NewUnitError(unitID, message string, cause error) *UnitError {
	return &UnitError{UnitID: unitID, msg: message, cause: cause}
}

// Error returns the formatted error message.
func (e *UnitError) Error() string {
	prefix := "unit error"
	if e.UnitID != "" {
		prefix = fmt.Sprintf("unit error [unit=%s]", e.UnitID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.msg)
}

// Unwrap returns the underlying error.
func (e *UnitError) Unwrap() error {
	return e.cause
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsShutdown returns true if the error indicates the pool was draining or
// terminated when the operation was attempted.
func IsShutdown(err error) bool {
	return Is(err, ErrPoolDraining) || Is(err, ErrPoolTerminated)
}

// IsFatal returns true if the error indicates the pool entered the fatal
// state and requires operator intervention.
func IsFatal(err error) bool {
	return Is(err, ErrPoolFatal)
}

// IsCancelled returns true if the error indicates the task was cancelled.
func IsCancelled(err error) bool {
	return Is(err, ErrTaskCancelled)
}

// IsTimeout returns true if the error indicates the task exceeded its
// deadline.
func IsTimeout(err error) bool {
	return Is(err, ErrTaskTimeout)
}

// IsRetryable returns true if the operation that produced the error is
// transient and may succeed on a fresh submission. Task failures and
// timeouts are retryable by resubmitting; shutdown, fatal and cancellation
// outcomes are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsShutdown(err) || IsFatal(err) || IsCancelled(err) {
		return false
	}
	var taskErr *TaskError
	if As(err, &taskErr) {
		return true
	}
	return IsTimeout(err)
}
