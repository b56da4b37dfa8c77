// Package unit defines the execution unit abstraction: one isolated
// concurrent context that executes at most one task at a time and reports
// results, failures, and exits asynchronously on an event channel.
//
// The pool depends only on the Unit interface and the Factory capability,
// so what a unit actually computes (and whether it is a goroutine, an OS
// process, or something else) is the caller's concern. A goroutine-backed
// implementation is provided for the common case.
package unit

import (
	"context"

	"github.com/AndreaCadonna/flexpool/internal/task"
)

// Exit codes reported in ExitEvent.Code.
const (
	// ExitCodeOK indicates a voluntary exit (scale-down or terminate).
	ExitCodeOK = 0

	// ExitCodeCrash indicates the unit died executing a task
	// (e.g. a handler panic).
	ExitCodeCrash = 2

	// ExitCodeKilled indicates the unit was force-terminated.
	ExitCodeKilled = 137
)

// EventKind discriminates the events a unit emits.
type EventKind int

const (
	// EventResult reports a successfully completed task.
	EventResult EventKind = iota

	// EventError reports a task whose handler returned an error.
	// The unit itself is healthy and returns to idle.
	EventError

	// EventExit reports that the unit's execution context is gone.
	// Code zero is a voluntary exit; nonzero is a crash.
	EventExit
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Event is a single message from a unit to its owner. Exactly one of
// Value/Err is meaningful depending on Kind; Code is set for EventExit.
type Event struct {
	Kind   EventKind
	UnitID string
	TaskID string // Task the event refers to (empty for idle exits)
	Value  any    // Handler return value (EventResult)
	Err    error  // Handler failure (EventError)
	Code   int    // Exit code (EventExit)
}

// Unit wraps one isolated concurrent context.
//
// State machine: Idle --Assign--> Busy --result/error--> Idle;
// Busy --crash exit--> removed; Idle --Stop--> removed (voluntary).
// A unit processes exactly one task at a time; Assign while Busy is a
// programming error and is rejected with ErrUnitBusy.
type Unit interface {
	// ID returns the unique identifier for this unit.
	ID() string

	// Assign hands a task to the unit. The unit must be idle.
	Assign(t *task.Task) error

	// Stop asks the unit to exit voluntarily after finishing its current
	// task, emitting an ExitEvent with code zero. It never interrupts
	// in-flight work.
	Stop()

	// Kill force-terminates the unit. In-flight work is abandoned and the
	// unit emits an ExitEvent with a nonzero code.
	Kill()
}

// Handler is the task-handling entry point a unit runs for each assigned
// payload. The context is cancelled when the unit is killed.
type Handler func(ctx context.Context, payload task.Payload) (any, error)

// Factory spawns one isolated execution context. The unit must report all
// its events on the supplied channel. The pool owns the channel and drains
// it for the lifetime of the unit.
type Factory func(id string, events chan<- Event) (Unit, error)
