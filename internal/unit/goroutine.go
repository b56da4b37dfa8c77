package unit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/AndreaCadonna/flexpool/internal/errors"
	"github.com/AndreaCadonna/flexpool/internal/task"
)

// Compile-time interface check for goroutineUnit
var _ Unit = (*goroutineUnit)(nil)

// goroutineUnit runs a Handler in its own goroutine. It is the default
// execution context: cheap, in-process, and isolated through the one-task
// inbox and panic recovery. A handler panic tears the unit down with
// ExitCodeCrash; the handler returning an error leaves the unit healthy.
type goroutineUnit struct {
	id      string
	handler Handler
	events  chan<- Event

	// inbox carries at most one task; the busy flag guards the capacity.
	inbox chan *task.Task

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	stopCh   chan struct{}

	busy   atomic.Bool
	exited atomic.Bool
}

// GoroutineFactory returns a Factory that spawns goroutine-backed units
// executing the given handler for every assigned task.
func GoroutineFactory(handler Handler) Factory {
	return func(id string, events chan<- Event) (Unit, error) {
		if handler == nil {
			return nil, errors.NewUnitError(id, "spawn", errors.New("nil handler"))
		}
		ctx, cancel := context.WithCancel(context.Background())
		u := &goroutineUnit{
			id:      id,
			handler: handler,
			events:  events,
			inbox:   make(chan *task.Task, 1),
			ctx:     ctx,
			cancel:  cancel,
			stopCh:  make(chan struct{}),
		}
		go u.run()
		return u, nil
	}
}

// ID returns the unit's identifier.
func (u *goroutineUnit) ID() string {
	return u.id
}

// Assign hands a task to the unit. It fails if the unit has exited or is
// already holding a task.
func (u *goroutineUnit) Assign(t *task.Task) error {
	if u.exited.Load() {
		return errors.NewUnitError(u.id, "assign rejected", errors.ErrUnitStopped)
	}
	if !u.busy.CompareAndSwap(false, true) {
		return errors.NewUnitError(u.id, "assign rejected", errors.ErrUnitBusy)
	}
	u.inbox <- t
	return nil
}

// Stop asks the unit to exit after its current task, with code zero.
func (u *goroutineUnit) Stop() {
	u.stopOnce.Do(func() { close(u.stopCh) })
}

// Kill force-terminates the unit. The handler's context is cancelled; the
// unit exits with ExitCodeKilled as soon as the handler returns.
func (u *goroutineUnit) Kill() {
	u.cancel()
}

// run is the unit's main loop: wait for a task, execute it, report, repeat
// until stopped or killed.
func (u *goroutineUnit) run() {
	for {
		select {
		case <-u.ctx.Done():
			u.exit(ExitCodeKilled, "")
			return
		case <-u.stopCh:
			u.exit(ExitCodeOK, "")
			return
		case t := <-u.inbox:
			if crashed := u.execute(t); crashed {
				u.exit(ExitCodeCrash, t.ID)
				return
			}
		}
	}
}

// execute runs the handler for one task and reports the outcome.
// A handler panic is reported as a crash rather than a task error: the
// unit's execution context can no longer be trusted.
func (u *goroutineUnit) execute(t *task.Task) (crashed bool) {
	defer func() {
		if r := recover(); r != nil {
			crashed = true
		}
	}()

	value, err := u.handler(u.ctx, t.Payload)

	// Clear busy before reporting: the receiver may re-Assign the moment it
	// sees the event, and that assign must not be rejected. The one-slot
	// inbox buffers the next task until this loop iteration finishes.
	// On panic the flag stays set; the unit is exiting and rejects assigns
	// through the exited flag.
	u.busy.Store(false)
	if err != nil {
		u.events <- Event{Kind: EventError, UnitID: u.id, TaskID: t.ID, Err: err}
	} else {
		u.events <- Event{Kind: EventResult, UnitID: u.id, TaskID: t.ID, Value: value}
	}
	return false
}

// exit emits the unit's final event exactly once.
func (u *goroutineUnit) exit(code int, taskID string) {
	if !u.exited.CompareAndSwap(false, true) {
		return
	}
	u.events <- Event{Kind: EventExit, UnitID: u.id, TaskID: taskID, Code: code}
}
