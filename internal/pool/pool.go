package pool

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AndreaCadonna/flexpool/internal/errors"
	"github.com/AndreaCadonna/flexpool/internal/event"
	"github.com/AndreaCadonna/flexpool/internal/logging"
	"github.com/AndreaCadonna/flexpool/internal/metrics"
	"github.com/AndreaCadonna/flexpool/internal/scaling"
	"github.com/AndreaCadonna/flexpool/internal/task"
	"github.com/AndreaCadonna/flexpool/internal/taskqueue"
	"github.com/AndreaCadonna/flexpool/internal/unit"
)

// Pool is an adaptive worker pool. See the package documentation for the
// overall model.
//
// Execute, Cancel, Terminate, State, QueueDepth, and GetMetrics are safe
// for concurrent use from any goroutine.
type Pool struct {
	cfg       Config
	policy    *scaling.Policy
	bus       *event.Bus
	log       *logging.Logger
	collector *metrics.Collector

	// msgs is deliberately unbuffered: a send succeeds only while the
	// dispatcher is alive and receiving, so nothing can be stranded in a
	// buffer at termination.
	msgs       chan any
	unitEvents chan unit.Event
	done       chan struct{}

	extState atomic.Value // State, readable without entering the loop

	// Everything below is owned by the dispatcher goroutine.
	state        State
	queue        *taskqueue.Queue
	units        map[string]*unitState
	idle         []string          // unit IDs, oldest-idle first
	owner        map[string]string // in-flight task ID -> unit ID
	cancelAsked  map[string]bool   // in-flight tasks with a pending cancel
	slotRestarts map[int]int
	nextSlot     int
	fatal        *errors.PoolFatalError
	graceTimer   *time.Timer
}

// New creates a Pool, spawns its initial MinUnits execution units, and
// starts the dispatcher. The returned pool is in the running state.
func New(cfg Config) (*Pool, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg: cfg,
		policy: scaling.NewPolicy(
			scaling.WithMinUnits(cfg.MinUnits),
			scaling.WithMaxUnits(cfg.MaxUnits),
			scaling.WithScaleUpThreshold(cfg.ScaleUpThreshold),
			scaling.WithScaleDownThreshold(cfg.ScaleDownThreshold),
			scaling.WithCooldown(cfg.Cooldown),
		),
		bus:          cfg.Bus,
		log:          cfg.Logger.With("component", "pool"),
		collector:    metrics.NewCollector(),
		msgs:         make(chan any),
		unitEvents:   make(chan unit.Event, cfg.MaxUnits*4),
		done:         make(chan struct{}),
		queue:        taskqueue.New(),
		units:        make(map[string]*unitState),
		owner:        make(map[string]string),
		cancelAsked:  make(map[string]bool),
		slotRestarts: make(map[int]int),
	}
	p.setState(StateInitializing)

	for i := 0; i < cfg.MinUnits; i++ {
		if err := p.spawnUnit(p.nextSlot, false); err != nil {
			for _, us := range p.units {
				us.u.Kill()
			}
			return nil, fmt.Errorf("pool init: %w", err)
		}
	}

	p.setState(StateRunning)
	go p.run()
	return p, nil
}

// Execute submits a payload for execution and returns its future
// immediately; it never blocks on queue capacity. The future settles
// exactly once with the task's result, its handler error, a cancellation
// or timeout, or a shutdown/fatal rejection.
func (p *Pool) Execute(payload task.Payload) *task.Future {
	t := task.New(payload)
	select {
	case p.msgs <- submitMsg{t: t}:
	case <-p.done:
		t.Future().Reject(errors.NewShutdownError("pool is terminated"))
	}
	return t.Future()
}

// Cancel requests cancellation of a task by ID. It returns true when the
// task was still queued and has been removed and rejected synchronously.
// For an in-flight task it returns false and the cancellation takes effect
// at the task's next completion boundary; for an unknown or already
// settled task it returns false and does nothing.
func (p *Pool) Cancel(taskID string) bool {
	reply := make(chan bool, 1)
	select {
	case p.msgs <- cancelMsg{taskID: taskID, reply: reply}:
		return <-reply
	case <-p.done:
		return false
	}
}

// Terminate gracefully shuts the pool down: queued tasks are rejected with
// a ShutdownError, in-flight tasks get GracePeriod to finish, and any unit
// still busy after that is killed. It returns once every unit has exited,
// or earlier with the context's error. Terminate is idempotent; concurrent
// callers all unblock when shutdown completes.
func (p *Pool) Terminate(ctx context.Context) error {
	select {
	case p.msgs <- terminateMsg{}:
	case <-p.done:
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the pool's current lifecycle state.
func (p *Pool) State() State {
	return p.extState.Load().(State)
}

// QueueDepth returns the number of tasks waiting for a unit.
func (p *Pool) QueueDepth() int {
	return p.queue.Len()
}

// GetMetrics returns a snapshot of the pool's counters.
func (p *Pool) GetMetrics() metrics.Snapshot {
	return p.collector.Snapshot()
}

// Events returns the bus the pool publishes lifecycle events on.
func (p *Pool) Events() *event.Bus {
	return p.bus
}

// Done returns a channel closed when the pool has fully terminated.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// setState transitions the lifecycle state and publishes the change.
func (p *Pool) setState(s State) {
	prev := p.state
	p.state = s
	p.extState.Store(s)
	if prev != "" && prev != s {
		p.bus.Publish(event.NewPoolStateChangedEvent(prev.String(), s.String()))
		p.log.Info("pool state changed", "previous", prev.String(), "current", s.String())
	}
}

// spawnUnit creates a unit for the given slot and registers it idle.
// Dispatcher-owned (also called from New before the loop starts).
func (p *Pool) spawnUnit(slot int, replacement bool) error {
	id := "unit-" + uuid.NewString()[:8]
	u, err := p.cfg.Factory(id, p.unitEvents)
	if err != nil {
		p.log.Error("unit spawn failed", "slot", slot, "error", err)
		return errors.NewUnitError(id, "spawn failed", err)
	}
	if slot >= p.nextSlot {
		p.nextSlot = slot + 1
	}

	p.units[id] = &unitState{u: u, slot: slot, status: statusIdle}
	p.idle = append(p.idle, id)
	p.collector.UnitAdded(id, slot, p.slotRestarts[slot], len(p.units))
	p.bus.Publish(event.NewUnitStartedEvent(id, slot, replacement))
	p.log.Info("unit started", "unit_id", id, "slot", slot, "replacement", replacement)
	return nil
}

// send delivers a message to the dispatcher unless the pool has already
// terminated. Used by timer callbacks.
func (p *Pool) send(m any) {
	select {
	case p.msgs <- m:
	case <-p.done:
	}
}
