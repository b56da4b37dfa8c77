package pool

import (
	"fmt"
	"time"

	"github.com/AndreaCadonna/flexpool/internal/event"
	"github.com/AndreaCadonna/flexpool/internal/logging"
	"github.com/AndreaCadonna/flexpool/internal/task"
	"github.com/AndreaCadonna/flexpool/internal/unit"
)

// State is the pool's lifecycle state.
type State string

const (
	// StateInitializing means the pool is spawning its initial units.
	StateInitializing State = "initializing"

	// StateRunning means the pool accepts and dispatches tasks.
	StateRunning State = "running"

	// StateDraining means Terminate was called: queued tasks have been
	// rejected and the pool is waiting for in-flight work to finish.
	StateDraining State = "draining"

	// StateTerminated means every unit has exited and the pool is inert.
	StateTerminated State = "terminated"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Default configuration values, applied by New when the corresponding
// Config field is zero.
const (
	defaultMinUnits           = 1
	defaultMaxUnits           = 8
	defaultCheckInterval      = time.Second
	defaultMaxRestartsPerSlot = 3
)

// Config holds everything needed to construct a Pool.
//
// The zero value is not usable: Factory is required. MinUnits, MaxUnits,
// CheckInterval, and MaxRestartsPerSlot fall back to defaults when zero;
// the thresholds, Cooldown, TaskTimeout, and GracePeriod treat zero as a
// meaningful setting (no threshold slack, no cooldown, no deadline, no
// grace).
type Config struct {
	// MinUnits is the lower bound on pool size.
	MinUnits int

	// MaxUnits is the upper bound on pool size.
	MaxUnits int

	// ScaleUpThreshold is the queue depth above which the pool grows.
	ScaleUpThreshold int

	// ScaleDownThreshold is the idle unit count above which the pool
	// shrinks when the queue is empty.
	ScaleDownThreshold int

	// Cooldown is the minimum time between scaling actions. Zero disables
	// the cooldown. Crash replacement ignores it.
	Cooldown time.Duration

	// CheckInterval is how often the scaling policy is evaluated.
	CheckInterval time.Duration

	// MaxRestartsPerSlot is the crash count at which a unit slot stops
	// being replaced and the pool goes fatal.
	MaxRestartsPerSlot int

	// TaskTimeout is the optional per-task deadline. Zero disables it.
	// A task that exceeds the deadline is rejected with a TimeoutError and
	// its unit is killed, which counts as a crash for recovery purposes.
	TaskTimeout time.Duration

	// GracePeriod is how long Terminate waits for in-flight tasks before
	// killing the units still holding them. Zero kills immediately.
	GracePeriod time.Duration

	// Factory spawns execution units. Required.
	Factory unit.Factory

	// Bus receives pool lifecycle events. Optional; a private bus is
	// created when nil.
	Bus *event.Bus

	// Logger receives structured log output. Optional; discarded when nil.
	Logger *logging.Logger
}

// withDefaults returns a copy of the config with zero fields replaced by
// defaults.
func (c Config) withDefaults() Config {
	if c.MinUnits == 0 {
		c.MinUnits = defaultMinUnits
	}
	if c.MaxUnits == 0 {
		c.MaxUnits = defaultMaxUnits
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = defaultCheckInterval
	}
	if c.MaxRestartsPerSlot == 0 {
		c.MaxRestartsPerSlot = defaultMaxRestartsPerSlot
	}
	if c.Bus == nil {
		c.Bus = event.NewBus()
	}
	if c.Logger == nil {
		c.Logger = logging.NopLogger()
	}
	return c
}

// validate checks the config after defaults were applied.
func (c Config) validate() error {
	if c.Factory == nil {
		return fmt.Errorf("pool config: Factory is required")
	}
	if c.MinUnits < 1 {
		return fmt.Errorf("pool config: MinUnits must be at least 1, got %d", c.MinUnits)
	}
	if c.MaxUnits < c.MinUnits {
		return fmt.Errorf("pool config: MaxUnits (%d) must be >= MinUnits (%d)", c.MaxUnits, c.MinUnits)
	}
	if c.ScaleUpThreshold < 0 || c.ScaleDownThreshold < 0 {
		return fmt.Errorf("pool config: thresholds must not be negative")
	}
	if c.Cooldown < 0 || c.TaskTimeout < 0 || c.GracePeriod < 0 {
		return fmt.Errorf("pool config: durations must not be negative")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("pool config: CheckInterval must be positive, got %v", c.CheckInterval)
	}
	if c.MaxRestartsPerSlot < 1 {
		return fmt.Errorf("pool config: MaxRestartsPerSlot must be at least 1, got %d", c.MaxRestartsPerSlot)
	}
	return nil
}

// unitStatus tracks where a unit is in its lifecycle, from the
// dispatcher's point of view.
type unitStatus int

const (
	statusIdle unitStatus = iota
	statusBusy
	statusTerminating
)

// unitState is the dispatcher's bookkeeping for one live unit.
// Only the dispatcher goroutine touches it.
type unitState struct {
	u            unit.Unit
	slot         int
	status       unitStatus
	current      *task.Task  // task the unit is executing, nil when idle
	dispatchedAt time.Time   // when current was assigned
	timeout      *time.Timer // per-task deadline, nil when disabled
	killed       bool        // Kill was issued; ignore completion bookkeeping
}

// Messages the dispatcher loop processes, in arrival order, interleaved
// with unit events and scaling ticks.

type submitMsg struct {
	t *task.Task
}

type cancelMsg struct {
	taskID string
	reply  chan bool
}

type terminateMsg struct{}

type timeoutMsg struct {
	taskID string
}

type graceExpiredMsg struct{}
