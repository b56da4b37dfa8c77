package scaling

import (
	"fmt"
	"sync"
	"time"
)

// Default policy values.
const (
	defaultMinUnits           = 1
	defaultMaxUnits           = 8
	defaultScaleUpThreshold   = 2
	defaultScaleDownThreshold = 1
	defaultCooldown           = 30 * time.Second
)

// Option configures a Policy.
type Option func(*Policy)

// WithMinUnits sets the minimum number of units to maintain.
func WithMinUnits(n int) Option {
	return func(p *Policy) { p.minUnits = n }
}

// WithMaxUnits sets the maximum number of units allowed.
func WithMaxUnits(n int) Option {
	return func(p *Policy) { p.maxUnits = n }
}

// WithScaleUpThreshold sets the queue depth above which to scale up.
// Backlog at or below the threshold is tolerated so short bursts do not
// churn the pool.
func WithScaleUpThreshold(n int) Option {
	return func(p *Policy) { p.scaleUpThreshold = n }
}

// WithScaleDownThreshold sets the idle unit count above which to scale
// down. Scaling down is only recommended when the queue is empty.
func WithScaleDownThreshold(n int) Option {
	return func(p *Policy) { p.scaleDownThreshold = n }
}

// WithCooldown sets the minimum time between scaling actions. The cooldown
// is global: it separates any two consecutive actions regardless of
// direction, preventing up/down oscillation.
func WithCooldown(d time.Duration) Option {
	return func(p *Policy) { p.cooldown = d }
}

// Policy defines the rules for elastic scaling decisions.
// It is safe for concurrent use.
type Policy struct {
	mu                 sync.Mutex
	minUnits           int
	maxUnits           int
	scaleUpThreshold   int
	scaleDownThreshold int
	cooldown           time.Duration
	lastActionAt       time.Time
}

// NewPolicy creates a Policy with the given options.
// Unset options use defaults.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		minUnits:           defaultMinUnits,
		maxUnits:           defaultMaxUnits,
		scaleUpThreshold:   defaultScaleUpThreshold,
		scaleDownThreshold: defaultScaleDownThreshold,
		cooldown:           defaultCooldown,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MinUnits returns the configured lower bound on pool size.
func (p *Policy) MinUnits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.minUnits
}

// MaxUnits returns the configured upper bound on pool size.
func (p *Policy) MaxUnits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxUnits
}

// Evaluate inspects the current load and returns a scaling decision.
// The scale-up check runs first; scale-down is only considered when
// scale-up did not fire. At most one action is recommended per call, and a
// recommendation starts the cooldown window.
//
// Crash-replacement of units happens outside this policy and neither counts
// as an action nor consumes the cooldown.
func (p *Policy) Evaluate(load Load, now time.Time) Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	coolingDown := !p.lastActionAt.IsZero() && now.Sub(p.lastActionAt) < p.cooldown

	// Scale up: queue depth strictly over the threshold.
	if load.Units < p.maxUnits && load.QueueDepth > p.scaleUpThreshold {
		if coolingDown {
			return Decision{Action: ActionNone, Reason: "cooldown period active"}
		}
		p.lastActionAt = now
		return Decision{
			Action: ActionScaleUp,
			Reason: fmt.Sprintf("%d queued with %d/%d units idle (threshold: %d)",
				load.QueueDepth, load.IdleUnits, load.Units, p.scaleUpThreshold),
		}
	}

	// Scale down: nothing queued and more idle units than the threshold.
	if load.Units > p.minUnits && load.QueueDepth == 0 && load.IdleUnits > p.scaleDownThreshold {
		if coolingDown {
			return Decision{Action: ActionNone, Reason: "cooldown period active"}
		}
		p.lastActionAt = now
		return Decision{
			Action: ActionScaleDown,
			Reason: fmt.Sprintf("queue empty with %d idle units (threshold: %d)",
				load.IdleUnits, p.scaleDownThreshold),
		}
	}

	return Decision{Action: ActionNone, Reason: "no scaling needed"}
}
