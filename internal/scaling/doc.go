// Package scaling provides queue-depth-based elastic scaling decisions for
// the pool.
//
// The dispatcher evaluates the policy on a fixed tick. Each evaluation
// considers scale-up first; scale-down is only considered when scale-up did
// not fire, and at most one action is taken per tick. A global cooldown
// separates consecutive actions so the pool does not thrash between growing
// and shrinking.
//
// The core types are:
//
//   - [Policy]: Defines scaling rules (thresholds, cooldown, unit limits)
//   - [Load]: The observed pool state an evaluation runs against
//   - [Decision]: The outcome of an evaluation (grow, shrink, or hold)
//
// # Usage
//
//	policy := scaling.NewPolicy(
//	    scaling.WithMinUnits(2),
//	    scaling.WithMaxUnits(8),
//	    scaling.WithScaleUpThreshold(10),
//	    scaling.WithScaleDownThreshold(1),
//	    scaling.WithCooldown(30 * time.Second),
//	)
//
//	decision := policy.Evaluate(scaling.Load{
//	    QueueDepth: depth,
//	    Units:      len(units),
//	    IdleUnits:  idle,
//	}, time.Now())
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package scaling
