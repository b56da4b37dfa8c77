package scaling

// Action represents a scaling decision action.
type Action string

const (
	// ActionScaleUp indicates one unit should be added.
	ActionScaleUp Action = "scale_up"

	// ActionScaleDown indicates one idle unit should be removed.
	ActionScaleDown Action = "scale_down"

	// ActionNone indicates no scaling change is needed.
	ActionNone Action = "none"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// Load is a snapshot of the pool state a policy evaluation runs against.
type Load struct {
	// QueueDepth is the number of tasks waiting for an idle unit.
	QueueDepth int

	// Units is the current number of execution units.
	Units int

	// IdleUnits is the number of units with no assigned task.
	IdleUnits int
}

// Decision is the result of evaluating the scaling policy against the
// current load.
type Decision struct {
	// Action is the recommended scaling action. Every action moves the
	// pool by exactly one unit.
	Action Action

	// Reason is a human-readable explanation of the decision.
	Reason string
}
