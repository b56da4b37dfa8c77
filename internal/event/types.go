package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "task.submitted", "unit.crashed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Task Lifecycle Events
// -----------------------------------------------------------------------------

// TaskSubmittedEvent is emitted when a task is accepted into the queue.
type TaskSubmittedEvent struct {
	baseEvent
	TaskID     string // Unique identifier for the task
	QueueDepth int    // Queue depth after the submission
}

// NewTaskSubmittedEvent creates a TaskSubmittedEvent.
func NewTaskSubmittedEvent(taskID string, queueDepth int) TaskSubmittedEvent {
	return TaskSubmittedEvent{
		baseEvent:  newBaseEvent("task.submitted"),
		TaskID:     taskID,
		QueueDepth: queueDepth,
	}
}

// TaskDispatchedEvent is emitted when a task is assigned to an idle unit.
type TaskDispatchedEvent struct {
	baseEvent
	TaskID string // Task that was dispatched
	UnitID string // Unit the task was assigned to
}

// NewTaskDispatchedEvent creates a TaskDispatchedEvent.
func NewTaskDispatchedEvent(taskID, unitID string) TaskDispatchedEvent {
	return TaskDispatchedEvent{
		baseEvent: newBaseEvent("task.dispatched"),
		TaskID:    taskID,
		UnitID:    unitID,
	}
}

// TaskCompletedEvent is emitted when a task's future is resolved.
type TaskCompletedEvent struct {
	baseEvent
	TaskID   string        // Task that completed
	UnitID   string        // Unit that executed the task
	Duration time.Duration // Wall time from dispatch to completion
}

// NewTaskCompletedEvent creates a TaskCompletedEvent.
func NewTaskCompletedEvent(taskID, unitID string, duration time.Duration) TaskCompletedEvent {
	return TaskCompletedEvent{
		baseEvent: newBaseEvent("task.completed"),
		TaskID:    taskID,
		UnitID:    unitID,
		Duration:  duration,
	}
}

// TaskFailedEvent is emitted when a task's future is rejected.
type TaskFailedEvent struct {
	baseEvent
	TaskID string // Task that failed
	UnitID string // Unit that executed the task (empty if never dispatched)
	Reason string // Failure description
}

// NewTaskFailedEvent creates a TaskFailedEvent.
func NewTaskFailedEvent(taskID, unitID, reason string) TaskFailedEvent {
	return TaskFailedEvent{
		baseEvent: newBaseEvent("task.failed"),
		TaskID:    taskID,
		UnitID:    unitID,
		Reason:    reason,
	}
}

// TaskRequeuedEvent is emitted when a crashed unit's interrupted task is
// placed back at the front of the queue.
type TaskRequeuedEvent struct {
	baseEvent
	TaskID string // Task that was requeued
	UnitID string // Unit that crashed while holding the task
}

// NewTaskRequeuedEvent creates a TaskRequeuedEvent.
func NewTaskRequeuedEvent(taskID, unitID string) TaskRequeuedEvent {
	return TaskRequeuedEvent{
		baseEvent: newBaseEvent("task.requeued"),
		TaskID:    taskID,
		UnitID:    unitID,
	}
}

// -----------------------------------------------------------------------------
// Unit Lifecycle Events
// -----------------------------------------------------------------------------

// UnitStartedEvent is emitted when an execution unit joins the pool.
type UnitStartedEvent struct {
	baseEvent
	UnitID      string // Unique identifier for the unit
	Slot        int    // Pool slot the unit occupies
	Replacement bool   // True when the unit replaces a crashed one
}

// NewUnitStartedEvent creates a UnitStartedEvent.
func NewUnitStartedEvent(unitID string, slot int, replacement bool) UnitStartedEvent {
	return UnitStartedEvent{
		baseEvent:   newBaseEvent("unit.started"),
		UnitID:      unitID,
		Slot:        slot,
		Replacement: replacement,
	}
}

// UnitStoppedEvent is emitted when a unit exits voluntarily
// (scale-down or pool termination).
type UnitStoppedEvent struct {
	baseEvent
	UnitID string // Unit that stopped
	Reason string // Reason for stopping (e.g., "scale_down", "terminate")
}

// NewUnitStoppedEvent creates a UnitStoppedEvent.
func NewUnitStoppedEvent(unitID, reason string) UnitStoppedEvent {
	return UnitStoppedEvent{
		baseEvent: newBaseEvent("unit.stopped"),
		UnitID:    unitID,
		Reason:    reason,
	}
}

// UnitCrashedEvent is emitted when a unit exits unexpectedly.
type UnitCrashedEvent struct {
	baseEvent
	UnitID   string // Unit that crashed
	Slot     int    // Pool slot the unit occupied
	Code     int    // Exit code reported by the unit
	Restarts int    // Restart count for the slot after this crash
}

// NewUnitCrashedEvent creates a UnitCrashedEvent.
func NewUnitCrashedEvent(unitID string, slot, code, restarts int) UnitCrashedEvent {
	return UnitCrashedEvent{
		baseEvent: newBaseEvent("unit.crashed"),
		UnitID:    unitID,
		Slot:      slot,
		Code:      code,
		Restarts:  restarts,
	}
}

// -----------------------------------------------------------------------------
// Scaling Events
// -----------------------------------------------------------------------------

// ScalingDecisionEvent is emitted when the scaling controller takes an action.
type ScalingDecisionEvent struct {
	baseEvent
	Action     string // "scale_up" or "scale_down"
	Reason     string // Human-readable explanation
	UnitCount  int    // Unit count after the action
	QueueDepth int    // Queue depth at decision time
}

// NewScalingDecisionEvent creates a ScalingDecisionEvent.
func NewScalingDecisionEvent(action, reason string, unitCount, queueDepth int) ScalingDecisionEvent {
	return ScalingDecisionEvent{
		baseEvent:  newBaseEvent("scaling.decision"),
		Action:     action,
		Reason:     reason,
		UnitCount:  unitCount,
		QueueDepth: queueDepth,
	}
}

// QueueDepthChangedEvent is emitted whenever the pending queue depth changes.
type QueueDepthChangedEvent struct {
	baseEvent
	Depth     int // Current number of queued tasks
	InFlight  int // Number of tasks currently assigned to units
	IdleUnits int // Number of idle units
}

// NewQueueDepthChangedEvent creates a QueueDepthChangedEvent.
func NewQueueDepthChangedEvent(depth, inFlight, idleUnits int) QueueDepthChangedEvent {
	return QueueDepthChangedEvent{
		baseEvent: newBaseEvent("queue.depth_changed"),
		Depth:     depth,
		InFlight:  inFlight,
		IdleUnits: idleUnits,
	}
}

// -----------------------------------------------------------------------------
// Pool Events
// -----------------------------------------------------------------------------

// PoolFatalEvent is emitted when a unit slot exhausts its restart budget.
// After this event the pool rejects all new submissions.
type PoolFatalEvent struct {
	baseEvent
	UnitID   string // Unit whose crash tripped the budget
	Slot     int    // Slot that exhausted its restarts
	Restarts int    // Total restarts consumed by the slot
}

// NewPoolFatalEvent creates a PoolFatalEvent.
func NewPoolFatalEvent(unitID string, slot, restarts int) PoolFatalEvent {
	return PoolFatalEvent{
		baseEvent: newBaseEvent("pool.fatal"),
		UnitID:    unitID,
		Slot:      slot,
		Restarts:  restarts,
	}
}

// PoolStateChangedEvent is emitted on lifecycle transitions
// (initializing, running, draining, terminated).
type PoolStateChangedEvent struct {
	baseEvent
	Previous string // Previous lifecycle state
	Current  string // New lifecycle state
}

// NewPoolStateChangedEvent creates a PoolStateChangedEvent.
func NewPoolStateChangedEvent(previous, current string) PoolStateChangedEvent {
	return PoolStateChangedEvent{
		baseEvent: newBaseEvent("pool.state_changed"),
		Previous:  previous,
		Current:   current,
	}
}
