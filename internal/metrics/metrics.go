// Package metrics aggregates pool counters and peak values for
// observability. The pool's dispatcher is the only writer; Snapshot may be
// called from any goroutine and returns an independent copy.
package metrics

import (
	"sort"
	"sync"
)

// UnitStats holds per-unit counters. Entries persist after a unit is
// removed so a snapshot covers the pool's whole history.
type UnitStats struct {
	ID             string `json:"id"`
	Slot           int    `json:"slot"`
	TasksCompleted int    `json:"tasks_completed"`
	Restarts       int    `json:"restarts"`
	Active         bool   `json:"active"`
}

// Snapshot is a read-only copy of the pool's metrics.
type Snapshot struct {
	TasksSubmitted  uint64      `json:"tasks_submitted"`
	TasksProcessed  uint64      `json:"tasks_processed"`
	TasksFailed     uint64      `json:"tasks_failed"`
	TasksRetried    uint64      `json:"tasks_retried"`
	TasksCancelled  uint64      `json:"tasks_cancelled"`
	TasksTimedOut   uint64      `json:"tasks_timed_out"`
	ScaleUpEvents   uint64      `json:"scale_up_events"`
	ScaleDownEvents uint64      `json:"scale_down_events"`
	UnitCrashes     uint64      `json:"unit_crashes"`
	PeakUnits       int         `json:"peak_units"`
	PeakQueueDepth  int         `json:"peak_queue_depth"`
	Units           []UnitStats `json:"units"`
}

// Collector accumulates counters for one pool instance.
// It is safe for concurrent use.
type Collector struct {
	mu              sync.Mutex
	tasksSubmitted  uint64
	tasksProcessed  uint64
	tasksFailed     uint64
	tasksRetried    uint64
	tasksCancelled  uint64
	tasksTimedOut   uint64
	scaleUpEvents   uint64
	scaleDownEvents uint64
	unitCrashes     uint64
	peakUnits       int
	peakQueueDepth  int
	units           map[string]*UnitStats
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		units: make(map[string]*UnitStats),
	}
}

// TaskSubmitted records a task accepted into the queue.
func (c *Collector) TaskSubmitted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasksSubmitted++
}

// TaskProcessed records a task whose future resolved successfully, credited
// to the unit that executed it.
func (c *Collector) TaskProcessed(unitID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasksProcessed++
	if u, ok := c.units[unitID]; ok {
		u.TasksCompleted++
	}
}

// TaskFailed records a task whose future was rejected with a task error.
func (c *Collector) TaskFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasksFailed++
}

// TaskRetried records a crash-requeue of an interrupted task.
func (c *Collector) TaskRetried() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasksRetried++
}

// TaskCancelled records a task cancelled before completion.
func (c *Collector) TaskCancelled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasksCancelled++
}

// TaskTimedOut records a task that exceeded its deadline.
func (c *Collector) TaskTimedOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasksTimedOut++
}

// ScaleUp records a scale-up action and the resulting unit count.
func (c *Collector) ScaleUp(unitCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scaleUpEvents++
	if unitCount > c.peakUnits {
		c.peakUnits = unitCount
	}
}

// ScaleDown records a scale-down action.
func (c *Collector) ScaleDown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scaleDownEvents++
}

// UnitAdded registers a unit occupying the given slot. The slot's restart
// count carries over to replacement units.
func (c *Collector) UnitAdded(unitID string, slot, restarts, unitCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.units[unitID] = &UnitStats{
		ID:       unitID,
		Slot:     slot,
		Restarts: restarts,
		Active:   true,
	}
	if unitCount > c.peakUnits {
		c.peakUnits = unitCount
	}
}

// UnitRemoved marks a unit inactive.
func (c *Collector) UnitRemoved(unitID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.units[unitID]; ok {
		u.Active = false
	}
}

// UnitCrashed records an unexpected exit and the slot's new restart count.
func (c *Collector) UnitCrashed(unitID string, restarts int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unitCrashes++
	if u, ok := c.units[unitID]; ok {
		u.Active = false
		u.Restarts = restarts
	}
}

// ObserveQueueDepth tracks the peak queue depth.
func (c *Collector) ObserveQueueDepth(depth int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if depth > c.peakQueueDepth {
		c.peakQueueDepth = depth
	}
}

// Snapshot returns an independent copy of all counters. Per-unit entries
// are sorted by slot, then ID, for stable presentation.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	units := make([]UnitStats, 0, len(c.units))
	for _, u := range c.units {
		units = append(units, *u)
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].Slot != units[j].Slot {
			return units[i].Slot < units[j].Slot
		}
		return units[i].ID < units[j].ID
	})

	return Snapshot{
		TasksSubmitted:  c.tasksSubmitted,
		TasksProcessed:  c.tasksProcessed,
		TasksFailed:     c.tasksFailed,
		TasksRetried:    c.tasksRetried,
		TasksCancelled:  c.tasksCancelled,
		TasksTimedOut:   c.tasksTimedOut,
		ScaleUpEvents:   c.scaleUpEvents,
		ScaleDownEvents: c.scaleDownEvents,
		UnitCrashes:     c.unitCrashes,
		PeakUnits:       c.peakUnits,
		PeakQueueDepth:  c.peakQueueDepth,
		Units:           units,
	}
}
