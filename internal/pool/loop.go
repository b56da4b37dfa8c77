package pool

import (
	"context"
	"time"

	"github.com/AndreaCadonna/flexpool/internal/errors"
	"github.com/AndreaCadonna/flexpool/internal/event"
	"github.com/AndreaCadonna/flexpool/internal/scaling"
	"github.com/AndreaCadonna/flexpool/internal/task"
	"github.com/AndreaCadonna/flexpool/internal/unit"
)

// run is the dispatcher loop. It is the only goroutine that touches the
// pool's mutable state, processing one ordered stream of messages, unit
// events, and scaling ticks.
func (p *Pool) run() {
	ticker := time.NewTicker(p.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case m := <-p.msgs:
			p.handleMessage(m)
		case e := <-p.unitEvents:
			p.handleUnitEvent(e)
		case <-ticker.C:
			p.handleTick()
		}

		if p.state == StateDraining && len(p.units) == 0 {
			p.finishTermination()
			return
		}
	}
}

func (p *Pool) handleMessage(m any) {
	switch m := m.(type) {
	case submitMsg:
		p.handleSubmit(m.t)
	case cancelMsg:
		p.handleCancel(m)
	case terminateMsg:
		p.beginDrain()
	case timeoutMsg:
		p.handleTimeout(m.taskID)
	case graceExpiredMsg:
		p.handleGraceExpired()
	}
}

func (p *Pool) handleUnitEvent(e unit.Event) {
	us, ok := p.units[e.UnitID]
	if !ok {
		// Late event from a unit already removed from the registry.
		return
	}
	switch e.Kind {
	case unit.EventResult:
		p.handleResult(us, e)
	case unit.EventError:
		p.handleError(us, e)
	case unit.EventExit:
		if e.Code == unit.ExitCodeOK {
			p.handleVoluntaryExit(us)
		} else {
			p.handleCrash(us, e)
		}
	}
}

// -----------------------------------------------------------------------------
// Submission and dispatch
// -----------------------------------------------------------------------------

func (p *Pool) handleSubmit(t *task.Task) {
	if p.fatal != nil {
		t.Future().Reject(p.fatal)
		return
	}
	if p.state != StateRunning {
		t.Future().Reject(errors.NewShutdownError("pool is " + p.state.String()))
		return
	}

	p.collector.TaskSubmitted()
	p.queue.Push(t)
	p.collector.ObserveQueueDepth(p.queue.Len())
	p.bus.Publish(event.NewTaskSubmittedEvent(t.ID, p.queue.Len()))
	p.log.Debug("task submitted", "task_id", t.ID, "queue_depth", p.queue.Len())
	p.dispatch()
}

// dispatch pairs queued tasks with idle units until one side runs out.
// Units are picked oldest-idle first so load spreads across the pool.
func (p *Pool) dispatch() {
	for p.queue.Len() > 0 && len(p.idle) > 0 {
		id := p.idle[0]
		p.idle = p.idle[1:]
		us := p.units[id]

		t := p.queue.Pop()
		if t == nil {
			p.idle = append([]string{id}, p.idle...)
			break
		}

		t.Attempts++
		us.status = statusBusy
		us.current = t
		us.dispatchedAt = time.Now()

		if err := us.u.Assign(t); err != nil {
			// The unit died between going idle and this assign; its exit
			// event will clean it up. Put the task back ahead of the queue.
			us.status = statusTerminating
			us.current = nil
			t.Attempts--
			p.queue.PushFront(t)
			p.log.Warn("assign failed, task requeued", "unit_id", id, "task_id", t.ID, "error", err)
			continue
		}

		p.owner[t.ID] = id
		if p.cfg.TaskTimeout > 0 {
			taskID := t.ID
			us.timeout = time.AfterFunc(p.cfg.TaskTimeout, func() {
				p.send(timeoutMsg{taskID: taskID})
			})
		}
		p.bus.Publish(event.NewTaskDispatchedEvent(t.ID, id))
		p.log.Debug("task dispatched", "task_id", t.ID, "unit_id", id, "attempt", t.Attempts)
	}
	p.publishQueueDepth()
}

func (p *Pool) publishQueueDepth() {
	inFlight := 0
	for _, us := range p.units {
		if us.status == statusBusy {
			inFlight++
		}
	}
	p.bus.Publish(event.NewQueueDepthChangedEvent(p.queue.Len(), inFlight, len(p.idle)))
}

// -----------------------------------------------------------------------------
// Unit completion events
// -----------------------------------------------------------------------------

func (p *Pool) handleResult(us *unitState, e unit.Event) {
	t := p.clearCurrent(us)
	if t != nil && t.ID == e.TaskID {
		elapsed := time.Since(us.dispatchedAt)
		switch {
		case p.cancelAsked[t.ID]:
			delete(p.cancelAsked, t.ID)
			if t.Future().Reject(errors.NewCancelledError(t.ID)) {
				p.collector.TaskCancelled()
				p.bus.Publish(event.NewTaskFailedEvent(t.ID, e.UnitID, "cancelled"))
			}
		case t.Future().Resolve(task.Result{Value: e.Value, UnitID: e.UnitID, Duration: elapsed}):
			p.collector.TaskProcessed(e.UnitID)
			p.bus.Publish(event.NewTaskCompletedEvent(t.ID, e.UnitID, elapsed))
			p.log.Debug("task completed", "task_id", t.ID, "unit_id", e.UnitID, "duration", elapsed)
		}
	}
	p.unitIdle(us)
}

func (p *Pool) handleError(us *unitState, e unit.Event) {
	t := p.clearCurrent(us)
	if t != nil && t.ID == e.TaskID {
		switch {
		case p.cancelAsked[t.ID]:
			delete(p.cancelAsked, t.ID)
			if t.Future().Reject(errors.NewCancelledError(t.ID)) {
				p.collector.TaskCancelled()
				p.bus.Publish(event.NewTaskFailedEvent(t.ID, e.UnitID, "cancelled"))
			}
		case us.killed && errors.Is(e.Err, context.Canceled):
			// The handler aborted because the unit was killed, not because
			// the work itself failed.
			if t.Future().Reject(errors.NewShutdownError("task force-terminated")) {
				p.bus.Publish(event.NewTaskFailedEvent(t.ID, e.UnitID, "force-terminated"))
			}
		case t.Future().Reject(errors.NewTaskError(t.ID, e.Err)):
			p.collector.TaskFailed()
			p.bus.Publish(event.NewTaskFailedEvent(t.ID, e.UnitID, e.Err.Error()))
			p.log.Debug("task failed", "task_id", t.ID, "unit_id", e.UnitID, "error", e.Err)
		}
	}
	p.unitIdle(us)
}

// clearCurrent detaches the unit's in-flight task and stops its deadline
// timer, returning the task (nil if the unit held none).
func (p *Pool) clearCurrent(us *unitState) *task.Task {
	if us.timeout != nil {
		us.timeout.Stop()
		us.timeout = nil
	}
	t := us.current
	us.current = nil
	if t != nil {
		delete(p.owner, t.ID)
	}
	return t
}

// unitIdle returns a unit to the idle set after a completion boundary, or
// asks it to stop when the pool is draining.
func (p *Pool) unitIdle(us *unitState) {
	if us.killed {
		// The exit event is on its way; nothing to do here.
		return
	}
	if p.state == StateDraining {
		us.status = statusTerminating
		us.u.Stop()
		return
	}
	us.status = statusIdle
	p.idle = append(p.idle, us.u.ID())
	p.dispatch()
}

// -----------------------------------------------------------------------------
// Unit exits: scale-down, terminate, crash recovery
// -----------------------------------------------------------------------------

func (p *Pool) handleVoluntaryExit(us *unitState) {
	id := us.u.ID()
	p.removeUnit(id)
	p.collector.UnitRemoved(id)

	reason := "scale_down"
	if p.state == StateDraining {
		reason = "terminate"
	}
	p.bus.Publish(event.NewUnitStoppedEvent(id, reason))
	p.log.Info("unit stopped", "unit_id", id, "reason", reason)
}

// handleCrash is the supervisor path: requeue the interrupted task at the
// front of the queue, charge the slot one restart, and replace the unit
// immediately unless the slot's budget is exhausted, in which case the
// pool goes fatal.
func (p *Pool) handleCrash(us *unitState, e unit.Event) {
	id := us.u.ID()
	t := p.clearCurrent(us)

	if p.state == StateDraining {
		// A forced exit during drain is part of the shutdown, not a
		// failure: no restart charge, no crash counter.
		p.removeUnit(id)
		p.collector.UnitRemoved(id)
		p.bus.Publish(event.NewUnitStoppedEvent(id, "terminate"))
		if t != nil {
			delete(p.cancelAsked, t.ID)
			t.Future().Reject(errors.NewShutdownError("task force-terminated"))
		}
		p.log.Info("unit stopped", "unit_id", id, "reason", "terminate")
		return
	}

	restarts := p.slotRestarts[us.slot] + 1
	p.slotRestarts[us.slot] = restarts
	p.removeUnit(id)
	p.collector.UnitCrashed(id, restarts)
	p.bus.Publish(event.NewUnitCrashedEvent(id, us.slot, e.Code, restarts))
	p.log.Warn("unit crashed", "unit_id", id, "slot", us.slot, "code", e.Code, "restarts", restarts)

	if t != nil {
		switch {
		case p.cancelAsked[t.ID]:
			delete(p.cancelAsked, t.ID)
			if t.Future().Reject(errors.NewCancelledError(t.ID)) {
				p.collector.TaskCancelled()
			}
		case !t.Future().Settled():
			p.queue.PushFront(t)
			p.collector.TaskRetried()
			p.collector.ObserveQueueDepth(p.queue.Len())
			p.bus.Publish(event.NewTaskRequeuedEvent(t.ID, id))
			p.log.Info("task requeued after crash", "task_id", t.ID, "unit_id", id)
		}
	}

	if restarts >= p.cfg.MaxRestartsPerSlot {
		p.fatal = errors.NewPoolFatalError(id, us.slot, restarts)
		p.bus.Publish(event.NewPoolFatalEvent(id, us.slot, restarts))
		p.log.Error("pool fatal, restart budget exhausted", "unit_id", id, "slot", us.slot, "restarts", restarts)
		if len(p.units) == 0 {
			// No capacity left to ever run queued work.
			for _, qt := range p.queue.Drain() {
				qt.Future().Reject(p.fatal)
			}
			p.publishQueueDepth()
		}
		return
	}

	// Replacement is recovery, not scaling: it bypasses the policy and its
	// cooldown, and the new unit inherits the slot's restart count.
	if err := p.spawnUnit(us.slot, true); err != nil {
		p.log.Error("crash replacement failed", "slot", us.slot, "error", err)
		return
	}
	p.dispatch()
}

// removeUnit drops a unit from the registry and the idle set.
func (p *Pool) removeUnit(id string) {
	delete(p.units, id)
	for i, idleID := range p.idle {
		if idleID == id {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Scaling
// -----------------------------------------------------------------------------

func (p *Pool) handleTick() {
	if p.state != StateRunning || p.fatal != nil {
		return
	}

	load := scaling.Load{
		QueueDepth: p.queue.Len(),
		Units:      len(p.units),
		IdleUnits:  len(p.idle),
	}
	d := p.policy.Evaluate(load, time.Now())

	switch d.Action {
	case scaling.ActionScaleUp:
		if err := p.spawnUnit(p.nextSlot, false); err != nil {
			return
		}
		p.collector.ScaleUp(len(p.units))
		p.bus.Publish(event.NewScalingDecisionEvent(d.Action.String(), d.Reason, len(p.units), load.QueueDepth))
		p.log.Info("scaled up", "units", len(p.units), "reason", d.Reason)
		p.dispatch()

	case scaling.ActionScaleDown:
		if len(p.idle) == 0 {
			return
		}
		id := p.idle[0]
		p.idle = p.idle[1:]
		us := p.units[id]
		us.status = statusTerminating
		us.u.Stop()
		p.collector.ScaleDown()
		p.bus.Publish(event.NewScalingDecisionEvent(d.Action.String(), d.Reason, len(p.units)-1, load.QueueDepth))
		p.log.Info("scaling down", "unit_id", id, "units", len(p.units)-1, "reason", d.Reason)
	}
}

// -----------------------------------------------------------------------------
// Cancellation and timeouts
// -----------------------------------------------------------------------------

func (p *Pool) handleCancel(m cancelMsg) {
	if t := p.queue.Remove(m.taskID); t != nil {
		if t.Future().Reject(errors.NewCancelledError(t.ID)) {
			p.collector.TaskCancelled()
			p.bus.Publish(event.NewTaskFailedEvent(t.ID, "", "cancelled"))
			p.log.Debug("queued task cancelled", "task_id", t.ID)
		}
		p.publishQueueDepth()
		m.reply <- true
		return
	}

	if _, inFlight := p.owner[m.taskID]; inFlight {
		// Takes effect at the task's next completion boundary.
		p.cancelAsked[m.taskID] = true
		p.log.Debug("cancel deferred for in-flight task", "task_id", m.taskID)
	}
	m.reply <- false
}

func (p *Pool) handleTimeout(taskID string) {
	unitID, ok := p.owner[taskID]
	if !ok {
		// Settled before the deadline fired.
		return
	}
	us := p.units[unitID]
	if us == nil || us.current == nil || us.current.ID != taskID {
		return
	}

	t := p.clearCurrent(us)
	delete(p.cancelAsked, taskID)
	elapsed := time.Since(us.dispatchedAt)
	if t.Future().Reject(errors.NewTimeoutError(taskID, elapsed)) {
		p.collector.TaskTimedOut()
		p.bus.Publish(event.NewTaskFailedEvent(taskID, unitID, "deadline exceeded"))
	}

	// The unit may be wedged; kill it and let crash recovery replace it.
	us.killed = true
	us.u.Kill()
	p.log.Warn("task timed out, killing unit", "task_id", taskID, "unit_id", unitID, "elapsed", elapsed)
}

// -----------------------------------------------------------------------------
// Termination
// -----------------------------------------------------------------------------

func (p *Pool) beginDrain() {
	if p.state != StateRunning {
		return
	}
	p.setState(StateDraining)

	for _, qt := range p.queue.Drain() {
		qt.Future().Reject(errors.NewShutdownError("pool is draining"))
	}
	p.publishQueueDepth()

	for _, us := range p.units {
		if us.status == statusIdle {
			us.status = statusTerminating
			us.u.Stop()
		}
	}
	p.idle = nil

	if p.cfg.GracePeriod > 0 {
		p.graceTimer = time.AfterFunc(p.cfg.GracePeriod, func() {
			p.send(graceExpiredMsg{})
		})
	} else {
		p.handleGraceExpired()
	}
	p.log.Info("pool draining", "units", len(p.units), "grace_period", p.cfg.GracePeriod)
}

func (p *Pool) handleGraceExpired() {
	if p.state != StateDraining {
		return
	}
	for _, us := range p.units {
		if !us.killed {
			us.killed = true
			us.u.Kill()
			p.log.Warn("grace period expired, killing unit", "unit_id", us.u.ID())
		}
	}
}

func (p *Pool) finishTermination() {
	if p.graceTimer != nil {
		p.graceTimer.Stop()
		p.graceTimer = nil
	}
	p.setState(StateTerminated)
	p.log.Info("pool terminated")
	close(p.done)
}
