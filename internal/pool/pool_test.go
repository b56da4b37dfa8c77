package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AndreaCadonna/flexpool/internal/errors"
	"github.com/AndreaCadonna/flexpool/internal/event"
	"github.com/AndreaCadonna/flexpool/internal/task"
	"github.com/AndreaCadonna/flexpool/internal/unit"
)

// newTestPool builds a pool around the given handler and registers a
// cleanup that force-terminates it.
func newTestPool(t *testing.T, cfg Config, handler unit.Handler) *Pool {
	t.Helper()
	cfg.Factory = unit.GoroutineFactory(handler)
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = p.Terminate(ctx)
	})
	return p
}

// echoHandler returns the payload unchanged.
func echoHandler(_ context.Context, payload task.Payload) (any, error) {
	return payload, nil
}

// sleepHandler sleeps for d (or until killed) and then echoes the payload.
func sleepHandler(d time.Duration) unit.Handler {
	return func(ctx context.Context, payload task.Payload) (any, error) {
		select {
		case <-time.After(d):
			return payload, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func activeUnits(p *Pool) int {
	n := 0
	for _, u := range p.GetMetrics().Units {
		if u.Active {
			n++
		}
	}
	return n
}

func TestPool_ExecuteResolvesFuture(t *testing.T) {
	p := newTestPool(t, Config{MinUnits: 1, MaxUnits: 1}, echoHandler)

	fut := p.Execute("hello")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := fut.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v, want nil", err)
	}
	if res.Value != "hello" {
		t.Errorf("Value = %v, want hello", res.Value)
	}
	if res.UnitID == "" {
		t.Error("UnitID is empty, want the executing unit's ID")
	}

	s := p.GetMetrics()
	if s.TasksSubmitted != 1 || s.TasksProcessed != 1 {
		t.Errorf("submitted/processed = %d/%d, want 1/1", s.TasksSubmitted, s.TasksProcessed)
	}
}

func TestPool_HandlerErrorIsLocalToTask(t *testing.T) {
	boom := errors.New("boom")
	handler := func(_ context.Context, payload task.Payload) (any, error) {
		if payload == "bad" {
			return nil, boom
		}
		return payload, nil
	}
	p := newTestPool(t, Config{MinUnits: 1, MaxUnits: 1}, handler)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := p.Execute("bad").Wait(ctx)
	var taskErr *errors.TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("Wait() error = %v, want *TaskError", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("error does not wrap the handler failure: %v", err)
	}
	if !errors.IsRetryable(err) {
		t.Error("a task failure should be retryable by resubmission")
	}

	// The failure must not poison the unit or the pool.
	res, err := p.Execute("good").Wait(ctx)
	if err != nil || res.Value != "good" {
		t.Errorf("follow-up task = (%v, %v), want (good, nil)", res.Value, err)
	}

	s := p.GetMetrics()
	if s.TasksFailed != 1 || s.UnitCrashes != 0 {
		t.Errorf("failed/crashes = %d/%d, want 1/0", s.TasksFailed, s.UnitCrashes)
	}
}

func TestPool_DispatchOrderIsFIFO(t *testing.T) {
	var mu sync.Mutex
	var order []int
	handler := func(_ context.Context, payload task.Payload) (any, error) {
		mu.Lock()
		order = append(order, payload.(int))
		mu.Unlock()
		return payload, nil
	}
	// A single unit serializes execution, so completion order mirrors
	// dispatch order.
	p := newTestPool(t, Config{MinUnits: 1, MaxUnits: 1}, handler)

	const n = 8
	futs := make([]*task.Future, n)
	for i := 0; i < n; i++ {
		futs[i] = p.Execute(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i, f := range futs {
		if _, err := f.Wait(ctx); err != nil {
			t.Fatalf("task %d: Wait() error = %v", i, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("execution order = %v, want ascending submission order", order)
		}
	}
}

// Scenario: a small backlog below the scale-up threshold must be absorbed
// by the existing units without any scaling action.
func TestPool_SingleUnitPipelineSettlesEveryTask(t *testing.T) {
	p := newTestPool(t, Config{MinUnits: 1, MaxUnits: 1}, echoHandler)

	// A deep backlog on one unit makes the dispatcher re-assign the moment
	// each result event arrives, hammering the completion/assign boundary.
	// Every future must still settle.
	const n = 2000
	futs := make([]*task.Future, 0, n)
	for i := 0; i < n; i++ {
		futs = append(futs, p.Execute(i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for i, fut := range futs {
		res, err := fut.Wait(ctx)
		if err != nil {
			t.Fatalf("Wait() on task %d = %v, want nil (queue depth %d)", i, err, p.QueueDepth())
		}
		if res.Value != i {
			t.Errorf("Value = %v, want %d", res.Value, i)
		}
	}

	s := p.GetMetrics()
	if s.TasksProcessed != n {
		t.Errorf("TasksProcessed = %d, want %d", s.TasksProcessed, n)
	}
	if s.UnitCrashes != 0 {
		t.Errorf("UnitCrashes = %d, want 0", s.UnitCrashes)
	}
}

func TestPool_NoScalingBelowThreshold(t *testing.T) {
	p := newTestPool(t, Config{
		MinUnits:           2,
		MaxUnits:           8,
		ScaleUpThreshold:   10,
		ScaleDownThreshold: 1,
		CheckInterval:      10 * time.Millisecond,
	}, sleepHandler(100*time.Millisecond))

	futs := make([]*task.Future, 5)
	for i := range futs {
		futs[i] = p.Execute(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i, f := range futs {
		if _, err := f.Wait(ctx); err != nil {
			t.Fatalf("task %d: Wait() error = %v", i, err)
		}
	}

	s := p.GetMetrics()
	if s.ScaleUpEvents != 0 || s.ScaleDownEvents != 0 {
		t.Errorf("scale up/down events = %d/%d, want 0/0", s.ScaleUpEvents, s.ScaleDownEvents)
	}
	if s.PeakUnits != 2 {
		t.Errorf("PeakUnits = %d, want 2", s.PeakUnits)
	}
	if got := activeUnits(p); got != 2 {
		t.Errorf("active units after settling = %d, want 2", got)
	}
}

// Scenario: a sustained backlog grows the pool, one unit per tick, and the
// unit count never exceeds the configured maximum.
func TestPool_ScalesUpUnderBacklogWithinBounds(t *testing.T) {
	p := newTestPool(t, Config{
		MinUnits:         1,
		MaxUnits:         4,
		ScaleUpThreshold: 2,
		CheckInterval:    10 * time.Millisecond,
	}, sleepHandler(100*time.Millisecond))

	const n = 30
	futs := make([]*task.Future, n)
	for i := 0; i < n; i++ {
		futs[i] = p.Execute(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for i, f := range futs {
		if _, err := f.Wait(ctx); err != nil {
			t.Fatalf("task %d: Wait() error = %v", i, err)
		}
	}

	s := p.GetMetrics()
	if s.TasksProcessed != n {
		t.Errorf("TasksProcessed = %d, want %d", s.TasksProcessed, n)
	}
	if s.ScaleUpEvents == 0 {
		t.Error("ScaleUpEvents = 0, want at least one under sustained backlog")
	}
	if s.PeakUnits > 4 {
		t.Errorf("PeakUnits = %d, want <= MaxUnits (4)", s.PeakUnits)
	}
}

func TestPool_ScalesDownWhenIdle(t *testing.T) {
	release := make(chan struct{})
	handler := func(ctx context.Context, payload task.Payload) (any, error) {
		select {
		case <-release:
			return payload, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p := newTestPool(t, Config{
		MinUnits:           1,
		MaxUnits:           2,
		ScaleUpThreshold:   0,
		ScaleDownThreshold: 0,
		CheckInterval:      10 * time.Millisecond,
	}, handler)

	// Two blocked tasks force a scale-up to the maximum.
	f1 := p.Execute(1)
	f2 := p.Execute(2)
	waitUntil(t, 5*time.Second, func() bool { return activeUnits(p) == 2 },
		"pool never scaled up to 2 units")

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := f1.Wait(ctx); err != nil {
		t.Fatalf("task 1: Wait() error = %v", err)
	}
	if _, err := f2.Wait(ctx); err != nil {
		t.Fatalf("task 2: Wait() error = %v", err)
	}

	// With the queue empty and idle units over the threshold the pool must
	// shrink back to the minimum, one unit per tick.
	waitUntil(t, 5*time.Second, func() bool { return activeUnits(p) == 1 },
		"pool never scaled back down to MinUnits")

	s := p.GetMetrics()
	if s.ScaleUpEvents != 1 || s.ScaleDownEvents != 1 {
		t.Errorf("scale up/down events = %d/%d, want 1/1", s.ScaleUpEvents, s.ScaleDownEvents)
	}
}

// Scenario: a crash mid-task requeues the interrupted task at the front of
// the queue and a replacement unit finishes it; the caller only sees the
// successful result.
func TestPool_CrashRecoveryRequeuesTask(t *testing.T) {
	var crashed atomic.Bool
	handler := func(_ context.Context, payload task.Payload) (any, error) {
		if payload == "flaky" && crashed.CompareAndSwap(false, true) {
			panic("injected crash")
		}
		return payload, nil
	}
	p := newTestPool(t, Config{MinUnits: 1, MaxUnits: 1, MaxRestartsPerSlot: 3}, handler)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := p.Execute("flaky").Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v, want transparent recovery", err)
	}
	if res.Value != "flaky" {
		t.Errorf("Value = %v, want flaky", res.Value)
	}

	s := p.GetMetrics()
	if s.UnitCrashes != 1 {
		t.Errorf("UnitCrashes = %d, want 1", s.UnitCrashes)
	}
	if s.TasksRetried != 1 {
		t.Errorf("TasksRetried = %d, want 1", s.TasksRetried)
	}

	replacement := false
	for _, u := range s.Units {
		if u.Active && u.Restarts == 1 {
			replacement = true
		}
	}
	if !replacement {
		t.Errorf("Units = %+v, want an active replacement with 1 inherited restart", s.Units)
	}

	// The pool keeps serving after recovery.
	if res, err := p.Execute("after").Wait(ctx); err != nil || res.Value != "after" {
		t.Errorf("follow-up task = (%v, %v), want (after, nil)", res.Value, err)
	}
}

func TestPool_CrashedTaskRunsBeforeQueuedWork(t *testing.T) {
	var mu sync.Mutex
	var order []string
	var crashed atomic.Bool
	release := make(chan struct{})
	handler := func(_ context.Context, payload task.Payload) (any, error) {
		s := payload.(string)
		if s == "victim" && crashed.CompareAndSwap(false, true) {
			<-release
			panic("injected crash")
		}
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
		return s, nil
	}
	p := newTestPool(t, Config{MinUnits: 1, MaxUnits: 1, MaxRestartsPerSlot: 3}, handler)

	victim := p.Execute("victim")
	queued := p.Execute("queued")
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := victim.Wait(ctx); err != nil {
		t.Fatalf("victim: Wait() error = %v", err)
	}
	if _, err := queued.Wait(ctx); err != nil {
		t.Fatalf("queued: Wait() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"victim", "queued"}
	if len(order) != 2 || order[0] != want[0] || order[1] != want[1] {
		t.Errorf("execution order = %v, want %v (requeued task runs first)", order, want)
	}
}

func TestPool_FatalAfterRestartBudgetExhausted(t *testing.T) {
	handler := func(_ context.Context, _ task.Payload) (any, error) {
		panic("always crashes")
	}
	p := newTestPool(t, Config{MinUnits: 1, MaxUnits: 1, MaxRestartsPerSlot: 2}, handler)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The task crashes its unit on every attempt; after the slot's budget
	// runs out it is rejected with the fatal error.
	_, err := p.Execute("doomed").Wait(ctx)
	if !errors.IsFatal(err) {
		t.Fatalf("Wait() error = %v, want pool fatal", err)
	}
	var fatal *errors.PoolFatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("error = %v, want *PoolFatalError", err)
	}
	if fatal.Restarts != 2 {
		t.Errorf("Restarts = %d, want 2 (the slot's full budget)", fatal.Restarts)
	}

	// New submissions are refused until the pool is recreated.
	_, err = p.Execute("rejected").Wait(ctx)
	if !errors.IsFatal(err) {
		t.Errorf("post-fatal Wait() error = %v, want pool fatal", err)
	}
	if errors.IsRetryable(err) {
		t.Error("a fatal rejection must not be classified retryable")
	}

	if s := p.GetMetrics(); s.UnitCrashes != 2 {
		t.Errorf("UnitCrashes = %d, want 2", s.UnitCrashes)
	}
}

// Scenario: Terminate rejects queued tasks, lets in-flight tasks finish
// within the grace period, and resolves once every unit has exited.
func TestPool_TerminateDrainsAndCompletes(t *testing.T) {
	started := make(chan struct{}, 8)
	release := make(chan struct{})
	handler := func(ctx context.Context, payload task.Payload) (any, error) {
		started <- struct{}{}
		select {
		case <-release:
			return payload, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p := newTestPool(t, Config{
		MinUnits:    2,
		MaxUnits:    2,
		GracePeriod: 5 * time.Second,
	}, handler)

	inflight := []*task.Future{p.Execute("in-1"), p.Execute("in-2")}
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("in-flight tasks never started")
		}
	}
	queued := []*task.Future{p.Execute("q-1"), p.Execute("q-2"), p.Execute("q-3")}

	termDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		termDone <- p.Terminate(ctx)
	}()

	// Queued tasks are rejected promptly, before in-flight work finishes.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i, f := range queued {
		_, err := f.Wait(ctx)
		if !errors.IsShutdown(err) {
			t.Fatalf("queued task %d: Wait() error = %v, want shutdown rejection", i, err)
		}
	}

	close(release)
	for i, f := range inflight {
		res, err := f.Wait(ctx)
		if err != nil {
			t.Fatalf("in-flight task %d: Wait() error = %v, want completion within grace", i, err)
		}
		if res.Value == nil {
			t.Errorf("in-flight task %d resolved with nil value", i)
		}
	}

	if err := <-termDone; err != nil {
		t.Fatalf("Terminate() error = %v, want nil", err)
	}
	if got := p.State(); got != StateTerminated {
		t.Errorf("State() = %v, want %v", got, StateTerminated)
	}
	if got := activeUnits(p); got != 0 {
		t.Errorf("active units after terminate = %d, want 0", got)
	}
}

func TestPool_TerminateKillsAfterGracePeriod(t *testing.T) {
	started := make(chan struct{}, 1)
	handler := func(ctx context.Context, _ task.Payload) (any, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	p := newTestPool(t, Config{
		MinUnits:    1,
		MaxUnits:    1,
		GracePeriod: 50 * time.Millisecond,
	}, handler)

	fut := p.Execute("stuck")
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("task never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.Terminate(ctx); err != nil {
		t.Fatalf("Terminate() error = %v, want nil", err)
	}

	_, err := fut.Wait(ctx)
	if !errors.IsShutdown(err) {
		t.Errorf("Wait() error = %v, want shutdown rejection for the force-terminated task", err)
	}
}

func TestPool_GraceKillIsNotChargedAsCrash(t *testing.T) {
	started := make(chan struct{}, 2)
	handler := func(ctx context.Context, _ task.Payload) (any, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	p := newTestPool(t, Config{
		MinUnits:    2,
		MaxUnits:    2,
		GracePeriod: 50 * time.Millisecond,
	}, handler)

	futs := []*task.Future{p.Execute("a"), p.Execute("b")}
	for range futs {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("task never started")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.Terminate(ctx); err != nil {
		t.Fatalf("Terminate() error = %v, want nil", err)
	}
	for _, fut := range futs {
		if _, err := fut.Wait(ctx); !errors.IsShutdown(err) {
			t.Errorf("Wait() error = %v, want shutdown rejection", err)
		}
	}

	// Force-kills during shutdown are orderly exits, not failures.
	s := p.GetMetrics()
	if s.UnitCrashes != 0 {
		t.Errorf("UnitCrashes = %d, want 0 after grace-period kills", s.UnitCrashes)
	}
	if s.TasksRetried != 0 {
		t.Errorf("TasksRetried = %d, want 0 after grace-period kills", s.TasksRetried)
	}
	for id, u := range s.Units {
		if u.Restarts != 0 {
			t.Errorf("unit %d Restarts = %d, want 0", id, u.Restarts)
		}
	}
}

func TestPool_ExecuteAfterTerminate(t *testing.T) {
	p := newTestPool(t, Config{MinUnits: 1, MaxUnits: 1}, echoHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Terminate(ctx); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}

	_, err := p.Execute("late").Wait(ctx)
	if !errors.IsShutdown(err) {
		t.Errorf("Wait() error = %v, want shutdown rejection", err)
	}
}

func TestPool_TerminateIsIdempotent(t *testing.T) {
	p := newTestPool(t, Config{MinUnits: 1, MaxUnits: 1}, echoHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		if err := p.Terminate(ctx); err != nil {
			t.Fatalf("Terminate() call %d error = %v", i+1, err)
		}
	}
}

func TestPool_CancelQueuedTask(t *testing.T) {
	release := make(chan struct{})
	handler := func(ctx context.Context, payload task.Payload) (any, error) {
		select {
		case <-release:
			return payload, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p := newTestPool(t, Config{MinUnits: 1, MaxUnits: 1}, handler)

	blocker := p.Execute("blocker")
	queued := p.Execute("queued")

	if !p.Cancel(queued.TaskID()) {
		t.Fatal("Cancel() = false for a queued task, want true")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := queued.Wait(ctx)
	if !errors.IsCancelled(err) {
		t.Errorf("Wait() error = %v, want cancellation", err)
	}

	close(release)
	if _, err := blocker.Wait(ctx); err != nil {
		t.Errorf("blocker: Wait() error = %v, want nil", err)
	}

	if s := p.GetMetrics(); s.TasksCancelled != 1 {
		t.Errorf("TasksCancelled = %d, want 1", s.TasksCancelled)
	}
}

func TestPool_CancelInFlightTakesEffectAtBoundary(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	handler := func(ctx context.Context, payload task.Payload) (any, error) {
		started <- struct{}{}
		select {
		case <-release:
			return payload, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p := newTestPool(t, Config{MinUnits: 1, MaxUnits: 1}, handler)

	fut := p.Execute("running")
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("task never started")
	}

	// In-flight: not removable synchronously, applied at the boundary.
	if p.Cancel(fut.TaskID()) {
		t.Error("Cancel() = true for an in-flight task, want false")
	}
	if fut.Settled() {
		t.Error("future settled before the task's completion boundary")
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := fut.Wait(ctx)
	if !errors.IsCancelled(err) {
		t.Errorf("Wait() error = %v, want cancellation", err)
	}
}

func TestPool_CancelUnknownTask(t *testing.T) {
	p := newTestPool(t, Config{MinUnits: 1, MaxUnits: 1}, echoHandler)
	if p.Cancel("no-such-task") {
		t.Error("Cancel() = true for an unknown task, want false")
	}
}

func TestPool_TaskTimeoutKillsUnit(t *testing.T) {
	handler := func(ctx context.Context, payload task.Payload) (any, error) {
		if payload == "slow" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return payload, nil
	}
	p := newTestPool(t, Config{
		MinUnits:           1,
		MaxUnits:           1,
		MaxRestartsPerSlot: 3,
		TaskTimeout:        50 * time.Millisecond,
	}, handler)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := p.Execute("slow").Wait(ctx)
	if !errors.IsTimeout(err) {
		t.Fatalf("Wait() error = %v, want timeout", err)
	}
	var timeoutErr *errors.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want *TimeoutError", err)
	}
	if timeoutErr.Elapsed < 50*time.Millisecond {
		t.Errorf("Elapsed = %v, want >= the 50ms deadline", timeoutErr.Elapsed)
	}

	// The wedged unit was killed and replaced; the pool keeps serving.
	if res, err := p.Execute("quick").Wait(ctx); err != nil || res.Value != "quick" {
		t.Errorf("follow-up task = (%v, %v), want (quick, nil)", res.Value, err)
	}

	s := p.GetMetrics()
	if s.TasksTimedOut != 1 {
		t.Errorf("TasksTimedOut = %d, want 1", s.TasksTimedOut)
	}
	if s.UnitCrashes != 1 {
		t.Errorf("UnitCrashes = %d, want 1 (timeout kill counts as a crash)", s.UnitCrashes)
	}
	if s.TasksRetried != 0 {
		t.Errorf("TasksRetried = %d, want 0 (timed-out tasks are not requeued)", s.TasksRetried)
	}
}

func TestPool_FutureSettlesExactlyOnce(t *testing.T) {
	p := newTestPool(t, Config{MinUnits: 2, MaxUnits: 2}, echoHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const n = 20
	futs := make([]*task.Future, n)
	for i := 0; i < n; i++ {
		futs[i] = p.Execute(i)
	}
	for i, f := range futs {
		res, err := f.Wait(ctx)
		if err != nil {
			t.Fatalf("task %d: Wait() error = %v", i, err)
		}
		// A settled future must not be re-settled by anyone else.
		if f.Reject(errors.New("late")) {
			t.Fatalf("task %d: future accepted a second settlement", i)
		}
		if got, _ := f.Outcome(); got.Value != res.Value {
			t.Fatalf("task %d: outcome changed after settlement", i)
		}
	}
}

func TestNew_ValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing factory", cfg: Config{MinUnits: 1, MaxUnits: 2}},
		{
			name: "max below min",
			cfg: Config{
				MinUnits: 4,
				MaxUnits: 2,
				Factory:  unit.GoroutineFactory(echoHandler),
			},
		},
		{
			name: "negative cooldown",
			cfg: Config{
				Cooldown: -time.Second,
				Factory:  unit.GoroutineFactory(echoHandler),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("New() error = nil, want validation failure")
			}
		})
	}
}

func TestNew_SpawnsMinUnits(t *testing.T) {
	p := newTestPool(t, Config{MinUnits: 3, MaxUnits: 8}, echoHandler)

	if got := p.State(); got != StateRunning {
		t.Errorf("State() = %v, want %v", got, StateRunning)
	}
	if got := activeUnits(p); got != 3 {
		t.Errorf("active units = %d, want 3", got)
	}

	s := p.GetMetrics()
	slots := make(map[int]bool)
	for _, u := range s.Units {
		slots[u.Slot] = true
	}
	for i := 0; i < 3; i++ {
		if !slots[i] {
			t.Errorf("slot %d not occupied, units = %+v", i, s.Units)
		}
	}
}

func TestPool_EventsPublishedOnBus(t *testing.T) {
	p := newTestPool(t, Config{MinUnits: 1, MaxUnits: 1}, echoHandler)

	var mu sync.Mutex
	seen := make(map[string]int)
	p.Events().SubscribeAll(func(e event.Event) {
		mu.Lock()
		seen[e.EventType()]++
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := p.Execute("one").Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	waitUntil(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["task.completed"] >= 1
	}, "task.completed never published")

	mu.Lock()
	defer mu.Unlock()
	for _, want := range []string{"task.submitted", "task.dispatched", "task.completed"} {
		if seen[want] == 0 {
			t.Errorf("event %s never published, saw %v", want, seen)
		}
	}
}
