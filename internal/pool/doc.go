// Package pool implements the adaptive worker pool: a bounded,
// dynamically-sized set of isolated execution units fed from a FIFO task
// queue, with crash recovery and queue-depth-based scaling.
//
// All mutable state (the unit registry, the idle set, the queue, and the
// scaling clock) is owned by a single dispatcher goroutine that processes
// one ordered stream of internal events (submissions, unit events, scaling
// ticks, cancellations, termination). Components outside the loop only
// communicate through messages and read-only snapshots, so there is no
// fine-grained locking and no re-entrant callback hazard.
//
// # Usage
//
//	p, err := pool.New(pool.Config{
//	    MinUnits:           2,
//	    MaxUnits:           8,
//	    ScaleUpThreshold:   10,
//	    ScaleDownThreshold: 1,
//	    Cooldown:           30 * time.Second,
//	    CheckInterval:      time.Second,
//	    MaxRestartsPerSlot: 3,
//	    Factory:            unit.GoroutineFactory(handler),
//	})
//	if err != nil { ... }
//
//	fut := p.Execute(payload)
//	res, err := fut.Wait(ctx)
//
//	_ = p.Terminate(ctx)
//
// # Failure semantics
//
// A handler error rejects only that task's future. A unit crash requeues
// the interrupted task at the front of the queue and spawns a replacement,
// transparently to the caller, until the crashed slot exhausts its restart
// budget. At that point the pool goes fatal and rejects new submissions
// until it is recreated.
package pool
