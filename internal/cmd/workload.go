package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/AndreaCadonna/flexpool/internal/config"
	"github.com/AndreaCadonna/flexpool/internal/errors"
	"github.com/AndreaCadonna/flexpool/internal/logging"
	"github.com/AndreaCadonna/flexpool/internal/pool"
	"github.com/AndreaCadonna/flexpool/internal/task"
	"github.com/AndreaCadonna/flexpool/internal/unit"
)

// syntheticHandler simulates work: sleep for the configured duration, then
// fail a configurable fraction of tasks.
func syntheticHandler(w config.WorkloadConfig) unit.Handler {
	return func(ctx context.Context, payload task.Payload) (any, error) {
		if d := w.TaskDuration(); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if w.FailureRate > 0 && rand.Float64() < w.FailureRate {
			return nil, fmt.Errorf("synthetic failure for task %v", payload)
		}
		return payload, nil
	}
}

// newPool builds a pool from the loaded configuration.
func newPool(cfg *config.Config, logger *logging.Logger) (*pool.Pool, error) {
	return pool.New(pool.Config{
		MinUnits:           cfg.Pool.MinUnits,
		MaxUnits:           cfg.Pool.MaxUnits,
		ScaleUpThreshold:   cfg.Pool.ScaleUpThreshold,
		ScaleDownThreshold: cfg.Pool.ScaleDownThreshold,
		Cooldown:           cfg.Pool.Cooldown(),
		CheckInterval:      cfg.Pool.CheckInterval(),
		MaxRestartsPerSlot: cfg.Pool.MaxRestartsPerSlot,
		TaskTimeout:        cfg.Pool.TaskTimeout(),
		GracePeriod:        cfg.Pool.GracePeriod(),
		Factory:            unit.GoroutineFactory(syntheticHandler(cfg.Workload)),
		Logger:             logger,
	})
}

// workloadOutcome tallies how the submitted futures settled.
type workloadOutcome struct {
	Completed int
	Failed    int
	Shutdown  int
	Elapsed   time.Duration
}

// runWorkload submits n tasks and waits for every future to settle.
// The context bounds the wait, not the tasks themselves.
func runWorkload(ctx context.Context, p *pool.Pool, n int) (workloadOutcome, error) {
	start := time.Now()

	futs := make([]*task.Future, n)
	for i := 0; i < n; i++ {
		futs[i] = p.Execute(i)
	}

	var out workloadOutcome
	for _, f := range futs {
		_, err := f.Wait(ctx)
		switch {
		case err == nil:
			out.Completed++
		case ctx.Err() != nil:
			return out, ctx.Err()
		case errors.IsShutdown(err) || errors.IsFatal(err):
			out.Shutdown++
		default:
			out.Failed++
		}
	}
	out.Elapsed = time.Since(start)
	return out, nil
}

// newWorkloadLogger builds the logger the pool runs with. Logging to
// stderr is suppressed when quiet is set (the dashboard owns the
// terminal).
func newWorkloadLogger(cfg *config.Config, quiet bool) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	if cfg.Logging.Dir == "" && quiet {
		return logging.NopLogger(), nil
	}
	return logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
}
