package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AndreaCadonna/flexpool/internal/config"
	"github.com/AndreaCadonna/flexpool/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the workload with a live dashboard",
	Long: `Watch submits the synthetic workload in the background and opens a
full-screen dashboard showing the pool's state, queue depth, task
counters, and per-unit activity as it processes the batch.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Int("tasks", 30, "number of tasks to submit")
	watchCmd.Flags().Int("task-duration-ms", 500, "how long each synthetic task takes")
	watchCmd.Flags().Float64("failure-rate", 0, "fraction of tasks that fail (0.0 - 1.0)")
	_ = viper.BindPFlag("workload.tasks", watchCmd.Flags().Lookup("tasks"))
	_ = viper.BindPFlag("workload.task_duration_ms", watchCmd.Flags().Lookup("task-duration-ms"))
	_ = viper.BindPFlag("workload.failure_rate", watchCmd.Flags().Lookup("failure-rate"))
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The dashboard owns the terminal; stderr logging would corrupt it.
	logger, err := newWorkloadLogger(cfg, true)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = logger.Close() }()

	p, err := newPool(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	// Feed the pool in the background and terminate it when the batch is
	// done, so the dashboard can show the drain and final state.
	go func() {
		ctx := context.Background()
		_, _ = runWorkload(ctx, p, cfg.Workload.Tasks)
		termCtx, cancel := context.WithTimeout(ctx, cfg.Pool.GracePeriod()+cfg.Pool.GracePeriod()/2)
		defer cancel()
		_ = p.Terminate(termCtx)
	}()

	if err := tui.New(p).Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}

	// The user may quit before the workload finishes.
	termCtx, cancel := context.WithTimeout(context.Background(), cfg.Pool.GracePeriod()+cfg.Pool.GracePeriod()/2)
	defer cancel()
	if err := p.Terminate(termCtx); err != nil {
		return fmt.Errorf("pool did not terminate cleanly: %w", err)
	}

	printPoolReport(p.GetMetrics())
	return nil
}
