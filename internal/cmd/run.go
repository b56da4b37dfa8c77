package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/AndreaCadonna/flexpool/internal/config"
	"github.com/AndreaCadonna/flexpool/internal/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a synthetic workload through the pool",
	Long: `Run submits a batch of synthetic tasks to the pool and waits for every
task to settle, then prints a summary of throughput, scaling activity,
and crash recovery. Workload shape is controlled by flags or the
workload section of the config file.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Int("tasks", 30, "number of tasks to submit")
	runCmd.Flags().Int("task-duration-ms", 500, "how long each synthetic task takes")
	runCmd.Flags().Float64("failure-rate", 0, "fraction of tasks that fail (0.0 - 1.0)")
	_ = viper.BindPFlag("workload.tasks", runCmd.Flags().Lookup("tasks"))
	_ = viper.BindPFlag("workload.task_duration_ms", runCmd.Flags().Lookup("task-duration-ms"))
	_ = viper.BindPFlag("workload.failure_rate", runCmd.Flags().Lookup("failure-rate"))
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newWorkloadLogger(cfg, false)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = logger.Close() }()

	p, err := newPool(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	// Ctrl-C stops waiting and lets the deferred terminate clean up.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, werr := runWorkload(ctx, p, cfg.Workload.Tasks)

	termCtx, cancel := context.WithTimeout(context.Background(), cfg.Pool.GracePeriod()+cfg.Pool.GracePeriod()/2)
	defer cancel()
	if err := p.Terminate(termCtx); err != nil {
		return fmt.Errorf("pool did not terminate cleanly: %w", err)
	}

	printReport(out, p.GetMetrics())
	if werr != nil {
		return fmt.Errorf("workload interrupted: %w", werr)
	}
	return nil
}

func printReport(out workloadOutcome, s metrics.Snapshot) {
	styled := term.IsTerminal(int(os.Stdout.Fd()))

	header := func(text string) string {
		if styled {
			return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA")).Render(text)
		}
		return text
	}
	row := func(label string, value any) {
		if styled {
			l := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Render(label)
			fmt.Printf("%s %v\n", l, value)
			return
		}
		fmt.Printf("%s %v\n", label, value)
	}

	fmt.Println()
	fmt.Println(header("WORKLOAD"))
	fmt.Println(strings.Repeat("─", 40))
	row("Completed:  ", out.Completed)
	row("Failed:     ", out.Failed)
	row("Rejected:   ", out.Shutdown)
	row("Elapsed:    ", out.Elapsed.Truncate(1e6))
	fmt.Println()

	printPoolReport(s)
}

// printPoolReport prints the pool half of the summary; watch uses it alone
// because its workload tally lives on the dashboard.
func printPoolReport(s metrics.Snapshot) {
	styled := term.IsTerminal(int(os.Stdout.Fd()))

	header := func(text string) string {
		if styled {
			return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA")).Render(text)
		}
		return text
	}
	row := func(label string, value any) {
		if styled {
			l := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Render(label)
			fmt.Printf("%s %v\n", l, value)
			return
		}
		fmt.Printf("%s %v\n", label, value)
	}

	fmt.Println(header("POOL"))
	fmt.Println(strings.Repeat("─", 40))
	row("Peak units:      ", s.PeakUnits)
	row("Peak queue depth:", s.PeakQueueDepth)
	row("Scale ups:       ", s.ScaleUpEvents)
	row("Scale downs:     ", s.ScaleDownEvents)
	row("Unit crashes:    ", s.UnitCrashes)
	row("Tasks retried:   ", s.TasksRetried)
	fmt.Println()
}
