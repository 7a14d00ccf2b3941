package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/thruflo/drover/internal/agent"
	"github.com/thruflo/drover/internal/config"
	"github.com/thruflo/drover/internal/driver"
	"github.com/thruflo/drover/internal/events"
)

var (
	runTasklist      string
	runMaxIterations int
	runOnce          bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a task list with a fresh agent per iteration",
	Long: `Owns the iteration loop instead of waiting on the stop hook.

Each iteration picks the lowest-priority pending story, spawns one
agent invocation with a self-contained prompt, then reconciles the
task list against the agent's output and recent commits. The loop
ends when every story passes, the iteration ceiling is reached, the
run stops making progress, or it is interrupted.

Examples:
  drover run
  drover run --tasklist docs/tasks.json --max-iterations 20
  drover run --once`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runTasklist, "tasklist", "t", "tasks.json", "task list path")
	runCmd.Flags().IntVarP(&runMaxIterations, "max-iterations", "n", 0, "iteration ceiling (default: config limit)")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single iteration then stop")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	base, err := projectDir()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.LoadConfig(base)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	limit := runMaxIterations
	if limit <= 0 {
		limit = cfg.Limits.MaxIterations
	}

	runID := uuid.NewString()
	stateDir := cfg.ResolveStateDir(base)
	log := events.New(events.SessionPath(stateDir, "run-"+runID))
	history := driver.NewRunHistory(driver.HistoryPath(stateDir, runID))

	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("Driving %s (run %s). Ctrl+C interrupts the run.\n", runTasklist, runID[:8])
	}

	res := driver.Run(ctx, driver.Options{
		WorkDir:             base,
		TaskListPath:        runTasklist,
		MaxIterations:       limit,
		Once:                runOnce,
		NoProgressThreshold: cfg.Limits.NoProgressThreshold,
		Runner:              agent.NewExecRunner(cfg.Agent),
		Events:              log,
		History:             history,
		Out:                 os.Stdout,
		RunID:               runID,
	})

	fmt.Println(res.Summary())

	switch res.Reason {
	case driver.ReasonAgentError, driver.ReasonTasksUnavailable:
		return res.Err
	}
	return nil
}
