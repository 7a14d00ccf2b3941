package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thruflo/drover/internal/config"
	"github.com/thruflo/drover/internal/events"
	"github.com/thruflo/drover/internal/record"
)

var (
	tailFollow   bool
	tailInterval time.Duration
)

var tailCmd = &cobra.Command{
	Use:   "tail [session]",
	Short: "Show a session's loop events",
	Long: `Prints the loop event log for a session.

Every evaluation, abandonment, and completion appends one event to the
session's log. With --follow, keeps watching the log and prints new
events as they arrive. Polling runs log under their run name, e.g.
"run-1b9f03a2".

Examples:
  drover tail my-session
  drover tail my-session --follow
  drover tail --follow --interval 5s`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTail,
}

func init() {
	tailCmd.Flags().BoolVarP(&tailFollow, "follow", "f", false, "keep watching for new events")
	tailCmd.Flags().DurationVar(&tailInterval, "interval", 2*time.Second, "poll interval with --follow")
	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	base, err := projectDir()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.LoadConfig(base)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	records := record.NewStore(cfg.ResolveStateDir(base))

	session, err := resolveSession(records, args)
	if err != nil {
		return err
	}

	log := events.New(events.SessionPath(cfg.ResolveStateDir(base), session))
	evs, err := log.Read()
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}
	if len(evs) == 0 && !tailFollow {
		fmt.Printf("No events for session %q.\n", session)
		return nil
	}
	for _, ev := range evs {
		fmt.Println(formatEvent(ev))
	}

	if !tailFollow {
		return nil
	}

	fmt.Printf("\n--- Following events (Ctrl+C to stop) ---\n\n")

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	seen := len(evs)
	ticker := time.NewTicker(tailInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigCh:
			fmt.Printf("\nStopped.\n")
			return nil
		case <-ticker.C:
			evs, err := log.Read()
			if err != nil {
				continue
			}
			for ; seen < len(evs); seen++ {
				fmt.Println(formatEvent(evs[seen]))
			}
		}
	}
}

// formatEvent renders one event as a single line: a clock, the event
// name, then sorted data fields.
func formatEvent(ev events.Event) string {
	clock := ev.Timestamp
	if ts, err := time.Parse(time.RFC3339, ev.Timestamp); err == nil {
		clock = ts.Local().Format("15:04:05")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %-20s", clock, ev.Event)

	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, ev.Data[k])
	}
	return sb.String()
}
