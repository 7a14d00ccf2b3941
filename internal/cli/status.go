package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thruflo/drover/internal/config"
	"github.com/thruflo/drover/internal/phase"
	"github.com/thruflo/drover/internal/record"
	"github.com/thruflo/drover/internal/tasklist"
)

var statusCmd = &cobra.Command{
	Use:   "status [session]",
	Short: "Show armed loops",
	Long: `Shows the status of armed loops.

Without arguments, lists every loop record with its session, category,
iteration count and progress. With a session argument, shows detailed
information for that session's loops.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	base, err := projectDir()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.LoadConfig(base)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	records := record.NewStore(cfg.ResolveStateDir(base))

	if len(args) == 0 {
		return listLoops(base, records)
	}
	return showLoops(base, records, args[0])
}

func listLoops(base string, records *record.Store) error {
	recs, err := records.List()
	if err != nil {
		return fmt.Errorf("failed to list loops: %w", err)
	}

	if len(recs) == 0 {
		fmt.Println("No loops armed.")
		return nil
	}

	// Calculate column widths
	sessionWidth := len("SESSION")
	categoryWidth := len("CATEGORY")
	iterWidth := len("ITERATION")
	for _, rec := range recs {
		if len(rec.Session) > sessionWidth {
			sessionWidth = len(rec.Session)
		}
		if len(rec.Category) > categoryWidth {
			categoryWidth = len(rec.Category)
		}
		if len(iterations(rec)) > iterWidth {
			iterWidth = len(iterations(rec))
		}
	}

	// Print header
	fmt.Printf("%-*s  %-*s  %-*s  %s\n",
		sessionWidth, "SESSION", categoryWidth, "CATEGORY", iterWidth, "ITERATION", "PROGRESS")
	fmt.Printf("%s  %s  %s  %s\n",
		strings.Repeat("-", sessionWidth), strings.Repeat("-", categoryWidth),
		strings.Repeat("-", iterWidth), strings.Repeat("-", len("PROGRESS")))

	// Print loops
	for _, rec := range recs {
		fmt.Printf("%-*s  %-*s  %-*s  %s\n",
			sessionWidth, rec.Session, categoryWidth, string(rec.Category),
			iterWidth, iterations(rec), loopProgress(base, rec))
	}

	return nil
}

func showLoops(base string, records *record.Store, session string) error {
	found := 0
	for _, cat := range record.Categories() {
		rec, err := records.Load(session, cat)
		if err != nil {
			continue
		}
		found++

		fmt.Printf("%s loop\n", strings.ToUpper(string(cat)[:1])+string(cat)[1:])
		fmt.Println(strings.Repeat("-", len(cat)+5))
		printField("Session", rec.Session)
		printField("Iteration", iterations(rec))
		if rec.OnceMode {
			printField("Once", "yes, pauses after one evaluation")
		}

		switch cat {
		case record.CategoryGeneric:
			if rec.CompletionPromise != "" {
				printField("Promise", fmt.Sprintf("%q", rec.CompletionPromise))
			}

		case record.CategoryTasks:
			printField("Task list", rec.TaskListPath)
			list, err := loadListFor(base, rec)
			if err != nil {
				printField("Stories", "task list unavailable")
				break
			}
			printField("Stories", fmt.Sprintf("%d/%d passing", list.CountPassing(), len(list.Items)))
			if item := list.NextPending(); item != nil {
				printField("Current", fmt.Sprintf("#%d %s", item.ID, item.Title))
			}

		case record.CategoryPhased:
			printField("Feature", rec.Feature)
			if p, ok := phase.Lookup(rec.CurrentPhase); ok {
				printField("Phase", p.String())
				if p.Gate {
					printField("Gate", string(rec.GateStatus))
				}
			} else {
				printField("Phase", rec.CurrentPhase)
			}
			if rec.RetryCount > 0 {
				printField("Retries", fmt.Sprintf("%d", rec.RetryCount))
			}
			if rec.ReviewCount > 0 {
				printField("Reviews", fmt.Sprintf("%d", rec.ReviewCount))
			}
		}

		if rec.LastError != "" {
			printField("Last error", rec.LastError)
		}
		fmt.Println()
	}

	if found == 0 {
		return fmt.Errorf("no loops found for session %q", session)
	}
	return nil
}

// loopProgress renders the category-specific progress cell.
func loopProgress(base string, rec *record.Record) string {
	switch rec.Category {
	case record.CategoryTasks:
		list, err := loadListFor(base, rec)
		if err != nil {
			return "task list unavailable"
		}
		return fmt.Sprintf("%d/%d stories", list.CountPassing(), len(list.Items))

	case record.CategoryPhased:
		if p, ok := phase.Lookup(rec.CurrentPhase); ok {
			return "phase " + p.String()
		}
		return "phase " + rec.CurrentPhase

	default:
		if rec.CompletionPromise != "" {
			return fmt.Sprintf("stops on %q", rec.CompletionPromise)
		}
		return "-"
	}
}

func loadListFor(base string, rec *record.Record) (*tasklist.List, error) {
	path := rec.TaskListPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	return tasklist.NewStore(path).Load()
}

func iterations(rec *record.Record) string {
	if rec.MaxIterations > 0 {
		return fmt.Sprintf("%d/%d", rec.Iteration, rec.MaxIterations)
	}
	return fmt.Sprintf("%d", rec.Iteration)
}

func printField(label, value string) {
	fmt.Printf("  %-14s %s\n", label+":", value)
}
