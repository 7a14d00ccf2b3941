package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thruflo/drover/internal/config"
	"github.com/thruflo/drover/internal/phase"
	"github.com/thruflo/drover/internal/record"
	"github.com/thruflo/drover/internal/tasklist"
)

var (
	startSession       string
	startCategory      string
	startPromise       string
	startMaxIterations int
	startOnce          bool
	startTasklist      string
	startFeature       string
	startPrompt        string
	startPromptFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Arm an iteration loop for a session",
	Long: `Arms a loop record so the stop hook keeps the session iterating.

The loop category decides how exit attempts are judged:

  generic  re-issue the same instructions until the completion promise
           appears verbatim in the transcript
  tasks    work a task list story by story, verified against the list
           file and recent commit subjects
  phased   walk a feature through the requirements phases, gated by a
           human review

The category is inferred from the flags: --tasklist arms a tasks loop,
--feature arms a phased loop, --prompt or --prompt-file arms a generic
loop. Pass --category to be explicit.

Examples:
  drover start --session s1 --prompt "Fix every failing test." --promise "ALL TESTS PASS"
  drover start --session s1 --tasklist tasks.json
  drover start --session s1 --feature checkout-flow
  drover start --session s1 --tasklist tasks.json --once`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVarP(&startSession, "session", "s", "", "session identifier the host reports (required)")
	startCmd.Flags().StringVarP(&startCategory, "category", "c", "", "loop category: generic, tasks or phased")
	startCmd.Flags().StringVar(&startPromise, "promise", "", "completion promise text for a generic loop")
	startCmd.Flags().IntVarP(&startMaxIterations, "max-iterations", "n", -1, "iteration ceiling, 0 for unbounded (default: config limit)")
	startCmd.Flags().BoolVar(&startOnce, "once", false, "run a single evaluation then pause for review")
	startCmd.Flags().StringVarP(&startTasklist, "tasklist", "t", "", "task list path for a tasks loop")
	startCmd.Flags().StringVarP(&startFeature, "feature", "f", "", "feature name for a phased loop")
	startCmd.Flags().StringVarP(&startPrompt, "prompt", "p", "", "instructions for a generic loop")
	startCmd.Flags().StringVar(&startPromptFile, "prompt-file", "", "file holding instructions for a generic loop")

	startCmd.MarkFlagRequired("session")

	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	base, err := projectDir()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.LoadConfig(base)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cat, err := startLoopCategory()
	if err != nil {
		return err
	}

	rec := &record.Record{
		Session:  startSession,
		Category: cat,
		OnceMode: startOnce,
	}
	if startMaxIterations >= 0 {
		rec.MaxIterations = startMaxIterations
	} else {
		rec.MaxIterations = cfg.Limits.MaxIterations
	}

	var confirmation string
	switch cat {
	case record.CategoryGeneric:
		body, err := genericInstructions()
		if err != nil {
			return err
		}
		rec.CompletionPromise = startPromise
		rec.InstructionBody = body
		confirmation = fmt.Sprintf("Armed generic loop for session %q", startSession)
		if startPromise != "" {
			confirmation += fmt.Sprintf(" (stops on %q)", startPromise)
		}

	case record.CategoryTasks:
		if startTasklist == "" {
			return fmt.Errorf("--tasklist is required for a tasks loop")
		}
		path := startTasklist
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		store := tasklist.NewStore(path)
		list, err := store.Load()
		if err != nil {
			return fmt.Errorf("cannot arm a tasks loop: %w", err)
		}
		item := list.NextPending()
		if item == nil {
			return fmt.Errorf("nothing to do: every story in %s already passes", startTasklist)
		}
		rec.TaskListPath = startTasklist
		rec.CurrentItemID = item.ID
		rec.TotalItems = len(list.Items)
		rec.InstructionBody = store.Prompt(list, item)
		confirmation = fmt.Sprintf("Armed tasks loop for session %q: %d/%d stories passing, next is #%d %s",
			startSession, list.CountPassing(), len(list.Items), item.ID, item.Title)

	case record.CategoryPhased:
		if startFeature == "" {
			return fmt.Errorf("--feature is required for a phased loop")
		}
		first := phase.First()
		rec.Feature = startFeature
		rec.CurrentPhase = first.ID
		rec.InstructionBody = phase.Prompt(first, startFeature)
		confirmation = fmt.Sprintf("Armed phased loop for session %q: feature %q at phase %s",
			startSession, startFeature, first)
	}

	records := record.NewStore(cfg.ResolveStateDir(base))
	if err := records.Save(rec); err != nil {
		return fmt.Errorf("failed to save loop record: %w", err)
	}

	fmt.Println(confirmation)
	if startOnce {
		fmt.Println("Once mode: the loop pauses for review after one evaluation.")
	}
	return nil
}

// startLoopCategory resolves the category from the flags.
func startLoopCategory() (record.Category, error) {
	if startCategory != "" {
		cat := record.Category(startCategory)
		switch cat {
		case record.CategoryGeneric, record.CategoryTasks, record.CategoryPhased:
			return cat, nil
		}
		return "", fmt.Errorf("unknown category %q (want generic, tasks or phased)", startCategory)
	}

	hasTasks := startTasklist != ""
	hasFeature := startFeature != ""
	hasPrompt := startPrompt != "" || startPromptFile != ""
	switch {
	case hasTasks && !hasFeature:
		return record.CategoryTasks, nil
	case hasFeature && !hasTasks:
		return record.CategoryPhased, nil
	case hasPrompt && !hasTasks && !hasFeature:
		return record.CategoryGeneric, nil
	case !hasTasks && !hasFeature && !hasPrompt:
		return "", fmt.Errorf("pass --tasklist, --feature, or --prompt to pick a loop category")
	default:
		return "", fmt.Errorf("flags fit more than one category; pass --category to disambiguate")
	}
}

func genericInstructions() (string, error) {
	if startPrompt != "" && startPromptFile != "" {
		return "", fmt.Errorf("--prompt and --prompt-file are mutually exclusive")
	}
	if startPromptFile != "" {
		data, err := os.ReadFile(startPromptFile)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file: %w", err)
		}
		return string(data), nil
	}
	if startPrompt == "" {
		return "", fmt.Errorf("a generic loop needs --prompt or --prompt-file")
	}
	return startPrompt, nil
}
