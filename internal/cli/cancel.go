package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thruflo/drover/internal/config"
	"github.com/thruflo/drover/internal/record"
)

var (
	cancelCategory string
	cancelAll      bool
	cancelForce    bool
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [session]",
	Short: "Cancel loops by deleting their records",
	Long: `Cancels armed loops. Cancellation is deletion: the next exit attempt
finds no record and the session ends normally. Task lists are never
touched, so story progress survives cancellation.

Examples:
  drover cancel my-session
  drover cancel                          # works if only one session has loops
  drover cancel my-session --category tasks
  drover cancel --all --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCancel,
}

func init() {
	cancelCmd.Flags().StringVarP(&cancelCategory, "category", "c", "", "only cancel this loop category")
	cancelCmd.Flags().BoolVar(&cancelAll, "all", false, "cancel every session's loops")
	cancelCmd.Flags().BoolVar(&cancelForce, "force", false, "skip confirmation prompt")
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	base, err := projectDir()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.LoadConfig(base)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	records := record.NewStore(cfg.ResolveStateDir(base))

	cats, err := cancelCategories()
	if err != nil {
		return err
	}

	if cancelAll {
		if len(args) > 0 {
			return fmt.Errorf("cannot specify a session with --all")
		}
		return cancelEverySession(records, cats)
	}

	session, err := resolveSession(records, args)
	if err != nil {
		return err
	}

	live := liveCategories(records, session, cats)
	if len(live) == 0 {
		return fmt.Errorf("no loops found for session %q", session)
	}

	if !cancelForce {
		fmt.Printf("This will cancel %d loop(s) for session %q:\n", len(live), session)
		for _, cat := range live {
			fmt.Printf("  - %s\n", cat)
		}
		if !confirm() {
			fmt.Println("Aborted.")
			return nil
		}
	}

	for _, cat := range live {
		if err := records.Delete(session, cat); err != nil {
			return fmt.Errorf("failed to cancel %s loop: %w", cat, err)
		}
		fmt.Printf("Cancelled %s loop for session %q.\n", cat, session)
	}
	return nil
}

func cancelEverySession(records *record.Store, cats []record.Category) error {
	sessions, err := loopSessions(records)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No loops armed.")
		return nil
	}

	if !cancelForce {
		fmt.Printf("This will cancel loops for %d session(s):\n", len(sessions))
		for _, session := range sessions {
			fmt.Printf("  - %s\n", session)
		}
		if !confirm() {
			fmt.Println("Aborted.")
			return nil
		}
	}

	for _, session := range sessions {
		for _, cat := range liveCategories(records, session, cats) {
			if err := records.Delete(session, cat); err != nil {
				fmt.Printf("Warning: failed to cancel %s loop for %q: %v\n", cat, session, err)
				continue
			}
			fmt.Printf("Cancelled %s loop for session %q.\n", cat, session)
		}
	}
	return nil
}

func cancelCategories() ([]record.Category, error) {
	if cancelCategory == "" {
		return record.Categories(), nil
	}
	cat := record.Category(cancelCategory)
	switch cat {
	case record.CategoryGeneric, record.CategoryTasks, record.CategoryPhased:
		return []record.Category{cat}, nil
	}
	return nil, fmt.Errorf("unknown category %q (want generic, tasks or phased)", cancelCategory)
}

// liveCategories returns the categories with a record on disk for the
// session. Corrupt records count; those especially need cancelling.
func liveCategories(records *record.Store, session string, cats []record.Category) []record.Category {
	var live []record.Category
	for _, cat := range cats {
		_, err := records.Load(session, cat)
		if err == nil || record.IsCorrupt(err) {
			live = append(live, cat)
		}
	}
	return live
}

// resolveSession picks the session from args, or auto-selects when
// exactly one session has loops armed.
func resolveSession(records *record.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	sessions, err := loopSessions(records)
	if err != nil {
		return "", err
	}

	if len(sessions) == 0 {
		return "", fmt.Errorf("no loops armed. Specify a session")
	}
	if len(sessions) > 1 {
		fmt.Printf("Multiple sessions have loops:\n")
		for _, s := range sessions {
			fmt.Printf("  - %s\n", s)
		}
		return "", fmt.Errorf("multiple sessions have loops. Specify a session")
	}
	return sessions[0], nil
}

// loopSessions lists the distinct sessions with at least one record.
func loopSessions(records *record.Store) ([]string, error) {
	recs, err := records.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list loops: %w", err)
	}
	var sessions []string
	seen := map[string]bool{}
	for _, rec := range recs {
		if !seen[rec.Session] {
			seen[rec.Session] = true
			sessions = append(sessions, rec.Session)
		}
	}
	return sessions, nil
}

func confirm() bool {
	fmt.Printf("\nType 'yes' to confirm: ")
	var response string
	fmt.Scanln(&response)
	return response == "yes"
}
