package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thruflo/drover/internal/scaffold"
)

var initExample bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the .drover directory",
	Long: `Creates the .drover directory with a starter configuration.

This command sets up:
  - config.yaml with agent and limit settings
  - .gitignore keeping per-session loop state out of version control
  - with --example, a tasks.example.json to copy your task list from

Existing files are never overwritten.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initExample, "example", false, "also write an example task list")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	base, err := projectDir()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	created, err := scaffold.WriteConfig(base)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	report(".drover/config.yaml", created)

	created, err = scaffold.WriteGitignore(base)
	if err != nil {
		return fmt.Errorf("failed to write .gitignore: %w", err)
	}
	report(".drover/.gitignore", created)

	if initExample {
		path := filepath.Join(base, "tasks.example.json")
		created, err = scaffold.WriteExampleTaskList(path)
		if err != nil {
			return fmt.Errorf("failed to write example task list: %w", err)
		}
		report("tasks.example.json", created)
	}

	return nil
}

func report(name string, created bool) {
	if created {
		fmt.Printf("Created %s\n", name)
	} else {
		fmt.Printf("%s already exists, left alone\n", name)
	}
}
