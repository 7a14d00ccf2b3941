// Package scaffold provides the payloads written by drover init: a
// starter configuration and an example task list.
package scaffold

import (
	"os"
	"path/filepath"

	"github.com/thruflo/drover/internal/tasklist"
)

// ConfigTemplate is the starter .drover/config.yaml.
const ConfigTemplate = `# Drover configuration

agent:
  # Command the polling driver runs for each iteration.
  command: claude

  # Extra arguments appended to every invocation.
  # args: ["--model", "opus"]

  # Cap on agent turns per invocation. 0 means no cap.
  max_turns: 0

limits:
  # Default iteration ceiling for loops armed without an explicit limit.
  max_iterations: 50

  # Hard ceiling for loops whose record carries no limit at all.
  fallback_cap: 100

  # Failed marker checks a phase tolerates before the recovery prompt.
  phase_retries: 3

  # Recent commit subjects searched when cross-checking a completion.
  commit_window: 10

  # Polling-driver iterations without a new passing story before the
  # run stops as stuck.
  no_progress_threshold: 3

# Where loop records are kept. Defaults to .drover/state.
# state_dir: /tmp/drover-state
`

// GitignoreTemplate keeps per-session state out of version control.
const GitignoreTemplate = `# Loop records and event logs are per-machine state
state/
`

// ExampleList returns the example task list written by drover init.
// Returns a new value each time so callers can mutate freely.
func ExampleList() *tasklist.List {
	return &tasklist.List{
		Title:    "Example: replace with your feature",
		SpecPath: "docs/spec.md",
		Items: []tasklist.Item{
			{
				ID:       1,
				Title:    "Set up the project skeleton",
				Category: tasklist.CategoryFunctional,
				Steps: []string{
					"Create the package layout",
					"Add a failing smoke test",
				},
				Priority: 1,
			},
			{
				ID:        2,
				Title:     "Implement the core behavior",
				Category:  tasklist.CategoryFunctional,
				DependsOn: []int{1},
				Steps: []string{
					"Implement the main code path",
					"Make the smoke test pass",
				},
				Priority: 2,
			},
			{
				ID:        3,
				Title:     "Cover the failure modes",
				Category:  tasklist.CategoryEdgeCase,
				DependsOn: []int{2},
				Steps: []string{
					"Add tests for bad input",
					"Handle and surface errors",
				},
				Priority: 3,
			},
		},
	}
}

// WriteConfig writes the starter config under basePath if none exists.
// Returns (true, nil) if the file was created and (false, nil) if one
// was already there.
func WriteConfig(basePath string) (created bool, err error) {
	return writeIfAbsent(
		filepath.Join(basePath, ".drover", "config.yaml"),
		[]byte(ConfigTemplate),
	)
}

// WriteGitignore writes .drover/.gitignore if none exists.
func WriteGitignore(basePath string) (created bool, err error) {
	return writeIfAbsent(
		filepath.Join(basePath, ".drover", ".gitignore"),
		[]byte(GitignoreTemplate),
	)
}

// WriteExampleTaskList writes the example list to path if nothing is
// there yet. An existing file is never overwritten; a list in progress
// is exactly what this must not clobber.
func WriteExampleTaskList(path string) (created bool, err error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	store := tasklist.NewStore(path)
	if err := store.Save(ExampleList()); err != nil {
		return false, err
	}
	return true, nil
}

func writeIfAbsent(path string, content []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
