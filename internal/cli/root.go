package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/thruflo/drover/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	rootVerbose bool
	rootDir     string
)

var rootCmd = &cobra.Command{
	Use:   "drover",
	Short: "Iteration loops for coding-agent sessions",
	Long: `Drover keeps a coding-agent session working until the job is done.

Arm a loop for a session and drover intercepts every attempt the agent
makes to end it, deciding from the transcript, the task list, and recent
commits whether to let it stop, send it back around, or advance it to
the next story or phase. Or run the polling driver, which owns the loop
itself and spawns a fresh agent per iteration.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootVerbose {
			logging.SetLevel(logging.LevelDebug)
		}
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("drover version {{.Version}}\n")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "C", "", "project directory (default: current directory)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// projectDir resolves the directory commands operate on.
func projectDir() (string, error) {
	if rootDir != "" {
		return rootDir, nil
	}
	return os.Getwd()
}
