package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thruflo/drover/internal/config"
	"github.com/thruflo/drover/internal/dispatch"
	"github.com/thruflo/drover/internal/evaluate"
	"github.com/thruflo/drover/internal/hook"
	"github.com/thruflo/drover/internal/logging"
	"github.com/thruflo/drover/internal/record"
)

// hookIn and hookOut are the wire streams. Tests override them; nil
// means the process stdin and stdout.
var (
	hookIn  io.Reader
	hookOut io.Writer
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Evaluate a session exit attempt (host hook mode)",
	Long: `Reads one exit-attempt event from stdin and decides whether the session
may end.

The host invokes this on every exit attempt. When the loop should
continue, a JSON decision carrying the next prompt is written to
stdout; no output means the session may end. Anything that goes wrong
resolves to allow-exit rather than a trapped session, so this command
exits 0 even on bad input.

Register it as the host's stop hook, e.g. in .claude/settings.json:

  {"hooks": {"Stop": [{"hooks": [{"type": "command", "command": "drover hook"}]}]}}`,
	RunE: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	in := hookIn
	if in == nil {
		in = os.Stdin
	}
	out := hookOut
	if out == nil {
		out = os.Stdout
	}

	ev, err := hook.ReadEvent(in)
	if err != nil {
		logging.Warn("unusable hook event, allowing exit", "error", err)
		return nil
	}

	workDir := ev.CWD
	if workDir == "" {
		workDir, err = projectDir()
		if err != nil {
			logging.Warn("cannot resolve project directory, allowing exit", "error", err)
			return nil
		}
	}

	cfg, err := config.LoadConfig(workDir)
	if err != nil {
		logging.Warn("unusable config, allowing exit", "error", err)
		return nil
	}

	records := record.NewStore(cfg.ResolveStateDir(workDir))
	eval := evaluate.New(records, workDir, cfg.Limits)
	dec := dispatch.New(records, eval).Dispatch(ctx, ev.SessionID, ev.TranscriptPath, ev.StopHookActive)

	if err := hook.WriteDecision(out, dec); err != nil {
		// The session ends either way; a half-written response must
		// not also fail the hook process.
		logging.Error("could not write hook response", "error", err)
	}
	return nil
}
