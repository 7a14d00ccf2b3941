//go:build integration

// Package integration exercises whole loop workflows through the same
// path the hook command runs: one host stop event in, one decision
// out, with transcripts, task lists, and commit history as real files
// on disk. To run:
//
//	go test -tags=integration ./internal/integration/...
//
// Everything here is hermetic. Tests that need commit history create a
// throwaway git repository and skip when git is not installed; nothing
// talks to a live agent.
package integration

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thruflo/drover/internal/config"
	"github.com/thruflo/drover/internal/dispatch"
	"github.com/thruflo/drover/internal/evaluate"
	"github.com/thruflo/drover/internal/hook"
	"github.com/thruflo/drover/internal/record"
	"github.com/thruflo/drover/internal/tasklist"
	"github.com/thruflo/drover/internal/testutil"
)

// harness wires a record store, evaluator, and dispatcher over one
// sandbox project directory, the same assembly the hook command builds
// on every invocation.
type harness struct {
	t       *testing.T
	dir     string
	records *record.Store
	disp    *dispatch.Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir, records := testutil.Sandbox(t)
	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)

	eval := evaluate.New(records, dir, cfg.Limits)
	return &harness{t: t, dir: dir, records: records, disp: dispatch.New(records, eval)}
}

// stop replays one host stop event end to end: the event is encoded and
// re-read through the wire codec, dispatched, and the decision
// serialized back exactly as the hook command would. texts become the
// assistant turns of the session transcript; with none, the event
// carries no transcript path at all.
func (h *harness) stop(session string, texts ...string) (evaluate.Decision, string) {
	h.t.Helper()

	transcriptPath := ""
	if len(texts) > 0 {
		transcriptPath = testutil.WriteTranscript(h.t, h.dir, texts...)
	}

	payload := testutil.MustMarshalJSON(h.t, map[string]any{
		"session_id":      session,
		"transcript_path": transcriptPath,
	})
	ev, err := hook.ReadEvent(bytes.NewReader(payload))
	require.NoError(h.t, err)

	dec := h.disp.Dispatch(context.Background(), ev.SessionID, ev.TranscriptPath, ev.StopHookActive)

	var out bytes.Buffer
	require.NoError(h.t, hook.WriteDecision(&out, dec))
	return dec, out.String()
}

// markPassing edits the task list the way the working protocol tells
// the agent to: set passes true, nothing else. Commit metadata is
// filled in by the evaluator once a commit verifies the story.
func markPassing(t *testing.T, store *tasklist.Store, id int) {
	t.Helper()
	require.NoError(t, store.Update(func(l *tasklist.List) error {
		item := l.ItemByID(id)
		require.NotNil(t, item)
		item.Passes = true
		return nil
	}))
}

// twoStories returns a minimal two-story list in priority order.
func twoStories() *tasklist.List {
	return &tasklist.List{
		Title: "Checkout flow",
		Items: []tasklist.Item{
			{
				ID:       1,
				Title:    "Create configuration file",
				Category: tasklist.CategoryFunctional,
				Steps:    []string{"Write the default config"},
				Priority: 1,
			},
			{
				ID:       2,
				Title:    "Implement main logic",
				Category: tasklist.CategoryFunctional,
				Steps:    []string{"Implement the core path"},
				Priority: 2,
			},
		},
	}
}

// storyCompletions counts story_complete entries in the list log.
func storyCompletions(l *tasklist.List) int {
	n := 0
	for _, ev := range l.Log {
		if ev.Event == tasklist.EventStoryComplete {
			n++
		}
	}
	return n
}
