package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/drover/internal/events"
)

func TestTail_PrintsEvents(t *testing.T) {
	dir, _ := withProject(t)
	tailFollow = false

	log := events.New(events.SessionPath(filepath.Join(dir, ".drover", "state"), "s1"))
	log.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, log.Append(events.Event{
		Session: "s1",
		Event:   "evaluation",
		Data:    map[string]any{"category": "generic", "continue": true},
	}))
	require.NoError(t, log.Append(events.Event{
		Session: "s1",
		Event:   "loop_abandoned",
	}))

	output := captureOutput(func() {
		require.NoError(t, runTail(tailCmd, []string{"s1"}))
	})
	assert.Contains(t, output, "evaluation")
	assert.Contains(t, output, "category=generic")
	assert.Contains(t, output, "continue=true")
	assert.Contains(t, output, "loop_abandoned")
}

func TestTail_NoEvents(t *testing.T) {
	withProject(t)
	tailFollow = false

	output := captureOutput(func() {
		require.NoError(t, runTail(tailCmd, []string{"quiet"}))
	})
	assert.Contains(t, output, `No events for session "quiet"`)
}

func TestFormatEvent(t *testing.T) {
	got := formatEvent(events.Event{
		Timestamp: "2025-06-01T12:00:00Z",
		Event:     "iteration",
		Data:      map[string]any{"item": 2, "iteration": 1},
	})
	assert.Contains(t, got, "iteration")
	assert.Contains(t, got, "item=2")
	assert.Contains(t, got, "iteration=1")
	assert.NotContains(t, got, "2025-06-01T12:00:00Z", "timestamps render as clocks")
}
