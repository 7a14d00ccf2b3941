package testutil

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thruflo/drover/internal/phase"
	"github.com/thruflo/drover/internal/record"
	"github.com/thruflo/drover/internal/tasklist"
)

// SampleTaskList returns a three-story task list, all pending.
// Returns a new value each time to prevent test interference.
func SampleTaskList() *tasklist.List {
	return &tasklist.List{
		Title:    "Sample feature",
		SpecPath: "docs/sample-feature.md",
		Items: []tasklist.Item{
			{
				ID:       1,
				Title:    "Create configuration file",
				Category: tasklist.CategoryFunctional,
				Steps:    []string{"Create config directory", "Write default config"},
				Priority: 1,
			},
			{
				ID:       2,
				Title:    "Implement main logic",
				Category: tasklist.CategoryFunctional,
				Skills:   []string{"go"},
				Steps:    []string{"Implement core function", "Add error handling"},
				Priority: 2,
			},
			{
				ID:        3,
				Title:     "Add settings screen",
				Category:  tasklist.CategoryUI,
				DependsOn: []int{2},
				Steps:     []string{"Build the form", "Wire it to the config"},
				Priority:  3,
			},
		},
	}
}

// SampleTaskListPartiallyComplete returns the sample list with the
// first story passing.
func SampleTaskListPartiallyComplete() *tasklist.List {
	l := SampleTaskList()
	l.Items[0].Passes = true
	l.Items[0].Commit = "feat: story #1 - create configuration file"
	return l
}

// SampleTaskListAllComplete returns the sample list fully passing.
func SampleTaskListAllComplete() *tasklist.List {
	l := SampleTaskList()
	for i := range l.Items {
		l.Items[i].Passes = true
	}
	return l
}

// WriteTaskList saves a list under dir and returns its store.
func WriteTaskList(t *testing.T, dir string, l *tasklist.List) *tasklist.Store {
	t.Helper()
	store := tasklist.NewStore(filepath.Join(dir, "tasks.json"))
	require.NoError(t, store.Save(l))
	return store
}

// GenericRecord returns an armed generic loop record.
func GenericRecord(session string) *record.Record {
	return &record.Record{
		Session:           session,
		Category:          record.CategoryGeneric,
		MaxIterations:     10,
		CompletionPromise: "ALL TESTS PASS",
		InstructionBody:   "Keep fixing failing tests until every suite is green.",
	}
}

// TasksRecord returns an armed tasks loop record pointing at listPath.
func TasksRecord(session, listPath string) *record.Record {
	return &record.Record{
		Session:       session,
		Category:      record.CategoryTasks,
		MaxIterations: 10,
		TaskListPath:  listPath,
	}
}

// PhasedRecord returns an armed phased loop record at the first phase.
func PhasedRecord(session, feature string) *record.Record {
	first := phase.First()
	return &record.Record{
		Session:         session,
		Category:        record.CategoryPhased,
		MaxIterations:   10,
		Feature:         feature,
		CurrentPhase:    first.ID,
		InstructionBody: phase.Prompt(first, feature),
	}
}

// WriteTranscript writes a session transcript where each text becomes
// one assistant turn, and returns its path.
func WriteTranscript(t *testing.T, dir string, texts ...string) string {
	t.Helper()

	var buf bytes.Buffer
	for _, text := range texts {
		line, err := json.Marshal(map[string]any{
			"type": "assistant",
			"message": map[string]any{
				"role": "assistant",
				"content": []map[string]string{
					{"type": "text", "text": text},
				},
			},
		})
		require.NoError(t, err)
		buf.Write(line)
		buf.WriteByte('\n')
	}

	path := filepath.Join(dir, "transcript.jsonl")
	WriteTestFile(t, dir, "transcript.jsonl", buf.Bytes())
	return path
}
