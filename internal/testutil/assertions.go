package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/drover/internal/evaluate"
	"github.com/thruflo/drover/internal/record"
	"github.com/thruflo/drover/internal/tasklist"
)

// AssertContinues asserts that a decision blocks the exit and carries
// a next prompt.
func AssertContinues(t *testing.T, dec evaluate.Decision) {
	t.Helper()
	assert.True(t, dec.Continue, "expected the loop to continue: %s", dec.Note)
	assert.NotEmpty(t, dec.NextPrompt, "a continue decision needs a next prompt")
}

// AssertAllowsExit asserts that a decision lets the session end.
func AssertAllowsExit(t *testing.T, dec evaluate.Decision) {
	t.Helper()
	assert.False(t, dec.Continue, "expected the session to be allowed to exit: %s", dec.Note)
}

// AssertRecordExists loads a record or fails the test.
func AssertRecordExists(t *testing.T, store *record.Store, session string, cat record.Category) *record.Record {
	t.Helper()
	rec, err := store.Load(session, cat)
	require.NoError(t, err, "expected a %s record for session %s", cat, session)
	return rec
}

// AssertNoRecord asserts that no record exists for the session and
// category.
func AssertNoRecord(t *testing.T, store *record.Store, session string, cat record.Category) {
	t.Helper()
	_, err := store.Load(session, cat)
	assert.ErrorIs(t, err, record.ErrNotFound,
		"expected no %s record for session %s", cat, session)
}

// AssertStoryPassing asserts that the story with the given id passes
// in the stored list.
func AssertStoryPassing(t *testing.T, store *tasklist.Store, id int) {
	t.Helper()
	item := loadItem(t, store, id)
	assert.True(t, item.Passes, "expected story #%d to be passing", id)
}

// AssertStoryPending asserts that the story with the given id is still
// pending in the stored list.
func AssertStoryPending(t *testing.T, store *tasklist.Store, id int) {
	t.Helper()
	item := loadItem(t, store, id)
	assert.False(t, item.Passes, "expected story #%d to still be pending", id)
}

func loadItem(t *testing.T, store *tasklist.Store, id int) *tasklist.Item {
	t.Helper()
	list, err := store.Load()
	require.NoError(t, err)
	item := list.ItemByID(id)
	require.NotNil(t, item, "story #%d not in list", id)
	return item
}
