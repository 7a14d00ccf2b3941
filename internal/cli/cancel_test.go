package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/drover/internal/record"
	"github.com/thruflo/drover/internal/testutil"
)

func resetCancelFlags() {
	cancelCategory = ""
	cancelAll = false
	cancelForce = true // tests never answer the interactive prompt
}

func TestCancel_DeletesRecord(t *testing.T) {
	_, records := withProject(t)
	require.NoError(t, records.Save(testutil.GenericRecord("s1")))
	resetCancelFlags()

	output := captureOutput(func() {
		require.NoError(t, runCancel(cancelCmd, []string{"s1"}))
	})
	assert.Contains(t, output, "Cancelled generic loop")

	testutil.AssertNoRecord(t, records, "s1", record.CategoryGeneric)
}

func TestCancel_CategoryFilter(t *testing.T) {
	dir, records := withProject(t)
	testutil.WriteTaskList(t, dir, testutil.SampleTaskList())
	require.NoError(t, records.Save(testutil.GenericRecord("s1")))
	require.NoError(t, records.Save(testutil.TasksRecord("s1", "tasks.json")))
	resetCancelFlags()
	cancelCategory = "tasks"

	captureOutput(func() {
		require.NoError(t, runCancel(cancelCmd, []string{"s1"}))
	})

	testutil.AssertNoRecord(t, records, "s1", record.CategoryTasks)
	testutil.AssertRecordExists(t, records, "s1", record.CategoryGeneric)
}

func TestCancel_UnknownCategory(t *testing.T) {
	withProject(t)
	resetCancelFlags()
	cancelCategory = "weekly"

	err := runCancel(cancelCmd, []string{"s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}

func TestCancel_NoLoopsForSession(t *testing.T) {
	withProject(t)
	resetCancelFlags()

	err := runCancel(cancelCmd, []string{"ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no loops found")
}

func TestCancel_AutoSelectsSingleSession(t *testing.T) {
	_, records := withProject(t)
	require.NoError(t, records.Save(testutil.GenericRecord("only-one")))
	resetCancelFlags()

	captureOutput(func() {
		require.NoError(t, runCancel(cancelCmd, nil))
	})

	testutil.AssertNoRecord(t, records, "only-one", record.CategoryGeneric)
}

func TestCancel_RefusesToGuessAmongSessions(t *testing.T) {
	_, records := withProject(t)
	require.NoError(t, records.Save(testutil.GenericRecord("s1")))
	require.NoError(t, records.Save(testutil.GenericRecord("s2")))
	resetCancelFlags()

	var err error
	captureOutput(func() {
		err = runCancel(cancelCmd, nil)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Specify a session")
}

func TestCancel_All(t *testing.T) {
	_, records := withProject(t)
	require.NoError(t, records.Save(testutil.GenericRecord("s1")))
	require.NoError(t, records.Save(testutil.GenericRecord("s2")))
	resetCancelFlags()
	cancelAll = true

	captureOutput(func() {
		require.NoError(t, runCancel(cancelCmd, nil))
	})

	testutil.AssertNoRecord(t, records, "s1", record.CategoryGeneric)
	testutil.AssertNoRecord(t, records, "s2", record.CategoryGeneric)
}

func TestCancel_AllRejectsSessionArg(t *testing.T) {
	withProject(t)
	resetCancelFlags()
	cancelAll = true

	err := runCancel(cancelCmd, []string{"s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--all")
}
