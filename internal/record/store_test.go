package record

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoad(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	rec := &Record{
		Session:           "sess-abc",
		Category:          CategoryGeneric,
		Iteration:         5,
		MaxIterations:     30,
		CompletionPromise: "DONE",
		InstructionBody:   "keep going",
	}
	require.NoError(t, store.Save(rec))

	got, err := store.Load("sess-abc", CategoryGeneric)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	_, err := store.Load("nope", CategoryGeneric)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_LoadCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	path := store.Path("bad", CategoryGeneric)
	require.NoError(t, os.WriteFile(path, []byte("no delimiter here"), 0o644))

	_, err := store.Load("bad", CategoryGeneric)
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))

	var ce *CorruptError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, path, ce.Path)
}

func TestStore_SaveOverwrites(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	rec := &Record{Session: "s", Category: CategoryGeneric, Iteration: 1, InstructionBody: "v1"}
	require.NoError(t, store.Save(rec))

	rec.Iteration = 2
	rec.InstructionBody = "v2"
	require.NoError(t, store.Save(rec))

	got, err := store.Load("s", CategoryGeneric)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Iteration)
	assert.Equal(t, "v2", got.InstructionBody)
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, store.Save(&Record{Session: "s", Category: CategoryGeneric}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "s.generic.state", entries[0].Name())
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	assert.Error(t, store.Save(&Record{Session: "s", Category: "mystery"}))
	assert.Error(t, store.Save(&Record{Category: CategoryGeneric}))
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	rec := &Record{Session: "s", Category: CategoryTasks, TaskListPath: "tasks.json"}
	require.NoError(t, store.Save(rec))
	require.NoError(t, store.Delete("s", CategoryTasks))

	_, err := store.Load("s", CategoryTasks)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete("s", CategoryTasks))
}

func TestStore_Update(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(&Record{Session: "s", Category: CategoryGeneric, Iteration: 3}))

	require.NoError(t, store.Update("s", CategoryGeneric, func(rec *Record) error {
		rec.Iteration = 7
		return nil
	}))

	got, err := store.Load("s", CategoryGeneric)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Iteration)
}

func TestStore_UpdateMissingRecord(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	err := store.Update("s", CategoryGeneric, func(rec *Record) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateFnErrorLeavesFileAlone(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(&Record{Session: "s", Category: CategoryGeneric, Iteration: 3}))

	boom := errors.New("not today")
	err := store.Update("s", CategoryGeneric, func(rec *Record) error {
		rec.Iteration = 9
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Load("s", CategoryGeneric)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Iteration)
}

func TestStore_SessionIDSanitized(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	rec := &Record{Session: "a/b c:d", Category: CategoryGeneric}
	require.NoError(t, store.Save(rec))

	assert.Equal(t, filepath.Join(store.Dir(), "a-b-c-d.generic.state"), store.Path("a/b c:d", CategoryGeneric))

	got, err := store.Load("a/b c:d", CategoryGeneric)
	require.NoError(t, err)
	assert.Equal(t, "a/b c:d", got.Session)
}

func TestStore_SeparateFilesPerCategory(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(&Record{Session: "s", Category: CategoryGeneric}))
	require.NoError(t, store.Save(&Record{Session: "s", Category: CategoryPhased, CurrentPhase: "0"}))

	gen, err := store.Load("s", CategoryGeneric)
	require.NoError(t, err)
	assert.Equal(t, CategoryGeneric, gen.Category)

	ph, err := store.Load("s", CategoryPhased)
	require.NoError(t, err)
	assert.Equal(t, CategoryPhased, ph.Category)
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, store.Save(&Record{Session: "beta", Category: CategoryGeneric}))
	require.NoError(t, store.Save(&Record{Session: "alpha", Category: CategoryTasks}))
	require.NoError(t, store.Save(&Record{Session: "alpha", Category: CategoryGeneric}))

	// A corrupt file and an unrelated file are both skipped.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.generic.state"), []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o644))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "alpha", records[0].Session)
	assert.Equal(t, CategoryGeneric, records[0].Category)
	assert.Equal(t, "alpha", records[1].Session)
	assert.Equal(t, CategoryTasks, records[1].Category)
	assert.Equal(t, "beta", records[2].Session)
}

func TestStore_ListMissingDir(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "never-created"))
	records, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}
