package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thruflo/drover/internal/record"
)

// Sandbox creates a temporary project directory with the .drover
// structure for testing. Returns the project path and a record store
// rooted in it. The directory is automatically cleaned up when the
// test completes.
func Sandbox(t *testing.T) (string, *record.Store) {
	t.Helper()

	tmpDir := t.TempDir()

	stateDir := filepath.Join(tmpDir, ".drover", "state")
	require.NoError(t, os.MkdirAll(stateDir, 0o755))

	// Config with small, fast limits so stuck-loop tests finish quickly.
	configContent := `agent:
  command: claude
limits:
  max_iterations: 10
  fallback_cap: 100
  phase_retries: 3
  commit_window: 10
`
	configPath := filepath.Join(tmpDir, ".drover", "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	return tmpDir, record.NewStore(stateDir)
}

// MustMarshalJSON marshals a value to JSON, failing the test on error.
// Uses indented format for readability.
func MustMarshalJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	return data
}

// MustUnmarshalJSON unmarshals JSON data into v, failing the test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, v))
}

// WriteTestFile writes content to a file in the test directory.
// Creates parent directories as needed.
func WriteTestFile(t *testing.T, basePath, relativePath string, content []byte) {
	t.Helper()
	fullPath := filepath.Join(basePath, relativePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
	require.NoError(t, os.WriteFile(fullPath, content, 0o644))
}
