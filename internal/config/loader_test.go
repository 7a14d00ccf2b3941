package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Default(t *testing.T) {
	t.Parallel()

	// Create temp directory without config file
	tmpDir := t.TempDir()

	cfg, err := LoadConfig(tmpDir)
	require.NoError(t, err)

	// Should return default values
	assert.Equal(t, DefaultAgentCommand, cfg.Agent.Command)
	assert.Equal(t, DefaultMaxIterations, cfg.Limits.MaxIterations)
	assert.Equal(t, DefaultFallbackCap, cfg.Limits.FallbackCap)
	assert.Equal(t, DefaultPhaseRetries, cfg.Limits.PhaseRetries)
	assert.Equal(t, DefaultCommitWindow, cfg.Limits.CommitWindow)
	assert.Equal(t, DefaultNoProgressThreshold, cfg.Limits.NoProgressThreshold)
}

func TestLoadConfig_ValidFile(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	droverDir := filepath.Join(tmpDir, ".drover")
	require.NoError(t, os.MkdirAll(droverDir, 0o755))

	configContent := `agent:
  command: claude
  args: ["--model", "opus"]
  max_turns: 150
limits:
  max_iterations: 30
  fallback_cap: 200
  phase_retries: 5
  commit_window: 20
  no_progress_threshold: 4
state_dir: /tmp/drover-state
`
	require.NoError(t, os.WriteFile(filepath.Join(droverDir, "config.yaml"), []byte(configContent), 0o644))

	cfg, err := LoadConfig(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.Agent.Command)
	assert.Equal(t, []string{"--model", "opus"}, cfg.Agent.Args)
	assert.Equal(t, 150, cfg.Agent.MaxTurns)
	assert.Equal(t, 30, cfg.Limits.MaxIterations)
	assert.Equal(t, 200, cfg.Limits.FallbackCap)
	assert.Equal(t, 5, cfg.Limits.PhaseRetries)
	assert.Equal(t, 20, cfg.Limits.CommitWindow)
	assert.Equal(t, 4, cfg.Limits.NoProgressThreshold)
	assert.Equal(t, "/tmp/drover-state", cfg.StateDir)
}

func TestLoadConfig_PartialFile(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	droverDir := filepath.Join(tmpDir, ".drover")
	require.NoError(t, os.MkdirAll(droverDir, 0o755))

	// Only set fallback_cap, rest should keep defaults
	configContent := `limits:
  fallback_cap: 25
`
	require.NoError(t, os.WriteFile(filepath.Join(droverDir, "config.yaml"), []byte(configContent), 0o644))

	cfg, err := LoadConfig(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Limits.FallbackCap)
	assert.Equal(t, DefaultMaxIterations, cfg.Limits.MaxIterations)
	assert.Equal(t, DefaultPhaseRetries, cfg.Limits.PhaseRetries)
	assert.Equal(t, DefaultAgentCommand, cfg.Agent.Command)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	droverDir := filepath.Join(tmpDir, ".drover")
	require.NoError(t, os.MkdirAll(droverDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(droverDir, "config.yaml"), []byte(`limits: [`), 0o644))

	_, err := LoadConfig(tmpDir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name: "empty agent command",
			content: `agent:
  command: ""
`,
			field: "agent.command",
		},
		{
			name: "negative max_turns",
			content: `agent:
  max_turns: -1
`,
			field: "agent.max_turns",
		},
		{
			name: "zero max_iterations",
			content: `limits:
  max_iterations: 0
`,
			field: "limits.max_iterations",
		},
		{
			name: "zero fallback_cap",
			content: `limits:
  fallback_cap: 0
`,
			field: "limits.fallback_cap",
		},
		{
			name: "negative phase_retries",
			content: `limits:
  phase_retries: -3
`,
			field: "limits.phase_retries",
		},
		{
			name: "zero commit_window",
			content: `limits:
  commit_window: 0
`,
			field: "limits.commit_window",
		},
		{
			name: "zero no_progress_threshold",
			content: `limits:
  no_progress_threshold: 0
`,
			field: "limits.no_progress_threshold",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpDir := t.TempDir()
			droverDir := filepath.Join(tmpDir, ".drover")
			require.NoError(t, os.MkdirAll(droverDir, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(droverDir, "config.yaml"), []byte(tt.content), 0o644))

			_, err := LoadConfig(tmpDir)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Limits.MaxIterations = 12
	cfg.Agent.MaxTurns = 80
	require.NoError(t, SaveConfig(tmpDir, &cfg))

	loaded, err := LoadConfig(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Limits.MaxIterations)
	assert.Equal(t, 80, loaded.Agent.MaxTurns)
	assert.Equal(t, cfg.Limits.FallbackCap, loaded.Limits.FallbackCap)
}

func TestResolveStateDir_Precedence(t *testing.T) {
	cfg := DefaultConfig()

	// Default: .drover/state under the base path.
	assert.Equal(t, filepath.Join("/proj", ".drover", "state"), cfg.ResolveStateDir("/proj"))

	// Config file value wins over the default.
	cfg.StateDir = "/var/lib/drover"
	assert.Equal(t, "/var/lib/drover", cfg.ResolveStateDir("/proj"))

	// Environment variable wins over everything.
	t.Setenv(StateDirEnv, "/tmp/override")
	assert.Equal(t, "/tmp/override", cfg.ResolveStateDir("/proj"))
}

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	ve := ValidationError{Field: "test.field", Message: "must be valid"}
	assert.Equal(t, "validation error: test.field: must be valid", ve.Error())
}

func TestIsValidationError(t *testing.T) {
	t.Parallel()

	ve := ValidationError{Field: "test", Message: "test"}
	assert.True(t, IsValidationError(ve))
	assert.False(t, IsValidationError(os.ErrNotExist))
}
