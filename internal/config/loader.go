package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values for Config.
const (
	DefaultAgentCommand        = "claude"
	DefaultMaxIterations       = 50
	DefaultFallbackCap         = 100
	DefaultPhaseRetries        = 3
	DefaultCommitWindow        = 10
	DefaultNoProgressThreshold = 3
)

// StateDirEnv names the environment variable that overrides the state
// directory. It takes precedence over the config file.
const StateDirEnv = "DROVER_STATE_DIR"

// DefaultAgent returns agent settings with sensible default values.
func DefaultAgent() Agent {
	return Agent{
		Command: DefaultAgentCommand,
	}
}

// DefaultLimits returns limits with sensible default values.
func DefaultLimits() Limits {
	return Limits{
		MaxIterations:       DefaultMaxIterations,
		FallbackCap:         DefaultFallbackCap,
		PhaseRetries:        DefaultPhaseRetries,
		CommitWindow:        DefaultCommitWindow,
		NoProgressThreshold: DefaultNoProgressThreshold,
	}
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Agent:  DefaultAgent(),
		Limits: DefaultLimits(),
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// LoadConfig reads and parses .drover/config.yaml from the given base path.
// If the file doesn't exist, returns default config.
// Applies defaults for any missing fields.
func LoadConfig(basePath string) (*Config, error) {
	configPath := filepath.Join(basePath, ".drover", "config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SaveConfig writes config.yaml under .drover in the given base path.
func SaveConfig(basePath string, cfg *Config) error {
	droverDir := filepath.Join(basePath, ".drover")
	if err := os.MkdirAll(droverDir, 0o755); err != nil {
		return fmt.Errorf("failed to create .drover directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(droverDir, "config.yaml"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ValidateConfig checks that all config values are valid.
func ValidateConfig(cfg *Config) error {
	if cfg.Agent.Command == "" {
		return ValidationError{Field: "agent.command", Message: "required field is empty"}
	}
	if cfg.Agent.MaxTurns < 0 {
		return ValidationError{Field: "agent.max_turns", Message: "must not be negative"}
	}
	if cfg.Limits.MaxIterations <= 0 {
		return ValidationError{Field: "limits.max_iterations", Message: "must be positive"}
	}
	if cfg.Limits.FallbackCap <= 0 {
		return ValidationError{Field: "limits.fallback_cap", Message: "must be positive"}
	}
	if cfg.Limits.PhaseRetries <= 0 {
		return ValidationError{Field: "limits.phase_retries", Message: "must be positive"}
	}
	if cfg.Limits.CommitWindow <= 0 {
		return ValidationError{Field: "limits.commit_window", Message: "must be positive"}
	}
	if cfg.Limits.NoProgressThreshold <= 0 {
		return ValidationError{Field: "limits.no_progress_threshold", Message: "must be positive"}
	}
	return nil
}

// ResolveStateDir returns the directory holding loop records for a project.
// Precedence: DROVER_STATE_DIR environment variable, then the config file's
// state_dir, then .drover/state under the base path.
func (c *Config) ResolveStateDir(basePath string) string {
	if dir := os.Getenv(StateDirEnv); dir != "" {
		return dir
	}
	if c.StateDir != "" {
		return c.StateDir
	}
	return filepath.Join(basePath, ".drover", "state")
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
