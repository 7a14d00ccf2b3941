package config

// Agent defines how the polling driver invokes the coding agent CLI.
type Agent struct {
	Command  string   `yaml:"command"`
	Args     []string `yaml:"args,omitempty"`
	MaxTurns int      `yaml:"max_turns"`
}

// Limits defines safety boundaries for iteration loops.
type Limits struct {
	// MaxIterations is the default ceiling for loops armed without an
	// explicit limit flag.
	MaxIterations int `yaml:"max_iterations"`
	// FallbackCap bounds loops whose record carries no explicit limit.
	FallbackCap int `yaml:"fallback_cap"`
	// PhaseRetries is how many failed marker checks a phase tolerates
	// before the loop switches to a recovery prompt.
	PhaseRetries int `yaml:"phase_retries"`
	// CommitWindow is how many recent commit subjects are searched when
	// cross-checking an item completion.
	CommitWindow int `yaml:"commit_window"`
	// NoProgressThreshold is how many polling-driver iterations may pass
	// without a new passing story before the run stops as stuck.
	NoProgressThreshold int `yaml:"no_progress_threshold"`
}

// Config represents the .drover/config.yaml file.
type Config struct {
	Agent  Agent  `yaml:"agent"`
	Limits Limits `yaml:"limits"`
	// StateDir overrides where loop records are kept. Empty means
	// .drover/state under the project root.
	StateDir string `yaml:"state_dir,omitempty"`
}
