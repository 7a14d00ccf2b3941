package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// History is one iteration snapshot in a run's history file.
type History struct {
	Iteration int    `json:"iteration"`
	Story     int    `json:"story"`
	Summary   string `json:"summary"`
	Passing   int    `json:"passing"`
	Status    string `json:"status"`
}

// Status values for History entries.
const (
	HistoryPassed  = "passed"
	HistoryPending = "pending"
)

// HistoryPath returns the history file path for a run under dir.
func HistoryPath(dir, runID string) string {
	return filepath.Join(dir, "run-"+runID+".history.json")
}

// RunHistory stores per-iteration snapshots for one polling run as a
// JSON array, rewritten whole on every append. Like the event log it
// is diagnostic; callers treat write failures as non-fatal.
type RunHistory struct {
	Path string
}

// NewRunHistory returns a history store writing to path.
func NewRunHistory(path string) *RunHistory {
	return &RunHistory{Path: path}
}

// Load reads the history file. A missing file is an empty history.
func (h *RunHistory) Load() ([]History, error) {
	data, err := os.ReadFile(h.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading run history: %w", err)
	}

	var history []History
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("parsing run history: %w", err)
	}
	return history, nil
}

// Save writes the full history array.
func (h *RunHistory) Save(history []History) error {
	if err := os.MkdirAll(filepath.Dir(h.Path), 0o755); err != nil {
		return fmt.Errorf("creating run history dir: %w", err)
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run history: %w", err)
	}
	if err := os.WriteFile(h.Path, data, 0o644); err != nil {
		return fmt.Errorf("writing run history: %w", err)
	}
	return nil
}

// Append adds one entry to the history file.
func (h *RunHistory) Append(entry History) error {
	history, err := h.Load()
	if err != nil {
		return err
	}
	return h.Save(append(history, entry))
}
