// Package events appends loop lifecycle events to a per-session JSONL
// file. The log is diagnostic and append-only; writers treat failures
// as non-fatal so a full disk never blocks a loop decision.
package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// SchemaVersion is stamped on every event so later readers can tell
// what shape they are looking at.
const SchemaVersion = 1

// Event is one JSONL line.
type Event struct {
	SchemaVersion int            `json:"schema_version"`
	Timestamp     string         `json:"timestamp"`
	Session       string         `json:"session,omitempty"`
	RunID         string         `json:"run_id,omitempty"`
	Event         string         `json:"event"`
	Data          map[string]any `json:"data,omitempty"`
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SessionPath returns the events file path for a session under dir.
func SessionPath(dir, session string) string {
	name := unsafeChars.ReplaceAllString(session, "-") + ".events.jsonl"
	return filepath.Join(dir, name)
}

// Log appends to one events file.
type Log struct {
	Path string

	// Now is the clock for timestamps, overridable in tests.
	Now func() time.Time
}

// New returns a log writing to path.
func New(path string) *Log {
	return &Log{Path: path, Now: time.Now}
}

// Append writes one event, filling in the schema version and timestamp.
func (l *Log) Append(ev Event) error {
	ev.SchemaVersion = SchemaVersion
	if ev.Timestamp == "" {
		ev.Timestamp = l.Now().UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return fmt.Errorf("creating events dir: %w", err)
	}
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening events log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Read returns every parseable event in the log. Broken lines are
// skipped; a partially appended tail must not hide the history.
func (l *Log) Read() ([]Event, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening events log: %w", err)
	}
	defer f.Close()

	var out []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
