package tasklist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store reads and writes one task list file. All mutations go through
// Update, which re-reads, applies, and atomically rewrites the whole
// document, so a crash never leaves a half-written list. There is no
// locking: two drivers writing the same list can lose updates, so only
// one loop at a time may work a given list.
type Store struct {
	Path string

	// Now is the clock for timestamps, overridable in tests.
	Now func() time.Time
}

// NewStore creates a store for the list at path.
func NewStore(path string) *Store {
	return &Store{Path: path, Now: time.Now}
}

// Load reads and validates the list. A missing file gets a remediation
// hint rather than a bare ENOENT, since the most common cause is a loop
// armed with the wrong path.
func (s *Store) Load() (*List, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf(
				"task list %s does not exist; create one with `drover init` or re-arm the loop with the right --tasklist path",
				s.Path)
		}
		return nil, fmt.Errorf("reading task list: %w", err)
	}

	var l List
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, &FormatError{Path: s.Path, Problems: []string{fmt.Sprintf("invalid JSON: %v", err)}}
	}
	if err := l.Validate(); err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Path = s.Path
		}
		return nil, err
	}
	return &l, nil
}

// Save writes the list atomically via a sibling temp file and rename.
func (s *Store) Save(l *List) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding task list: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating task list dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tasklist-*")
	if err != nil {
		return fmt.Errorf("creating temp task list: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing task list: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing task list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing task list: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("renaming task list: %w", err)
	}
	return nil
}

// Update applies fn to a freshly loaded list and saves the result.
func (s *Store) Update(fn func(*List) error) error {
	l, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		return err
	}
	return s.Save(l)
}

// MarkPassing records an item as verified complete. It sets the passing
// flag, completion time, and commit reference, and appends one
// story_complete log entry, all in a single atomic write.
func (s *Store) MarkPassing(id int, commit string) error {
	return s.Update(func(l *List) error {
		item := l.ItemByID(id)
		if item == nil {
			return fmt.Errorf("marking item %d passing: no such item", id)
		}
		now := s.Now().UTC().Format(time.RFC3339)
		item.Passes = true
		item.CompletedAt = now
		item.Commit = commit
		l.Log = append(l.Log, LogEvent{
			Timestamp: now,
			Event:     EventStoryComplete,
			ItemID:    id,
			Notes:     item.Title,
		})
		return nil
	})
}

// AppendLog appends a diagnostic event, filling in the timestamp when
// the caller left it empty. Duplicate entries are harmless; the log is
// diagnostic, not transactional.
func (s *Store) AppendLog(ev LogEvent) error {
	return s.Update(func(l *List) error {
		if ev.Timestamp == "" {
			ev.Timestamp = s.Now().UTC().Format(time.RFC3339)
		}
		l.Log = append(l.Log, ev)
		return nil
	})
}

// Prompt renders a self-contained working prompt for one item. Every
// iteration starts the agent from an empty context, so the prompt
// restates the story, its steps, and the completion protocol in full.
func (s *Store) Prompt(l *List, item *Item) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are working through the task list %q (%s).\n", l.Title, s.Path)
	if l.SpecPath != "" {
		fmt.Fprintf(&sb, "The source specification is at %s; consult it for acceptance criteria.\n", l.SpecPath)
	}
	fmt.Fprintf(&sb, "\nCurrent story: #%d %s (category: %s)\n", item.ID, item.Title, item.Category)
	if len(item.Skills) > 0 {
		fmt.Fprintf(&sb, "Relevant skills: %s\n", strings.Join(item.Skills, ", "))
	}
	if len(item.DependsOn) > 0 {
		deps := make([]string, 0, len(item.DependsOn))
		for _, d := range item.DependsOn {
			deps = append(deps, fmt.Sprintf("#%d", d))
		}
		fmt.Fprintf(&sb, "This story builds on completed stories %s.\n", strings.Join(deps, ", "))
	}
	sb.WriteString("\nSteps:\n")
	for i, step := range item.Steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}
	fmt.Fprintf(&sb, `
When every step is done and verified:
1. Edit %s and set "passes": true on the item with id %d.
2. Commit your work with a message that references the story id, e.g. "feat: story #%d - %s".
3. End your reply with <story_complete id="%d"/>.

Work on this story only. Do not start other stories.
`, s.Path, item.ID, item.ID, item.Title, item.ID)
	return sb.String()
}
