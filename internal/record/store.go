package record

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/thruflo/drover/internal/logging"
)

// ErrNotFound means no record exists for the session and category.
var ErrNotFound = errors.New("no state record")

var unsafeSessionChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeSession maps a session id onto a safe file name stem.
func sanitizeSession(id string) string {
	return unsafeSessionChars.ReplaceAllString(id, "-")
}

// Store persists records under a single state directory, one file per
// session and category.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on
// first save, not here, so read-only callers never touch the disk.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the state directory the store writes under.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the state file path for a session and category.
func (s *Store) Path(session string, cat Category) string {
	name := fmt.Sprintf("%s.%s.state", sanitizeSession(session), cat)
	return filepath.Join(s.dir, name)
}

// Load reads the record for a session and category. It returns
// ErrNotFound when no file exists and a CorruptError when the file
// cannot be parsed.
func (s *Store) Load(session string, cat Category) (*Record, error) {
	path := s.Path(session, cat)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading state record: %w", err)
	}
	rec, err := Parse(data)
	if err != nil {
		var ce *CorruptError
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return nil, err
	}
	return rec, nil
}

// Save writes the record atomically. The content lands in a temp file in
// the same directory first and is renamed into place, so a crash mid
// write never leaves a half-written record behind.
func (s *Store) Save(rec *Record) error {
	if !validCategory(rec.Category) {
		return fmt.Errorf("saving state record: unknown category %q", rec.Category)
	}
	if rec.Session == "" {
		return fmt.Errorf("saving state record: missing session")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	path := s.Path(rec.Session, rec.Category)
	tmp, err := os.CreateTemp(s.dir, ".state-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(rec.Marshal()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing state record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing state record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing state record: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming state record: %w", err)
	}
	return nil
}

// Update applies fn to a freshly loaded record and saves the result.
// Callers that already hold the record mutate it and Save directly;
// this is the path for one-off field changes from outside the loop.
func (s *Store) Update(session string, cat Category, fn func(*Record) error) error {
	rec, err := s.Load(session, cat)
	if err != nil {
		return err
	}
	if err := fn(rec); err != nil {
		return err
	}
	return s.Save(rec)
}

// Delete removes the record for a session and category. A missing file
// is fine; deletion is how loops are cancelled and completed, and both
// paths may race a manual cleanup.
func (s *Store) Delete(session string, cat Category) error {
	err := os.Remove(s.Path(session, cat))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting state record: %w", err)
	}
	return nil
}

// List returns every parseable record in the state directory, sorted by
// session then category. Corrupt files are skipped with a warning so one
// bad record never hides the rest.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state dir: %w", err)
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".state") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logging.Warn("skipping unreadable state file", "path", path, "error", err)
			continue
		}
		rec, err := Parse(data)
		if err != nil {
			logging.Warn("skipping corrupt state file", "path", path, "error", err)
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Session != records[j].Session {
			return records[i].Session < records[j].Session
		}
		return records[i].Category < records[j].Category
	})
	return records, nil
}
