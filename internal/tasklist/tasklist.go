// Package tasklist stores the durable ordered collection of work items
// a loop executes against.
//
// The list file is the single source of truth for what is done. The
// loop state record only caches a pointer into it, so everything here
// must be re-derivable from the file alone after a crash.
package tasklist

import (
	"fmt"
	"strings"
)

// Item categories. Kept closed so downstream tooling can group by them.
const (
	CategoryFunctional  = "functional"
	CategoryUI          = "ui"
	CategoryIntegration = "integration"
	CategoryEdgeCase    = "edge-case"
	CategoryPerformance = "performance"
)

var validCategories = map[string]bool{
	CategoryFunctional:  true,
	CategoryUI:          true,
	CategoryIntegration: true,
	CategoryEdgeCase:    true,
	CategoryPerformance: true,
}

// EventStoryComplete is the log event recorded when an item is verified
// complete.
const EventStoryComplete = "story_complete"

// Item is one discrete story of work.
type Item struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Skills      []string `json:"skills,omitempty"`
	DependsOn   []int    `json:"depends_on,omitempty"`
	Steps       []string `json:"steps"`
	Passes      bool     `json:"passes"`
	Priority    int      `json:"priority"`
	CompletedAt string   `json:"completed_at,omitempty"`
	Commit      string   `json:"commit,omitempty"`
}

// LogEvent is one entry in the append-only diagnostic log.
type LogEvent struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	ItemID    int    `json:"item_id,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// List is the whole task list document.
type List struct {
	Title     string     `json:"title"`
	SpecPath  string     `json:"spec_path,omitempty"`
	CreatedAt string     `json:"created_at,omitempty"`
	Items     []Item     `json:"items"`
	Log       []LogEvent `json:"log"`
}

// NextPending returns the lowest-priority item that has not passed yet,
// breaking priority ties by ascending id. Nil means every item passed.
func (l *List) NextPending() *Item {
	var best *Item
	for i := range l.Items {
		it := &l.Items[i]
		if it.Passes {
			continue
		}
		if best == nil || it.Priority < best.Priority ||
			(it.Priority == best.Priority && it.ID < best.ID) {
			best = it
		}
	}
	return best
}

// ItemByID returns the item with the given id, or nil.
func (l *List) ItemByID(id int) *Item {
	for i := range l.Items {
		if l.Items[i].ID == id {
			return &l.Items[i]
		}
	}
	return nil
}

// CountPassing returns how many items have passed.
func (l *List) CountPassing() int {
	n := 0
	for i := range l.Items {
		if l.Items[i].Passes {
			n++
		}
	}
	return n
}

// FormatError collects everything wrong with a task list file so the
// operator can fix it in one pass instead of replaying errors one at a
// time.
type FormatError struct {
	Path     string
	Problems []string
}

func (e *FormatError) Error() string {
	where := "task list"
	if e.Path != "" {
		where = fmt.Sprintf("task list %s", e.Path)
	}
	return fmt.Sprintf("%s is not usable: %s", where, strings.Join(e.Problems, "; "))
}

// Validate checks the document shape. Duplicate priorities are legal
// (NextPending breaks the tie by id); everything else the loop relies on
// is enforced here.
func (l *List) Validate() error {
	var problems []string
	if strings.TrimSpace(l.Title) == "" {
		problems = append(problems, "missing title")
	}
	if len(l.Items) == 0 {
		problems = append(problems, "items is empty; a task list needs at least one story")
	}

	ids := make(map[int]bool, len(l.Items))
	for i, it := range l.Items {
		if it.ID <= 0 {
			problems = append(problems, fmt.Sprintf("items[%d]: id must be a positive integer", i))
			continue
		}
		if ids[it.ID] {
			problems = append(problems, fmt.Sprintf("items[%d]: duplicate id %d", i, it.ID))
		}
		ids[it.ID] = true
	}

	for i, it := range l.Items {
		ref := fmt.Sprintf("items[%d]", i)
		if it.ID > 0 {
			ref = fmt.Sprintf("item %d", it.ID)
		}
		if strings.TrimSpace(it.Title) == "" {
			problems = append(problems, fmt.Sprintf("%s: missing title", ref))
		}
		if !validCategories[it.Category] {
			problems = append(problems, fmt.Sprintf(
				"%s: unknown category %q (want functional, ui, integration, edge-case or performance)",
				ref, it.Category))
		}
		if len(it.Steps) == 0 {
			problems = append(problems, fmt.Sprintf("%s: no steps", ref))
		}
		if it.Priority <= 0 {
			problems = append(problems, fmt.Sprintf("%s: priority must be a positive integer", ref))
		}
		for _, dep := range it.DependsOn {
			if dep == it.ID {
				problems = append(problems, fmt.Sprintf("%s: depends on itself", ref))
			} else if !ids[dep] {
				problems = append(problems, fmt.Sprintf("%s: depends on unknown item %d", ref, dep))
			}
		}
	}

	if len(problems) > 0 {
		return &FormatError{Problems: problems}
	}
	return nil
}
