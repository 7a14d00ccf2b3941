// Package record defines the persistent loop state document.
//
// A record is a plain text file in two parts. A flat key: value header
// carries the machine-updated loop counters, then a line holding only
// --- separates it from a free-form instruction body that is re-issued
// to the agent verbatim on every continuation. The file stays trivially
// inspectable and hand-editable between iterations.
package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Category identifies which loop variant owns a record. The value is
// also the on-disk token in the header and the state file name.
type Category string

const (
	CategoryGeneric Category = "generic"
	CategoryTasks   Category = "tasks"
	CategoryPhased  Category = "phased"
)

// Categories lists all known categories in dispatch precedence order.
// A session with several live records is driven by the first match.
func Categories() []Category {
	return []Category{CategoryPhased, CategoryTasks, CategoryGeneric}
}

func validCategory(c Category) bool {
	switch c {
	case CategoryGeneric, CategoryTasks, CategoryPhased:
		return true
	}
	return false
}

// GateStatus tracks the review gate state for phased records.
type GateStatus string

const (
	GatePending GateStatus = "pending"
	GateProceed GateStatus = "proceed"
	GateBlocked GateStatus = "blocked"
)

// maxLastErrorLen caps the stored diagnostic so the header stays a
// header and never swallows a stack trace.
const maxLastErrorLen = 200

// Record is one active loop for one session.
type Record struct {
	Session       string
	Category      Category
	Iteration     int
	MaxIterations int
	OnceMode      bool

	// Generic loops.
	CompletionPromise string

	// Task list loops.
	TaskListPath  string
	CurrentItemID int
	TotalItems    int

	// Phased loops.
	Feature      string
	CurrentPhase string
	GateStatus   GateStatus
	RetryCount   int
	ReviewCount  int
	LastError    string

	// InstructionBody is re-issued verbatim as the continuation prompt.
	InstructionBody string
}

// CorruptError reports a state file whose shape cannot be trusted.
type CorruptError struct {
	Path   string
	Reason string
}

func (e *CorruptError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("corrupt state record: %s", e.Reason)
	}
	return fmt.Sprintf("corrupt state record %s: %s", e.Path, e.Reason)
}

// IsCorrupt reports whether err is a CorruptError.
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}

// SetLastError stores a single-line, length-capped diagnostic.
func (r *Record) SetLastError(msg string) {
	msg = strings.ReplaceAll(msg, "\n", " ")
	msg = strings.TrimSpace(msg)
	if len(msg) > maxLastErrorLen {
		msg = msg[:maxLastErrorLen]
	}
	r.LastError = msg
}

// Marshal renders the record in its two-part on-disk form.
func (r *Record) Marshal() []byte {
	var sb strings.Builder
	writeKV := func(key, value string) {
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	writeKV("category", string(r.Category))
	writeKV("session", r.Session)
	writeKV("iteration", strconv.Itoa(r.Iteration))
	writeKV("max_iterations", strconv.Itoa(r.MaxIterations))
	if r.OnceMode {
		writeKV("once", "true")
	}
	if r.CompletionPromise != "" {
		writeKV("promise", r.CompletionPromise)
	}
	if r.TaskListPath != "" {
		writeKV("tasklist", r.TaskListPath)
	}
	if r.CurrentItemID > 0 {
		writeKV("current_item", strconv.Itoa(r.CurrentItemID))
	}
	if r.TotalItems > 0 {
		writeKV("total_items", strconv.Itoa(r.TotalItems))
	}
	if r.Feature != "" {
		writeKV("feature", r.Feature)
	}
	if r.CurrentPhase != "" {
		writeKV("phase", r.CurrentPhase)
	}
	if r.GateStatus != "" {
		writeKV("gate", string(r.GateStatus))
	}
	if r.RetryCount > 0 {
		writeKV("retries", strconv.Itoa(r.RetryCount))
	}
	if r.ReviewCount > 0 {
		writeKV("reviews", strconv.Itoa(r.ReviewCount))
	}
	if r.LastError != "" {
		writeKV("last_error", r.LastError)
	}
	sb.WriteString("---\n")
	sb.WriteString(r.InstructionBody)
	return []byte(sb.String())
}

// Parse reads the two-part form back into a Record. Unknown header keys
// are tolerated for forward compatibility; a missing delimiter, an
// unrecognized category, or a non-numeric counter is corruption.
func Parse(data []byte) (*Record, error) {
	lines := strings.Split(string(data), "\n")
	delim := -1
	for i, line := range lines {
		if strings.TrimRight(line, "\r") == "---" {
			delim = i
			break
		}
	}
	if delim == -1 {
		return nil, &CorruptError{Reason: "missing --- delimiter"}
	}

	rec := &Record{
		InstructionBody: strings.Join(lines[delim+1:], "\n"),
	}
	for _, line := range lines[:delim] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &CorruptError{Reason: fmt.Sprintf("malformed header line %q", line)}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "category":
			rec.Category = Category(value)
		case "session":
			rec.Session = value
		case "iteration":
			rec.Iteration, err = parseCount(key, value)
		case "max_iterations":
			rec.MaxIterations, err = parseCount(key, value)
		case "once":
			rec.OnceMode, err = strconv.ParseBool(value)
			if err != nil {
				err = &CorruptError{Reason: fmt.Sprintf("non-boolean once value %q", value)}
			}
		case "promise":
			rec.CompletionPromise = value
		case "tasklist":
			rec.TaskListPath = value
		case "current_item":
			rec.CurrentItemID, err = parseCount(key, value)
		case "total_items":
			rec.TotalItems, err = parseCount(key, value)
		case "feature":
			rec.Feature = value
		case "phase":
			rec.CurrentPhase = value
		case "gate":
			rec.GateStatus = GateStatus(value)
		case "retries":
			rec.RetryCount, err = parseCount(key, value)
		case "reviews":
			rec.ReviewCount, err = parseCount(key, value)
		case "last_error":
			rec.LastError = value
		}
		if err != nil {
			return nil, err
		}
	}

	if rec.Category == "" {
		return nil, &CorruptError{Reason: "missing category"}
	}
	if !validCategory(rec.Category) {
		return nil, &CorruptError{Reason: fmt.Sprintf("unknown category %q", rec.Category)}
	}
	if rec.Session == "" {
		return nil, &CorruptError{Reason: "missing session"}
	}
	if rec.Category == CategoryPhased && rec.GateStatus == "" {
		rec.GateStatus = GatePending
	}
	return rec, nil
}

func parseCount(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &CorruptError{Reason: fmt.Sprintf("non-numeric %s value %q", key, value)}
	}
	if n < 0 {
		return 0, &CorruptError{Reason: fmt.Sprintf("negative %s value %d", key, n)}
	}
	return n, nil
}
