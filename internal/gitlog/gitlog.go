// Package gitlog reads recent commit history so the evaluator can
// cross-check claimed completions against real commits. It only ever
// reads; commits are the agent's job.
package gitlog

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// DefaultWindow is how many recent commit subjects are scanned when the
// caller does not say otherwise.
const DefaultWindow = 10

// Log reads history from one working directory.
type Log struct {
	Dir    string
	Window int
}

// New returns a Log for dir. A window of 0 or less falls back to
// DefaultWindow.
func New(dir string, window int) *Log {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Log{Dir: dir, Window: window}
}

func (g *Log) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimSpace(string(out)), nil
}

// RecentSubjects returns up to Window commit subjects, newest first.
func (g *Log) RecentSubjects(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "log", "-n", strconv.Itoa(g.Window), "--format=%s")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// Head returns the current HEAD commit hash.
func (g *Log) Head(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "HEAD")
}

// CountSince returns how many commits were made after ref.
func (g *Log) CountSince(ctx context.Context, ref string) (int, error) {
	out, err := g.run(ctx, "rev-list", "--count", ref+"..HEAD")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("git rev-list: unexpected output %q", out)
	}
	return n, nil
}

// MatchesItem reports whether a commit subject references the item id
// as a standalone number. Word-boundary matching keeps id 1 from
// matching inside "#10" or "story 12".
func MatchesItem(subject string, id int) bool {
	re := regexp.MustCompile(`\b` + strconv.Itoa(id) + `\b`)
	return re.MatchString(subject)
}

// FindItemRef scans the recent window for a subject referencing the
// item id and returns the first (newest) match.
func (g *Log) FindItemRef(ctx context.Context, id int) (string, bool, error) {
	subjects, err := g.RecentSubjects(ctx)
	if err != nil {
		return "", false, err
	}
	for _, subject := range subjects {
		if MatchesItem(subject, id) {
			return subject, true, nil
		}
	}
	return "", false, nil
}
