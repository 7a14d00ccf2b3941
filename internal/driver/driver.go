// Package driver implements the polling loop. Instead of waiting for
// the host to report exit attempts, it owns the whole cycle: pick the
// next pending story, spawn one agent run with a self-contained prompt,
// reconcile the task list, and repeat until done, stalled, or capped.
package driver

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/thruflo/drover/internal/agent"
	"github.com/thruflo/drover/internal/config"
	"github.com/thruflo/drover/internal/events"
	"github.com/thruflo/drover/internal/gitlog"
	"github.com/thruflo/drover/internal/logging"
	"github.com/thruflo/drover/internal/marker"
	"github.com/thruflo/drover/internal/stream"
	"github.com/thruflo/drover/internal/tasklist"
)

// ExitReason says why a run ended.
type ExitReason int

const (
	ReasonUnknown ExitReason = iota
	ReasonDone
	ReasonMaxIterations
	ReasonStalled
	ReasonOnce
	ReasonInterrupted
	ReasonAgentError
	ReasonTasksUnavailable
)

func (r ExitReason) String() string {
	switch r {
	case ReasonDone:
		return "all stories passing"
	case ReasonMaxIterations:
		return "iteration ceiling reached"
	case ReasonStalled:
		return "stuck"
	case ReasonOnce:
		return "single iteration mode"
	case ReasonInterrupted:
		return "interrupted"
	case ReasonAgentError:
		return "agent error"
	case ReasonTasksUnavailable:
		return "task list unavailable"
	default:
		return "unknown"
	}
}

// Options configures one run.
type Options struct {
	WorkDir       string
	TaskListPath  string
	MaxIterations int
	Once          bool

	// NoProgressThreshold stops the run once this many consecutive
	// iterations end without a new passing story. Zero disables the
	// check.
	NoProgressThreshold int

	Runner  agent.Runner
	Git     *gitlog.Log
	Events  *events.Log
	History *RunHistory
	Out     io.Writer
	RunID   string
	Now     func() time.Time
}

// Result summarizes one run.
type Result struct {
	Reason     ExitReason
	Iterations int
	Commits    int
	Elapsed    time.Duration
	Err        error
}

// Summary renders the one-line run report.
func (r Result) Summary() string {
	return fmt.Sprintf("%s after %d iterations in %s (%d commits)",
		r.Reason, r.Iterations, r.Elapsed.Round(time.Second), r.Commits)
}

// Run executes the polling loop until the list completes, a ceiling is
// hit, the agent fails, or the context is cancelled.
func Run(ctx context.Context, opts Options) Result {
	if opts.Runner == nil {
		opts.Runner = &agent.ExecRunner{}
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Git == nil {
		opts.Git = gitlog.New(opts.WorkDir, 0)
	}
	limit := opts.MaxIterations
	if limit <= 0 {
		limit = config.DefaultFallbackCap
	}

	path := opts.TaskListPath
	if path != "" && !filepath.IsAbs(path) && opts.WorkDir != "" {
		path = filepath.Join(opts.WorkDir, path)
	}
	tasks := tasklist.NewStore(path)

	emit := func(name string, data map[string]any) {
		if opts.Events == nil {
			return
		}
		if err := opts.Events.Append(events.Event{RunID: opts.RunID, Event: name, Data: data}); err != nil {
			logging.Warn("could not append run event", "error", err)
		}
	}

	start := opts.Now()
	head, err := opts.Git.Head(ctx)
	if err != nil {
		// No baseline means no commit count; a fresh or absent repo
		// must not stop the run.
		head = ""
	}

	emit("run_started", map[string]any{"tasklist": tasks.Path, "max_iterations": limit})

	res := Result{Reason: ReasonUnknown}
	var passingHistory []int
loop:
	for iteration := 1; ; iteration++ {
		select {
		case <-ctx.Done():
			res.Reason = ReasonInterrupted
			break loop
		default:
		}

		if iteration > limit {
			res.Reason = ReasonMaxIterations
			break
		}

		list, err := tasks.Load()
		if err != nil {
			res.Reason, res.Err = ReasonTasksUnavailable, err
			break
		}
		item := list.NextPending()
		if item == nil {
			res.Reason = ReasonDone
			break
		}

		fmt.Fprintf(opts.Out, "iteration %d: story #%d %s\n", iteration, item.ID, item.Title)
		emit("iteration", map[string]any{"iteration": iteration, "item": item.ID})

		var col stream.Collector
		runErr := opts.Runner.Run(ctx, opts.WorkDir, tasks.Prompt(list, item), col.Feed)
		res.Iterations = iteration

		if ctx.Err() != nil {
			res.Reason = ReasonInterrupted
			break
		}
		if runErr != nil {
			res.Reason, res.Err = ReasonAgentError, runErr
			break
		}
		if col.Errored() {
			// The agent exited cleanly but flagged its result as an
			// error. The next iteration retries; the ceiling bounds it.
			logging.Warn("agent reported an error result",
				"iteration", iteration, "item", item.ID, "result", col.FinalText())
		}

		passed, msg := settle(ctx, tasks, opts.Git, item.ID, col.FinalText())
		fmt.Fprintf(opts.Out, "  %s\n", msg)
		emit("iteration_finished", map[string]any{
			"iteration": iteration,
			"item":      item.ID,
			"passed":    passed,
			"events":    col.Events(),
		})

		if after, err := tasks.Load(); err == nil {
			passingHistory = append(passingHistory, after.CountPassing())
			status := HistoryPending
			if passed {
				status = HistoryPassed
			}
			appendHistory(opts.History, History{
				Iteration: iteration,
				Story:     item.ID,
				Summary:   msg,
				Passing:   after.CountPassing(),
				Status:    status,
			})
		}

		if opts.Once {
			res.Reason = ReasonOnce
			break
		}
		if Stalled(passingHistory, opts.NoProgressThreshold) {
			res.Reason = ReasonStalled
			break
		}
	}

	// The summary counts commits even after an interrupt, so this read
	// deliberately ignores the cancelled context.
	if head != "" {
		if n, err := opts.Git.CountSince(context.Background(), head); err == nil {
			res.Commits = n
		}
	}
	res.Elapsed = opts.Now().Sub(start)
	emit("run_finished", map[string]any{
		"reason":     res.Reason.String(),
		"iterations": res.Iterations,
		"commits":    res.Commits,
	})
	return res
}

func appendHistory(h *RunHistory, entry History) {
	if h == nil {
		return
	}
	if err := h.Append(entry); err != nil {
		logging.Warn("could not append run history", "error", err)
	}
}

// settle reconciles the story a run worked on. The task list file is
// the truth; when the agent only signaled completion in text, the
// commit cross-check decides whether to mark the file on its behalf.
func settle(ctx context.Context, tasks *tasklist.Store, git *gitlog.Log, itemID int, finalText string) (bool, string) {
	list, err := tasks.Load()
	if err != nil {
		return false, fmt.Sprintf("task list unreadable after run: %v", err)
	}
	item := list.ItemByID(itemID)
	if item == nil {
		return false, fmt.Sprintf("story #%d vanished from the list", itemID)
	}
	if item.Passes {
		return true, fmt.Sprintf("story #%d passing", itemID)
	}

	id, ok := marker.StoryComplete(finalText)
	if !ok || id != itemID {
		return false, fmt.Sprintf("story #%d not complete yet", itemID)
	}
	subject, found, err := git.FindItemRef(ctx, itemID)
	if err != nil {
		logging.Warn("commit history unavailable", "error", err)
	}
	if !found {
		return false, fmt.Sprintf("story #%d claimed complete but no commit references it", itemID)
	}
	if err := tasks.MarkPassing(itemID, subject); err != nil {
		return false, fmt.Sprintf("could not mark story #%d passing: %v", itemID, err)
	}
	return true, fmt.Sprintf("story #%d passing (%s)", itemID, subject)
}
