// Package evaluate decides, once per iteration, whether a loop
// continues with a new instruction or allows the session to end.
//
// All three loop categories run through one guard order: adopt a
// recommended iteration limit if the loop is unbounded, enforce the
// iteration ceiling, then apply the category check. Terminal decisions
// delete the state record; ceilings and stuck workflows preserve it
// for inspection.
package evaluate

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/thruflo/drover/internal/config"
	"github.com/thruflo/drover/internal/gitlog"
	"github.com/thruflo/drover/internal/logging"
	"github.com/thruflo/drover/internal/marker"
	"github.com/thruflo/drover/internal/phase"
	"github.com/thruflo/drover/internal/record"
	"github.com/thruflo/drover/internal/tasklist"
)

// Decision is the outcome of one evaluation. Continue false means the
// session may end.
type Decision struct {
	Continue   bool
	NextPrompt string
	StatusLine string

	// Note explains the decision for logs and event records; it is
	// never sent to the agent.
	Note string
}

// AllowExit builds a terminal decision with an explanatory note.
func AllowExit(note string) Decision {
	return Decision{Note: note}
}

// Evaluator evaluates records against transcripts, the task list, and
// recent commit history.
type Evaluator struct {
	Records *record.Store

	// WorkDir anchors relative task list paths and the git history
	// window. It is the project directory the host reported.
	WorkDir string

	Limits config.Limits
}

// New returns an evaluator for one project directory.
func New(records *record.Store, workDir string, limits config.Limits) *Evaluator {
	return &Evaluator{Records: records, WorkDir: workDir, Limits: limits}
}

func (e *Evaluator) fallbackCap() int {
	if e.Limits.FallbackCap > 0 {
		return e.Limits.FallbackCap
	}
	return config.DefaultFallbackCap
}

func (e *Evaluator) retryLimit() int {
	if e.Limits.PhaseRetries > 0 {
		return e.Limits.PhaseRetries
	}
	return config.DefaultPhaseRetries
}

func (e *Evaluator) commitWindow() int {
	if e.Limits.CommitWindow > 0 {
		return e.Limits.CommitWindow
	}
	return config.DefaultCommitWindow
}

func (e *Evaluator) resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || e.WorkDir == "" {
		return path
	}
	return filepath.Join(e.WorkDir, path)
}

// Evaluate runs one evaluation of rec against the last assistant text.
// The caller is responsible for the re-entrancy guard; everything else
// happens here.
func (e *Evaluator) Evaluate(ctx context.Context, rec *record.Record, transcript string) (Decision, error) {
	// An unbounded loop adopts the agent's recommended limit once,
	// clamped to the fallback cap.
	if rec.MaxIterations == 0 {
		if n, ok := marker.IterationLimit(transcript); ok {
			if n > e.fallbackCap() {
				n = e.fallbackCap()
			}
			rec.MaxIterations = n
			if err := e.Records.Save(rec); err != nil {
				logging.Warn("could not persist adopted iteration limit", "error", err)
			} else {
				logging.Info("adopted recommended iteration limit", "session", rec.Session, "limit", n)
			}
		}
	}

	// Iteration ceiling. The record survives so the operator can see
	// where the loop stood when it ran out.
	limit, name := rec.MaxIterations, "max iterations"
	if limit <= 0 {
		limit, name = e.fallbackCap(), "fallback cap"
	}
	if rec.Iteration >= limit {
		return AllowExit(fmt.Sprintf("%s reached (%d); state preserved for inspection", name, limit)), nil
	}

	switch rec.Category {
	case record.CategoryGeneric:
		return e.evaluateGeneric(rec, transcript)
	case record.CategoryTasks:
		return e.evaluateTasks(ctx, rec, transcript)
	case record.CategoryPhased:
		return e.evaluatePhased(rec, transcript)
	}
	// Load-time validation rejects unknown categories, so this is
	// unreachable through the store.
	return AllowExit(fmt.Sprintf("unknown loop category %q", rec.Category)), nil
}

// --- generic ---

func (e *Evaluator) evaluateGeneric(rec *record.Record, transcript string) (Decision, error) {
	if rec.CompletionPromise != "" {
		if got := marker.Promise(transcript); got == rec.CompletionPromise {
			if err := e.Records.Delete(rec.Session, rec.Category); err != nil {
				return Decision{}, err
			}
			return AllowExit(fmt.Sprintf("completion promise %q fulfilled", rec.CompletionPromise)), nil
		}
	}

	rec.Iteration++
	if err := e.Records.Save(rec); err != nil {
		return Decision{}, err
	}
	return Decision{
		Continue:   true,
		NextPrompt: rec.InstructionBody,
		StatusLine: genericStatus(rec),
	}, nil
}

func genericStatus(rec *record.Record) string {
	return "loop " + iterations(rec)
}

func iterations(rec *record.Record) string {
	if rec.MaxIterations > 0 {
		return fmt.Sprintf("iteration %d/%d", rec.Iteration, rec.MaxIterations)
	}
	return fmt.Sprintf("iteration %d", rec.Iteration)
}

// --- task list ---

func (e *Evaluator) evaluateTasks(ctx context.Context, rec *record.Record, transcript string) (Decision, error) {
	store := tasklist.NewStore(e.resolvePath(rec.TaskListPath))
	list, err := store.Load()
	if err != nil {
		// Without the list nothing can be verified. Leave the record
		// in place and surface the remediation instead of spinning.
		return AllowExit(fmt.Sprintf("task list unavailable: %v", err)), nil
	}
	rec.TotalItems = len(list.Items)

	// The record's pointer is a cache; the list is the truth. A stale
	// or unset pointer re-derives from the list.
	var item *tasklist.Item
	if rec.CurrentItemID > 0 {
		item = list.ItemByID(rec.CurrentItemID)
	}
	if item == nil {
		item = list.NextPending()
		if item == nil {
			if err := e.Records.Delete(rec.Session, rec.Category); err != nil {
				return Decision{}, err
			}
			return AllowExit(fmt.Sprintf("all %d stories passing", len(list.Items))), nil
		}
		rec.CurrentItemID = item.ID
		rec.InstructionBody = store.Prompt(list, item)
	}
	if rec.InstructionBody == "" {
		rec.InstructionBody = store.Prompt(list, item)
	}

	if !item.Passes {
		rec.Iteration++
		if err := e.Records.Save(rec); err != nil {
			return Decision{}, err
		}
		return Decision{
			Continue:   true,
			NextPrompt: rec.InstructionBody,
			StatusLine: tasksStatus(rec, list),
		}, nil
	}

	// The item claims to pass; a commit referencing its id is the
	// proof. History failures degrade to "not found" so a broken git
	// setup still just re-prompts.
	git := gitlog.New(e.WorkDir, e.commitWindow())
	subject, found, err := git.FindItemRef(ctx, item.ID)
	if err != nil {
		logging.Warn("commit history unavailable", "error", err)
	}
	if !found {
		rec.Iteration++
		rec.InstructionBody = commitMissingPrompt(store.Path, item, e.commitWindow())
		if err := e.Records.Save(rec); err != nil {
			return Decision{}, err
		}
		return Decision{
			Continue:   true,
			NextPrompt: rec.InstructionBody,
			StatusLine: tasksStatus(rec, list),
			Note:       fmt.Sprintf("story #%d passes but no commit references it", item.ID),
		}, nil
	}

	if err := store.MarkPassing(item.ID, subject); err != nil {
		return Decision{}, err
	}
	list, err = store.Load()
	if err != nil {
		return AllowExit(fmt.Sprintf("task list unavailable after update: %v", err)), nil
	}

	next := list.NextPending()
	if next == nil {
		if err := e.Records.Delete(rec.Session, rec.Category); err != nil {
			return Decision{}, err
		}
		return AllowExit(fmt.Sprintf("all %d stories complete; last commit %q", len(list.Items), subject)), nil
	}

	rec.CurrentItemID = next.ID
	rec.TotalItems = len(list.Items)
	rec.InstructionBody = store.Prompt(list, next)
	rec.Iteration++
	if err := e.Records.Save(rec); err != nil {
		return Decision{}, err
	}
	return Decision{
		Continue:   true,
		NextPrompt: rec.InstructionBody,
		StatusLine: tasksStatus(rec, list),
		Note:       fmt.Sprintf("story #%d verified complete (%s); moving to #%d", item.ID, subject, next.ID),
	}, nil
}

func commitMissingPrompt(path string, item *tasklist.Item, window int) string {
	return fmt.Sprintf(`Story #%d (%s) is marked passing in %s, but none of the last %d commit subjects reference id %d.

Commit the completed work now with a message containing the story id, e.g. "feat: story #%d - %s". Then end your reply with <story_complete id="%d"/>.
`, item.ID, item.Title, path, window, item.ID, item.ID, item.Title, item.ID)
}

func tasksStatus(rec *record.Record, list *tasklist.List) string {
	return fmt.Sprintf("story #%d (%d/%d passing), %s",
		rec.CurrentItemID, list.CountPassing(), len(list.Items), iterations(rec))
}

// --- phased ---

func (e *Evaluator) evaluatePhased(rec *record.Record, transcript string) (Decision, error) {
	p, ok := phase.Lookup(rec.CurrentPhase)
	if !ok {
		// An unknown phase means the header was hand-edited badly.
		// Phased records are kept for inspection rather than removed.
		return AllowExit(fmt.Sprintf("unknown phase %q; record preserved at %s",
			rec.CurrentPhase, e.Records.Path(rec.Session, rec.Category))), nil
	}

	if p.Gate {
		status, ok := marker.GateDecision(transcript)
		switch {
		case ok && status == marker.GateProceed:
			rec.GateStatus = record.GateProceed
			return e.advancePhase(rec, p, "review gate passed")
		case ok && status == marker.GateBlocked:
			rec.GateStatus = record.GateBlocked
			rec.ReviewCount++
			rec.RetryCount = 0
			rec.LastError = ""
			rec.Iteration++
			rec.InstructionBody = phase.BlockedPrompt(p, rec.Feature, rec.ReviewCount)
			if err := e.Records.Save(rec); err != nil {
				return Decision{}, err
			}
			return Decision{
				Continue:   true,
				NextPrompt: rec.InstructionBody,
				StatusLine: phasedStatus(rec, p),
				Note:       fmt.Sprintf("review gate blocked (block %d)", rec.ReviewCount),
			}, nil
		default:
			return e.retryPhase(rec, p, "review gate decision missing")
		}
	}

	sig, ok := marker.PhaseComplete(transcript)
	if ok && phase.Satisfied(p, sig.Phase, sig.Artifact) {
		if p.Next == "" {
			if err := e.Records.Delete(rec.Session, rec.Category); err != nil {
				return Decision{}, err
			}
			return AllowExit(fmt.Sprintf("workflow complete; phase %s finished", p)), nil
		}
		return e.advancePhase(rec, p, fmt.Sprintf("phase %s complete", p))
	}

	reason := "phase completion marker missing"
	if ok {
		switch {
		case sig.Phase != p.ID:
			reason = fmt.Sprintf("marker names phase %q while on %q", sig.Phase, p.ID)
		case p.RequiresArtifact:
			reason = "phase marker missing required artifact path"
		}
	}
	return e.retryPhase(rec, p, reason)
}

func (e *Evaluator) advancePhase(rec *record.Record, from phase.Phase, note string) (Decision, error) {
	next, ok := phase.Lookup(from.Next)
	if !ok {
		return Decision{}, fmt.Errorf("phase %q has no successor entry %q", from.ID, from.Next)
	}
	rec.CurrentPhase = next.ID
	rec.GateStatus = record.GatePending
	rec.RetryCount = 0
	rec.LastError = ""
	rec.Iteration++
	rec.InstructionBody = phase.Prompt(next, rec.Feature)
	if err := e.Records.Save(rec); err != nil {
		return Decision{}, err
	}
	return Decision{
		Continue:   true,
		NextPrompt: rec.InstructionBody,
		StatusLine: phasedStatus(rec, next),
		Note:       note,
	}, nil
}

func (e *Evaluator) retryPhase(rec *record.Record, p phase.Phase, reason string) (Decision, error) {
	rec.RetryCount++
	rec.SetLastError(reason)
	rec.Iteration++
	if rec.RetryCount <= e.retryLimit() {
		rec.InstructionBody = phase.HintPrompt(p, rec.Feature)
	} else {
		rec.InstructionBody = phase.RecoveryPrompt(p, rec.Feature, rec.LastError, rec.RetryCount)
	}
	if err := e.Records.Save(rec); err != nil {
		return Decision{}, err
	}
	return Decision{
		Continue:   true,
		NextPrompt: rec.InstructionBody,
		StatusLine: phasedStatus(rec, p),
		Note:       reason,
	}, nil
}

func phasedStatus(rec *record.Record, p phase.Phase) string {
	s := fmt.Sprintf("phase %s, %s", p, iterations(rec))
	if rec.RetryCount > 0 {
		s += fmt.Sprintf(" (attempt %d)", rec.RetryCount)
	}
	return s
}
