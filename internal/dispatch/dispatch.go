// Package dispatch routes one host stop event to the loop that owns
// the session and turns its evaluation into a final decision.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/thruflo/drover/internal/evaluate"
	"github.com/thruflo/drover/internal/events"
	"github.com/thruflo/drover/internal/logging"
	"github.com/thruflo/drover/internal/record"
	"github.com/thruflo/drover/internal/transcript"
)

// Dispatcher owns the record store and evaluator for one project.
type Dispatcher struct {
	Records *record.Store
	Eval    *evaluate.Evaluator
}

// New returns a dispatcher over the given store and evaluator.
func New(records *record.Store, eval *evaluate.Evaluator) *Dispatcher {
	return &Dispatcher{Records: records, Eval: eval}
}

// Dispatch evaluates one stop event and returns the decision. It never
// returns an error: internal failures are logged and degrade to
// allowing exit, because trapping the user in a loop is the one
// failure mode this tool must not have.
func (d *Dispatcher) Dispatch(ctx context.Context, session, transcriptPath string, stopHookActive bool) evaluate.Decision {
	if stopHookActive {
		// Our own continuation is being replayed through the host's
		// retry path. Touch nothing.
		return evaluate.AllowExit("stop hook already active; allowing exit")
	}

	for _, cat := range record.Categories() {
		rec, err := d.Records.Load(session, cat)
		if errors.Is(err, record.ErrNotFound) {
			continue
		}
		if err != nil {
			return d.abandon(session, cat, err)
		}
		return d.evaluate(ctx, rec, transcriptPath)
	}
	return evaluate.AllowExit("no active loop for session")
}

// abandon handles a record that exists but cannot be trusted. Corrupt
// phased records are preserved for inspection; other corruption removes
// the file so the session is not stuck behind it.
func (d *Dispatcher) abandon(session string, cat record.Category, err error) evaluate.Decision {
	if !record.IsCorrupt(err) {
		logging.Error("state unreadable", "session", session, "category", string(cat), "error", err)
		return evaluate.AllowExit(fmt.Sprintf("state unreadable: %v", err))
	}

	preserved := cat == record.CategoryPhased
	if preserved {
		logging.Error("phased state corrupt; preserving for inspection", "session", session, "error", err)
	} else {
		if derr := d.Records.Delete(session, cat); derr != nil {
			logging.Error("could not remove corrupt state", "session", session, "error", derr)
		}
		logging.Error("state corrupt; loop abandoned", "session", session, "category", string(cat), "error", err)
	}
	d.emit(session, "loop_abandoned", map[string]any{
		"category":  string(cat),
		"error":     err.Error(),
		"preserved": preserved,
	})
	if preserved {
		return evaluate.AllowExit(fmt.Sprintf("corrupt state preserved for inspection: %v", err))
	}
	return evaluate.AllowExit(fmt.Sprintf("corrupt state; loop abandoned: %v", err))
}

func (d *Dispatcher) evaluate(ctx context.Context, rec *record.Record, transcriptPath string) evaluate.Decision {
	var text string
	if transcriptPath != "" {
		var err error
		text, err = transcript.LastAssistantText(transcriptPath)
		if err != nil {
			// A missing transcript downgrades to an empty one; the
			// marker checks simply find nothing.
			logging.Warn("transcript unavailable", "path", transcriptPath, "error", err)
			text = ""
		}
	}

	dec, err := d.Eval.Evaluate(ctx, rec, text)
	if err != nil {
		logging.Error("evaluation failed; allowing exit",
			"session", rec.Session, "category", string(rec.Category), "error", err)
		return evaluate.AllowExit(fmt.Sprintf("internal error, allowing exit: %v", err))
	}

	if rec.OnceMode && dec.Continue {
		if err := d.Records.Delete(rec.Session, rec.Category); err != nil {
			logging.Error("could not remove once-mode record", "session", rec.Session, "error", err)
		}
		dec = evaluate.AllowExit(fmt.Sprintf("once mode: ran a single evaluation, pausing for review (%s)", dec.StatusLine))
	}

	d.emit(rec.Session, "evaluation", map[string]any{
		"category": string(rec.Category),
		"continue": dec.Continue,
		"status":   dec.StatusLine,
		"note":     dec.Note,
	})
	return dec
}

// emit appends to the per-session events log, best effort.
func (d *Dispatcher) emit(session, name string, data map[string]any) {
	log := events.New(events.SessionPath(d.Records.Dir(), session))
	if err := log.Append(events.Event{Session: session, Event: name, Data: data}); err != nil {
		logging.Warn("could not append event", "error", err)
	}
}
