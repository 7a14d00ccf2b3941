// Package hook implements the wire protocol between the host and the
// loop core: one JSON event on stdin, one optional JSON decision on
// stdout. No output means the session may end, so nothing else may
// ever be printed to stdout in hook mode.
package hook

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/thruflo/drover/internal/evaluate"
)

// Event is what the host writes when the agent tries to end its
// session.
type Event struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	StopHookActive bool   `json:"stop_hook_active"`
	CWD            string `json:"cwd,omitempty"`
	HookEventName  string `json:"hook_event_name,omitempty"`
}

// Response is written back only when the session must continue.
type Response struct {
	Decision   string `json:"decision"`
	NextPrompt string `json:"nextPrompt"`
	StatusLine string `json:"statusLine,omitempty"`
}

// ReadEvent decodes one event from r.
func ReadEvent(r io.Reader) (*Event, error) {
	var ev Event
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return nil, fmt.Errorf("decoding hook event: %w", err)
	}
	if ev.SessionID == "" {
		return nil, fmt.Errorf("hook event missing session_id")
	}
	return &ev, nil
}

// WriteDecision emits the continue response for dec, or nothing when
// the decision allows exit.
func WriteDecision(w io.Writer, dec evaluate.Decision) error {
	if !dec.Continue {
		return nil
	}
	data, err := json.Marshal(Response{
		Decision:   "continue",
		NextPrompt: dec.NextPrompt,
		StatusLine: dec.StatusLine,
	})
	if err != nil {
		return fmt.Errorf("encoding hook response: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing hook response: %w", err)
	}
	return nil
}
