// Package stream parses the agent's stream-json output. The driver
// feeds it raw lines; anything that is not a structured event (startup
// chatter, stderr noise, partial writes) is dropped.
package stream

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/thruflo/drover/internal/transcript"
)

// Event is one structured line of agent output.
type Event struct {
	Type    string          `json:"type"`
	Subtype string          `json:"subtype,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
	Result  string          `json:"result,omitempty"`
	IsError bool            `json:"is_error,omitempty"`
}

// Parse decodes one output line. ok is false for anything that is not
// a structured event.
func Parse(line string) (*Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] != '{' {
		return nil, false
	}
	var ev Event
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return nil, false
	}
	if ev.Type == "" {
		return nil, false
	}
	return &ev, true
}

// AssistantText returns the text content of an assistant event, empty
// for any other event type.
func (e *Event) AssistantText() string {
	if e.Type != "assistant" || len(e.Message) == 0 {
		return ""
	}
	var msg struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(e.Message, &msg); err != nil {
		return ""
	}
	return transcript.ContentText(msg.Content)
}

// Collector accumulates events across one agent run and produces its
// final text. Feed is safe to call from multiple goroutines; the
// runner streams stdout and stderr concurrently.
type Collector struct {
	mu            sync.Mutex
	events        int
	lastAssistant string
	result        string
	hasResult     bool
	isError       bool
}

// Feed consumes one raw output line.
func (c *Collector) Feed(line string) {
	ev, ok := Parse(line)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events++
	switch ev.Type {
	case "assistant":
		if text := ev.AssistantText(); text != "" {
			c.lastAssistant = text
		}
	case "result":
		c.result = ev.Result
		c.hasResult = true
		c.isError = ev.IsError
	}
}

// FinalText returns the run's final textual result: the result event's
// text when present, otherwise the last assistant text seen.
func (c *Collector) FinalText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasResult && c.result != "" {
		return c.result
	}
	return c.lastAssistant
}

// Errored reports whether the run's result event was flagged as an
// error.
func (c *Collector) Errored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isError
}

// Events returns how many structured events were seen.
func (c *Collector) Events() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}
