// Package transcript reads agent session transcripts in JSONL form.
//
// A transcript is append-only and may be mid-write when read, so parsing
// is deliberately forgiving. Malformed or truncated lines are skipped and
// the best text found so far is returned. The only hard failure is a file
// that cannot be opened at all.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// turn is one line of a session transcript.
type turn struct {
	Type    string   `json:"type"`
	Message *message `json:"message"`
}

type message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type block struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// LastAssistantText returns the text of the last assistant turn in the
// transcript at path that carries any text content. Tool-use-only turns
// are skipped so the result is always what the agent last said.
func LastAssistantText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var last string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var t turn
		if err := json.Unmarshal([]byte(line), &t); err != nil {
			continue
		}
		if t.Type != "assistant" || t.Message == nil {
			continue
		}
		if text := ContentText(t.Message.Content); text != "" {
			last = text
		}
	}
	// A scanner error means a truncated or oversized tail line. Whatever
	// was collected before it still counts.
	return last, nil
}

// ContentText flattens a message content field. The field is either a
// plain string or an array of typed blocks; only text blocks contribute.
func ContentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
