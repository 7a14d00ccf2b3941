package stream

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		line   string
		wantOK bool
		want   string
	}{
		{"system event", `{"type":"system","subtype":"init"}`, true, "system"},
		{"assistant event", `{"type":"assistant","message":{"content":"hi"}}`, true, "assistant"},
		{"result event", `{"type":"result","result":"done"}`, true, "result"},
		{"leading whitespace", `  {"type":"result"}`, true, "result"},
		{"empty line", ``, false, ""},
		{"plain text", `Installing dependencies...`, false, ""},
		{"non-json brace", `{not json}`, false, ""},
		{"json without type", `{"result":"x"}`, false, ""},
		{"json array", `[1,2,3]`, false, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev, ok := Parse(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, ev.Type)
			}
		})
	}
}

func TestAssistantText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want string
	}{
		{
			"string content",
			`{"type":"assistant","message":{"content":"plain words"}}`,
			"plain words",
		},
		{
			"block content",
			`{"type":"assistant","message":{"content":[{"type":"text","text":"a"},{"type":"tool_use","name":"bash"},{"type":"text","text":"b"}]}}`,
			"a\nb",
		},
		{
			"non assistant type",
			`{"type":"result","result":"x"}`,
			"",
		},
		{
			"assistant without message",
			`{"type":"assistant"}`,
			"",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev, ok := Parse(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.want, ev.AssistantText())
		})
	}
}

func TestCollector_PrefersResultEvent(t *testing.T) {
	t.Parallel()

	var c Collector
	c.Feed(`{"type":"system","subtype":"init"}`)
	c.Feed(`{"type":"assistant","message":{"content":"thinking out loud"}}`)
	c.Feed(`installing things...`)
	c.Feed(`{"type":"assistant","message":{"content":"nearly done"}}`)
	c.Feed(`{"type":"result","result":"all finished <story_complete id=\"1\"/>"}`)

	assert.Equal(t, `all finished <story_complete id="1"/>`, c.FinalText())
	assert.Equal(t, 4, c.Events())
	assert.False(t, c.Errored())
}

func TestCollector_FallsBackToLastAssistant(t *testing.T) {
	t.Parallel()

	var c Collector
	c.Feed(`{"type":"assistant","message":{"content":"first"}}`)
	c.Feed(`{"type":"assistant","message":{"content":"second"}}`)

	assert.Equal(t, "second", c.FinalText())
}

func TestCollector_EmptyRun(t *testing.T) {
	t.Parallel()

	var c Collector
	c.Feed("noise only")
	assert.Empty(t, c.FinalText())
	assert.Zero(t, c.Events())
}

func TestCollector_ErrorResult(t *testing.T) {
	t.Parallel()

	var c Collector
	c.Feed(`{"type":"result","result":"ran out of turns","is_error":true}`)
	assert.True(t, c.Errored())
	assert.Equal(t, "ran out of turns", c.FinalText())
}

func TestCollector_ConcurrentFeed(t *testing.T) {
	t.Parallel()

	var c Collector
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Feed(`{"type":"assistant","message":{"content":"line"}}`)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, c.Events())
	assert.Equal(t, "line", c.FinalText())
}
