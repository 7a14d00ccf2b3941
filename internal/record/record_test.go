package record

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalParse_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  Record
	}{
		{
			"generic",
			Record{
				Session:           "sess-1",
				Category:          CategoryGeneric,
				Iteration:         3,
				MaxIterations:     50,
				CompletionPromise: "ALL TESTS PASS",
				InstructionBody:   "Run the suite until it is green.\nThen stop.",
			},
		},
		{
			"generic once mode",
			Record{
				Session:           "sess-2",
				Category:          CategoryGeneric,
				Iteration:         1,
				MaxIterations:     0,
				OnceMode:          true,
				CompletionPromise: "DONE",
				InstructionBody:   "One careful pass.",
			},
		},
		{
			"tasks",
			Record{
				Session:         "sess-3",
				Category:        CategoryTasks,
				Iteration:       7,
				MaxIterations:   20,
				TaskListPath:    "tasks/auth.json",
				CurrentItemID:   4,
				TotalItems:      9,
				InstructionBody: "Work item 4 from tasks/auth.json.",
			},
		},
		{
			"phased",
			Record{
				Session:         "sess-4",
				Category:        CategoryPhased,
				Iteration:       12,
				MaxIterations:   40,
				Feature:         "billing-export",
				CurrentPhase:    "3.5",
				GateStatus:      GateBlocked,
				RetryCount:      2,
				ReviewCount:     1,
				LastError:       "draft missing acceptance criteria",
				InstructionBody: "Address the review findings.",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.rec.Marshal())
			require.NoError(t, err)
			assert.Equal(t, &tt.rec, got)
		})
	}
}

func TestMarshal_Layout(t *testing.T) {
	t.Parallel()

	rec := Record{
		Session:           "abc",
		Category:          CategoryGeneric,
		Iteration:         2,
		MaxIterations:     10,
		CompletionPromise: "DONE",
		InstructionBody:   "body text",
	}
	out := string(rec.Marshal())

	assert.Equal(t, "category: generic\nsession: abc\niteration: 2\nmax_iterations: 10\npromise: DONE\n---\nbody text", out)
}

func TestParse_BodyPreservedVerbatim(t *testing.T) {
	t.Parallel()

	body := "First line.\n\nlooks: like a header\n---\neven a delimiter line\n"
	rec := Record{
		Session:         "s",
		Category:        CategoryGeneric,
		InstructionBody: body,
	}
	got, err := Parse(rec.Marshal())
	require.NoError(t, err)
	assert.Equal(t, body, got.InstructionBody)
}

func TestParse_Corruption(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		data   string
		reason string
	}{
		{"missing delimiter", "category: generic\nsession: s\n", "missing --- delimiter"},
		{"missing category", "session: s\n---\nbody", "missing category"},
		{"unknown category", "category: mystery\nsession: s\n---\n", `unknown category "mystery"`},
		{"missing session", "category: generic\n---\n", "missing session"},
		{"non-numeric iteration", "category: generic\nsession: s\niteration: soon\n---\n", `non-numeric iteration value "soon"`},
		{"negative iteration", "category: generic\nsession: s\niteration: -1\n---\n", "negative iteration value -1"},
		{"non-boolean once", "category: generic\nsession: s\nonce: maybe\n---\n", `non-boolean once value "maybe"`},
		{"header line without colon", "category generic\n---\n", "malformed header line"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, IsCorrupt(err), "expected CorruptError, got %T", err)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestParse_UnknownKeysTolerated(t *testing.T) {
	t.Parallel()

	data := "category: generic\nsession: s\nfuture_key: whatever\niteration: 1\n---\nbody"
	rec, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Iteration)
	assert.Equal(t, "body", rec.InstructionBody)
}

func TestParse_PhasedDefaultsGateToPending(t *testing.T) {
	t.Parallel()

	data := "category: phased\nsession: s\nphase: 1\n---\n"
	rec, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, GatePending, rec.GateStatus)
}

func TestParse_ValueContainingColon(t *testing.T) {
	t.Parallel()

	data := "category: generic\nsession: s\npromise: done: all green\n---\n"
	rec, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "done: all green", rec.CompletionPromise)
}

func TestSetLastError(t *testing.T) {
	t.Parallel()

	t.Run("multiline flattened", func(t *testing.T) {
		t.Parallel()
		var rec Record
		rec.SetLastError("line one\nline two")
		assert.Equal(t, "line one line two", rec.LastError)
	})

	t.Run("long message truncated", func(t *testing.T) {
		t.Parallel()
		var rec Record
		rec.SetLastError(strings.Repeat("x", 500))
		assert.Len(t, rec.LastError, maxLastErrorLen)
	})

	t.Run("truncated message survives round trip", func(t *testing.T) {
		t.Parallel()
		rec := Record{Session: "s", Category: CategoryPhased, CurrentPhase: "2"}
		rec.SetLastError(strings.Repeat("e", 300))
		got, err := Parse(rec.Marshal())
		require.NoError(t, err)
		assert.Equal(t, rec.LastError, got.LastError)
	})
}

func TestCategories_PrecedenceOrder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Category{CategoryPhased, CategoryTasks, CategoryGeneric}, Categories())
}

func TestCorruptError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "corrupt state record: bad shape", (&CorruptError{Reason: "bad shape"}).Error())
	assert.Equal(t, "corrupt state record /tmp/x.state: bad shape",
		(&CorruptError{Path: "/tmp/x.state", Reason: "bad shape"}).Error())
}
