package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/trace"
)

func sampleState() State {
	entries := []trace.Entry{
		{Seq: 1, Name: "show", Kind: trace.KindAction, Detail: "start"},
		{Seq: 2, Name: "fade", Kind: trace.KindStart},
		{Seq: 3, Name: "show", Kind: trace.KindStart},
		{Seq: 4, Frame: 30 * time.Millisecond, Name: "fade", Kind: trace.KindEnd},
		{Seq: 5, Frame: 30 * time.Millisecond, Name: "fade", Kind: trace.KindStart},
		{Seq: 6, Frame: 60 * time.Millisecond, Name: "fade", Kind: trace.KindEnd},
	}
	return State{
		Trace: entries,
		Final: map[string]ClipState{
			"fade":  {Value: 1},
			"slide": {Value: 0.25, Started: true},
		},
		PlayTime: 40 * time.Millisecond,
	}
}

func ptr[T any](v T) *T { return &v }

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleState(), []Assertion{
		{Type: AssertTraceContains, Entry: "show action start"},
		{Type: AssertTraceOrder, Entries: []string{"fade start", "fade end", "fade start", "fade end"}},
		{Type: AssertTraceCount, Entry: "fade end", Count: 2},
		{Type: AssertTraceCount, Entry: "slide end", Count: 0},
		{Type: AssertFinalValue, Clip: "slide", Value: ptr(0.25)},
		{Type: AssertFinalValue, Clip: "slide", Value: ptr(0.3), Tolerance: 0.1},
		{Type: AssertFinalState, Clip: "slide", Started: ptr(true)},
		{Type: AssertPlayTime, PlayTime: ptr(ir.Duration(40 * time.Millisecond))},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"missing entry", Assertion{Type: AssertTraceContains, Entry: "slide start"}, "not found in trace"},
		{"missing ordered entry", Assertion{Type: AssertTraceOrder, Entries: []string{"fade start", "slide end"}}, `"slide end" not found`},
		{"wrong order", Assertion{Type: AssertTraceOrder, Entries: []string{"show start", "show action start"}}, "not found after position 3"},
		{"too many repeats", Assertion{Type: AssertTraceOrder, Entries: []string{"fade end", "fade end", "fade end"}}, "not found after position 6"},
		{"count", Assertion{Type: AssertTraceCount, Entry: "fade start", Count: 1}, "2 occurrences"},
		{"value", Assertion{Type: AssertFinalValue, Clip: "slide", Value: ptr(1.0)}, "slide = 0.25"},
		{"unknown clip", Assertion{Type: AssertFinalValue, Clip: "panel", Value: ptr(1.0)}, "have fade, slide"},
		{"state", Assertion{Type: AssertFinalState, Clip: "fade", Started: ptr(true)}, "fade started=false"},
		{"play time", Assertion{Type: AssertPlayTime, PlayTime: ptr(ir.Duration(0))}, "Actual: 40ms"},
		{"unknown type", Assertion{Type: "vibes"}, `unknown assertion type "vibes"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleState(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "assertion 0")
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	state := sampleState()
	err := assertTraceContains(state.Trace, Assertion{Entry: "nope"})
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_contains")
	assert.Contains(t, msg, "Full trace:")
	assert.Contains(t, msg, "   4     30ms  fade end")
}
