package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/roach88/choreo/internal/trace"
)

// defaultTolerance bounds final_value comparisons when none is given.
const defaultTolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Trace    []trace.Entry
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, entry := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", entry)
		}
	}
	return buf.String()
}

// State is what assertions are evaluated against.
type State struct {
	Trace    []trace.Entry
	Final    map[string]ClipState
	PlayTime time.Duration
}

// EvaluateAssertions checks every assertion and returns one message per
// failure. An empty result means all assertions held.
func EvaluateAssertions(state State, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(state, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(state State, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(state.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(state.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(state.Trace, a)
	case AssertFinalValue:
		return assertFinalValue(state, a)
	case AssertFinalState:
		return assertFinalState(state, a)
	case AssertPlayTime:
		return assertPlayTime(state, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks that some entry carries the label.
func assertTraceContains(entries []trace.Entry, a Assertion) error {
	if slices.Contains(trace.Labels(entries), a.Entry) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("entry %q", a.Entry),
		Actual:   "not found in trace",
		Trace:    entries,
	}
}

// assertTraceOrder checks that the labels appear in the given relative
// order. Other entries may come in between; a repeated label is matched
// by successive occurrences.
func assertTraceOrder(entries []trace.Entry, a Assertion) error {
	labels := trace.Labels(entries)
	pos := 0
	for _, want := range a.Entries {
		i := slices.Index(labels[pos:], want)
		if i < 0 {
			actual := fmt.Sprintf("%q not found", want)
			if slices.Contains(labels, want) {
				actual = fmt.Sprintf("%q not found after position %d", want, pos)
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("entries in order: %q", a.Entries),
				Actual:   actual,
				Trace:    entries,
			}
		}
		pos += i + 1
	}
	return nil
}

// assertTraceCount checks the exact number of entries carrying the label.
func assertTraceCount(entries []trace.Entry, a Assertion) error {
	count := 0
	for _, l := range trace.Labels(entries) {
		if l == a.Entry {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %q", a.Count, a.Entry),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    entries,
		}
	}
	return nil
}

func assertFinalValue(state State, a Assertion) error {
	cs, ok := state.Final[a.Clip]
	if !ok {
		return unknownClip(AssertFinalValue, a.Clip, state)
	}
	tol := a.Tolerance
	if tol == 0 {
		tol = defaultTolerance
	}
	if math.Abs(cs.Value-*a.Value) > tol {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s = %g (±%g)", a.Clip, *a.Value, tol),
			Actual:   fmt.Sprintf("%s = %g", a.Clip, cs.Value),
		}
	}
	return nil
}

func assertFinalState(state State, a Assertion) error {
	cs, ok := state.Final[a.Clip]
	if !ok {
		return unknownClip(AssertFinalState, a.Clip, state)
	}
	if cs.Started != *a.Started {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s started=%t", a.Clip, *a.Started),
			Actual:   fmt.Sprintf("%s started=%t", a.Clip, cs.Started),
		}
	}
	return nil
}

func assertPlayTime(state State, a Assertion) error {
	if state.PlayTime != a.PlayTime.Std() {
		return &AssertionError{
			Type:     AssertPlayTime,
			Expected: a.PlayTime.String(),
			Actual:   state.PlayTime.String(),
		}
	}
	return nil
}

func unknownClip(kind, clip string, state State) error {
	known := make([]string, 0, len(state.Final))
	for path := range state.Final {
		known = append(known, path)
	}
	slices.Sort(known)
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("clip %q", clip),
		Actual:   fmt.Sprintf("no such clip; have %s", strings.Join(known, ", ")),
	}
}
