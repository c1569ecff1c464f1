package trace

import (
	"fmt"
	"strings"
	"time"
)

// Kind is what a trace entry records.
type Kind string

const (
	KindStart  Kind = "start"
	KindEnd    Kind = "end"
	KindCancel Kind = "cancel"
	// KindAction is a scripted call made on the run, e.g. a seek.
	KindAction Kind = "action"
)

// Entry is one recorded callback or action.
type Entry struct {
	Seq     int64         `json:"seq"`
	Frame   time.Duration `json:"frame"`
	Name    string        `json:"name"`
	Kind    Kind          `json:"kind"`
	Reverse bool          `json:"reverse,omitempty"`
	Detail  string        `json:"detail,omitempty"`
}

// Label renders the entry without its stamps: "fade start reverse",
// "show action seek 120ms".
func (e Entry) Label() string {
	var b strings.Builder
	b.WriteString(e.Name)
	b.WriteByte(' ')
	b.WriteString(string(e.Kind))
	if e.Reverse {
		b.WriteString(" reverse")
	}
	if e.Detail != "" {
		b.WriteByte(' ')
		b.WriteString(e.Detail)
	}
	return b.String()
}

// String renders the entry as one trace line.
func (e Entry) String() string {
	return fmt.Sprintf("%4d %8s  %s", e.Seq, e.Frame, e.Label())
}

// Labels returns the label of every entry.
func Labels(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label()
	}
	return out
}

// Format renders entries one per line, newline terminated.
func Format(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Mismatch describes the first difference between two traces.
type Mismatch struct {
	Index int
	// Want or Got is nil when that trace ended early.
	Want *Entry
	Got  *Entry
}

func (m *Mismatch) Error() string {
	switch {
	case m.Want == nil:
		return fmt.Sprintf("entry %d: unexpected %q", m.Index, m.Got.String())
	case m.Got == nil:
		return fmt.Sprintf("entry %d: missing %q", m.Index, m.Want.String())
	default:
		return fmt.Sprintf("entry %d: want %q, got %q", m.Index, m.Want.String(), m.Got.String())
	}
}

// Compare returns nil when both traces are identical, or a *Mismatch for
// the first entry that differs.
func Compare(want, got []Entry) error {
	n := max(len(want), len(got))
	for i := 0; i < n; i++ {
		var w, g *Entry
		if i < len(want) {
			w = &want[i]
		}
		if i < len(got) {
			g = &got[i]
		}
		if w != nil && g != nil && *w == *g {
			continue
		}
		return &Mismatch{Index: i, Want: w, Got: g}
	}
	return nil
}
