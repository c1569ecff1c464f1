package trace

import (
	"slices"
	"time"

	"github.com/roach88/choreo/internal/ir"
)

// Recorder is a listener that appends an Entry for every lifecycle callback
// of the playables it watches.
//
// The frame time comes from now, normally the provider's FrameTime. A
// Recorder belongs to the frame loop goroutine like the playables it
// watches.
type Recorder struct {
	clock    *Clock
	now      func() time.Duration
	entries  []Entry
	watched  []ir.Observable
	listener *ir.ListenerFuncs
}

// NewRecorder creates a recorder stamping entries with now(). A nil now
// stamps every entry at 0.
func NewRecorder(now func() time.Duration) *Recorder {
	if now == nil {
		now = func() time.Duration { return 0 }
	}
	r := &Recorder{clock: NewClock(), now: now}
	r.listener = &ir.ListenerFuncs{
		Start: func(p ir.Playable, reversing bool) {
			r.add(ir.NameOf(p), KindStart, reversing, "")
		},
		End: func(p ir.Playable, reversing bool) {
			r.add(ir.NameOf(p), KindEnd, reversing, "")
		},
		Cancel: func(p ir.Playable) {
			r.add(ir.NameOf(p), KindCancel, false, "")
		},
	}
	return r
}

// Watch starts recording the given playables. Playables that do not accept
// listeners are skipped; watching one twice records it once.
func (r *Recorder) Watch(items ...ir.Playable) {
	for _, p := range items {
		o, ok := p.(ir.Observable)
		if !ok || slices.Contains(r.watched, o) {
			continue
		}
		o.AddListener(r.listener)
		r.watched = append(r.watched, o)
	}
}

// Note records a scripted action against name.
func (r *Recorder) Note(name, detail string) {
	r.add(name, KindAction, false, detail)
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	return slices.Clone(r.entries)
}

// Len returns the number of entries.
func (r *Recorder) Len() int {
	return len(r.entries)
}

// Close stops recording. Entries stay available.
func (r *Recorder) Close() {
	for _, o := range r.watched {
		o.RemoveListener(r.listener)
	}
	r.watched = nil
}

func (r *Recorder) add(name string, kind Kind, reverse bool, detail string) {
	r.entries = append(r.entries, Entry{
		Seq:     r.clock.Next(),
		Frame:   r.now(),
		Name:    name,
		Kind:    kind,
		Reverse: reverse,
		Detail:  detail,
	})
}
