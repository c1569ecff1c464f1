package testutil

import (
	"fmt"
	"time"

	"github.com/roach88/choreo/internal/ir"
)

// Probe is a fake playable that records every call the scheduler makes.
//
// A probe finishes when a pulse reaches delay+duration. An Infinite duration
// never finishes.
type Probe struct {
	name     string
	duration time.Duration
	delay    time.Duration

	started   bool
	paused    bool
	reversing bool
	lastPulse time.Duration
	calls     []string
	listeners []ir.Listener
}

// NewProbe creates a probe with the given duration and no start delay.
func NewProbe(name string, duration time.Duration) *Probe {
	return &Probe{name: name, duration: duration, lastPulse: -1}
}

// WithDelay sets the probe's own start delay.
func (p *Probe) WithDelay(d time.Duration) *Probe {
	p.delay = d
	return p
}

// Name implements ir.Named.
func (p *Probe) Name() string { return p.name }

// Calls returns the recorded calls in order, e.g. "start", "pulse 40ms".
func (p *Probe) Calls() []string { return append([]string(nil), p.calls...) }

// ResetCalls clears the call log.
func (p *Probe) ResetCalls() { p.calls = nil }

// LastPulse returns the elapsed time of the latest pulse, or -1.
func (p *Probe) LastPulse() time.Duration { return p.lastPulse }

// Reversing reports the direction of the latest start.
func (p *Probe) Reversing() bool { return p.reversing }

func (p *Probe) record(format string, args ...any) {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

func (p *Probe) Start() error {
	p.record("start")
	p.begin(false)
	return nil
}

func (p *Probe) StartWithoutPulsing(reverse bool) {
	if reverse {
		p.record("start reverse")
	} else {
		p.record("start")
	}
	p.begin(reverse)
}

func (p *Probe) begin(reverse bool) {
	p.started = true
	p.paused = false
	p.reversing = reverse
	p.lastPulse = -1
	for _, l := range p.snapshot() {
		l.OnStart(p, reverse)
	}
}

func (p *Probe) End() error {
	p.record("end")
	if !p.started {
		p.begin(false)
	}
	p.finish()
	return nil
}

func (p *Probe) Cancel() error {
	p.record("cancel")
	if !p.started {
		return nil
	}
	for _, l := range p.snapshot() {
		l.OnCancel(p)
	}
	p.finish()
	return nil
}

func (p *Probe) finish() {
	p.started = false
	p.paused = false
	for _, l := range p.snapshot() {
		l.OnEnd(p, p.reversing)
	}
}

func (p *Probe) Pause() error {
	p.record("pause")
	if p.started {
		p.paused = true
	}
	return nil
}

func (p *Probe) Resume() error {
	p.record("resume")
	p.paused = false
	return nil
}

func (p *Probe) IsStarted() bool { return p.started }
func (p *Probe) IsPaused() bool  { return p.paused }

func (p *Probe) Duration() time.Duration   { return p.duration }
func (p *Probe) StartDelay() time.Duration { return p.delay }

func (p *Probe) TotalDuration() time.Duration {
	if p.duration == ir.Infinite {
		return ir.Infinite
	}
	return p.delay + p.duration
}

// SetDuration implements ir.DurationSetter.
func (p *Probe) SetDuration(d time.Duration) error {
	p.duration = d
	return nil
}

func (p *Probe) PulseFrame(elapsed time.Duration) bool {
	p.record("pulse %s", elapsed)
	p.lastPulse = elapsed
	if !p.started || p.duration == ir.Infinite {
		return false
	}
	if elapsed >= p.delay+p.duration {
		p.finish()
		return true
	}
	return false
}

func (p *Probe) SkipToEndValue(reverse bool) {
	if reverse {
		p.record("skip start")
	} else {
		p.record("skip end")
	}
}

func (p *Probe) AnimateBasedOnPlayTime(current, last time.Duration, reverse bool) {
	p.record("seek %s", current)
}

// AddListener implements ir.Observable.
func (p *Probe) AddListener(l ir.Listener) {
	p.listeners = append(p.listeners, l)
}

// RemoveListener implements ir.Observable.
func (p *Probe) RemoveListener(l ir.Listener) {
	for i, x := range p.listeners {
		if x == l {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return
		}
	}
}

func (p *Probe) snapshot() []ir.Listener {
	return append([]ir.Listener(nil), p.listeners...)
}
