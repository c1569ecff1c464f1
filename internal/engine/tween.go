package engine

import (
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/choreo/internal/ir"
)

// Tween is a leaf playable that moves an eased value from 0 to 1 over its
// duration.
//
// A tween either pulses itself through a Scheduler (Start, Reverse) or is
// pulsed by the group that owns it (StartWithoutPulsing, PulseFrame). In
// both cases frame times are measured from the tween's start, and the start
// delay elapses before the value begins to change.
type Tween struct {
	name      string
	sched     *Scheduler
	duration  time.Duration
	delay     time.Duration
	interp    ir.Interpolator
	update    func(value float64)
	listeners []ir.Listener

	// timing tweens only hold a place in a timeline; groups never override
	// their duration.
	timing bool

	started        bool
	running        bool
	paused         bool
	resumed        bool
	reversing      bool
	selfPulse      bool
	anchored       bool
	endRequested   bool
	startNotified  bool
	startCommitted bool

	startTime time.Duration
	lastFrame time.Duration
	pauseTime time.Duration

	seekFraction float64
	fraction     float64
	value        float64
}

// NewTween creates a tween. Negative durations and delays are rejected;
// ir.Infinite is a valid duration and never finishes.
func NewTween(name string, duration time.Duration, opts ...Option) (*Tween, error) {
	o := applyOptions(opts)
	t := &Tween{
		name:         name,
		sched:        o.sched,
		interp:       o.interp,
		update:       o.update,
		selfPulse:    true,
		startTime:    -1,
		lastFrame:    -1,
		pauseTime:    -1,
		seekFraction: -1,
	}
	if t.interp == nil {
		t.interp = Linear
	}
	if err := t.SetDuration(duration); err != nil {
		return nil, err
	}
	if err := t.SetStartDelay(o.delay); err != nil {
		return nil, err
	}
	return t, nil
}

// NewDelay creates a timing-only tween that just occupies d.
func NewDelay(name string, d time.Duration, opts ...Option) (*Tween, error) {
	t, err := NewTween(name, d, opts...)
	if err != nil {
		return nil, err
	}
	t.timing = true
	t.update = nil
	return t, nil
}

// Name implements ir.Named.
func (t *Tween) Name() string { return t.name }

// Value returns the latest eased value.
func (t *Tween) Value() float64 { return t.value }

// Fraction returns the latest linear progress in [0,1].
func (t *Tween) Fraction() float64 { return t.fraction }

func (t *Tween) Duration() time.Duration   { return t.duration }
func (t *Tween) StartDelay() time.Duration { return t.delay }

func (t *Tween) TotalDuration() time.Duration {
	if t.duration == ir.Infinite {
		return ir.Infinite
	}
	return t.delay + t.duration
}

// SetDuration implements ir.DurationSetter.
func (t *Tween) SetDuration(d time.Duration) error {
	if d < 0 && d != ir.Infinite {
		return NewDurationError(t.name, d)
	}
	t.duration = d
	return nil
}

// SetStartDelay changes the start delay.
func (t *Tween) SetStartDelay(d time.Duration) error {
	if d < 0 {
		return NewStartDelayError(t.name, d)
	}
	t.delay = d
	return nil
}

// SetInterpolator implements ir.InterpolatorSetter. A nil curve means linear.
func (t *Tween) SetInterpolator(fn ir.Interpolator) {
	if fn == nil {
		fn = Linear
	}
	t.interp = fn
}

func (t *Tween) IsStarted() bool { return t.started }
func (t *Tween) IsPaused() bool  { return t.paused }

// IsRunning reports whether the start delay has elapsed.
func (t *Tween) IsRunning() bool { return t.running }

// AddListener implements ir.Observable.
func (t *Tween) AddListener(l ir.Listener) {
	if !slices.Contains(t.listeners, l) {
		t.listeners = append(t.listeners, l)
	}
}

// RemoveListener implements ir.Observable.
func (t *Tween) RemoveListener(l ir.Listener) {
	if i := slices.Index(t.listeners, l); i >= 0 {
		t.listeners = slices.Delete(t.listeners, i, i+1)
	}
}

// Start begins a forward run pulsed by the scheduler.
func (t *Tween) Start() error {
	return t.start(false, true)
}

// Reverse plays the tween backward. A running tween turns around in place.
func (t *Tween) Reverse() error {
	if err := t.checkLoop(); err != nil {
		return err
	}
	if t.duration == ir.Infinite {
		return NewReverseError(t.name)
	}
	if t.running && t.lastFrame >= 0 {
		now := t.now()
		played := now - t.startTime
		remaining := scaled(t.duration, t.scale()) - played
		t.startTime = now - remaining
		t.startCommitted = true
		t.reversing = !t.reversing
		return nil
	}
	if t.started {
		t.reversing = !t.reversing
		return t.End()
	}
	return t.start(true, true)
}

// StartWithoutPulsing implements ir.Playable.
func (t *Tween) StartWithoutPulsing(reverse bool) {
	if err := t.start(reverse, false); err != nil {
		slog.Error("tween start failed", "tween", t.name, "error", err)
	}
}

func (t *Tween) start(reverse, selfPulse bool) error {
	if err := t.checkLoop(); err != nil {
		return err
	}
	if selfPulse && t.sched == nil {
		return NewNoSchedulerError(t.name)
	}
	if reverse && t.duration == ir.Infinite {
		return NewReverseError(t.name)
	}

	t.reversing = reverse
	t.selfPulse = selfPulse
	t.started = true
	t.paused = false
	t.running = false
	t.endRequested = false
	t.lastFrame = -1
	t.startTime = -1
	t.anchored = false
	t.addCallback()

	if t.delay == 0 || t.seekFraction >= 0 || reverse {
		// Values settle immediately; listeners hear about the start now.
		t.startAnimation()
		if t.seekFraction < 0 {
			t.setCurrentFraction(t.fractionAt(0))
		} else {
			t.setCurrentFraction(t.seekFraction)
		}
	}
	return nil
}

// End jumps to the final value of the current direction and finishes.
// Ending a tween that never started fires start listeners first.
func (t *Tween) End() error {
	if err := t.checkLoop(); err != nil {
		return err
	}
	if !t.running {
		t.startAnimation()
		t.started = true
	}
	if t.reversing {
		t.animateValue(0)
	} else {
		t.animateValue(1)
	}
	t.endAnimation()
	return nil
}

// Cancel stops the tween where it is.
func (t *Tween) Cancel() error {
	if err := t.checkLoop(); err != nil {
		return err
	}
	if t.endRequested {
		return nil
	}
	if t.started || t.running {
		if !t.running {
			t.notifyStart()
		}
		for _, l := range slices.Clone(t.listeners) {
			l.OnCancel(t)
		}
	}
	t.endAnimation()
	return nil
}

// Pause freezes a started tween on its next frame.
func (t *Tween) Pause() error {
	if err := t.checkLoop(); err != nil {
		return err
	}
	if t.started && !t.paused {
		t.paused = true
		t.pauseTime = -1
		t.resumed = false
	}
	return nil
}

// Resume continues a paused tween, shifting its start by the paused time.
func (t *Tween) Resume() error {
	if err := t.checkLoop(); err != nil {
		return err
	}
	if t.paused && !t.resumed {
		t.resumed = true
		if t.pauseTime >= 0 {
			t.addCallback()
		}
	}
	t.paused = false
	return nil
}

// SetCurrentPlayTime moves the tween to d past its start delay.
func (t *Tween) SetCurrentPlayTime(d time.Duration) error {
	if err := t.checkLoop(); err != nil {
		return err
	}
	if d < 0 {
		return NewSeekError(t.name, d, t.duration)
	}
	t.setCurrentFraction(t.fractionAt(d))
	return nil
}

// DoFrame implements FrameCallback.
func (t *Tween) DoFrame(frameTime time.Duration) bool {
	return t.doFrame(frameTime)
}

// CommitFrame implements FrameCallback. It absorbs the time a slow first
// frame took so the run does not visibly jump.
func (t *Tween) CommitFrame(frameTime time.Duration) {
	if t.startCommitted {
		return
	}
	t.startCommitted = true
	if adjustment := frameTime - t.lastFrame; adjustment > 0 {
		t.startTime += adjustment
	}
}

// PulseFrame implements ir.Playable. It is a no-op for self-pulsing tweens.
func (t *Tween) PulseFrame(elapsed time.Duration) bool {
	if t.selfPulse {
		return false
	}
	return t.doFrame(elapsed)
}

// SkipToEndValue implements ir.Playable.
func (t *Tween) SkipToEndValue(reverse bool) {
	if reverse {
		t.animateValue(0)
	} else {
		t.animateValue(1)
	}
}

// AnimateBasedOnPlayTime implements ir.Playable.
func (t *Tween) AnimateBasedOnPlayTime(current, last time.Duration, reverse bool) {
	f := t.fractionAt(max(current, 0))
	t.fraction = f
	t.animateValue(iterationFraction(f, reverse))
}

func (t *Tween) doFrame(frameTime time.Duration) bool {
	scale := t.scale()
	if !t.anchored {
		// First frame. The start delay counts down after it.
		t.anchored = true
		if t.reversing {
			t.startTime = frameTime
		} else {
			t.startTime = frameTime + scaled(t.delay, scale)
		}
	}

	if t.paused {
		t.pauseTime = frameTime
		t.removeCallback()
		return false
	} else if t.resumed {
		t.resumed = false
		if t.pauseTime >= 0 {
			t.startTime += frameTime - t.pauseTime
		}
	}

	if !t.running {
		if t.startTime > frameTime && t.seekFraction < 0 {
			return false
		}
		t.running = true
		t.startAnimation()
	}

	if t.lastFrame < 0 {
		if t.seekFraction >= 0 {
			t.startTime = frameTime - scaled(fractionOf(t.duration, t.seekFraction), scale)
			t.seekFraction = -1
		}
		t.startCommitted = false
	}
	t.lastFrame = frameTime

	finished := t.animateBasedOnTime(max(frameTime, t.startTime), scale)
	if finished {
		t.endAnimation()
	}
	return finished
}

func (t *Tween) animateBasedOnTime(current time.Duration, scale float64) bool {
	if !t.running {
		return false
	}
	var f float64
	switch sd := scaled(t.duration, scale); {
	case t.duration == ir.Infinite:
		f = 0
	case sd > 0:
		f = float64(current-t.startTime) / float64(sd)
	default:
		f = 1
	}
	done := f >= 1
	f = clamp01(f)
	t.fraction = f
	t.animateValue(iterationFraction(f, t.reversing))
	return done
}

func (t *Tween) setCurrentFraction(f float64) {
	f = clamp01(f)
	t.startCommitted = true
	if t.lastFrame >= 0 {
		t.startTime = t.now() - scaled(fractionOf(t.duration, f), t.scale())
	} else {
		t.seekFraction = f
	}
	t.fraction = f
	t.animateValue(iterationFraction(f, t.reversing))
}

func (t *Tween) startAnimation() {
	t.endRequested = false
	t.running = true
	if t.seekFraction >= 0 {
		t.fraction = t.seekFraction
	} else {
		t.fraction = 0
	}
	if t.selfPulse && t.sched != nil {
		t.sched.AddCommitCallback(t)
	}
	t.notifyStart()
}

func (t *Tween) endAnimation() {
	if t.endRequested {
		return
	}
	t.removeCallback()
	t.endRequested = true
	t.paused = false

	notify := t.started || t.running
	if notify && !t.running {
		t.notifyStart()
	}
	t.running = false
	t.started = false
	t.startNotified = false
	t.lastFrame = -1
	t.startTime = -1
	t.anchored = false
	t.seekFraction = -1
	if notify {
		for _, l := range slices.Clone(t.listeners) {
			l.OnEnd(t, t.reversing)
		}
	}
	t.reversing = false
	t.selfPulse = true
}

func (t *Tween) notifyStart() {
	if !t.startNotified {
		for _, l := range slices.Clone(t.listeners) {
			l.OnStart(t, t.reversing)
		}
	}
	t.startNotified = true
}

func (t *Tween) animateValue(f float64) {
	t.value = t.interp(f)
	if t.update != nil {
		t.update(t.value)
	}
}

func (t *Tween) addCallback() {
	if !t.selfPulse || t.sched == nil {
		return
	}
	t.sched.AddFrameCallback(t, 0)
}

func (t *Tween) removeCallback() {
	if !t.selfPulse || t.sched == nil {
		return
	}
	t.sched.RemoveCallback(t)
}

func (t *Tween) checkLoop() error {
	if t.sched != nil && !t.sched.OnLoop() {
		return NewLoopError(t.name)
	}
	return nil
}

func (t *Tween) scale() float64 {
	if t.sched == nil {
		return 1
	}
	return t.sched.DurationScale()
}

// now is the frame time seeks are anchored to. Group-pulsed tweens only see
// elapsed times, so they anchor to their latest pulse.
func (t *Tween) now() time.Duration {
	if t.selfPulse && t.sched != nil {
		return t.sched.FrameTime()
	}
	return t.lastFrame
}

// fractionAt converts a play time past the start delay to a fraction.
func (t *Tween) fractionAt(d time.Duration) float64 {
	switch {
	case t.duration == ir.Infinite:
		return 0
	case t.duration > 0:
		return clamp01(float64(d) / float64(t.duration))
	default:
		return 1
	}
}

func fractionOf(d time.Duration, f float64) time.Duration {
	if d == ir.Infinite {
		return 0
	}
	return time.Duration(float64(d) * f)
}

func iterationFraction(f float64, reverse bool) float64 {
	if reverse {
		return 1 - f
	}
	return f
}

func clamp01(f float64) float64 {
	return min(max(f, 0), 1)
}
