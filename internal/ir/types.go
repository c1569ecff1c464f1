package ir

import (
	"fmt"
	"time"
)

// Infinite marks a duration or time that never resolves.
//
// A node pinned to Infinite is never scheduled. A playable reporting an
// Infinite total duration never finishes on its own.
const Infinite time.Duration = -1

// EventKind identifies one of the three timeline events every node produces.
type EventKind int

const (
	// EventStart fires when a node's window opens.
	EventStart EventKind = iota
	// EventDelayEnded fires when a node's own start delay has elapsed.
	EventDelayEnded
	// EventEnd fires when a node's window closes.
	EventEnd
)

// String returns the trace name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventDelayEnded:
		return "delay_ended"
	case EventEnd:
		return "end"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// MarshalText renders the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name.
func (k *EventKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "start":
		*k = EventStart
	case "delay_ended":
		*k = EventDelayEnded
	case "end":
		*k = EventEnd
	default:
		return fmt.Errorf("unknown event kind %q", text)
	}
	return nil
}

// Playable is the timed-playback contract every scheduled unit satisfies.
//
// Lifecycle methods return errors for invalid operations (wrong loop, no
// scheduler, reversing an unbounded playable). The group-driven methods
// (StartWithoutPulsing, PulseFrame, SkipToEndValue, AnimateBasedOnPlayTime)
// are called by an owning group only and never fail.
type Playable interface {
	Start() error
	End() error
	Cancel() error
	Pause() error
	Resume() error

	IsStarted() bool
	IsPaused() bool

	// Duration is the length of one run, excluding the start delay.
	Duration() time.Duration
	// StartDelay is the time between start and the first value change.
	StartDelay() time.Duration
	// TotalDuration is StartDelay plus Duration, or Infinite.
	TotalDuration() time.Duration

	// StartWithoutPulsing starts the playable without registering for frames;
	// the caller pulses it through PulseFrame.
	StartWithoutPulsing(reverse bool)
	// PulseFrame advances the playable to elapsed, measured from its own
	// start. It returns true once the playable has finished.
	PulseFrame(elapsed time.Duration) bool
	// SkipToEndValue jumps to the final value of the given direction.
	SkipToEndValue(reverse bool)
	// AnimateBasedOnPlayTime evaluates the playable at current without
	// changing its lifecycle state.
	AnimateBasedOnPlayTime(current, last time.Duration, reverse bool)
}

// Listener receives lifecycle notifications from a playable.
//
// Callbacks run synchronously on the frame loop. Calling back into the
// notifying group's lifecycle methods from a callback is unsupported and its
// behavior is undefined.
type Listener interface {
	OnStart(p Playable, reversing bool)
	OnEnd(p Playable, reversing bool)
	OnCancel(p Playable)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
// Register it by pointer so it can be removed again.
type ListenerFuncs struct {
	Start  func(p Playable, reversing bool)
	End    func(p Playable, reversing bool)
	Cancel func(p Playable)
}

func (l *ListenerFuncs) OnStart(p Playable, reversing bool) {
	if l.Start != nil {
		l.Start(p, reversing)
	}
}

func (l *ListenerFuncs) OnEnd(p Playable, reversing bool) {
	if l.End != nil {
		l.End(p, reversing)
	}
}

func (l *ListenerFuncs) OnCancel(p Playable) {
	if l.Cancel != nil {
		l.Cancel(p)
	}
}

// Observable is implemented by playables that accept listeners.
type Observable interface {
	AddListener(l Listener)
	RemoveListener(l Listener)
}

// Interpolator maps an elapsed fraction in [0,1] to an eased fraction.
type Interpolator func(fraction float64) float64

// DurationSetter is implemented by playables whose duration a group may override.
type DurationSetter interface {
	SetDuration(d time.Duration) error
}

// InterpolatorSetter is implemented by playables whose easing a group may override.
type InterpolatorSetter interface {
	SetInterpolator(fn Interpolator)
}

// Named is implemented by playables that carry a display name. Names show up
// in compiled timelines, traces, and log lines.
type Named interface {
	Name() string
}

// NameOf returns p's name, or its dynamic type when p is unnamed.
func NameOf(p Playable) string {
	if n, ok := p.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}

// Easing names accepted by definitions.
const (
	EasingLinear               = "linear"
	EasingAccelerate           = "accelerate"
	EasingDecelerate           = "decelerate"
	EasingAccelerateDecelerate = "accelerate_decelerate"
)

// IsEasing reports whether name is a known easing. The empty name means
// "keep the clip's default".
func IsEasing(name string) bool {
	switch name {
	case "", EasingLinear, EasingAccelerate, EasingDecelerate, EasingAccelerateDecelerate:
		return true
	}
	return false
}
