package engine

import (
	"time"

	"github.com/roach88/choreo/internal/ir"
)

// Option configures a Tween or a Group at construction.
type Option func(*options)

type options struct {
	sched  *Scheduler
	delay  time.Duration
	interp ir.Interpolator
	update func(value float64)
}

// WithScheduler sets the scheduler used when the playable pulses itself.
// Playables driven only by a parent group do not need one.
func WithScheduler(s *Scheduler) Option {
	return func(o *options) {
		o.sched = s
	}
}

// WithStartDelay sets the start delay.
func WithStartDelay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

// WithInterpolator sets the easing curve. On a group it overrides every
// child's curve.
func WithInterpolator(fn ir.Interpolator) Option {
	return func(o *options) {
		o.interp = fn
	}
}

// WithUpdate sets the sink a Tween reports each eased value to.
func WithUpdate(fn func(value float64)) Option {
	return func(o *options) {
		o.update = fn
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func scaled(d time.Duration, scale float64) time.Duration {
	return time.Duration(float64(d) * scale)
}

func unscaled(d time.Duration, scale float64) time.Duration {
	if scale == 0 {
		return d
	}
	return time.Duration(float64(d) / scale)
}
