package engine

import (
	"log/slog"
	"slices"
	"time"
)

// Provider is the frame-clock seam a Scheduler runs on.
//
// A provider delivers frame callbacks on a single goroutine, in posting
// order. Commit callbacks run after every frame callback of the same frame.
type Provider interface {
	PostFrameCallback(cb func(frameTime time.Duration))
	PostCommitCallback(fn func())
	FrameTime() time.Duration
	FrameDelay() time.Duration
	SetFrameDelay(d time.Duration)
}

// Looper is implemented by providers that can tell whether the caller is
// running on the frame loop goroutine.
type Looper interface {
	OnLoop() bool
}

// FrameCallback is a subscriber driven by a Scheduler once per frame.
type FrameCallback interface {
	// DoFrame advances the subscriber to frameTime. The return value reports
	// whether the subscriber finished; finished subscribers remove themselves.
	DoFrame(frameTime time.Duration) bool
	// CommitFrame runs after every DoFrame of a frame for subscribers that
	// asked for it through AddCommitCallback.
	CommitFrame(frameTime time.Duration)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithDurationScale sets the initial duration scale. Negative values are
// ignored.
func WithDurationScale(scale float64) SchedulerOption {
	return func(s *Scheduler) {
		if scale >= 0 {
			s.scale = scale
		}
	}
}

// WithLogger sets the logger used for dropped callbacks.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler fans a single provider's frames out to many subscribers.
//
// Subscribers removed during a frame leave a nil slot that is compacted
// after dispatch, so removal while iterating never skips a neighbor.
// A Scheduler is not safe for concurrent use: every call must come from the
// provider's loop goroutine.
type Scheduler struct {
	provider Provider
	scale    float64
	logger   *slog.Logger

	callbacks []FrameCallback
	delayed   map[FrameCallback]time.Duration
	commits   []FrameCallback
	listDirty bool
	posted    bool
}

// NewScheduler creates a scheduler on top of provider.
func NewScheduler(provider Provider, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		provider: provider,
		scale:    1,
		logger:   slog.Default(),
		delayed:  make(map[FrameCallback]time.Duration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the underlying frame clock.
func (s *Scheduler) Provider() Provider {
	return s.provider
}

// AddFrameCallback registers cb for frames at least delay after now.
// Registering a callback twice keeps the first registration.
func (s *Scheduler) AddFrameCallback(cb FrameCallback, delay time.Duration) {
	if s.CallbackCount() == 0 {
		s.post()
	}
	if !slices.Contains(s.callbacks, cb) {
		s.callbacks = append(s.callbacks, cb)
	}
	if delay > 0 {
		s.delayed[cb] = s.provider.FrameTime() + delay
	}
}

// AddCommitCallback asks for one CommitFrame call after cb's next DoFrame.
func (s *Scheduler) AddCommitCallback(cb FrameCallback) {
	if !slices.Contains(s.commits, cb) {
		s.commits = append(s.commits, cb)
	}
}

// RemoveCallback unregisters cb. It is safe to call from inside DoFrame.
func (s *Scheduler) RemoveCallback(cb FrameCallback) {
	delete(s.delayed, cb)
	if i := slices.Index(s.commits, cb); i >= 0 {
		s.commits = slices.Delete(s.commits, i, i+1)
	}
	if i := slices.Index(s.callbacks, cb); i >= 0 {
		s.callbacks[i] = nil
		s.listDirty = true
	}
}

// CallbackCount returns the number of registered subscribers.
func (s *Scheduler) CallbackCount() int {
	n := 0
	for _, cb := range s.callbacks {
		if cb != nil {
			n++
		}
	}
	return n
}

// DurationScale returns the global multiplier applied to every duration.
func (s *Scheduler) DurationScale() float64 {
	return s.scale
}

// SetDurationScale changes the global duration multiplier. A scale of zero
// makes every group finish on its next frame.
func (s *Scheduler) SetDurationScale(scale float64) error {
	if scale < 0 {
		return &PlaybackError{
			Code:    ErrCodeInvalidScale,
			Message: "duration scale must be zero or greater",
		}
	}
	s.scale = scale
	return nil
}

// FrameTime returns the provider's latest frame time.
func (s *Scheduler) FrameTime() time.Duration {
	return s.provider.FrameTime()
}

// FrameDelay returns the provider's frame interval.
func (s *Scheduler) FrameDelay() time.Duration {
	return s.provider.FrameDelay()
}

// SetFrameDelay changes the provider's frame interval.
func (s *Scheduler) SetFrameDelay(d time.Duration) {
	s.provider.SetFrameDelay(d)
}

// OnLoop reports whether the caller runs on the frame loop. Providers that
// cannot tell are assumed to be driven correctly.
func (s *Scheduler) OnLoop() bool {
	if l, ok := s.provider.(Looper); ok {
		return l.OnLoop()
	}
	return true
}

func (s *Scheduler) post() {
	if s.posted {
		return
	}
	s.posted = true
	s.provider.PostFrameCallback(s.frame)
}

func (s *Scheduler) frame(frameTime time.Duration) {
	s.posted = false
	s.dispatch(frameTime)
	if s.CallbackCount() > 0 {
		s.post()
	}
}

func (s *Scheduler) dispatch(frameTime time.Duration) {
	// Callbacks added during dispatch wait for the next frame.
	n := len(s.callbacks)
	for i := 0; i < n; i++ {
		cb := s.callbacks[i]
		if cb == nil || !s.due(cb, frameTime) {
			continue
		}
		cb.DoFrame(frameTime)
		if slices.Contains(s.commits, cb) {
			s.provider.PostCommitCallback(func() {
				s.commit(cb)
			})
		}
	}
	s.compact()
}

func (s *Scheduler) commit(cb FrameCallback) {
	if _, waiting := s.delayed[cb]; waiting {
		return
	}
	i := slices.Index(s.commits, cb)
	if i < 0 {
		s.logger.Debug("commit callback dropped", "callback", cb)
		return
	}
	s.commits = slices.Delete(s.commits, i, i+1)
	cb.CommitFrame(s.provider.FrameTime())
}

func (s *Scheduler) due(cb FrameCallback, frameTime time.Duration) bool {
	at, ok := s.delayed[cb]
	if !ok {
		return true
	}
	if at <= frameTime {
		delete(s.delayed, cb)
		return true
	}
	return false
}

func (s *Scheduler) compact() {
	if !s.listDirty {
		return
	}
	s.callbacks = slices.DeleteFunc(s.callbacks, func(cb FrameCallback) bool {
		return cb == nil
	})
	s.listDirty = false
}
