package host

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

// DefaultFrameDelay is the frame interval of a Loop created with a
// non-positive delay.
const DefaultFrameDelay = 16 * time.Millisecond

var (
	// ErrRunning is returned by Run when the loop is already running.
	ErrRunning = errors.New("host: loop already running")
	// ErrStopped is returned by Call once the loop no longer accepts tasks.
	ErrStopped = errors.New("host: loop stopped")
)

// Loop is a real-time frame clock.
//
// Frame times are measured from the moment Run starts. PostFrameCallback,
// PostCommitCallback and the FrameTime/FrameDelay accessors are safe from
// any goroutine; callbacks themselves always run on the loop goroutine.
type Loop struct {
	queue *taskQueue
	reset chan struct{}

	delay     atomic.Int64
	frameTime atomic.Int64
	gid       atomic.Int64
	running   atomic.Bool

	// Owned by the loop goroutine.
	frames  []func(time.Duration)
	commits []func()
	count   int
}

// NewLoop creates a stopped loop ticking every frameDelay.
func NewLoop(frameDelay time.Duration) *Loop {
	if frameDelay <= 0 {
		frameDelay = DefaultFrameDelay
	}
	l := &Loop{
		queue: newTaskQueue(),
		reset: make(chan struct{}, 1),
	}
	l.delay.Store(int64(frameDelay))
	return l
}

// Run drives the loop until ctx is done or Stop is called. It must be
// called once, from the goroutine that will own the loop.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	l.gid.Store(goid.Get())
	defer l.gid.Store(0)

	start := time.Now()
	ticker := time.NewTicker(l.FrameDelay())
	defer ticker.Stop()

	slog.Info("frame loop starting", "frame_delay", l.FrameDelay())
	for {
		l.runTasks()

		select {
		case <-ctx.Done():
			l.queue.Close()
			slog.Info("frame loop stopped", "frames", l.count, "reason", ctx.Err())
			return ctx.Err()
		case <-l.reset:
			ticker.Reset(l.FrameDelay())
		case t := <-ticker.C:
			l.frame(t.Sub(start))
		case _, ok := <-l.queue.Wait():
			if !ok {
				l.runTasks()
				slog.Info("frame loop stopped", "frames", l.count)
				return nil
			}
		}
	}
}

// Stop makes Run return after the tasks already posted. Posting after Stop
// fails.
func (l *Loop) Stop() {
	l.queue.Close()
}

// Post queues fn to run on the loop between frames. It reports false once
// the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	return l.queue.Enqueue(fn)
}

// Call runs fn on the loop and waits for its result. Called on the loop
// itself, it runs fn directly.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	if l.OnLoop() {
		return fn()
	}
	done := make(chan error, 1)
	if !l.Post(func() { done <- fn() }) {
		return ErrStopped
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnLoop reports whether the caller runs on the loop goroutine.
func (l *Loop) OnLoop() bool {
	gid := l.gid.Load()
	return gid != 0 && gid == goid.Get()
}

// PostFrameCallback implements engine.Provider.
func (l *Loop) PostFrameCallback(cb func(frameTime time.Duration)) {
	if l.OnLoop() {
		l.frames = append(l.frames, cb)
		return
	}
	l.Post(func() { l.frames = append(l.frames, cb) })
}

// PostCommitCallback implements engine.Provider.
func (l *Loop) PostCommitCallback(fn func()) {
	if l.OnLoop() {
		l.commits = append(l.commits, fn)
		return
	}
	l.Post(func() { l.commits = append(l.commits, fn) })
}

// FrameTime implements engine.Provider.
func (l *Loop) FrameTime() time.Duration {
	return time.Duration(l.frameTime.Load())
}

// FrameDelay implements engine.Provider.
func (l *Loop) FrameDelay() time.Duration {
	return time.Duration(l.delay.Load())
}

// SetFrameDelay implements engine.Provider. The ticker picks the new
// interval up before its next frame.
func (l *Loop) SetFrameDelay(d time.Duration) {
	if d <= 0 {
		return
	}
	l.delay.Store(int64(d))
	select {
	case l.reset <- struct{}{}:
	default:
	}
}

// Frames returns how many frames the loop produced. Loop goroutine only.
func (l *Loop) Frames() int {
	return l.count
}

func (l *Loop) runTasks() {
	for {
		fn, ok := l.queue.TryDequeue()
		if !ok {
			return
		}
		fn()
	}
}

func (l *Loop) frame(frameTime time.Duration) {
	l.frameTime.Store(int64(frameTime))
	l.count++

	frames := l.frames
	l.frames = nil
	for _, cb := range frames {
		cb(frameTime)
	}

	// Commit callbacks may post further commits; drain until quiet.
	for len(l.commits) > 0 {
		commits := l.commits
		l.commits = nil
		for _, fn := range commits {
			fn()
		}
	}
}
