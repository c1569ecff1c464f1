package testutil

import "time"

// FrameClock is a manual frame-clock provider for tests.
//
// Nothing happens until the test calls Advance or Step: posted frame
// callbacks run with the new frame time, then posted commit callbacks run.
// Frame times start at 0 and only move forward, so identical scripts
// produce identical callback sequences.
//
// FrameClock satisfies engine.Provider and engine.Looper. It is not safe for
// concurrent use; tests drive it from one goroutine.
type FrameClock struct {
	now     time.Duration
	delay   time.Duration
	frames  []func(time.Duration)
	commits []func()
	count   int
}

// NewFrameClock creates a clock whose Advance moves time by frameDelay.
func NewFrameClock(frameDelay time.Duration) *FrameClock {
	if frameDelay <= 0 {
		frameDelay = 16 * time.Millisecond
	}
	return &FrameClock{delay: frameDelay}
}

// PostFrameCallback queues cb for the next frame.
func (c *FrameClock) PostFrameCallback(cb func(frameTime time.Duration)) {
	c.frames = append(c.frames, cb)
}

// PostCommitCallback queues fn to run after the current frame's callbacks.
func (c *FrameClock) PostCommitCallback(fn func()) {
	c.commits = append(c.commits, fn)
}

// FrameTime returns the time of the latest frame.
func (c *FrameClock) FrameTime() time.Duration {
	return c.now
}

// FrameDelay returns the interval Advance steps by.
func (c *FrameClock) FrameDelay() time.Duration {
	return c.delay
}

// SetFrameDelay changes the interval Advance steps by.
func (c *FrameClock) SetFrameDelay(d time.Duration) {
	c.delay = d
}

// OnLoop always reports true: tests drive the clock from the calling goroutine.
func (c *FrameClock) OnLoop() bool {
	return true
}

// Advance produces one frame FrameDelay after the previous one.
func (c *FrameClock) Advance() {
	c.Step(c.delay)
}

// Step produces one frame d after the previous one.
func (c *FrameClock) Step(d time.Duration) {
	c.now += d
	c.count++

	frames := c.frames
	c.frames = nil
	for _, cb := range frames {
		cb(c.now)
	}

	// Commit callbacks may post further commits; drain until quiet.
	for len(c.commits) > 0 {
		commits := c.commits
		c.commits = nil
		for _, fn := range commits {
			fn()
		}
	}
}

// Set moves the clock to t without producing a frame.
func (c *FrameClock) Set(t time.Duration) {
	c.now = t
}

// Pending reports whether a frame callback is waiting.
func (c *FrameClock) Pending() bool {
	return len(c.frames) > 0
}

// Frames returns how many frames have been produced.
func (c *FrameClock) Frames() int {
	return c.count
}

// RunUntilIdle advances frame by frame until no callback is pending or max
// frames have run. It returns the number of frames produced.
func (c *FrameClock) RunUntilIdle(max int) int {
	n := 0
	for c.Pending() && n < max {
		c.Advance()
		n++
	}
	return n
}
