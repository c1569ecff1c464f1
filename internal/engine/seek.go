package engine

import (
	"time"

	"github.com/roach88/choreo/internal/ir"
)

// SeekState holds a seek request until the next frame applies it.
//
// The position is measured past the group's start delay in the direction
// the seek was made in. Limit is the group's seekable length,
// total duration minus start delay, or ir.Infinite.
type SeekState struct {
	playTime  time.Duration
	reversing bool
}

// NewSeekState returns an inactive seek.
func NewSeekState() SeekState {
	return SeekState{playTime: -1}
}

// Reset clears the pending seek.
func (s *SeekState) Reset() {
	s.playTime = -1
	s.reversing = false
}

// Active reports whether a seek is pending.
func (s *SeekState) Active() bool {
	return s.playTime != -1
}

// PlayTime returns the pending position, or -1.
func (s *SeekState) PlayTime() time.Duration {
	return s.playTime
}

// Reversing reports the direction the seek was made in.
func (s *SeekState) Reversing() bool {
	return s.reversing
}

// SetPlayTime records a seek to t, clamped into [0, limit].
func (s *SeekState) SetPlayTime(t, limit time.Duration, reversing bool) {
	if limit != ir.Infinite && t > limit {
		t = limit
	}
	s.playTime = max(t, 0)
	s.reversing = reversing
}

// UpdateDirection mirrors a pending position when playback direction
// changed since the seek, so the completed fraction is kept.
func (s *SeekState) UpdateDirection(limit time.Duration, reversing bool) {
	if !s.Active() || reversing == s.reversing {
		return
	}
	if limit != ir.Infinite {
		s.playTime = limit - s.playTime
	}
	s.reversing = reversing
}

// Normalized returns the pending position as a forward play time.
func (s *SeekState) Normalized(limit time.Duration) time.Duration {
	if s.reversing && limit != ir.Infinite {
		return limit - s.playTime
	}
	return s.playTime
}
