package engine

import (
	"errors"
	"fmt"
)

// PlaybackError represents a rejected playback operation.
//
// Playback errors are raised synchronously by the call that caused them and
// leave the playable's state unchanged:
//   - Configuration: negative duration or start delay
//   - Invalid operation: seek out of range, reverse of an unbounded group
//   - Affinity: a call made off the goroutine that drives the frame clock
type PlaybackError struct {
	// Code identifies the error category.
	Code PlaybackErrorCode

	// Message is a human-readable description.
	Message string

	// Playable names the playable the call was made on.
	Playable string

	// Details contains additional context.
	Details map[string]string
}

// PlaybackErrorCode categorizes playback errors.
type PlaybackErrorCode string

const (
	// ErrCodeInvalidDuration indicates a negative duration.
	ErrCodeInvalidDuration PlaybackErrorCode = "INVALID_DURATION"

	// ErrCodeInvalidStartDelay indicates a negative start delay.
	ErrCodeInvalidStartDelay PlaybackErrorCode = "INVALID_START_DELAY"

	// ErrCodeInvalidScale indicates a negative duration scale.
	ErrCodeInvalidScale PlaybackErrorCode = "INVALID_SCALE"

	// ErrCodeSeekOutOfRange indicates a seek outside [0, total-startDelay].
	ErrCodeSeekOutOfRange PlaybackErrorCode = "SEEK_OUT_OF_RANGE"

	// ErrCodeCannotReverse indicates a reverse (or reverse seek) on an
	// unbounded group.
	ErrCodeCannotReverse PlaybackErrorCode = "CANNOT_REVERSE"

	// ErrCodeWrongLoop indicates a call from outside the frame loop.
	ErrCodeWrongLoop PlaybackErrorCode = "WRONG_LOOP"

	// ErrCodeNoScheduler indicates a self-pulsing start without a scheduler.
	ErrCodeNoScheduler PlaybackErrorCode = "NO_SCHEDULER"
)

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	if e.Playable != "" {
		return fmt.Sprintf("%s: %s (playable=%s)", e.Code, e.Message, e.Playable)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, codes ...PlaybackErrorCode) bool {
	var pe *PlaybackError
	if !errors.As(err, &pe) {
		return false
	}
	for _, c := range codes {
		if pe.Code == c {
			return true
		}
	}
	return false
}

// IsSeekError returns true if the error is a rejected seek.
// Uses errors.As to handle wrapped errors.
func IsSeekError(err error) bool {
	return hasCode(err, ErrCodeSeekOutOfRange)
}

// IsReverseError returns true if the error is a rejected reverse.
func IsReverseError(err error) bool {
	return hasCode(err, ErrCodeCannotReverse)
}

// IsLoopError returns true if the error is an affinity violation.
func IsLoopError(err error) bool {
	return hasCode(err, ErrCodeWrongLoop)
}

// IsConfigError returns true if the error rejected a configuration value.
func IsConfigError(err error) bool {
	return hasCode(err, ErrCodeInvalidDuration, ErrCodeInvalidStartDelay, ErrCodeInvalidScale)
}

// NewDurationError creates a PlaybackError for a negative duration.
func NewDurationError(name string, d fmt.Stringer) *PlaybackError {
	return &PlaybackError{
		Code:     ErrCodeInvalidDuration,
		Message:  "duration must be a value of zero or greater",
		Playable: name,
		Details:  map[string]string{"duration": d.String()},
	}
}

// NewStartDelayError creates a PlaybackError for a negative start delay.
func NewStartDelayError(name string, d fmt.Stringer) *PlaybackError {
	return &PlaybackError{
		Code:     ErrCodeInvalidStartDelay,
		Message:  "start delay must be a value of zero or greater",
		Playable: name,
		Details:  map[string]string{"start_delay": d.String()},
	}
}

// NewSeekError creates a PlaybackError for an out-of-range seek.
func NewSeekError(name string, playTime, limit fmt.Stringer) *PlaybackError {
	return &PlaybackError{
		Code:     ErrCodeSeekOutOfRange,
		Message:  "play time must be between 0 and the duration",
		Playable: name,
		Details: map[string]string{
			"play_time": playTime.String(),
			"limit":     limit.String(),
		},
	}
}

// NewReverseError creates a PlaybackError for reversing an unbounded group.
func NewReverseError(name string) *PlaybackError {
	return &PlaybackError{
		Code:     ErrCodeCannotReverse,
		Message:  "cannot reverse a group with infinite duration",
		Playable: name,
	}
}

// NewLoopError creates a PlaybackError for a call made off the frame loop.
func NewLoopError(name string) *PlaybackError {
	return &PlaybackError{
		Code:     ErrCodeWrongLoop,
		Message:  "playables may only be driven from the frame loop goroutine",
		Playable: name,
	}
}

// NewNoSchedulerError creates a PlaybackError for a self-pulsing start
// without a scheduler.
func NewNoSchedulerError(name string) *PlaybackError {
	return &PlaybackError{
		Code:     ErrCodeNoScheduler,
		Message:  "a scheduler is required to self-pulse",
		Playable: name,
	}
}
