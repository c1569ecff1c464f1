package harness

import (
	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/trace"
)

// ClipState is a clip's state after the last step.
type ClipState struct {
	Value   float64 `json:"value"`
	Started bool    `json:"started"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step behaved as scripted and every assertion held.
	Pass bool `json:"pass"`

	RunID string `json:"run_id"`

	// Trace is the recorded trace as read back from the store.
	Trace []trace.Entry `json:"trace"`

	// Errors contains assertion and step failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final holds every leaf clip's state, keyed by clip path.
	Final map[string]ClipState `json:"final,omitempty"`

	// PlayTime is the group's position after the last step.
	PlayTime ir.Duration `json:"play_time"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []trace.Entry{},
		Errors: []string{},
		Final:  make(map[string]ClipState),
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
