package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/ir"
)

// Scenario is a scripted playback test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Timeline is the path of the definition file to play, relative to the
	// scenario file.
	Timeline string `yaml:"timeline,omitempty"`

	// Definition is an inline alternative to Timeline.
	Definition *ir.Definition `yaml:"definition,omitempty"`

	Recipe `yaml:",inline"`

	// Assertions validate the final trace and clip states.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scripted instruction. Exactly one of Action, Advance, Frames
// and UntilIdle is set.
type Step struct {
	// Action is a lifecycle call: start, reverse, end, cancel, pause,
	// resume or seek.
	Action string `yaml:"action,omitempty" json:"action,omitempty"`

	// Target is the clip path the action applies to. Empty means the
	// timeline's group.
	Target string `yaml:"target,omitempty" json:"target,omitempty"`

	// At is the seek position (seek only).
	At *ir.Duration `yaml:"at,omitempty" json:"at,omitempty"`

	// ExpectError is the playback error code the action must fail with.
	ExpectError string `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`

	// Advance produces one frame this long after the previous one.
	Advance *ir.Duration `yaml:"advance,omitempty" json:"advance,omitempty"`

	// Frames produces this many frames of the configured frame delay.
	Frames int `yaml:"frames,omitempty" json:"frames,omitempty"`

	// UntilIdle produces frames until nothing is registered for the next one.
	UntilIdle bool `yaml:"until_idle,omitempty" json:"until_idle,omitempty"`
}

// Step actions.
const (
	ActionStart   = "start"
	ActionReverse = "reverse"
	ActionEnd     = "end"
	ActionCancel  = "cancel"
	ActionPause   = "pause"
	ActionResume  = "resume"
	ActionSeek    = "seek"
)

func isAction(name string) bool {
	switch name {
	case ActionStart, ActionReverse, ActionEnd, ActionCancel, ActionPause, ActionResume, ActionSeek:
		return true
	}
	return false
}

// Assertion validates the trace or the final clip states.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count,
	// final_value, final_state, play_time.
	Type string `yaml:"type"`

	// Entry is a trace label, e.g. "fade end reverse"
	// (trace_contains, trace_count).
	Entry string `yaml:"entry,omitempty"`

	// Entries are trace labels that must appear in this relative order
	// (trace_order).
	Entries []string `yaml:"entries,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Clip is the clip path (final_value, final_state).
	Clip string `yaml:"clip,omitempty"`

	// Value is the expected clip value (final_value).
	Value *float64 `yaml:"value,omitempty"`

	// Tolerance bounds |actual - Value| (final_value). Defaults to 1e-9.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Started is the expected started flag (final_state).
	Started *bool `yaml:"started,omitempty"`

	// PlayTime is the expected group position (play_time).
	PlayTime *ir.Duration `yaml:"play_time,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalValue    = "final_value"
	AssertFinalState    = "final_state"
	AssertPlayTime      = "play_time"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as errors. The timeline path is resolved
// relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving the timeline path against
// baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Timeline != "" && !filepath.IsAbs(scenario.Timeline) && baseDir != "" {
		scenario.Timeline = filepath.Join(baseDir, scenario.Timeline)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDefinition returns the scenario's inline definition or loads its
// timeline file.
func (s *Scenario) LoadDefinition() (*ir.Definition, error) {
	if s.Definition != nil {
		return s.Definition, nil
	}
	def, err := compiler.LoadFile(s.Timeline)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return def, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Timeline == "" && s.Definition == nil:
		return fmt.Errorf("timeline or definition is required")
	case s.Timeline != "" && s.Definition != nil:
		return fmt.Errorf("timeline and definition are mutually exclusive")
	case s.Timeline != "":
		if _, err := os.Stat(s.Timeline); os.IsNotExist(err) {
			return fmt.Errorf("timeline file not found: %s", s.Timeline)
		}
	}

	if err := s.Recipe.Validate(); err != nil {
		return err
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateStep checks that a step sets exactly one instruction.
func validateStep(index int, st *Step) error {
	set := 0
	if st.Action != "" {
		set++
	}
	if st.Advance != nil {
		set++
	}
	if st.Frames != 0 {
		set++
	}
	if st.UntilIdle {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of action, advance, frames, until_idle is required", index)
	}

	switch {
	case st.Action != "" && !isAction(st.Action):
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	case st.Action == ActionSeek && st.At == nil:
		return fmt.Errorf("steps[%d]: at is required for seek", index)
	case st.Action != ActionSeek && st.At != nil:
		return fmt.Errorf("steps[%d]: at is only valid for seek", index)
	case st.Action == "" && (st.Target != "" || st.ExpectError != ""):
		return fmt.Errorf("steps[%d]: target and expect_error need an action", index)
	case st.Frames < 0:
		return fmt.Errorf("steps[%d]: frames must be positive", index)
	case st.Advance != nil && st.Advance.Std() < 0:
		return fmt.Errorf("steps[%d]: advance must be finite", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Entry == "" {
			return fmt.Errorf("assertions[%d]: entry is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Entries) == 0 {
			return fmt.Errorf("assertions[%d]: entries list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Entry == "" {
			return fmt.Errorf("assertions[%d]: entry is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalValue:
		if a.Clip == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: clip and value are required for final_value", index)
		}
	case AssertFinalState:
		if a.Clip == "" || a.Started == nil {
			return fmt.Errorf("assertions[%d]: clip and started are required for final_state", index)
		}
	case AssertPlayTime:
		if a.PlayTime == nil {
			return fmt.Errorf("assertions[%d]: play_time is required for play_time", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
