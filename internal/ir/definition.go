package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Definition is a declarative timeline document.
//
// Clips name the playables; Together, Sequence and Relations describe how
// they are ordered. A clip may itself be a nested Definition.
type Definition struct {
	Name       string     `yaml:"name" json:"name"`
	StartDelay Duration   `yaml:"start_delay,omitempty" json:"start_delay,omitempty"`
	Duration   *Duration  `yaml:"duration,omitempty" json:"duration,omitempty"` // Overrides every child's duration
	Easing     string     `yaml:"easing,omitempty" json:"easing,omitempty"`     // Overrides every child's easing
	Clips      []Clip     `yaml:"clips" json:"clips"`
	Together   []string   `yaml:"together,omitempty" json:"together,omitempty"`
	Sequence   []string   `yaml:"sequence,omitempty" json:"sequence,omitempty"`
	Relations  []Relation `yaml:"relations,omitempty" json:"relations,omitempty"`
}

// Clip declares one playable in a definition.
type Clip struct {
	Name     string      `yaml:"name" json:"name"`
	Duration Duration    `yaml:"duration,omitempty" json:"duration,omitempty"`
	Delay    Duration    `yaml:"delay,omitempty" json:"delay,omitempty"`
	Easing   string      `yaml:"easing,omitempty" json:"easing,omitempty"`
	Group    *Definition `yaml:"group,omitempty" json:"group,omitempty"`
}

// Relation is one play(...) statement: the named clip plays together with
// With, before Before and after After. AfterDelay inserts a timing-only
// delay that must elapse before the clip starts.
type Relation struct {
	Play       string    `yaml:"play" json:"play"`
	With       []string  `yaml:"with,omitempty" json:"with,omitempty"`
	Before     []string  `yaml:"before,omitempty" json:"before,omitempty"`
	After      []string  `yaml:"after,omitempty" json:"after,omitempty"`
	AfterDelay *Duration `yaml:"after_delay,omitempty" json:"after_delay,omitempty"`
}

// Duration is a time.Duration that decodes from "250ms", "1.5s",
// "infinite", or a bare integer number of milliseconds.
type Duration time.Duration

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String renders the duration the way ParseDuration accepts it.
func (d Duration) String() string {
	if time.Duration(d) == Infinite {
		return "infinite"
	}
	return time.Duration(d).String()
}

// ParseDuration parses the textual forms accepted by Duration.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.EqualFold(s, "infinite") {
		return Duration(Infinite), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("duration %q is negative", s)
		}
		return Duration(time.Duration(ms) * time.Millisecond), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q is negative", s)
	}
	return Duration(d), nil
}

// UnmarshalText implements encoding.TextUnmarshaler (used by yaml.v3 and CUE).
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts either a JSON string or a JSON integer (milliseconds).
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.UnmarshalText([]byte(s))
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("duration must be a string or integer milliseconds: %s", data)
	}
	return d.UnmarshalText([]byte(strconv.FormatInt(ms, 10)))
}

// MarshalJSON renders the duration as a JSON string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ClipNames returns the clip names in declaration order.
func (def *Definition) ClipNames() []string {
	names := make([]string, 0, len(def.Clips))
	for _, c := range def.Clips {
		names = append(names, c.Name)
	}
	return names
}
