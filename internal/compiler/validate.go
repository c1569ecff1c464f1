package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/choreo/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrDefinitionNameEmpty = "E101" // definition name is required
	ErrClipNameEmpty       = "E102" // clip name is required
	ErrDuplicateClip       = "E103" // duplicate clip name
	ErrUnknownClip         = "E104" // reference to an undeclared clip
	ErrUnknownEasing       = "E105" // easing name not recognised
	ErrInfiniteDelay       = "E106" // delays must be finite
	ErrGroupClipTiming     = "E107" // nested group clips take timing from the group
	ErrRelationNoPlay      = "E108" // relation without a play target
	ErrSelfRelation        = "E109" // clip related to itself
)

// ValidationError represents a definition validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a definition and its nested groups.
// Returns all errors found (does not fail-fast).
func Validate(def *ir.Definition) []ValidationError {
	return validateDefinition(def, "")
}

func validateDefinition(def *ir.Definition, path string) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(def.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   path + "name",
			Message: "definition name is required and must be non-empty",
			Code:    ErrDefinitionNameEmpty,
		})
	}
	if def.StartDelay.Std() == ir.Infinite {
		errs = append(errs, ValidationError{
			Field:   path + "start_delay",
			Message: "start delay cannot be infinite",
			Code:    ErrInfiniteDelay,
		})
	}
	if !ir.IsEasing(def.Easing) {
		errs = append(errs, ValidationError{
			Field:   path + "easing",
			Message: fmt.Sprintf("unknown easing %q", def.Easing),
			Code:    ErrUnknownEasing,
		})
	}

	declared := make(map[string]bool)
	for i, c := range def.Clips {
		field := fmt.Sprintf("%sclips[%d]", path, i)
		name := ir.NormalizeName(c.Name)

		if strings.TrimSpace(name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "clip name is required",
				Code:    ErrClipNameEmpty,
			})
			continue
		}
		if declared[name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate clip name %q", c.Name),
				Code:    ErrDuplicateClip,
			})
		}
		declared[name] = true

		if c.Delay.Std() == ir.Infinite {
			errs = append(errs, ValidationError{
				Field:   field + ".delay",
				Message: "clip delay cannot be infinite",
				Code:    ErrInfiniteDelay,
			})
		}
		if !ir.IsEasing(c.Easing) {
			errs = append(errs, ValidationError{
				Field:   field + ".easing",
				Message: fmt.Sprintf("unknown easing %q", c.Easing),
				Code:    ErrUnknownEasing,
			})
		}
		if c.Group != nil {
			if c.Duration != 0 || c.Delay != 0 || c.Easing != "" {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: "a group clip takes duration, delay and easing from its group",
					Code:    ErrGroupClipTiming,
				})
			}
			errs = append(errs, validateDefinition(c.Group, field+".group.")...)
		}
	}

	checkRef := func(field, ref string) {
		if !declared[ir.NormalizeName(ref)] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown clip %q", ref),
				Code:    ErrUnknownClip,
			})
		}
	}

	for i, ref := range def.Together {
		checkRef(fmt.Sprintf("%stogether[%d]", path, i), ref)
	}
	for i, ref := range def.Sequence {
		checkRef(fmt.Sprintf("%ssequence[%d]", path, i), ref)
	}
	for i, r := range def.Relations {
		field := fmt.Sprintf("%srelations[%d]", path, i)
		if strings.TrimSpace(r.Play) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".play",
				Message: "relation requires a play target",
				Code:    ErrRelationNoPlay,
			})
			continue
		}
		checkRef(field+".play", r.Play)
		play := ir.NormalizeName(r.Play)

		lists := []struct {
			name string
			refs []string
		}{{"with", r.With}, {"before", r.Before}, {"after", r.After}}
		for _, l := range lists {
			for j, ref := range l.refs {
				f := fmt.Sprintf("%s.%s[%d]", field, l.name, j)
				checkRef(f, ref)
				if ir.NormalizeName(ref) == play {
					errs = append(errs, ValidationError{
						Field:   f,
						Message: fmt.Sprintf("clip %q cannot be related to itself", ref),
						Code:    ErrSelfRelation,
					})
				}
			}
		}
		if r.AfterDelay != nil && r.AfterDelay.Std() == ir.Infinite {
			errs = append(errs, ValidationError{
				Field:   field + ".after_delay",
				Message: "after_delay cannot be infinite",
				Code:    ErrInfiniteDelay,
			})
		}
	}

	return errs
}
