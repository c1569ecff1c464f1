package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValid(t *testing.T) {
	after := ir.Duration(20 * ms)
	def := &ir.Definition{
		Name:     "intro",
		Easing:   ir.EasingDecelerate,
		Clips:    clips("fade", "slide", "pop"),
		Together: []string{"fade", "slide"},
		Relations: []ir.Relation{
			{Play: "pop", After: []string{"slide"}, AfterDelay: &after},
		},
	}
	assert.Empty(t, Validate(def))
}

func TestValidateMissingName(t *testing.T) {
	errs := Validate(&ir.Definition{Name: "  "})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDefinitionNameEmpty, errs[0].Code)
	assert.Equal(t, "name", errs[0].Field)
}

func TestValidateDuplicateClip(t *testing.T) {
	def := &ir.Definition{
		Name:  "dup",
		Clips: []ir.Clip{{Name: "café"}, {Name: "café"}},
	}
	errs := Validate(def)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateClip, errs[0].Code)
	assert.Equal(t, "clips[1].name", errs[0].Field)
}

func TestValidateUnknownReferences(t *testing.T) {
	def := &ir.Definition{
		Name:     "refs",
		Clips:    clips("a"),
		Together: []string{"a", "ghost"},
		Sequence: []string{"nope"},
		Relations: []ir.Relation{
			{Play: "missing", Before: []string{"a"}},
		},
	}
	errs := Validate(def)
	assert.Equal(t, []string{ErrUnknownClip, ErrUnknownClip, ErrUnknownClip}, codes(errs))
	assert.Equal(t, "together[1]", errs[0].Field)
	assert.Equal(t, "sequence[0]", errs[1].Field)
	assert.Equal(t, "relations[0].play", errs[2].Field)
}

func TestValidateSelfRelation(t *testing.T) {
	def := &ir.Definition{
		Name:      "self",
		Clips:     clips("a"),
		Relations: []ir.Relation{{Play: "a", Before: []string{"a"}}},
	}
	errs := Validate(def)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrSelfRelation, errs[0].Code)
	assert.Equal(t, "relations[0].before[0]", errs[0].Field)
}

func TestValidateRelationWithoutPlay(t *testing.T) {
	def := &ir.Definition{
		Name:      "noplay",
		Clips:     clips("a"),
		Relations: []ir.Relation{{Before: []string{"a"}}},
	}
	assert.Equal(t, []string{ErrRelationNoPlay}, codes(Validate(def)))
}

func TestValidateInfiniteDelays(t *testing.T) {
	inf := ir.Duration(ir.Infinite)
	def := &ir.Definition{
		Name:       "inf",
		StartDelay: inf,
		Clips:      []ir.Clip{{Name: "a", Delay: inf, Duration: inf}},
		Relations:  []ir.Relation{{Play: "a", AfterDelay: &inf}},
	}
	errs := Validate(def)
	assert.Equal(t, []string{ErrInfiniteDelay, ErrInfiniteDelay, ErrInfiniteDelay}, codes(errs))
}

func TestValidateUnknownEasing(t *testing.T) {
	def := &ir.Definition{
		Name:   "ease",
		Easing: "bouncy",
		Clips:  []ir.Clip{{Name: "a", Easing: "springy"}},
	}
	errs := Validate(def)
	assert.Equal(t, []string{ErrUnknownEasing, ErrUnknownEasing}, codes(errs))
}

func TestValidateNestedGroup(t *testing.T) {
	def := &ir.Definition{
		Name: "outer",
		Clips: []ir.Clip{{
			Name:     "inner",
			Duration: ir.Duration(ms),
			Group: &ir.Definition{
				Name:     "inner",
				Clips:    clips("x"),
				Sequence: []string{"x", "y"},
			},
		}},
	}
	errs := Validate(def)
	assert.Equal(t, []string{ErrGroupClipTiming, ErrUnknownClip}, codes(errs))
	assert.Equal(t, "clips[0].group.sequence[1]", errs[1].Field)
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "clips[0].name", Message: "clip name is required", Code: ErrClipNameEmpty}
	assert.Equal(t, "[E102] clips[0].name: clip name is required", err.Error())

	err.Line = 7
	assert.Equal(t, "[E102] line 7: clips[0].name: clip name is required", err.Error())
}
