package compiler

import (
	"testing"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/ir"
)

func TestCompileDefinitionBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		timeline: {
			name: "intro"
			start_delay: "50ms"
			clips: [
				{name: "fade", duration: "100ms"},
				{name: "slide", duration: 200, easing: "decelerate"},
			]
			relations: [{play: "fade", before: ["slide"]}]
		}
	`)
	require.NoError(t, v.Err())

	def, err := CompileDefinition(v.LookupPath(cue.ParsePath(DefinitionPath)))
	require.NoError(t, err)

	assert.Equal(t, "intro", def.Name)
	assert.Equal(t, 50*time.Millisecond, def.StartDelay.Std())
	require.Len(t, def.Clips, 2)
	assert.Equal(t, 100*time.Millisecond, def.Clips[0].Duration.Std())
	assert.Equal(t, 200*time.Millisecond, def.Clips[1].Duration.Std())
	assert.Equal(t, ir.EasingDecelerate, def.Clips[1].Easing)
	assert.Equal(t, []string{"slide"}, def.Relations[0].Before)
}

func TestCompileDefinitionNameFromLabel(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		timeline: {
			clips: [{name: "a", duration: "1s"}]
		}
	`)
	require.NoError(t, v.Err())

	def, err := CompileDefinition(v.LookupPath(cue.ParsePath(DefinitionPath)))
	require.NoError(t, err)
	assert.Equal(t, "timeline", def.Name)
}

func TestCompileDefinitionMissing(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: 1`)
	require.NoError(t, v.Err())

	_, err := CompileDefinition(v.LookupPath(cue.ParsePath(DefinitionPath)))
	require.Error(t, err)
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, DefinitionPath, compileErr.Field)
}

func TestCompileDefinitionNotConcrete(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		timeline: {
			name: string
			clips: []
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileDefinition(v.LookupPath(cue.ParsePath(DefinitionPath)))
	require.Error(t, err)
}

func TestCompileDefinitionBadDuration(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		timeline: {
			name: "bad"
			clips: [{name: "a", duration: "soon"}]
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileDefinition(v.LookupPath(cue.ParsePath(DefinitionPath)))
	require.Error(t, err)
}

func TestDecodeDefinitionYAML(t *testing.T) {
	def, err := DecodeDefinitionYAML([]byte(`
name: intro
clips:
  - name: a
    duration: 100ms
sequence: [a]
`))
	require.NoError(t, err)
	assert.Equal(t, "intro", def.Name)
	assert.Equal(t, []string{"a"}, def.Sequence)
}

func TestDecodeDefinitionYAMLUnknownField(t *testing.T) {
	_, err := DecodeDefinitionYAML([]byte(`
name: intro
clipz: []
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clipz")
}

func TestDecodeDefinitionYAMLEmpty(t *testing.T) {
	_, err := DecodeDefinitionYAML(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty document")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "timeline", Message: "no timeline declared"}
	assert.Equal(t, "timeline: no timeline declared", err.Error())
}
