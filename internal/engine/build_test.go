package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/testutil"
)

const introYAML = `
name: intro
start_delay: 20ms
clips:
  - name: fade
    duration: 100ms
  - name: slide
    duration: 200ms
    easing: decelerate
  - name: panel
    group:
      name: panel
      clips:
        - name: x
          duration: 50ms
relations:
  - play: fade
    before: [slide]
  - play: panel
    after: [fade]
`

func TestBuild_Scene(t *testing.T) {
	def, err := compiler.DecodeDefinitionYAML([]byte(introYAML))
	require.NoError(t, err)

	clock := testutil.NewFrameClock(10 * ms)
	scene, err := Build(def, WithScheduler(NewScheduler(clock)))
	require.NoError(t, err)

	assert.Equal(t, []string{"fade", "slide", "panel", "panel/x"}, scene.Paths)
	assert.Contains(t, scene.Clips, "panel/x")
	_, isTween := scene.Tween("panel")
	assert.False(t, isTween)

	g := scene.Group
	assert.Equal(t, "intro", g.Name())
	assert.Equal(t, 20*ms, g.StartDelay())
	assert.Equal(t, 320*ms, g.TotalDuration())

	start, end := windowOf(t, g, "fade")
	assert.Equal(t, 20*ms, start)
	assert.Equal(t, 120*ms, end)
	start, end = windowOf(t, g, "slide")
	assert.Equal(t, 120*ms, start)
	assert.Equal(t, 320*ms, end)
	start, end = windowOf(t, g, "panel")
	assert.Equal(t, 120*ms, start)
	assert.Equal(t, 170*ms, end)

	require.NoError(t, g.Start())
	clock.RunUntilIdle(100)
	assert.False(t, g.IsStarted())
	for _, path := range []string{"fade", "slide", "panel/x"} {
		tw, ok := scene.Tween(path)
		require.True(t, ok, path)
		assert.Equal(t, 1.0, tw.Value(), path)
	}
}

func TestBuild_EasingApplied(t *testing.T) {
	def, err := compiler.DecodeDefinitionYAML([]byte(introYAML))
	require.NoError(t, err)
	scene, err := Build(def)
	require.NoError(t, err)

	require.NoError(t, scene.Group.SetCurrentPlayTime(200*ms))
	slide, ok := scene.Tween("slide")
	require.True(t, ok)
	assert.InDelta(t, Decelerate(0.5), slide.Value(), 1e-9)
}

func TestBuild_RejectsInvalidDefinition(t *testing.T) {
	def, err := compiler.DecodeDefinitionYAML([]byte(`
name: broken
clips:
  - name: fade
    duration: 100ms
relations:
  - play: ghost
    after: [fade]
`))
	require.NoError(t, err)

	_, err = Build(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E104")
	assert.Contains(t, err.Error(), `"broken"`)
}
