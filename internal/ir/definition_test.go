package ir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"empty", "", 0, false},
		{"milliseconds suffix", "250ms", 250 * time.Millisecond, false},
		{"seconds", "1.5s", 1500 * time.Millisecond, false},
		{"bare integer is ms", "300", 300 * time.Millisecond, false},
		{"infinite", "infinite", Infinite, false},
		{"infinite any case", "INFINITE", Infinite, false},
		{"negative integer", "-5", 0, true},
		{"negative duration", "-5ms", 0, true},
		{"garbage", "soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDuration(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.Std())
		})
	}
}

func TestDurationString(t *testing.T) {
	assert.Equal(t, "infinite", Duration(Infinite).String())
	assert.Equal(t, "100ms", Duration(100*time.Millisecond).String())
}

func TestDurationJSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"2s","b":150}`), &v))
	assert.Equal(t, 2*time.Second, v.A.Std())
	assert.Equal(t, 150*time.Millisecond, v.B.Std())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"2s","b":"150ms"}`, string(out))
}

// TestDefinitionYAML tests decoding a nested definition from YAML.
func TestDefinitionYAML(t *testing.T) {
	src := `
name: intro
start_delay: 50ms
clips:
  - name: fade
    duration: 100ms
  - name: slide
    duration: 200
    delay: 10ms
    easing: decelerate
  - name: inner
    group:
      name: inner
      clips:
        - name: pop
          duration: 30ms
      sequence: [pop]
relations:
  - play: fade
    with: [slide]
    before: [inner]
    after_delay: 1s
`
	var def Definition
	require.NoError(t, yaml.Unmarshal([]byte(src), &def))

	assert.Equal(t, "intro", def.Name)
	assert.Equal(t, 50*time.Millisecond, def.StartDelay.Std())
	assert.Nil(t, def.Duration)
	require.Len(t, def.Clips, 3)
	assert.Equal(t, 200*time.Millisecond, def.Clips[1].Duration.Std())
	assert.Equal(t, 10*time.Millisecond, def.Clips[1].Delay.Std())
	assert.Equal(t, "decelerate", def.Clips[1].Easing)
	require.NotNil(t, def.Clips[2].Group)
	assert.Equal(t, []string{"pop"}, def.Clips[2].Group.Sequence)
	require.Len(t, def.Relations, 1)
	assert.Equal(t, []string{"slide"}, def.Relations[0].With)
	require.NotNil(t, def.Relations[0].AfterDelay)
	assert.Equal(t, time.Second, def.Relations[0].AfterDelay.Std())
	assert.Equal(t, []string{"fade", "slide", "inner"}, def.ClipNames())
}
