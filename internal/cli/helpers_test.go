package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/config"
	"github.com/roach88/choreo/internal/engine"
	"github.com/roach88/choreo/internal/harness"
	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/store"
)

var (
	sequenceTimeline = filepath.Join("..", "..", "testdata", "timelines", "sequence.yaml")
	introTimeline    = filepath.Join("..", "..", "testdata", "timelines", "intro.cue")
	scenariosDir     = filepath.Join("..", "..", "testdata", "scenarios")
)

// testRoot returns root options as PersistentPreRunE would leave them with
// no config file or environment.
func testRoot(format string) *RootOptions {
	return &RootOptions{Format: format, Config: config.Default()}
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// seedRun records the sequence timeline played forward under id.
func seedRun(t *testing.T, dbPath, id string) store.Run {
	t.Helper()
	def, err := compiler.LoadFile(sequenceTimeline)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := harness.Record(context.Background(), st, def, harness.Recipe{
		Options: harness.Options{FrameDelay: ir.Duration(10 * time.Millisecond)},
		Steps:   []harness.Step{{Action: harness.ActionStart}, {UntilIdle: true}},
	}, engine.NewFixedGenerator(id))
	require.NoError(t, err)
	return run
}

const cycleYAML = `
name: loop
clips:
  - name: a
    duration: 10ms
  - name: b
    duration: 10ms
relations:
  - play: a
    after: [b]
  - play: b
    after: [a]
`

const infiniteYAML = `
name: spinner
clips:
  - name: spin
    duration: infinite
`

const invalidYAML = `
name: broken
clips:
  - name: fade
    duration: 10ms
sequence: [fade, missing]
`
