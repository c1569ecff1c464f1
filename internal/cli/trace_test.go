package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_EmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	out, err := execute(t, NewTraceCommand(testRoot("text")), "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)
}

func TestTrace_ListRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	seedRun(t, db, "run-a")
	seedRun(t, db, "run-b")

	out, err := execute(t, NewTraceCommand(testRoot("text")), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "run-a  show")
	assert.Contains(t, out, "run-b  show")
	assert.Contains(t, out, "7 event(s)")
}

func TestTrace_ListRunsJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	run := seedRun(t, db, "run-a")

	out, err := execute(t, NewTraceCommand(testRoot("json")), "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data RunList `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "run-a", resp.Data.Runs[0].ID)
	assert.Equal(t, run.DefinitionHash, resp.Data.Runs[0].DefinitionHash)
	assert.Equal(t, 7, resp.Data.Runs[0].Events)
}

func TestTrace_FilterByTimeline(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	seedRun(t, db, "run-a")

	out, err := execute(t, NewTraceCommand(testRoot("text")), "--db", db, "--timeline", sequenceTimeline)
	require.NoError(t, err)
	assert.Contains(t, out, "run-a")

	out, err = execute(t, NewTraceCommand(testRoot("text")), "--db", db, "--timeline", introTimeline)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)
}

func TestTrace_ShowRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	seedRun(t, db, "run-a")

	out, err := execute(t, NewTraceCommand(testRoot("text")), "--db", db, "--run", "run-a")
	require.NoError(t, err)
	assert.Contains(t, out, "Run run-a (show)\n")
	assert.Contains(t, out, "   1       0s  show action start\n")
	assert.Contains(t, out, "   7     60ms  show end\n")
}

func TestTrace_ShowRunJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	seedRun(t, db, "run-a")

	out, err := execute(t, NewTraceCommand(testRoot("json")), "--db", db, "--run", "run-a")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "show", resp.Data.Name)
	require.Len(t, resp.Data.Trace, 7)
	assert.Equal(t, "fade end", resp.Data.Trace[3].Label())
}

func TestTrace_UnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	out, err := execute(t, NewTraceCommand(testRoot("text")), "--db", db, "--run", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestTrace_DeleteRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	seedRun(t, db, "run-a")

	out, err := execute(t, NewTraceCommand(testRoot("text")), "--db", db, "--run", "run-a", "--delete")
	require.NoError(t, err)
	assert.Equal(t, "Deleted run run-a\n", out)

	out, err = execute(t, NewTraceCommand(testRoot("text")), "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)
}

func TestTrace_DeleteNeedsRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	_, err := execute(t, NewTraceCommand(testRoot("text")), "--db", db, "--delete")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_NoDatabase(t *testing.T) {
	out, err := execute(t, NewTraceCommand(testRoot("text")))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "no database")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "run-a", truncateID("run-a"))
	assert.Equal(t, "01234567...89abcdef", truncateID("0123456789abcdef0123456789abcdef"))
}
