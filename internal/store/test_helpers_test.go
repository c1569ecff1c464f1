package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/trace"
)

// createTestStore opens a fresh database under t.TempDir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun builds a run with a short trace.
func createTestRun(id, name string) Run {
	return Run{
		ID:             id,
		Name:           name,
		DefinitionHash: "hash-" + name,
		Definition:     `{"name":"` + name + `"}`,
		Options:        `{"frame_delay":10000000}`,
		EngineVersion:  ir.EngineVersion,
		Trace: []trace.Entry{
			{Seq: 1, Frame: 0, Name: "fade", Kind: trace.KindStart},
			{Seq: 2, Frame: 0, Name: name, Kind: trace.KindStart},
			{Seq: 3, Frame: 40 * time.Millisecond, Name: name, Kind: trace.KindAction, Detail: "seek 20ms"},
			{Seq: 4, Frame: 110 * time.Millisecond, Name: "fade", Kind: trace.KindEnd, Reverse: true},
		},
	}
}
