package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/engine"
	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/store"
	"github.com/roach88/choreo/internal/trace"
)

// Record plays def with recipe and stores the run under an ID from gen.
// The stored definition and recipe are canonical JSON, enough for Replay to
// reproduce the run without the original files.
func Record(ctx context.Context, st *store.Store, def *ir.Definition, recipe Recipe, gen engine.RunIDGenerator) (store.Run, error) {
	s, err := Play(def, recipe)
	if err != nil {
		return store.Run{}, err
	}
	defer s.Close()
	return Save(ctx, st, def, recipe, s.Trace(), gen)
}

// Save stores an already played trace of def under an ID from gen.
func Save(ctx context.Context, st *store.Store, def *ir.Definition, recipe Recipe, entries []trace.Entry, gen engine.RunIDGenerator) (store.Run, error) {
	defJSON, err := ir.MarshalCanonical(def)
	if err != nil {
		return store.Run{}, fmt.Errorf("encode definition: %w", err)
	}
	recipeJSON, err := ir.MarshalCanonical(recipe)
	if err != nil {
		return store.Run{}, fmt.Errorf("encode recipe: %w", err)
	}
	hash, err := ir.DefinitionHash(def)
	if err != nil {
		return store.Run{}, err
	}

	run := store.Run{
		ID:             gen.Generate(),
		Name:           def.Name,
		DefinitionHash: hash,
		Definition:     string(defJSON),
		Options:        string(recipeJSON),
		EngineVersion:  ir.EngineVersion,
		Trace:          entries,
	}
	if err := st.WriteRun(ctx, run); err != nil {
		return store.Run{}, err
	}
	slog.Debug("run recorded", "run_id", run.ID, "name", run.Name, "events", len(run.Trace))
	return run, nil
}

// ReplayResult is a stored run played again.
type ReplayResult struct {
	Run store.Run
	// Trace is the trace the replay produced.
	Trace []trace.Entry
	// Diff is nil when the replay matched the stored trace, otherwise the
	// first difference.
	Diff *trace.Mismatch
}

// Match reports whether the replay reproduced the stored trace.
func (r *ReplayResult) Match() bool { return r.Diff == nil }

// Replay loads runID from st, plays its definition and recipe again and
// compares the traces entry by entry.
func Replay(ctx context.Context, st *store.Store, runID string) (*ReplayResult, error) {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.EngineVersion != ir.EngineVersion {
		slog.Warn("replaying run recorded by another engine version",
			"run_id", run.ID, "recorded", run.EngineVersion, "current", ir.EngineVersion)
	}

	def, err := compiler.DecodeDefinitionJSON([]byte(run.Definition))
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	var recipe Recipe
	if err := json.Unmarshal([]byte(run.Options), &recipe); err != nil {
		return nil, fmt.Errorf("run %s: decode recipe: %w", run.ID, err)
	}

	s, err := NewSession(def, recipe.Options)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	defer s.Close()
	// A step that failed when recorded fails again; the traces still compare.
	if err := s.Run(recipe.Steps); err != nil {
		slog.Debug("replayed step failed", "run_id", run.ID, "error", err)
	}

	res := &ReplayResult{Run: run, Trace: s.Trace()}
	if err := trace.Compare(run.Trace, res.Trace); err != nil {
		res.Diff = err.(*trace.Mismatch)
	}
	return res, nil
}
