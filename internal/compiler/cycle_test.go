package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/ir"
)

func clips(names ...string) []ir.Clip {
	out := make([]ir.Clip, len(names))
	for i, n := range names {
		out[i] = ir.Clip{Name: n, Duration: ir.Duration(100 * ms)}
	}
	return out
}

func TestAnalyzeCycles_Empty(t *testing.T) {
	warnings := AnalyzeCycles(&ir.Definition{Name: "empty"})
	assert.NotNil(t, warnings)
	assert.Empty(t, warnings)
}

func TestAnalyzeCycles_DAG(t *testing.T) {
	def := &ir.Definition{
		Name:     "dag",
		Clips:    clips("a", "b", "c", "d"),
		Sequence: []string{"a", "b", "c"},
		Relations: []ir.Relation{
			{Play: "d", With: []string{"b"}, After: []string{"a"}},
		},
	}
	assert.Empty(t, AnalyzeCycles(def))
}

func TestAnalyzeCycles_TwoNodeCycle(t *testing.T) {
	def := &ir.Definition{
		Name:  "loop",
		Clips: clips("A", "B"),
		Relations: []ir.Relation{
			{Play: "A", Before: []string{"B"}},
			{Play: "B", Before: []string{"A"}},
		},
	}

	warnings := AnalyzeCycles(def)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"A", "B", "A"}, warnings[0].Path)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Equal(t, "Cycle detected: A → B → A (these clips never play)", warnings[0].Message)
}

func TestAnalyzeCycles_SequenceClosedByRelation(t *testing.T) {
	def := &ir.Definition{
		Name:      "ring",
		Clips:     clips("a", "b", "c"),
		Sequence:  []string{"a", "b", "c"},
		Relations: []ir.Relation{{Play: "a", After: []string{"c"}}},
	}

	warnings := AnalyzeCycles(def)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, warnings[0].Path)
}

// TestAnalyzeCycles_SiblingSelfLoop tests that "A with B, B before A" is a
// cycle once together-sets share parents: B gates itself.
func TestAnalyzeCycles_SiblingSelfLoop(t *testing.T) {
	def := &ir.Definition{
		Name:  "tangle",
		Clips: clips("A", "B"),
		Relations: []ir.Relation{
			{Play: "A", With: []string{"B"}},
			{Play: "B", Before: []string{"A"}},
		},
	}

	warnings := AnalyzeCycles(def)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"B", "B"}, warnings[0].Path)
}

func TestAnalyzeCycles_NestedGroupPrefix(t *testing.T) {
	inner := &ir.Definition{
		Name:  "inner",
		Clips: clips("x", "y"),
		Relations: []ir.Relation{
			{Play: "x", Before: []string{"y"}},
			{Play: "y", Before: []string{"x"}},
		},
	}
	def := &ir.Definition{
		Name:  "outer",
		Clips: []ir.Clip{{Name: "intro", Duration: ir.Duration(ms)}, {Name: "inner", Group: inner}},
	}

	warnings := AnalyzeCycles(def)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"inner/x", "inner/y", "inner/x"}, warnings[0].Path)
}

func TestAnalyzeCycles_MultipleIndependentCycles(t *testing.T) {
	def := &ir.Definition{
		Name:  "two",
		Clips: clips("a", "b", "c", "d"),
		Relations: []ir.Relation{
			{Play: "a", Before: []string{"b"}},
			{Play: "b", Before: []string{"a"}},
			{Play: "c", Before: []string{"d"}},
			{Play: "d", Before: []string{"c"}},
		},
	}

	warnings := AnalyzeCycles(def)
	require.Len(t, warnings, 2)
	assert.Equal(t, []string{"a", "b", "a"}, warnings[0].Path)
	assert.Equal(t, []string{"c", "d", "c"}, warnings[1].Path)
}

func TestTarjanSCC_DAG(t *testing.T) {
	graph := dependencyGraph{"a": {"b"}, "b": {"c"}, "c": {}}
	sccs := tarjanSCC(graph)
	assert.Len(t, sccs, 3)
	for _, scc := range sccs {
		assert.Len(t, scc, 1)
	}
}

func TestReconstructCyclePath_Empty(t *testing.T) {
	assert.Empty(t, reconstructCyclePath(nil, dependencyGraph{}))
}

func TestUnionFind(t *testing.T) {
	u := newUnionFind()
	u.union("a", "b")
	u.union("c", "b")
	u.add("d")
	assert.Equal(t, u.find("a"), u.find("c"))
	assert.NotEqual(t, u.find("a"), u.find("d"))
	assert.Equal(t, []string{"a", "b", "c", "d"}, u.names())
}
