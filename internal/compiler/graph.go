package compiler

import (
	"time"

	"github.com/roach88/choreo/internal/ir"
)

// NodeID addresses a node in a Graph's arena. IDs are stable for the life
// of the graph.
type NodeID int

const (
	// RootID is the distinguished node that models the group's start delay.
	RootID NodeID = 0
	// NoParent marks a node with no gating parent.
	NoParent NodeID = -1
)

// RootName is the display name of the root node.
const RootName = "(start delay)"

// Node wraps one playable with its structural relations and compiled window.
//
// Children, Siblings and Parents hold IDs, never pointers, so the graph can be
// cyclic without reference cycles.
type Node struct {
	Playable ir.Playable
	Name     string

	Children []NodeID
	Siblings []NodeID
	Parents  []NodeID

	// LatestParent is the parent whose end gates this node's start.
	LatestParent NodeID
	Start        time.Duration
	End          time.Duration
	// TotalDuration caches Playable.TotalDuration() as of the last compile.
	TotalDuration time.Duration

	parentsAdded bool
	reached      bool
}

// Graph is the dependency graph of a group: an arena of nodes plus the
// compiled timeline cache.
//
// Playables are keyed by identity, so they must be comparable (pointer
// types in practice). A Graph is not safe for concurrent use.
type Graph struct {
	nodes []*Node
	index map[ir.Playable]NodeID

	dirty    bool
	timeline *Timeline
}

// NewGraph returns a graph whose root node wraps root, the playable that
// times the group's start delay.
func NewGraph(root ir.Playable) *Graph {
	g := &Graph{
		index: make(map[ir.Playable]NodeID),
		dirty: true,
	}
	g.nodes = append(g.nodes, &Node{
		Playable:     root,
		Name:         RootName,
		LatestParent: NoParent,
	})
	g.index[root] = RootID
	return g
}

// Node returns the node for p, creating it on first reference. Repeated
// references to the same playable collapse to one node.
func (g *Graph) Node(p ir.Playable) NodeID {
	if id, ok := g.index[p]; ok {
		return id
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{
		Playable:     p,
		Name:         ir.NormalizeName(ir.NameOf(p)),
		LatestParent: NoParent,
	})
	g.index[p] = id
	g.dirty = true
	return id
}

// Lookup returns the node for p without creating one.
func (g *Graph) Lookup(p ir.Playable) (NodeID, bool) {
	id, ok := g.index[p]
	return id, ok
}

// At returns the node with the given ID.
func (g *Graph) At(id NodeID) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes, root included.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// WithSibling records that a and b play together. The edge is symmetric.
func (g *Graph) WithSibling(a, b NodeID) {
	if a == b {
		return
	}
	na, nb := g.nodes[a], g.nodes[b]
	if !contains(na.Siblings, b) {
		na.Siblings = append(na.Siblings, b)
		g.dirty = true
	}
	if !contains(nb.Siblings, a) {
		nb.Siblings = append(nb.Siblings, a)
		g.dirty = true
	}
}

// AddChild records that child starts after parent ends. The reverse
// parent edge is registered on child.
func (g *Graph) AddChild(parent, child NodeID) {
	np, nc := g.nodes[parent], g.nodes[child]
	if !contains(np.Children, child) {
		np.Children = append(np.Children, child)
		g.dirty = true
	}
	if !contains(nc.Parents, parent) {
		nc.Parents = append(nc.Parents, parent)
		g.dirty = true
	}
}

// AddParent is AddChild with the arguments flipped.
func (g *Graph) AddParent(child, parent NodeID) {
	g.AddChild(parent, child)
}

// MarkDirty forces the next Compile to rebuild the timeline.
func (g *Graph) MarkDirty() {
	g.dirty = true
}

// Dirty reports whether the next Compile will rebuild the timeline.
func (g *Graph) Dirty() bool {
	if g.dirty || g.timeline == nil {
		return true
	}
	for _, n := range g.nodes[1:] {
		if n.TotalDuration != n.Playable.TotalDuration() {
			return true
		}
	}
	return false
}

// Playables returns every non-root playable in insertion order.
func (g *Graph) Playables() []ir.Playable {
	out := make([]ir.Playable, 0, len(g.nodes)-1)
	for _, n := range g.nodes[1:] {
		out = append(out, n.Playable)
	}
	return out
}

// RootChildren returns how many nodes are gated directly by the root.
// Only meaningful after Compile.
func (g *Graph) RootChildren() int {
	return len(g.nodes[RootID].Children)
}

func contains(ids []NodeID, id NodeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
