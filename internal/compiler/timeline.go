package compiler

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/roach88/choreo/internal/ir"
)

// Event is one timeline entry. Time is absolute group time and includes the
// group's start delay.
type Event struct {
	Node NodeID        `json:"node"`
	Kind ir.EventKind  `json:"kind"`
	Time time.Duration `json:"time"`
}

// Timeline is the compiled, sorted event list of a graph.
//
// Events holds exactly 3*(N+1) entries for N non-root nodes. The first three
// belong to the root; Infinite times sort last.
type Timeline struct {
	Events        []Event
	TotalDuration time.Duration
	// Cycles lists the node sets pinned to Infinite because they sit on a
	// dependency cycle or are only reachable through one.
	Cycles [][]NodeID
}

// FiniteEnd returns the latest finite event time. For a timeline whose
// pinned nodes never play this is the effective playing length.
func (t *Timeline) FiniteEnd() time.Duration {
	for i := len(t.Events) - 1; i >= 0; i-- {
		if t.Events[i].Time != ir.Infinite {
			return t.Events[i].Time
		}
	}
	return 0
}

// Window is a node's compiled schedule, for inspection and rendering.
type Window struct {
	Node         NodeID        `json:"node"`
	Name         string        `json:"name"`
	Start        time.Duration `json:"start"`
	End          time.Duration `json:"end"`
	LatestParent NodeID        `json:"latest_parent"`
}

// Windows returns the compiled window of every node, root first.
func (g *Graph) Windows() []Window {
	out := make([]Window, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = Window{
			Node:         NodeID(i),
			Name:         n.Name,
			Start:        n.Start,
			End:          n.End,
			LatestParent: n.LatestParent,
		}
	}
	return out
}

// Compile returns the graph's timeline, rebuilding it when a relation was
// added, the graph was marked dirty, or any playable's total duration no
// longer matches the cached value. Events are rebuilt wholesale.
//
// Cycles are not errors: nodes on a cycle are pinned to Infinite and never
// play. They are reported through Timeline.Cycles and a warning log line.
func (g *Graph) Compile() *Timeline {
	if !g.Dirty() {
		return g.timeline
	}
	g.dirty = false

	g.closeSiblings()
	for i, n := range g.nodes {
		if NodeID(i) != RootID && len(n.Parents) == 0 {
			g.AddChild(RootID, NodeID(i))
		}
	}
	// AddChild above may have set the flag again.
	g.dirty = false

	for _, n := range g.nodes[1:] {
		n.Start, n.End = 0, 0
		n.LatestParent = NoParent
		n.reached = false
	}
	root := g.nodes[RootID]
	root.Start = 0
	root.End = root.Playable.Duration()
	root.TotalDuration = root.Playable.TotalDuration()
	root.reached = true

	var cycles [][]NodeID
	onStack := make([]bool, len(g.nodes))
	g.assignTimes(RootID, onStack, nil, &cycles)

	var unreached []NodeID
	for i, n := range g.nodes[1:] {
		if !n.reached {
			n.TotalDuration = n.Playable.TotalDuration()
			n.Start, n.End = ir.Infinite, ir.Infinite
			n.LatestParent = NoParent
			unreached = append(unreached, NodeID(i+1))
		}
	}
	if len(unreached) > 0 {
		cycles = append(cycles, unreached)
	}
	for _, c := range cycles {
		slog.Warn("cycle found in timeline", "nodes", g.names(c))
	}

	events := g.sortedEvents()
	g.timeline = &Timeline{
		Events:        events,
		TotalDuration: events[len(events)-1].Time,
		Cycles:        cycles,
	}
	return g.timeline
}

// closeSiblings makes every member of a transitive "play together" set share
// the union of the members' parents.
func (g *Graph) closeSiblings() {
	for _, n := range g.nodes {
		n.parentsAdded = false
	}
	for i, n := range g.nodes {
		if n.parentsAdded {
			continue
		}
		n.parentsAdded = true
		if len(n.Siblings) == 0 {
			continue
		}

		id := NodeID(i)
		var set []NodeID
		g.findSiblings(id, &set)
		n.Siblings = n.Siblings[:0]
		for _, s := range set {
			if s != id {
				n.Siblings = append(n.Siblings, s)
			}
		}

		for _, s := range n.Siblings {
			for _, p := range append([]NodeID(nil), g.nodes[s].Parents...) {
				g.AddChild(p, id)
			}
		}
		for _, s := range n.Siblings {
			for _, p := range append([]NodeID(nil), n.Parents...) {
				g.AddChild(p, s)
			}
			g.nodes[s].parentsAdded = true
		}
	}
}

func (g *Graph) findSiblings(id NodeID, set *[]NodeID) {
	if contains(*set, id) {
		return
	}
	*set = append(*set, id)
	for _, s := range g.nodes[id].Siblings {
		g.findSiblings(s, set)
	}
}

// assignTimes walks the graph depth-first from parent, pushing each child's
// start past the end of its slowest parent. A child found on the current
// stack closes a cycle; every node from its first stack position onward is
// pinned to Infinite.
func (g *Graph) assignTimes(parent NodeID, onStack []bool, stack []NodeID, cycles *[][]NodeID) {
	p := g.nodes[parent]
	if len(p.Children) == 0 {
		return
	}

	onStack[parent] = true
	stack = append(stack, parent)
	for _, cid := range p.Children {
		child := g.nodes[cid]
		child.TotalDuration = child.Playable.TotalDuration()
		child.reached = true

		if onStack[cid] {
			var cycle []NodeID
			for j := indexOf(stack, cid); j < len(stack); j++ {
				n := g.nodes[stack[j]]
				n.LatestParent = NoParent
				n.Start, n.End = ir.Infinite, ir.Infinite
				cycle = append(cycle, stack[j])
			}
			*cycles = append(*cycles, cycle)
			continue
		}

		if child.Start != ir.Infinite {
			if p.End == ir.Infinite {
				child.LatestParent = parent
				child.Start, child.End = ir.Infinite, ir.Infinite
			} else {
				if p.End >= child.Start {
					child.LatestParent = parent
					child.Start = p.End
				}
				if child.TotalDuration == ir.Infinite {
					child.End = ir.Infinite
				} else {
					child.End = child.Start + child.TotalDuration
				}
			}
		}
		g.assignTimes(cid, onStack, stack, cycles)
	}
	onStack[parent] = false
}

// EventTime returns the absolute time of kind for node id.
func (g *Graph) EventTime(id NodeID, kind ir.EventKind) time.Duration {
	n := g.nodes[id]
	switch kind {
	case ir.EventStart:
		return n.Start
	case ir.EventDelayEnded:
		if n.Start == ir.Infinite {
			return ir.Infinite
		}
		return n.Start + n.Playable.StartDelay()
	default:
		return n.End
	}
}

// sortKey orders Infinite after every finite time.
func sortKey(t time.Duration) int64 {
	if t == ir.Infinite {
		return math.MaxInt64
	}
	return int64(t)
}

// kindRank breaks ties between events at the same time: END, START, DELAY_ENDED.
func kindRank(k ir.EventKind) int {
	switch k {
	case ir.EventEnd:
		return 0
	case ir.EventStart:
		return 1
	default:
		return 2
	}
}

// sortedEvents builds the event list for every non-root node, sorts it,
// repairs same-node ordering, and prepends the root's events.
func (g *Graph) sortedEvents() []Event {
	events := make([]Event, 0, 3*len(g.nodes))
	for i := 1; i < len(g.nodes); i++ {
		id := NodeID(i)
		for _, k := range []ir.EventKind{ir.EventStart, ir.EventDelayEnded, ir.EventEnd} {
			events = append(events, Event{Node: id, Kind: k, Time: g.EventTime(id, k)})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		ki, kj := sortKey(events[i].Time), sortKey(events[j].Time)
		if ki != kj {
			return ki < kj
		}
		return kindRank(events[i].Kind) < kindRank(events[j].Kind)
	})

	events = g.repairOrder(events)

	if len(events) > 0 && events[0].Kind != ir.EventStart {
		panic(fmt.Sprintf("compiler: first event is %s, want start", events[0].Kind))
	}
	g.assertStartBeforeEnd(events)

	out := make([]Event, 0, len(events)+3)
	for _, k := range []ir.EventKind{ir.EventStart, ir.EventDelayEnded, ir.EventEnd} {
		out = append(out, Event{Node: RootID, Kind: k, Time: g.EventTime(RootID, k)})
	}
	out = append(out, events...)

	if last := out[len(out)-1]; last.Kind != ir.EventEnd {
		panic(fmt.Sprintf("compiler: last event is %s, want end", last.Kind))
	}
	return out
}

// repairOrder moves a node's START and DELAY_ENDED ahead of its own END when
// the tie-break put them after it: a zero-length window, or an END that
// coincides with the node's delay boundary.
func (g *Graph) repairOrder(events []Event) []Event {
	for i := 0; i < len(events); {
		e := events[i]
		if e.Kind != ir.EventEnd {
			i++
			continue
		}
		n := g.nodes[e.Node]
		var moveStart bool
		switch {
		case n.Start == n.End:
			moveStart = true
		case n.End != ir.Infinite && n.End == n.Start+n.Playable.StartDelay():
			moveStart = false
		default:
			i++
			continue
		}

		startAt, delayAt := -1, -1
		for j := i + 1; j < len(events) && (startAt < 0 || delayAt < 0); j++ {
			if events[j].Node != e.Node {
				continue
			}
			switch events[j].Kind {
			case ir.EventStart:
				startAt = j
			case ir.EventDelayEnded:
				delayAt = j
			}
		}
		if moveStart && startAt < 0 {
			panic(fmt.Sprintf("compiler: no start after end for zero-length node %q", n.Name))
		}
		if delayAt < 0 {
			panic(fmt.Sprintf("compiler: no delay end after end for node %q", n.Name))
		}

		if moveStart {
			moveTo(events, startAt, i)
			if startAt > delayAt {
				delayAt++
			}
			i++
		}
		moveTo(events, delayAt, i)
		i += 2
	}
	return events
}

// moveTo shifts events[from] to index to (to < from), sliding the elements
// in between one place right.
func moveTo(events []Event, from, to int) {
	e := events[from]
	copy(events[to+1:from+1], events[to:from])
	events[to] = e
}

func (g *Graph) assertStartBeforeEnd(events []Event) {
	seen := make([]uint8, len(g.nodes))
	for _, e := range events {
		switch e.Kind {
		case ir.EventStart:
			seen[e.Node] |= 1
		case ir.EventDelayEnded:
			seen[e.Node] |= 2
		case ir.EventEnd:
			if seen[e.Node] != 3 {
				panic(fmt.Sprintf("compiler: end of %q sorted before its start", g.nodes[e.Node].Name))
			}
		}
	}
}

func (g *Graph) names(ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id].Name
	}
	return out
}

func indexOf(ids []NodeID, id NodeID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}
