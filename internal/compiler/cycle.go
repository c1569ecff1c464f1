package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/choreo/internal/ir"
)

// CycleWarning reports a dependency cycle in a definition.
//
// Cycles are warnings, not errors: playback neutralizes them by pinning
// every clip on the cycle (and every clip gated only by one) to Infinite, so
// those clips silently never play. The warning is how callers find out.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["fade", "slide", "fade"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// AnalyzeCycles performs static cycle analysis on a definition and every
// nested group it contains.
//
// The algorithm:
//  1. Build the before/after edge set from relations and sequences
//  2. Close "play together" sets so members share parents, as the
//     timeline compiler does
//  3. Use Tarjan's algorithm to find strongly connected components
//  4. Report each SCC with size > 1 or a self-loop
//
// A DAG returns an empty warning list.
func AnalyzeCycles(def *ir.Definition) []CycleWarning {
	warnings := []CycleWarning{}
	analyzeDefinition(def, "", &warnings)
	return warnings
}

func analyzeDefinition(def *ir.Definition, prefix string, warnings *[]CycleWarning) {
	if def == nil {
		return
	}
	graph := buildDependencyGraph(def)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			*warnings = append(*warnings, cycleSCCToWarning(scc, graph, prefix))
		}
	}
	for _, c := range def.Clips {
		if c.Group != nil {
			analyzeDefinition(c.Group, prefix+ir.NormalizeName(c.Name)+"/", warnings)
		}
	}
}

// dependencyGraph maps clip → clips that start after it ends.
type dependencyGraph map[string][]string

// buildDependencyGraph constructs the parent → child graph of a definition
// after sibling closure.
func buildDependencyGraph(def *ir.Definition) dependencyGraph {
	parents := make(map[string][]string)
	siblings := newUnionFind()

	for _, c := range def.Clips {
		name := ir.NormalizeName(c.Name)
		siblings.add(name)
	}
	addEdge := func(parent, child string) {
		parent, child = ir.NormalizeName(parent), ir.NormalizeName(child)
		siblings.add(parent)
		siblings.add(child)
		for _, p := range parents[child] {
			if p == parent {
				return
			}
		}
		parents[child] = append(parents[child], parent)
	}

	for i := 0; i+1 < len(def.Sequence); i++ {
		addEdge(def.Sequence[i], def.Sequence[i+1])
	}
	for i := 1; i < len(def.Together); i++ {
		siblings.union(ir.NormalizeName(def.Together[0]), ir.NormalizeName(def.Together[i]))
	}
	for _, r := range def.Relations {
		play := ir.NormalizeName(r.Play)
		siblings.add(play)
		for _, w := range r.With {
			siblings.union(play, ir.NormalizeName(w))
		}
		for _, b := range r.Before {
			addEdge(play, b)
		}
		for _, a := range r.After {
			addEdge(a, play)
		}
	}

	// Members of a together-set share the union of their parents.
	shared := make(map[string][]string)
	for _, name := range siblings.names() {
		root := siblings.find(name)
		for _, p := range parents[name] {
			if !containsString(shared[root], p) {
				shared[root] = append(shared[root], p)
			}
		}
	}

	graph := make(dependencyGraph)
	for _, name := range siblings.names() {
		if graph[name] == nil {
			graph[name] = []string{}
		}
		for _, p := range shared[siblings.find(name)] {
			graph[p] = append(graph[p], name)
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results are deterministic.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, graph dependencyGraph, prefix string) CycleWarning {
	var path []string
	if len(scc) == 1 {
		path = []string{scc[0], scc[0]}
	} else {
		path = reconstructCyclePath(scc, graph)
	}
	for i := range path {
		path[i] = prefix + path[i]
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Cycle detected: %s (these clips never play)", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC by following edges
// between members until it returns to the first one.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}

// unionFind groups clips that play together.
type unionFind struct {
	parent map[string]string
	order  []string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) add(name string) {
	if _, ok := u.parent[name]; !ok {
		u.parent[name] = name
		u.order = append(u.order, name)
	}
}

func (u *unionFind) find(name string) string {
	u.add(name)
	for u.parent[name] != name {
		u.parent[name] = u.parent[u.parent[name]]
		name = u.parent[name]
	}
	return name
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}

func (u *unionFind) names() []string {
	return u.order
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
