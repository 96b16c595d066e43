package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

type edgeKey struct {
	from FileID
	to   FileID
}

// Graph is the finalized dependency graph the cycle engine operates on:
// FileID -> sorted set of outgoing FileIds, plus a side table keyed by
// (from, to) holding the first Edge encountered for that pair (used when
// rendering cycles), per spec §3.
type Graph struct {
	interner *Interner
	adj      map[FileID][]FileID
	meta     map[edgeKey]Edge
	sorted   bool
}

// NewGraph returns an empty Graph backed by interner.
func NewGraph(interner *Interner) *Graph {
	return &Graph{
		interner: interner,
		adj:      make(map[FileID][]FileID),
		meta:     make(map[edgeKey]Edge),
	}
}

// AddEdge records a directed dependency. Multiple edges between the same
// pair are retained only in the sense that the first one wins as the
// representative for rendering; the adjacency itself collapses duplicate
// pairs into a single entry (spec §3).
func (g *Graph) AddEdge(e Edge) {
	key := edgeKey{e.From, e.To}
	if _, exists := g.meta[key]; exists {
		return
	}
	g.meta[key] = e
	g.adj[e.From] = append(g.adj[e.From], e.To)
	g.sorted = false
}

// Finalize sorts every adjacency list by destination FileID. Spec §5
// requires this before the cycle engine runs, to guarantee bit-identical
// cycle paths and hashes across runs and platforms regardless of worker
// completion order.
func (g *Graph) Finalize() {
	if g.sorted {
		return
	}
	for id, neighbors := range g.adj {
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })
		g.adj[id] = neighbors
	}
	g.sorted = true
}

// Nodes returns every FileID known to the graph (every file in the working
// set, per the invariant that a FileID appears in the graph iff its file
// exists in the working set), in ascending order.
func (g *Graph) Nodes() []FileID {
	n := g.interner.Len()
	out := make([]FileID, n)
	for i := 0; i < n; i++ {
		out[i] = FileID(i)
	}
	return out
}

func (g *Graph) hasEdge(from, to FileID) bool {
	_, ok := g.meta[edgeKey{from, to}]
	return ok
}

func (g *Graph) edge(from, to FileID) Edge {
	return g.meta[edgeKey{from, to}]
}

// Stats returns file and edge counts for the finalized graph.
func (g *Graph) Stats() GraphStats {
	return GraphStats{FileCount: g.interner.Len(), EdgeCount: len(g.meta)}
}

// SCCs runs Kosaraju's two-pass strongly-connected-component decomposition
// (spec §4.4): a first DFS pass over nodes in sorted order pushes finish
// order onto a stack, then a second DFS pass on the transpose graph, walking
// the stack in reverse, produces one SCC per tree.
func (g *Graph) SCCs() [][]FileID {
	g.Finalize()

	nodes := g.Nodes()
	visited := make(map[FileID]bool, len(nodes))
	var finishOrder []FileID

	var visit1 func(FileID)
	visit1 = func(n FileID) {
		visited[n] = true
		for _, next := range g.adj[n] {
			if !visited[next] {
				visit1(next)
			}
		}
		finishOrder = append(finishOrder, n)
	}
	for _, n := range nodes {
		if !visited[n] {
			visit1(n)
		}
	}

	transpose := make(map[FileID][]FileID, len(g.adj))
	for from, tos := range g.adj {
		for _, to := range tos {
			transpose[to] = append(transpose[to], from)
		}
	}
	for id := range transpose {
		sort.Slice(transpose[id], func(i, j int) bool { return transpose[id][i] < transpose[id][j] })
	}

	assigned := make(map[FileID]bool, len(nodes))
	var sccs [][]FileID

	var visit2 func(FileID, *[]FileID)
	visit2 = func(n FileID, component *[]FileID) {
		assigned[n] = true
		*component = append(*component, n)
		for _, next := range transpose[n] {
			if !assigned[next] {
				visit2(next, component)
			}
		}
	}

	for i := len(finishOrder) - 1; i >= 0; i-- {
		n := finishOrder[i]
		if assigned[n] {
			continue
		}
		var component []FileID
		visit2(n, &component)
		sort.Slice(component, func(i, j int) bool { return component[i] < component[j] })
		sccs = append(sccs, component)
	}

	return sccs
}

// FindCycles runs the cycle engine end to end: SCC decomposition, then one
// comprehensive cycle per qualifying SCC (size >=2, or size 1 with a
// self-loop), each with a rotation-invariant hash. Results follow the order
// in which SCCs() emits components (reverse finish order of the first
// Kosaraju pass), not FileID order; that order is deterministic because
// Nodes() and the transpose walk are both processed in sorted order.
func (g *Graph) FindCycles() []Cycle {
	g.Finalize()

	var cycles []Cycle
	for _, scc := range g.SCCs() {
		nodes, ok := g.comprehensiveCycle(scc)
		if !ok {
			continue
		}
		cycle := g.buildCycle(nodes)
		cycles = append(cycles, cycle)
	}
	return cycles
}

// comprehensiveCycle produces one comprehensive cycle for an SCC: starting
// at the lowest FileID, it exhaustively searches simple paths restricted to
// the SCC for the longest one with a direct edge back to the start,
// preferring lower FileIds when multiple extensions are possible (spec
// §4.4). Returns ok=false for an SCC of size 1 with no self-loop.
func (g *Graph) comprehensiveCycle(scc []FileID) ([]FileID, bool) {
	if len(scc) == 1 {
		n := scc[0]
		if g.hasEdge(n, n) {
			return []FileID{n}, true
		}
		return nil, false
	}

	sccSet := make(map[FileID]bool, len(scc))
	for _, n := range scc {
		sccSet[n] = true
	}

	start := scc[0]
	visited := map[FileID]bool{start: true}
	path := []FileID{start}
	var best []FileID

	var search func(current FileID)
	search = func(current FileID) {
		for _, next := range g.adj[current] {
			if !sccSet[next] || next == start || visited[next] {
				continue
			}
			visited[next] = true
			path = append(path, next)
			search(next)
			path = path[:len(path)-1]
			visited[next] = false
		}
		if g.hasEdge(current, start) && len(path) > len(best) {
			best = append(best[:0:0], path...)
		}
	}
	search(start)

	if best == nil {
		return nil, false
	}
	return best, true
}

// buildCycle attaches Edge metadata to a node sequence and computes its
// rotation-invariant hash.
func (g *Graph) buildCycle(nodes []FileID) Cycle {
	edges := make([]Edge, len(nodes))
	paths := make([]string, len(nodes))
	for i, n := range nodes {
		next := nodes[(i+1)%len(nodes)]
		edges[i] = g.edge(n, next)
		paths[i] = g.interner.Record(n).Path
	}
	return Cycle{
		Nodes: nodes,
		Edges: edges,
		Hash:  cycleHash(paths),
	}
}

// cycleHash computes spec §4.4's stable 12-hex-character digest: among all
// rotations of the cycle's path sequence, pick the lexicographically
// smallest concatenation, then hash it with two independent xxhash seeds
// concatenated to 128 bits, truncated to 12 hex chars.
func cycleHash(paths []string) string {
	canonical := smallestRotation(paths)
	joined := strings.Join(canonical, "\x00")

	h1 := xxhash.Sum64String(joined)
	h2 := xxhash.Sum64String(joined + "\x01")
	full := fmt.Sprintf("%016x%016x", h1, h2)
	return full[:12]
}

// smallestRotation returns the rotation of paths whose "\x00"-joined form
// is lexicographically smallest, making the result invariant to which node
// a cycle is reported as starting from.
func smallestRotation(paths []string) []string {
	n := len(paths)
	best := paths
	bestKey := strings.Join(paths, "\x00")
	for i := 1; i < n; i++ {
		rotated := append(append([]string{}, paths[i:]...), paths[:i]...)
		key := strings.Join(rotated, "\x00")
		if key < bestKey {
			bestKey = key
			best = rotated
		}
	}
	return best
}

// CombinedHash computes the sort-invariant combination of every reported
// cycle's hash (spec §4.4 "Overall result hash"): XOR of the hashes
// interpreted as integers, formatted back to 12 hex chars.
func CombinedHash(cycles []Cycle) string {
	var acc uint64
	for _, c := range cycles {
		v, err := strconv.ParseUint(c.Hash, 16, 64)
		if err != nil {
			continue
		}
		acc ^= v
	}
	return fmt.Sprintf("%012x", acc&0xFFFFFFFFFFFF)
}
