package graph

import (
	"context"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps keyed by repo-relative path.
// Thread-safe via sync.RWMutex.
type MemStore struct {
	mu     sync.RWMutex
	files  map[string]FileRecord
	edges  []Edge
	cycles []Cycle
	// pathByID lets traversal code go from an Edge's FileID back to the
	// canonical path used as the public key for GetFile/GetDependencies.
	pathByID map[FileID]string
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		files:    make(map[string]FileRecord),
		pathByID: make(map[FileID]string),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddFile stores a file record keyed by its path.
func (m *MemStore) AddFile(_ context.Context, file FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[file.Path] = file
	m.pathByID[file.ID] = file.Path
	return nil
}

// AddEdge appends an edge to the internal slice.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, edge)
	return nil
}

// AddCycle appends a cycle to the internal slice.
func (m *MemStore) AddCycle(_ context.Context, cycle Cycle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, cycle)
	return nil
}

// GetFile returns the file record for the given path, or nil if not found.
func (m *MemStore) GetFile(_ context.Context, path string) (*FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// GetCycles returns all cycles stored so far.
func (m *MemStore) GetCycles(_ context.Context) ([]Cycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Cycle, len(m.cycles))
	copy(out, m.cycles)
	return out, nil
}

// GetDependencies performs a BFS from the file at path in the given
// direction, up to maxDepth hops. It returns one DependencyChain per
// reachable file.
func (m *MemStore) GetDependencies(_ context.Context, path string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	root, ok := m.files[path]
	if !ok || maxDepth <= 0 {
		return nil, nil
	}

	type bfsEntry struct {
		id   FileID
		path []string
	}

	visited := map[FileID]bool{root.ID: true}
	queue := []bfsEntry{{id: root.ID, path: []string{path}}}
	var chains []DependencyChain

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var nextQueue []bfsEntry
		for _, entry := range queue {
			for _, nb := range m.neighbors(entry.id, direction) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				newPath := make([]string, len(entry.path), len(entry.path)+1)
				copy(newPath, entry.path)
				newPath = append(newPath, m.pathByID[nb])
				chains = append(chains, DependencyChain{
					Paths: newPath,
					Depth: len(newPath) - 1,
				})
				nextQueue = append(nextQueue, bfsEntry{id: nb, path: newPath})
			}
		}
		queue = nextQueue
	}

	return chains, nil
}

// neighbors returns FileIDs reachable from id in one hop along direction.
func (m *MemStore) neighbors(id FileID, direction Direction) []FileID {
	var result []FileID
	for _, e := range m.edges {
		switch direction {
		case DirectionDownstream:
			// downstream: id is a dependency of others -> follow edges where To matches
			if e.To == id {
				result = append(result, e.From)
			}
		case DirectionUpstream:
			// upstream: id depends on others -> follow edges where From matches
			if e.From == id {
				result = append(result, e.To)
			}
		}
	}
	return result
}

// AssessImpact computes the blast radius of changing the given files. It
// follows IMPORTS edges backward to find direct and transitive dependents.
func (m *MemStore) AssessImpact(_ context.Context, changedFiles []string) (*ImpactResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	changedIDs := make(map[FileID]bool, len(changedFiles))
	for _, p := range changedFiles {
		if f, ok := m.files[p]; ok {
			changedIDs[f.ID] = true
		}
	}

	// An edge From->To means "From imports To". A file that imports a
	// changed file is directly affected by the change.
	directSet := make(map[FileID]bool)
	for _, e := range m.edges {
		if changedIDs[e.To] && !changedIDs[e.From] {
			directSet[e.From] = true
		}
	}

	allAffected := make(map[FileID]bool, len(directSet))
	for k := range directSet {
		allAffected[k] = true
	}

	frontier := make(map[FileID]bool, len(directSet))
	for k := range directSet {
		frontier[k] = true
	}

	for len(frontier) > 0 {
		nextFrontier := make(map[FileID]bool)
		for _, e := range m.edges {
			if frontier[e.To] && !changedIDs[e.From] && !allAffected[e.From] {
				allAffected[e.From] = true
				nextFrontier[e.From] = true
			}
		}
		frontier = nextFrontier
	}

	directlyAffected := m.idsToPaths(directSet)
	transitivelyAffected := m.idsToPaths(allAffected)

	var riskScore float64
	if len(m.files) > 0 {
		riskScore = float64(len(transitivelyAffected)) / float64(len(m.files))
	}

	return &ImpactResult{
		DirectlyAffected:     directlyAffected,
		TransitivelyAffected: transitivelyAffected,
		RiskScore:            riskScore,
	}, nil
}

// idsToPaths converts a FileID set into a path slice. Caller must hold m.mu.
func (m *MemStore) idsToPaths(ids map[FileID]bool) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, m.pathByID[id])
	}
	return out
}

// Stats returns counts of files and edges in the graph.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &GraphStats{
		FileCount: len(m.files),
		EdgeCount: len(m.edges),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
