package graph

import (
	"context"
	"io"
)

// Store is the interface for the resolved dependency graph backend that
// backs the query and impact subcommands (SPEC_FULL §6a). Implementations:
// MemStore (default), KuzuStore (optional, in-memory Cypher backend).
type Store interface {
	io.Closer

	// InitSchema sets up storage structures. Called once before any data is
	// inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddFile(ctx context.Context, file FileRecord) error
	AddEdge(ctx context.Context, edge Edge) error
	AddCycle(ctx context.Context, cycle Cycle) error

	// Read operations.
	GetFile(ctx context.Context, path string) (*FileRecord, error)
	GetCycles(ctx context.Context) ([]Cycle, error)

	// Graph traversal.
	GetDependencies(ctx context.Context, path string, direction Direction, maxDepth int) ([]DependencyChain, error)
	AssessImpact(ctx context.Context, changedFiles []string) (*ImpactResult, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}
