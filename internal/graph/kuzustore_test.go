//go:build cgo

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a fresh in-memory KuzuStore with an initialized
// schema, closed automatically when the test finishes.
func newTestStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx), "InitSchema should not fail")
	return s
}

func TestKuzuStore_InitSchema(t *testing.T) {
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx))
	require.NoError(t, s.InitSchema(ctx), "InitSchema should be idempotent")
}

func TestKuzuStore_FileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	file := FileRecord{ID: 0, Path: "src/index.ts", Language: LangTypeScript}
	require.NoError(t, s.AddFile(ctx, file))

	got, err := s.GetFile(ctx, file.Path)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, file.Path, got.Path)
	assert.Equal(t, file.Language, got.Language)
	assert.Equal(t, file.ID, got.ID)
}

func TestKuzuStore_GetFile_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetFile(ctx, "nonexistent.ts")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestKuzuStore_EdgeAndDependencies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	files := []FileRecord{
		{ID: 0, Path: "a.ts", Language: LangTypeScript},
		{ID: 1, Path: "b.ts", Language: LangTypeScript},
		{ID: 2, Path: "c.ts", Language: LangTypeScript},
	}
	for _, f := range files {
		require.NoError(t, s.AddFile(ctx, f))
	}
	require.NoError(t, s.AddEdge(ctx, Edge{From: 0, To: 1, Line: 3, ImportText: "./b"}))
	require.NoError(t, s.AddEdge(ctx, Edge{From: 1, To: 2, Line: 1, ImportText: "./c"}))

	downstream, err := s.GetDependencies(ctx, "c.ts", DirectionDownstream, 10)
	require.NoError(t, err)
	require.Len(t, downstream, 2)

	upstream, err := s.GetDependencies(ctx, "a.ts", DirectionUpstream, 10)
	require.NoError(t, err)
	require.Len(t, upstream, 2)
}

func TestKuzuStore_CycleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	files := []FileRecord{
		{ID: 0, Path: "a.ts", Language: LangTypeScript},
		{ID: 1, Path: "b.ts", Language: LangTypeScript},
	}
	for _, f := range files {
		require.NoError(t, s.AddFile(ctx, f))
	}
	require.NoError(t, s.AddEdge(ctx, Edge{From: 0, To: 1, Line: 1, ImportText: "./b"}))
	require.NoError(t, s.AddEdge(ctx, Edge{From: 1, To: 0, Line: 1, ImportText: "./a"}))

	cycle := Cycle{Nodes: []FileID{0, 1}, Hash: "abc123def456"}
	require.NoError(t, s.AddCycle(ctx, cycle))

	got, err := s.GetCycles(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, cycle.Hash, got[0].Hash)
	assert.Equal(t, cycle.Nodes, got[0].Nodes)
	assert.Len(t, got[0].Edges, 2)
}

func TestKuzuStore_AssessImpact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	files := []FileRecord{
		{ID: 0, Path: "a.ts", Language: LangTypeScript},
		{ID: 1, Path: "b.ts", Language: LangTypeScript},
		{ID: 2, Path: "c.ts", Language: LangTypeScript},
	}
	for _, f := range files {
		require.NoError(t, s.AddFile(ctx, f))
	}
	// a -> b -> c: changing b directly affects a, transitively affects a only
	// (b itself is excluded as the changed file).
	require.NoError(t, s.AddEdge(ctx, Edge{From: 0, To: 1}))
	require.NoError(t, s.AddEdge(ctx, Edge{From: 1, To: 2}))

	result, err := s.AssessImpact(ctx, []string{"b.ts"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.ts"}, result.DirectlyAffected)
	assert.ElementsMatch(t, []string{"a.ts"}, result.TransitivelyAffected)
}

func TestKuzuStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddFile(ctx, FileRecord{ID: 0, Path: "a.ts", Language: LangTypeScript}))
	require.NoError(t, s.AddFile(ctx, FileRecord{ID: 1, Path: "b.ts", Language: LangTypeScript}))
	require.NoError(t, s.AddEdge(ctx, Edge{From: 0, To: 1}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FileCount)
	assert.Equal(t, 1, stats.EdgeCount)
}
