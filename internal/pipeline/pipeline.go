// Package pipeline wires File Discovery, the Import Extractor fan-out,
// specifier resolution, and the cycle engine into the single end-to-end run
// spec.md §2 describes, plus the leveled diagnostics spec.md §7 calls for.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cycledetect/cycledetect/internal/graph"
)

// Options configures a single analysis run.
type Options struct {
	ExcludeTokens     []string
	IgnoreTypeImports bool

	TsconfigPath     string // "" disables tsconfig-based resolution
	DisableWorkspace bool

	Diagnostics *Diagnostics
}

// Report is the result of one complete pipeline run, the data JSON/human
// rendering in cmd/cycledetect is built from.
type Report struct {
	TotalFiles   int
	Cycles       []graph.Cycle
	CombinedHash string
	FilePath     func(graph.FileID) string
}

// Run executes the five-stage pipeline against root and returns the
// resolved graph's cycle report.
func Run(ctx context.Context, root string, opts Options) (*Report, error) {
	diagnostics := opts.Diagnostics
	if diagnostics == nil {
		diagnostics = NewDiagnostics(LevelNormal)
	}

	g, interner, fileCount, err := BuildGraph(ctx, root, opts)
	if err != nil {
		return nil, err
	}

	cycles := g.FindCycles()
	combined := graph.CombinedHash(cycles)

	diagnostics.Summaryf("analyzed %d files, found %d circular dependency cycles", fileCount, len(cycles))

	return &Report{
		TotalFiles:   fileCount,
		Cycles:       cycles,
		CombinedHash: combined,
		FilePath:     func(id graph.FileID) string { return interner.Record(id).Path },
	}, nil
}

// BuildGraph runs File Discovery, parallel extraction, and specifier
// resolution, and returns the finalized dependency graph. Exported so
// query/impact tooling (SPEC_FULL §6a) can populate a Store from the same
// resolved graph the cycle engine uses, without duplicating the first four
// pipeline stages.
func BuildGraph(ctx context.Context, root string, opts Options) (*graph.Graph, *graph.Interner, int, error) {
	diagnostics := opts.Diagnostics
	if diagnostics == nil {
		diagnostics = NewDiagnostics(LevelNormal)
	}

	files, err := discoverFiles(root, opts.ExcludeTokens, diagnostics)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("pipeline: discovery: %w", err)
	}

	interner := graph.NewInterner()
	tasks := make([]ExtractionTask, 0, len(files))
	for _, f := range files {
		lang, ok := graph.LanguageForExt(filepath.Ext(f))
		if !ok {
			continue
		}
		interner.Intern(f, lang)
		tasks = append(tasks, ExtractionTask{RepoRoot: root, FilePath: f, Language: lang})
	}

	fanOut := NewFanOut(func() graph.Parser { return graph.NewTreeSitterParser() }, diagnostics)
	results, err := fanOut.Run(ctx, tasks)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("pipeline: extraction canceled: %w", err)
	}

	resolver, err := graph.NewResolver(root, files, graph.ResolverOptions{
		TsconfigPath:     opts.TsconfigPath,
		DisableWorkspace: opts.DisableWorkspace,
	})
	if err != nil {
		return nil, nil, 0, fmt.Errorf("pipeline: resolver setup: %w", err)
	}

	g := graph.NewGraph(interner)
	for _, res := range results {
		fromID, ok := interner.Lookup(res.FilePath)
		if !ok {
			continue
		}
		for _, imp := range res.Imports {
			if opts.IgnoreTypeImports && imp.IsTypeOnly {
				continue
			}
			resolved, ok := resolver.Resolve(res.FilePath, imp.Specifier, imp.Kind)
			if !ok {
				diagnostics.Debugf("unresolved specifier %q imported from %s:%d", imp.Specifier, res.FilePath, imp.Line)
				continue
			}
			toID, ok := interner.Lookup(resolved)
			if !ok {
				diagnostics.Debugf("resolved path %q (from %s) is outside the interned working set", resolved, res.FilePath)
				continue
			}
			g.AddEdge(graph.Edge{
				From:       fromID,
				To:         toID,
				Line:       imp.Line,
				ImportText: imp.Text,
				IsTypeOnly: imp.IsTypeOnly,
			})
		}
	}

	g.Finalize()
	return g, interner, len(files), nil
}
