package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/cycledetect/cycledetect/internal/graph"
)

// ExtractionTask describes one file the fan-out must parse.
type ExtractionTask struct {
	// RepoRoot is the directory FilePath is relative to.
	RepoRoot string
	// FilePath is the repo-relative path of the source file.
	FilePath string
	Language graph.Language
}

// ExtractionResult holds the outcome of parsing a single ExtractionTask.
// Err is set only for I/O failures reading the file; a parse failure inside
// the grammar itself degrades to zero imports per spec §4.3 ("files that
// fail to parse ... produce zero edges") and is reported via Diagnostics
// instead of Err.
type ExtractionResult struct {
	FilePath string
	Imports  []graph.RawImport
	Err      error
}

// FanOut dispatches per-file extraction work across a worker pool sized to
// the host's hardware concurrency (spec §5: "an unbounded queue feeds a pool
// sized to the hardware concurrency... each worker owns its parser
// instance"). Unlike the teacher's agent fan-out, a single file's failure
// never cancels its siblings — only explicit context cancellation does.
type FanOut struct {
	newParser   func() graph.Parser
	concurrency int
	diagnostics *Diagnostics
}

// NewFanOut builds a FanOut. newParser is called once per worker so that no
// mutable parser state is shared across goroutines (spec §5).
func NewFanOut(newParser func() graph.Parser, diagnostics *Diagnostics) *FanOut {
	return &FanOut{
		newParser:   newParser,
		concurrency: runtime.GOMAXPROCS(0),
		diagnostics: diagnostics,
	}
}

// Run parses every task in parallel and returns one ExtractionResult per
// task, in the same order as tasks. The returned error is non-nil only when
// ctx was canceled; individual parse failures are absorbed into zero-import
// results.
func (f *FanOut) Run(ctx context.Context, tasks []ExtractionTask) ([]ExtractionResult, error) {
	results := make([]ExtractionResult, len(tasks))
	sem := semaphore.NewWeighted(int64(max(1, f.concurrency)))
	g, gctx := errgroup.WithContext(ctx)

	parsers := make(chan graph.Parser, f.concurrency)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			parser := f.leaseParser(parsers)
			defer f.returnParser(parsers, parser)

			source, err := os.ReadFile(filepath.Join(task.RepoRoot, task.FilePath))
			if err != nil {
				results[i] = ExtractionResult{FilePath: task.FilePath, Err: err}
				f.diagnostics.Debugf("discover: unreadable file %s: %v", task.FilePath, err)
				return nil
			}

			parsed, err := parser.Parse(gctx, task.FilePath, source, task.Language)
			if err != nil {
				f.diagnostics.Debugf("parse failure in %s: %v", task.FilePath, err)
				results[i] = ExtractionResult{FilePath: task.FilePath}
				return nil
			}
			results[i] = ExtractionResult{FilePath: task.FilePath, Imports: parsed.Imports}
			return nil
		})
	}

	err := g.Wait()
	close(parsers)
	for p := range parsers {
		p.Close()
	}
	return results, err
}

// leaseParser pulls a recycled parser off the pool, or builds a fresh one.
func (f *FanOut) leaseParser(pool chan graph.Parser) graph.Parser {
	select {
	case p := <-pool:
		return p
	default:
		return f.newParser()
	}
}

// returnParser puts a parser back on the pool for reuse by the next task a
// worker picks up, bounded by the pool's buffer size.
func (f *FanOut) returnParser(pool chan graph.Parser, p graph.Parser) {
	select {
	case pool <- p:
	default:
		p.Close()
	}
}
