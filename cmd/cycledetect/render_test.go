package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/cycledetect/cycledetect/internal/config"
	"github.com/cycledetect/cycledetect/internal/graph"
	"github.com/cycledetect/cycledetect/internal/pipeline"
)

func newCycleReport(t *testing.T) *pipeline.Report {
	t.Helper()
	interner := graph.NewInterner()
	a := interner.Intern("a.ts", graph.LangTypeScript)
	b := interner.Intern("b.ts", graph.LangTypeScript)

	g := graph.NewGraph(interner)
	g.AddEdge(graph.Edge{From: a, To: b, Line: 1, ImportText: `import "./b"`})
	g.AddEdge(graph.Edge{From: b, To: a, Line: 1, ImportText: `import "./a"`})
	g.Finalize()

	cycles := g.FindCycles()
	return &pipeline.Report{
		TotalFiles:   2,
		Cycles:       cycles,
		CombinedHash: graph.CombinedHash(cycles),
		FilePath:     func(id graph.FileID) string { return interner.Record(id).Path },
	}
}

func testCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.SetOut(&bytes.Buffer{})
	return cmd
}

func TestRenderReport_ExitOneWhenUnexpectedCycleFound(t *testing.T) {
	report := newCycleReport(t)
	cmd := testCmd()
	cfg := &config.ProjectConfig{}

	code, err := renderReport(cmd, t.TempDir(), report, cfg, analyzeFlags{})
	if err != nil {
		t.Fatal(err)
	}
	if code != 1 {
		t.Fatalf("expected exit 1 (1 cycle found, expected 0), got %d", code)
	}
}

func TestRenderReport_ExitZeroWhenAllowlisted(t *testing.T) {
	report := newCycleReport(t)
	cmd := testCmd()
	cfg := &config.ProjectConfig{
		AllowedCycles: []config.AllowlistEntry{{Files: []string{"a.ts", "b.ts"}}},
	}

	code, err := renderReport(cmd, t.TempDir(), report, cfg, analyzeFlags{})
	if err != nil {
		t.Fatal(err)
	}
	if code != 0 {
		t.Fatalf("expected exit 0 with the cycle allowlisted, got %d", code)
	}
}

func TestRenderReport_ExitOneOnHashMismatch(t *testing.T) {
	report := newCycleReport(t)
	cmd := testCmd()
	cfg := &config.ProjectConfig{
		ExpectedCycles: 1,
		ExpectedHash:   "000000000000",
	}

	code, err := renderReport(cmd, t.TempDir(), report, cfg, analyzeFlags{})
	if err != nil {
		t.Fatal(err)
	}
	if code != 1 {
		t.Fatalf("expected exit 1 on hash mismatch, got %d", code)
	}
}

func TestRenderReport_JSONIncludesAllowedFlag(t *testing.T) {
	report := newCycleReport(t)
	buf := &bytes.Buffer{}
	cmd := testCmd()
	cmd.SetOut(buf)
	cfg := &config.ProjectConfig{
		AllowedCycles: []config.AllowlistEntry{{Files: []string{"a.ts", "b.ts"}}},
	}

	if _, err := renderReport(cmd, t.TempDir(), report, cfg, analyzeFlags{json: true}); err != nil {
		t.Fatal(err)
	}

	var out jsonReport
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.TotalCycles != 1 {
		t.Fatalf("expected 1 cycle in JSON, got %d", out.TotalCycles)
	}
	if !out.Cycles[0].Allowed {
		t.Fatalf("expected the allowlisted cycle to carry allowed=true")
	}
	if len(out.Cycles[0].Edges) != 2 {
		t.Fatalf("expected 2 edges in the reported cycle, got %d", len(out.Cycles[0].Edges))
	}
}

func TestRenderReport_HumanOutputListsCycle(t *testing.T) {
	report := newCycleReport(t)
	buf := &bytes.Buffer{}
	cmd := testCmd()
	cmd.SetOut(buf)
	cfg := &config.ProjectConfig{}

	if _, err := renderReport(cmd, t.TempDir(), report, cfg, analyzeFlags{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "a.ts") || !strings.Contains(buf.String(), "b.ts") {
		t.Fatalf("expected human output to mention both cycle members, got:\n%s", buf.String())
	}
}

func TestRenderReport_UpdateHashRewritesConfig(t *testing.T) {
	report := newCycleReport(t)
	cmd := testCmd()
	root := t.TempDir()
	cfg := &config.ProjectConfig{ExpectedCycles: 1}

	if _, err := renderReport(cmd, root, report, cfg, analyzeFlags{updateHash: true}); err != nil {
		t.Fatal(err)
	}
	if cfg.ExpectedHash != report.CombinedHash {
		t.Fatalf("expected config hash to be rewritten to %q, got %q", report.CombinedHash, cfg.ExpectedHash)
	}

	reloaded, err := config.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.ExpectedHash != report.CombinedHash {
		t.Fatalf("expected hash to persist to disk, got %q", reloaded.ExpectedHash)
	}
}
