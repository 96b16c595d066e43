package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cycledetect/cycledetect/internal/config"
	"github.com/cycledetect/cycledetect/internal/pipeline"
)

// jsonEdge is one hop of a reported cycle in the JSON output schema
// (spec.md §6).
type jsonEdge struct {
	FromFile   string `json:"from_file"`
	ToFile     string `json:"to_file"`
	Line       uint32 `json:"line"`
	ImportText string `json:"import_text"`
}

// jsonCycle is one reported cycle. Allowed is not named by spec.md's JSON
// schema block but is required by its own §4.5/§8 narrative ("still emitted
// in structured output with an allowed=true flag").
type jsonCycle struct {
	Hash    string     `json:"hash"`
	Allowed bool       `json:"allowed"`
	Edges   []jsonEdge `json:"edges"`
}

type jsonReport struct {
	TotalFiles  int         `json:"total_files"`
	TotalCycles int         `json:"total_cycles"`
	CyclesHash  string      `json:"cycles_hash"`
	Cycles      []jsonCycle `json:"cycles"`
}

// renderReport evaluates the allowlist, renders the report (JSON or human),
// applies --update-hash, and returns the process exit code per spec.md §6's
// exit-code rule.
func renderReport(cmd *cobra.Command, root string, report *pipeline.Report, cfg *config.ProjectConfig, f analyzeFlags) (int, error) {
	cycles := make([]jsonCycle, 0, len(report.Cycles))
	nonAllowed := 0
	for _, c := range report.Cycles {
		paths := make([]string, len(c.Nodes))
		for i, id := range c.Nodes {
			paths[i] = report.FilePath(id)
		}
		allowed := cfg.IsAllowed(paths)
		if !allowed {
			nonAllowed++
		}

		edges := make([]jsonEdge, len(c.Edges))
		for i, e := range c.Edges {
			edges[i] = jsonEdge{
				FromFile:   report.FilePath(e.From),
				ToFile:     report.FilePath(e.To),
				Line:       e.Line,
				ImportText: e.ImportText,
			}
		}
		cycles = append(cycles, jsonCycle{Hash: c.Hash, Allowed: allowed, Edges: edges})
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].Hash < cycles[j].Hash })

	if f.updateHash {
		cfg.ExpectedHash = report.CombinedHash
		path := cfg.Path()
		if path == "" {
			path = filepath.Join(root, ".cddrc.json")
		}
		if err := cfg.Save(path); err != nil {
			return 1, fmt.Errorf("writing updated hash to %s: %w", path, err)
		}
	}

	if f.json {
		out := jsonReport{
			TotalFiles:  report.TotalFiles,
			TotalCycles: len(cycles),
			CyclesHash:  report.CombinedHash,
			Cycles:      cycles,
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return 1, err
		}
	} else {
		printHuman(cmd, report, cycles)
	}

	exitCode := 0
	if nonAllowed != cfg.ExpectedCycles {
		exitCode = 1
	}
	if cfg.ExpectedHash != "" && cfg.ExpectedHash != report.CombinedHash {
		exitCode = 1
	}
	return exitCode, nil
}

func printHuman(cmd *cobra.Command, report *pipeline.Report, cycles []jsonCycle) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%d files analyzed, %d cycles found (hash %s)\n", report.TotalFiles, len(cycles), report.CombinedHash)
	for _, c := range cycles {
		tag := ""
		if c.Allowed {
			tag = " [allowed]"
		}
		fmt.Fprintf(w, "\ncycle %s%s:\n", c.Hash, tag)
		for _, e := range c.Edges {
			fmt.Fprintf(w, "  %s:%d -> %s  (%s)\n", e.FromFile, e.Line, e.ToFile, e.ImportText)
		}
	}
}

func loadAllowlistFile(path string) ([]config.AllowlistEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []config.AllowlistEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing allowlist %s: %w", path, err)
	}
	return entries, nil
}
