package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cycledetect/cycledetect/internal/graph"
	"github.com/cycledetect/cycledetect/internal/pipeline"
)

// graphFlags are the discovery/resolution options shared by query and
// impact, a subset of analyzeFlags (SPEC_FULL §6a: "they do not change
// cycle semantics").
type graphFlags struct {
	root        string
	exclude     []string
	tsconfig    string
	noTsconfig  bool
	noWorkspace bool
	json        bool
}

func bindGraphFlags(cmd *cobra.Command, f *graphFlags) {
	cmd.Flags().StringVar(&f.root, "root", ".", "project root to index")
	cmd.Flags().StringArrayVar(&f.exclude, "exclude", nil, "exclude a path segment or glob (repeatable)")
	cmd.Flags().StringVar(&f.tsconfig, "tsconfig", "", "path to tsconfig.json")
	cmd.Flags().BoolVar(&f.noTsconfig, "no-tsconfig", false, "disable tsconfig-based resolution")
	cmd.Flags().BoolVar(&f.noWorkspace, "no-workspace", false, "disable workspace package discovery")
	cmd.Flags().BoolVar(&f.json, "json", false, "emit JSON output")
}

// buildStore runs the resolver pipeline against f.root and loads the
// resulting graph into a MemStore, the same Store interface KuzuStore
// implements (SPEC_FULL §6a).
func buildStore(cmd *cobra.Command, f graphFlags) (*graph.MemStore, error) {
	root, err := filepath.Abs(f.root)
	if err != nil {
		return nil, err
	}

	tsconfigPath := f.tsconfig
	if !f.noTsconfig && tsconfigPath == "" {
		candidate := filepath.Join(root, "tsconfig.json")
		if _, statErr := os.Stat(candidate); statErr == nil {
			tsconfigPath = candidate
		}
	}
	if f.noTsconfig {
		tsconfigPath = ""
	}

	g, _, _, err := pipeline.BuildGraph(cmd.Context(), root, pipeline.Options{
		ExcludeTokens:    f.exclude,
		TsconfigPath:     tsconfigPath,
		DisableWorkspace: f.noWorkspace,
		Diagnostics:      pipeline.NewDiagnostics(pipeline.LevelSilent),
	})
	if err != nil {
		return nil, err
	}
	g.Finalize()

	store := graph.NewMemStore()
	if err := graph.PopulateStore(cmd.Context(), store, g, g.FindCycles()); err != nil {
		return nil, err
	}
	return store, nil
}

func newQueryCmd() *cobra.Command {
	var f graphFlags
	var direction string
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "query <file>",
		Short: "Report the dependency chain from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := buildStore(cmd, f)
			if err != nil {
				return err
			}
			defer store.Close()

			dir := graph.Direction(direction)
			if dir != graph.DirectionUpstream && dir != graph.DirectionDownstream {
				return fmt.Errorf("--direction must be %q or %q, got %q", graph.DirectionUpstream, graph.DirectionDownstream, direction)
			}

			chains, err := store.GetDependencies(cmd.Context(), args[0], dir, maxDepth)
			if err != nil {
				return err
			}

			if f.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(chains)
			}
			for _, c := range chains {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(c.Paths, " -> "))
			}
			return nil
		},
	}

	bindGraphFlags(cmd, &f)
	cmd.Flags().StringVar(&direction, "direction", string(graph.DirectionDownstream), "upstream or downstream")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 10, "maximum traversal depth")

	return cmd
}
