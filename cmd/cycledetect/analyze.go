package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cycledetect/cycledetect/internal/config"
	"github.com/cycledetect/cycledetect/internal/pipeline"
)

type analyzeFlags struct {
	exclude           []string
	ignoreTypeImports bool
	debug             bool
	numberOfCycles    int
	silent            bool
	watch             bool
	tsconfig          string
	noTsconfig        bool
	noWorkspace       bool
	json              bool
	expectedHash      string
	allowlist         string
	updateHash        bool
	initConfig        bool
}

func newAnalyzeCmd() *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze [flags] <DIR>",
		Short: "Analyze a directory for circular module dependencies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runAnalyze(cmd, dir, f)
		},
	}

	cmd.Flags().StringArrayVar(&f.exclude, "exclude", nil, "exclude a path segment or glob (repeatable)")
	cmd.Flags().BoolVar(&f.ignoreTypeImports, "ignore-type-imports", false, "disregard import type ... edges when finding cycles")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "print debug-level diagnostics")
	cmd.Flags().IntVar(&f.numberOfCycles, "numberOfCycles", 0, "expected count of non-allowed cycles; nonzero exit on mismatch")
	cmd.Flags().BoolVar(&f.silent, "silent", false, "suppress the summary line")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "re-run on filesystem changes")
	cmd.Flags().StringVar(&f.tsconfig, "tsconfig", "", "path to tsconfig.json (default: <DIR>/tsconfig.json if present)")
	cmd.Flags().BoolVar(&f.noTsconfig, "no-tsconfig", false, "disable tsconfig-based resolution")
	cmd.Flags().BoolVar(&f.noWorkspace, "no-workspace", false, "disable workspace package discovery")
	cmd.Flags().BoolVar(&f.json, "json", false, "emit the structured JSON report")
	cmd.Flags().StringVar(&f.expectedHash, "expected-hash", "", "expected combined cycle hash; nonzero exit on mismatch")
	cmd.Flags().StringVar(&f.allowlist, "allowlist", "", "path to a JSON allowlist file, merged with the config file's allowed_cycles")
	cmd.Flags().BoolVar(&f.updateHash, "update-hash", false, "rewrite the config file's expected_hash to the freshly computed value")
	cmd.Flags().BoolVar(&f.initConfig, "init", false, "write a default config file to <DIR> and exit")

	return cmd
}

func runAnalyze(cmd *cobra.Command, dir string, f analyzeFlags) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	if f.initConfig {
		return runInit(root, cmd.OutOrStdout())
	}

	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("config-malformed: %w", err)
	}

	overrides := config.Overrides{}
	if cmd.Flags().Changed("exclude") {
		overrides.Exclude, overrides.ExcludeSet = f.exclude, true
	}
	if cmd.Flags().Changed("ignore-type-imports") {
		overrides.IgnoreTypeImports, overrides.IgnoreTypeImportsSet = f.ignoreTypeImports, true
	}
	if cmd.Flags().Changed("numberOfCycles") {
		overrides.ExpectedCycles, overrides.ExpectedCyclesSet = f.numberOfCycles, true
	}
	if cmd.Flags().Changed("expected-hash") {
		overrides.ExpectedHash, overrides.ExpectedHashSet = f.expectedHash, true
	}
	cfg = cfg.Apply(overrides)

	if f.allowlist != "" {
		entries, err := loadAllowlistFile(f.allowlist)
		if err != nil {
			return fmt.Errorf("config-malformed: %w", err)
		}
		cfg.AllowedCycles = append(cfg.AllowedCycles, entries...)
	}

	level := pipeline.LevelNormal
	if f.silent {
		level = pipeline.LevelSilent
	}
	if f.debug {
		level = pipeline.LevelDebug
	}
	diagnostics := pipeline.NewDiagnostics(level)

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

	opts := pipeline.Options{
		ExcludeTokens:     cfg.Exclude,
		IgnoreTypeImports: cfg.IgnoreTypeImports,
		TsconfigPath:      tsconfigPath,
		DisableWorkspace:  f.noWorkspace,
		Diagnostics:       diagnostics,
	}

	runOnce := func(ctx context.Context) (exitCode int, err error) {
		report, err := pipeline.Run(ctx, root, opts)
		if err != nil {
			return 1, err
		}
		return renderReport(cmd, root, report, cfg, f)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if f.watch {
		return runWatch(ctx, root, runOnce, diagnostics)
	}

	code, err := runOnce(ctx)
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}

// exitCodeError signals a nonzero process exit with no accompanying
// message, for the hash/count-mismatch case spec.md §7 calls "non-fatal to
// the analysis, fatal to the exit code": the report has already been
// printed, so main must not also print "error: ...".
type exitCodeError struct{ code int }

func (e *exitCodeError) Error() string { return "" }
