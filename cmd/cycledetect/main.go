// Command cycledetect scans a JavaScript/TypeScript codebase for circular
// module dependencies.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cycledetect [flags] <DIR>",
		Short:         "Detect circular module dependencies in a JS/TypeScript project",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newImpactCmd())

	// Running `cycledetect <DIR>` with no subcommand analyzes DIR directly,
	// mirroring the stable CLI contract (spec.md §6), which has no
	// "analyze" verb of its own.
	analyze := newAnalyzeCmd()
	root.Args = cobra.MaximumNArgs(1)
	root.RunE = analyze.RunE
	root.Flags().AddFlagSet(analyze.Flags())

	return root
}
