package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/cycledetect/cycledetect/internal/config"
)

// runInit writes a default .cddrc.json into root, rewriting it in place if
// one already exists (spec.md §6: "rewritten in-place by --init").
func runInit(root string, out io.Writer) error {
	path := filepath.Join(root, ".cddrc.json")
	cfg := &config.ProjectConfig{
		Exclude: []string{"node_modules", "dist", "build"},
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}
