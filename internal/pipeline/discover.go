package pipeline

import "github.com/cycledetect/cycledetect/internal/discover"

// discoverFiles runs File Discovery against root, routing the walker's
// diagnostics through the same Diagnostics the rest of the run uses.
func discoverFiles(root string, excludeTokens []string, diagnostics *Diagnostics) ([]string, error) {
	w := discover.NewWalker(excludeTokens)
	w.Logger = diagnostics
	return w.Discover(root)
}
