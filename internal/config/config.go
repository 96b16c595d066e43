package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// configFileNames are probed, in order, by Load's upward walk.
var configFileNames = []string{".cddrc.json", "cdd.config.json"}

// AllowlistEntry declares one permitted cycle by its exact file set.
type AllowlistEntry struct {
	Files  []string `json:"files"`
	Reason string   `json:"reason,omitempty"`
}

// ProjectConfig holds the settings loaded from .cddrc.json / cdd.config.json
// (spec §6). CLI flags override the corresponding field after Load returns.
type ProjectConfig struct {
	Exclude           []string         `json:"exclude,omitempty"`
	IgnoreTypeImports bool             `json:"ignore_type_imports,omitempty"`
	ExpectedCycles    int              `json:"expected_cycles,omitempty"`
	ExpectedHash      string           `json:"expected_hash,omitempty"`
	AllowedCycles     []AllowlistEntry `json:"allowed_cycles,omitempty"`

	// path is the file Load found (or would write via Save); empty for a
	// zero-value config that was never backed by a file on disk.
	path string
}

// Load walks upward from dir looking for .cddrc.json or cdd.config.json.
// Returns a zero-value config (not an error) if none is found anywhere up
// to the filesystem root.
func Load(dir string) (*ProjectConfig, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	for current := abs; ; {
		for _, name := range configFileNames {
			path := filepath.Join(current, name)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			var cfg ProjectConfig
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config: malformed %s: %w", path, err)
			}
			cfg.path = path
			return &cfg, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return &ProjectConfig{}, nil
}

// Save writes the config to path (pretty-printed JSON), creating parent
// directories as needed. Used by --init and --update-hash.
func (c *ProjectConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	c.path = path
	return nil
}

// Path returns the file this config was loaded from, or "" for a
// never-persisted zero-value config.
func (c *ProjectConfig) Path() string {
	return c.path
}

// IsAllowed reports whether cyclePaths (the relative file paths that make up
// a reported cycle, in any order) matches one of the config's allowlist
// entries exactly (spec §4.5: "the set of relative paths in the cycle
// equals the declared file set of any allowlist entry").
func (c *ProjectConfig) IsAllowed(cyclePaths []string) bool {
	want := sortedSet(cyclePaths)
	for _, entry := range c.AllowedCycles {
		if setsEqual(want, sortedSet(entry.Files)) {
			return true
		}
	}
	return false
}

func sortedSet(paths []string) []string {
	out := make([]string, len(paths))
	copy(out, paths)
	sort.Strings(out)
	return out
}

func setsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Overrides carries CLI flag values that take precedence over whatever the
// config file declared (spec §6: "CLI overrides file").
type Overrides struct {
	Exclude              []string
	ExcludeSet           bool
	IgnoreTypeImports    bool
	IgnoreTypeImportsSet bool
	ExpectedCycles       int
	ExpectedCyclesSet    bool
	ExpectedHash         string
	ExpectedHashSet      bool
}

// Apply merges CLI overrides onto the loaded config, returning a new config
// with overridden fields replaced. Fields the CLI did not touch keep the
// config file's value.
func (c *ProjectConfig) Apply(o Overrides) *ProjectConfig {
	merged := *c
	if o.ExcludeSet {
		merged.Exclude = o.Exclude
	}
	if o.IgnoreTypeImportsSet {
		merged.IgnoreTypeImports = o.IgnoreTypeImports
	}
	if o.ExpectedCyclesSet {
		merged.ExpectedCycles = o.ExpectedCycles
	}
	if o.ExpectedHashSet {
		merged.ExpectedHash = o.ExpectedHash
	}
	return &merged
}
