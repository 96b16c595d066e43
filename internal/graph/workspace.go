package graph

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// PackageRecord describes one monorepo workspace package discovered from a
// package.json manifest.
type PackageRecord struct {
	Name    string
	RootDir string // repo-relative
	Main    string // repo-relative, resolved against RootDir; "" if absent
	Module  string // repo-relative; "" if absent
	Exports *ExportsTree
}

// ExportsTree is the parsed `exports` field of a package manifest. Patterns
// are stored in declaration order; SingleTarget is set instead when exports
// is a bare string (mapping only the package root, ".").
type ExportsTree struct {
	SingleTarget string
	Patterns     []ExportsPattern
}

// ExportsPattern is one subpath entry of an exports map, e.g. "." or
// "./features/*".
type ExportsPattern struct {
	Key      string
	Prefix   string
	Suffix   string
	Wildcard bool
	Value    ExportsValue
}

// ExportsValue is either a literal target path or an ordered condition map
// (whose values are themselves ExportsValues, supporting nested condition
// maps).
type ExportsValue struct {
	Target     string
	Conditions []ExportsCondition
}

// ExportsCondition is one entry of a condition map, in declaration order.
type ExportsCondition struct {
	Name  string
	Value ExportsValue
}

// packageManifest is a minimal package.json shape read for workspace
// discovery and package resolution.
type packageManifest struct {
	Name       string `json:"name"`
	Main       string `json:"main"`
	Module     string `json:"module"`
	Workspaces gjson.Result
	Exports    gjson.Result
}

func readPackageManifest(path string) (*packageManifest, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	root := gjson.ParseBytes(data)
	if !root.Exists() {
		return nil, false
	}
	return &packageManifest{
		Name:       root.Get("name").String(),
		Main:       root.Get("main").String(),
		Module:     root.Get("module").String(),
		Workspaces: root.Get("workspaces"),
		Exports:    root.Get("exports"),
	}, true
}

// DiscoverWorkspaces looks for a workspace declaration in repoRoot itself: a
// package.json `workspaces` field, or a standalone pnpm-workspace.yaml
// `packages:` list (SPEC_FULL §4.2a). Parent directories of repoRoot are not
// searched, so a declaration above the analysis target is not found. It expands the
// declared glob patterns against repoRoot and loads one PackageRecord per
// matching directory that contains its own package.json.
func DiscoverWorkspaces(repoRoot string, fileSet map[string]bool) map[string]*PackageRecord {
	records := make(map[string]*PackageRecord)

	patterns := workspaceGlobPatterns(repoRoot)
	if len(patterns) == 0 {
		return records
	}

	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(os.DirFS(repoRoot), pattern)
		if err != nil {
			continue
		}
		for _, relDir := range matches {
			if seen[relDir] {
				continue
			}
			seen[relDir] = true
			absDir := filepath.Join(repoRoot, relDir)
			info, err := os.Stat(absDir)
			if err != nil || !info.IsDir() {
				continue
			}
			if rec := loadPackageRecord(repoRoot, relDir, fileSet); rec != nil {
				records[rec.Name] = rec
			}
		}
	}
	return records
}

// workspaceGlobPatterns reads the root package.json `workspaces` field, then
// falls back to pnpm-workspace.yaml's `packages:` list.
func workspaceGlobPatterns(repoRoot string) []string {
	if manifest, ok := readPackageManifest(filepath.Join(repoRoot, "package.json")); ok {
		if patterns := parseWorkspacesField(manifest.Workspaces); len(patterns) > 0 {
			return patterns
		}
	}

	data, err := os.ReadFile(filepath.Join(repoRoot, "pnpm-workspace.yaml"))
	if err != nil {
		return nil
	}
	var doc struct {
		Packages []string `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return doc.Packages
}

// parseWorkspacesField handles both array-of-globs and {packages: [...]}
// forms of the package.json `workspaces` field.
func parseWorkspacesField(field gjson.Result) []string {
	if !field.Exists() {
		return nil
	}
	if field.IsArray() {
		var out []string
		field.ForEach(func(_, v gjson.Result) bool {
			out = append(out, v.String())
			return true
		})
		return out
	}
	if field.IsObject() {
		packages := field.Get("packages")
		if packages.IsArray() {
			var out []string
			packages.ForEach(func(_, v gjson.Result) bool {
				out = append(out, v.String())
				return true
			})
			return out
		}
	}
	return nil
}

func loadPackageRecord(repoRoot, relDir string, fileSet map[string]bool) *PackageRecord {
	manifest, ok := readPackageManifest(filepath.Join(repoRoot, relDir, "package.json"))
	if !ok || manifest.Name == "" {
		return nil
	}

	rec := &PackageRecord{
		Name:    manifest.Name,
		RootDir: filepath.ToSlash(relDir),
	}

	if manifest.Main != "" {
		rec.Main = joinSlash(rec.RootDir, manifest.Main)
	}
	if manifest.Module != "" {
		rec.Module = joinSlash(rec.RootDir, manifest.Module)
	}
	if manifest.Exports.Exists() {
		rec.Exports = parseExportsTree(manifest.Exports)
	}

	_ = fileSet // retained for symmetry with resolve.go's probing helpers
	return rec
}

func joinSlash(dir, rel string) string {
	return filepath.ToSlash(filepath.Clean(filepath.Join(dir, rel)))
}

// parseExportsTree builds an ExportsTree from the raw gjson node of a
// manifest's `exports` field, preserving declaration order via ForEach.
func parseExportsTree(raw gjson.Result) *ExportsTree {
	if raw.Type == gjson.String {
		return &ExportsTree{SingleTarget: raw.String()}
	}
	if !raw.IsObject() {
		return nil
	}

	isSubpathMap := false
	raw.ForEach(func(key, _ gjson.Result) bool {
		if strings.HasPrefix(key.String(), ".") {
			isSubpathMap = true
		}
		return true
	})

	tree := &ExportsTree{}
	if !isSubpathMap {
		// The whole object is a condition map for the package root.
		tree.Patterns = append(tree.Patterns, ExportsPattern{
			Key:   ".",
			Value: parseExportsValue(raw),
		})
		return tree
	}

	raw.ForEach(func(key, val gjson.Result) bool {
		k := key.String()
		prefix, suffix, wildcard := splitExportsPattern(k)
		tree.Patterns = append(tree.Patterns, ExportsPattern{
			Key:      k,
			Prefix:   prefix,
			Suffix:   suffix,
			Wildcard: wildcard,
			Value:    parseExportsValue(val),
		})
		return true
	})
	return tree
}

func parseExportsValue(raw gjson.Result) ExportsValue {
	if raw.IsObject() {
		var conds []ExportsCondition
		raw.ForEach(func(key, val gjson.Result) bool {
			conds = append(conds, ExportsCondition{Name: key.String(), Value: parseExportsValue(val)})
			return true
		})
		return ExportsValue{Conditions: conds}
	}
	return ExportsValue{Target: raw.String()}
}

func splitExportsPattern(key string) (prefix, suffix string, wildcard bool) {
	idx := strings.Index(key, "*")
	if idx == -1 {
		return key, "", false
	}
	return key[:idx], key[idx+1:], true
}

// Match finds the best pattern for subpath per spec §4.2: literal match
// wins over wildcard match; among wildcards, the longest prefix wins. It
// returns the matched pattern and the captured "*" segment (empty for a
// literal match).
func (t *ExportsTree) Match(subpath string) (*ExportsPattern, string, bool) {
	if t == nil {
		return nil, "", false
	}
	if t.SingleTarget != "" {
		if subpath == "." {
			return &ExportsPattern{Key: ".", Value: ExportsValue{Target: t.SingleTarget}}, "", true
		}
		return nil, "", false
	}

	for i := range t.Patterns {
		p := &t.Patterns[i]
		if !p.Wildcard && p.Key == subpath {
			return p, "", true
		}
	}

	var best *ExportsPattern
	var bestCapture string
	bestPrefixLen := -1
	for i := range t.Patterns {
		p := &t.Patterns[i]
		if !p.Wildcard {
			continue
		}
		if !strings.HasPrefix(subpath, p.Prefix) || !strings.HasSuffix(subpath, p.Suffix) {
			continue
		}
		if len(subpath) < len(p.Prefix)+len(p.Suffix) {
			continue
		}
		if len(p.Prefix) > bestPrefixLen {
			bestPrefixLen = len(p.Prefix)
			best = p
			bestCapture = subpath[len(p.Prefix) : len(subpath)-len(p.Suffix)]
		}
	}
	if best != nil {
		return best, bestCapture, true
	}
	return nil, "", false
}

// ResolveTarget walks an ExportsValue's condition tree preferring, in
// order, the names in prefer, falling back to "default". Substitutes
// capture into any "*" present in the resolved target.
func ResolveTarget(v ExportsValue, prefer []string, capture string) (string, bool) {
	if v.Target != "" {
		return strings.Replace(v.Target, "*", capture, 1), true
	}
	if len(v.Conditions) == 0 {
		return "", false
	}
	for _, want := range prefer {
		for _, c := range v.Conditions {
			if c.Name == want {
				return ResolveTarget(c.Value, prefer, capture)
			}
		}
	}
	for _, c := range v.Conditions {
		if c.Name == "default" {
			return ResolveTarget(c.Value, prefer, capture)
		}
	}
	return "", false
}
