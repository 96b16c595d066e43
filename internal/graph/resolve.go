package graph

import (
	"os"
	"path/filepath"
	"strings"
)

// tsExtensions is the probe order for extension-and-index resolution
// (spec §4.2 "Extension-and-index probing").
var tsExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}
var tsIndexExtensions = []string{".ts", ".tsx", ".js", ".jsx"}

// Resolver implements the `resolve(from_file, specifier) -> optional FileId`
// function described in spec §4.2: relative paths, tsconfig paths/baseUrl,
// workspace packages, and (optionally) a Node-style node_modules walk.
type Resolver struct {
	repoRoot       string
	fileSet        map[string]bool
	tsconfig       *TsconfigNode // nil when --no-tsconfig
	packages       map[string]*PackageRecord
	followNodeMods bool // Node-style node_modules upward walk, disabled by default
}

// ResolverOptions configures Resolver construction.
type ResolverOptions struct {
	// TsconfigPath, if non-empty, is loaded via LoadTsconfigChain. Leave
	// empty to disable tsconfig-based resolution (--no-tsconfig).
	TsconfigPath string
	// DisableWorkspace skips workspace package discovery (--no-workspace).
	DisableWorkspace bool
	// FollowNodeModules enables the optional node_modules upward walk.
	FollowNodeModules bool
}

// NewResolver builds a Resolver from the repository root, the set of known
// repo-relative file paths (the working set from File Discovery), and
// resolution options.
func NewResolver(repoRoot string, knownFiles []string, opts ResolverOptions) (*Resolver, error) {
	r := &Resolver{
		repoRoot:       repoRoot,
		fileSet:        make(map[string]bool, len(knownFiles)),
		followNodeMods: opts.FollowNodeModules,
	}
	for _, f := range knownFiles {
		r.fileSet[filepath.ToSlash(f)] = true
	}

	if opts.TsconfigPath != "" {
		node, err := LoadTsconfigChain(repoRoot, opts.TsconfigPath)
		if err != nil {
			return nil, err
		}
		r.tsconfig = node
	}

	if !opts.DisableWorkspace {
		r.packages = DiscoverWorkspaces(repoRoot, r.fileSet)
	} else {
		r.packages = map[string]*PackageRecord{}
	}

	return r, nil
}

// importContext carries per-import information the exports-field condition
// resolution needs (spec §4.2 "Exports-field resolution").
type importContext struct {
	fromFile string
	kind     ImportKind
}

// preferredConditions returns the condition-name preference order for a
// given import context: require() calls and .cjs importers try "require",
// then "default", then "import"; everything else tries "import", then
// "default", then "require".
func preferredConditions(ctx importContext) []string {
	if ctx.kind == ImportRequire || strings.HasSuffix(ctx.fromFile, ".cjs") {
		return []string{"require", "default", "import"}
	}
	return []string{"import", "default", "require"}
}

// Resolve maps a raw specifier, imported from fromFile, to a repo-relative
// path in the working set. Returns false if the specifier is external or
// does not resolve to a known file.
func (r *Resolver) Resolve(fromFile, specifier string, kind ImportKind) (string, bool) {
	ctx := importContext{fromFile: fromFile, kind: kind}

	// 1. Relative / absolute specifier.
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		base := filepath.ToSlash(filepath.Clean(filepath.Join(filepath.Dir(fromFile), specifier)))
		return r.probeFile(base)
	}
	if strings.HasPrefix(specifier, "/") {
		base := filepath.ToSlash(filepath.Clean(strings.TrimPrefix(specifier, "/")))
		return r.probeFile(base)
	}

	// 2. Tsconfig paths.
	if r.tsconfig != nil {
		if mapping, capture, ok := r.tsconfig.Match(specifier); ok {
			for _, target := range mapping.Targets {
				substituted := target
				if mapping.Wildcard {
					substituted = strings.Replace(target, "*", capture, 1)
				}
				base := filepath.ToSlash(filepath.Clean(filepath.Join(r.tsconfig.BaseDir, substituted)))
				base = r.relToRoot(base)
				if resolved, ok := r.probeFile(base); ok {
					return resolved, true
				}
			}
		}

		// 3. Tsconfig baseUrl.
		if r.tsconfig.BaseURL != "" {
			base := filepath.ToSlash(filepath.Clean(filepath.Join(r.tsconfig.BaseURL, specifier)))
			base = r.relToRoot(base)
			if resolved, ok := r.probeFile(base); ok {
				return resolved, true
			}
		}
	}

	// 4. Workspace package.
	if resolved, ok := r.resolveWorkspacePackage(specifier, ctx); ok {
		return resolved, true
	}

	// 5. Node-style upward walk (optional, disabled by default).
	if r.followNodeMods {
		if resolved, ok := r.resolveNodeModules(fromFile, specifier); ok {
			return resolved, true
		}
	}

	return "", false
}

// relToRoot converts an absolute path (possibly produced by joining with an
// absolute BaseURL/BaseDir) into a path relative to repoRoot, leaving
// already-relative paths untouched.
func (r *Resolver) relToRoot(p string) string {
	if !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(r.repoRoot, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

// resolveWorkspacePackage handles bare specifiers ("pkg/sub", "@scope/pkg/sub").
func (r *Resolver) resolveWorkspacePackage(specifier string, ctx importContext) (string, bool) {
	pkgName, subpath := splitPackageSpecifier(specifier)

	pkg, ok := r.packages[pkgName]
	if !ok {
		return "", false
	}

	if pkg.Exports != nil {
		return r.resolveViaExports(pkg, subpath, ctx)
	}

	if subpath == "." {
		if pkg.Module != "" {
			if resolved, ok := r.probeFile(pkg.Module); ok {
				return resolved, true
			}
		}
		if pkg.Main != "" {
			if resolved, ok := r.probeFile(pkg.Main); ok {
				return resolved, true
			}
		}
		for _, candidate := range []string{
			joinSlash(pkg.RootDir, "src/index"),
			joinSlash(pkg.RootDir, "index"),
		} {
			if resolved, ok := r.probeFile(candidate); ok {
				return resolved, true
			}
		}
		return "", false
	}

	// No exports map: treat the subpath as a plain file relative to the
	// package root.
	rel := strings.TrimPrefix(subpath, "./")
	base := joinSlash(pkg.RootDir, rel)
	return r.probeFile(base)
}

// splitPackageSpecifier splits "pkg/sub/path" or "@scope/pkg/sub/path" into
// (packageName, subpath), where subpath is "." for a bare package import.
func splitPackageSpecifier(specifier string) (string, string) {
	if strings.HasPrefix(specifier, "@") {
		afterScope := strings.Index(specifier[1:], "/")
		if afterScope == -1 {
			return specifier, "."
		}
		scopeEnd := afterScope + 1
		rest := specifier[scopeEnd+1:]
		secondSlash := strings.Index(rest, "/")
		if secondSlash == -1 {
			return specifier, "."
		}
		pkgName := specifier[:scopeEnd+1+secondSlash]
		subpath := "./" + rest[secondSlash+1:]
		return pkgName, subpath
	}

	slash := strings.Index(specifier, "/")
	if slash == -1 {
		return specifier, "."
	}
	return specifier[:slash], "./" + specifier[slash+1:]
}

// resolveViaExports resolves subpath against a package's exports map,
// applying wildcard capture substitution and condition preference, then
// extension-probing the result (TypeScript sources may be mapped where
// only ".js" is declared: try the ".ts"/".tsx" sibling before the literal).
func (r *Resolver) resolveViaExports(pkg *PackageRecord, subpath string, ctx importContext) (string, bool) {
	pattern, capture, ok := pkg.Exports.Match(subpath)
	if !ok {
		return "", false
	}
	target, ok := ResolveTarget(pattern.Value, preferredConditions(ctx), capture)
	if !ok {
		return "", false
	}

	base := joinSlash(pkg.RootDir, target)
	if resolved, ok := r.probeTypeScriptSibling(base); ok {
		return resolved, true
	}
	return r.probeFile(base)
}

// probeTypeScriptSibling tries the .ts/.tsx counterpart of a path whose
// declared extension is .js/.jsx before falling back to the literal path.
func (r *Resolver) probeTypeScriptSibling(path string) (string, bool) {
	switch {
	case strings.HasSuffix(path, ".js"):
		sibling := strings.TrimSuffix(path, ".js") + ".ts"
		if r.fileSet[sibling] {
			return sibling, true
		}
	case strings.HasSuffix(path, ".jsx"):
		sibling := strings.TrimSuffix(path, ".jsx") + ".tsx"
		if r.fileSet[sibling] {
			return sibling, true
		}
	}
	return "", false
}

// resolveNodeModules walks upward from fromFile's directory probing
// node_modules/<specifier> at each level. Disabled by default; when
// disabled, external packages simply do not resolve.
func (r *Resolver) resolveNodeModules(fromFile, specifier string) (string, bool) {
	dir := filepath.Dir(fromFile)
	for {
		base := joinSlash(joinSlash(dir, "node_modules"), specifier)
		if resolved, ok := r.probeFile(base); ok {
			return resolved, true
		}
		if dir == "." || dir == "/" || dir == "" {
			return "", false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// probeFile implements extension-and-index probing against the known
// working set (no filesystem I/O): the literal path, then each of
// tsExtensions appended, then <path>/index.<ext> for each index extension.
func (r *Resolver) probeFile(base string) (string, bool) {
	if r.fileSet[base] {
		return base, true
	}
	for _, ext := range tsExtensions {
		candidate := base + ext
		if r.fileSet[candidate] {
			return candidate, true
		}
	}
	for _, ext := range tsIndexExtensions {
		candidate := base + "/index" + ext
		if r.fileSet[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// fileExistsOnDisk reports whether path exists on disk. No resolution path
// calls it: resolution of individual specifiers stays pure against fileSet
// per spec §4.2, and workspace glob expansion stats directories itself.
func fileExistsOnDisk(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
