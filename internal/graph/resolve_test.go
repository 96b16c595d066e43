package graph

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestResolver(t *testing.T, knownFiles []string) *Resolver {
	t.Helper()
	r, err := NewResolver(t.TempDir(), knownFiles, ResolverOptions{DisableWorkspace: true})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// --- relative imports ---

func TestResolve_Relative(t *testing.T) {
	r := newTestResolver(t, []string{
		"src/index.ts",
		"src/service.ts",
		"src/types.ts",
	})

	tests := []struct {
		name       string
		importPath string
		sourceFile string
		want       string
		wantOK     bool
	}{
		{"dot-slash exact", "./service", "src/index.ts", "src/service.ts", true},
		{"dot-slash with extension probe", "./types", "src/index.ts", "src/types.ts", true},
		{"not found", "./nonexistent", "src/index.ts", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.sourceFile, tt.importPath, ImportStatic)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("resolved = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_RelativeParent(t *testing.T) {
	r := newTestResolver(t, []string{
		"src/types.ts",
		"src/sub/handler.ts",
	})

	got, ok := r.Resolve("src/sub/handler.ts", "../types", ImportStatic)
	if !ok {
		t.Fatal("expected resolution to succeed")
	}
	if got != "src/types.ts" {
		t.Errorf("resolved = %q, want %q", got, "src/types.ts")
	}
}

func TestResolve_IndexFile(t *testing.T) {
	r := newTestResolver(t, []string{
		"src/app.ts",
		"src/components/index.ts",
	})

	got, ok := r.Resolve("src/app.ts", "./components", ImportStatic)
	if !ok {
		t.Fatal("expected resolution to succeed")
	}
	if got != "src/components/index.ts" {
		t.Errorf("resolved = %q, want %q", got, "src/components/index.ts")
	}
}

func TestResolve_ExternalPackageUnresolved(t *testing.T) {
	r := newTestResolver(t, []string{"src/index.ts"})

	_, ok := r.Resolve("src/index.ts", "react", ImportStatic)
	if ok {
		t.Fatal("expected external package to be unresolved when workspace/node_modules are disabled")
	}
}

// --- tsconfig paths / baseUrl ---

func TestResolve_TsconfigPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{
		"compilerOptions": {
			"baseUrl": ".",
			"paths": { "@app/*": ["src/*"] }
		}
	}`)

	r, err := NewResolver(root, []string{"src/widgets/button.ts"}, ResolverOptions{
		TsconfigPath:     filepath.Join(root, "tsconfig.json"),
		DisableWorkspace: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := r.Resolve("src/app.ts", "@app/widgets/button", ImportStatic)
	if !ok {
		t.Fatal("expected @app/* alias to resolve")
	}
	if got != "src/widgets/button.ts" {
		t.Errorf("resolved = %q, want %q", got, "src/widgets/button.ts")
	}
}

func TestResolve_TsconfigBaseUrlFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{
		"compilerOptions": { "baseUrl": "./src" }
	}`)

	r, err := NewResolver(root, []string{"src/utils/format.ts"}, ResolverOptions{
		TsconfigPath:     filepath.Join(root, "tsconfig.json"),
		DisableWorkspace: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := r.Resolve("src/app.ts", "utils/format", ImportStatic)
	if !ok {
		t.Fatal("expected baseUrl-relative specifier to resolve")
	}
	if got != "src/utils/format.ts" {
		t.Errorf("resolved = %q, want %q", got, "src/utils/format.ts")
	}
}

// --- workspace packages ---

func TestResolve_WorkspaceMainFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{ "workspaces": ["packages/*"] }`)
	writeFile(t, filepath.Join(root, "packages/logger/package.json"), `{
		"name": "@acme/logger",
		"main": "./src/index.ts"
	}`)

	knownFiles := []string{"packages/logger/src/index.ts", "app.ts"}
	r, err := NewResolver(root, knownFiles, ResolverOptions{})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := r.Resolve("app.ts", "@acme/logger", ImportStatic)
	if !ok {
		t.Fatal("expected workspace package main fallback to resolve")
	}
	if got != "packages/logger/src/index.ts" {
		t.Errorf("resolved = %q, want %q", got, "packages/logger/src/index.ts")
	}
}

func TestResolve_WorkspaceExportsSubpath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{ "workspaces": ["packages/*"] }`)
	writeFile(t, filepath.Join(root, "packages/core/package.json"), `{
		"name": "@acme/core",
		"exports": {
			".": "./src/index.ts",
			"./widgets/*": { "import": "./src/widgets/*.ts", "require": "./dist/widgets/*.js" }
		}
	}`)

	knownFiles := []string{
		"packages/core/src/index.ts",
		"packages/core/src/widgets/button.ts",
		"app.ts",
	}
	r, err := NewResolver(root, knownFiles, ResolverOptions{})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := r.Resolve("app.ts", "@acme/core/widgets/button", ImportStatic)
	if !ok {
		t.Fatal("expected exports subpath wildcard to resolve")
	}
	if got != "packages/core/src/widgets/button.ts" {
		t.Errorf("resolved = %q, want %q", got, "packages/core/src/widgets/button.ts")
	}

	root2, ok := r.Resolve("app.ts", "@acme/core", ImportStatic)
	if !ok {
		t.Fatal("expected exports '.' entry to resolve")
	}
	if root2 != "packages/core/src/index.ts" {
		t.Errorf("resolved = %q, want %q", root2, "packages/core/src/index.ts")
	}
}

func TestResolve_WorkspaceExportsRequirePreference(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{ "workspaces": ["packages/*"] }`)
	writeFile(t, filepath.Join(root, "packages/core/package.json"), `{
		"name": "@acme/core",
		"exports": {
			".": { "require": "./dist/index.js", "import": "./src/index.ts" }
		}
	}`)

	knownFiles := []string{"packages/core/dist/index.js", "app.js"}
	r, err := NewResolver(root, knownFiles, ResolverOptions{})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := r.Resolve("app.js", "@acme/core", ImportRequire)
	if !ok {
		t.Fatal("expected require() edge to resolve via the require condition")
	}
	if got != "packages/core/dist/index.js" {
		t.Errorf("resolved = %q, want %q", got, "packages/core/dist/index.js")
	}
}

func TestResolve_NodeModulesDisabledByDefault(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "node_modules/left-pad"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "node_modules/left-pad/index.js"), `module.exports = {}`)

	r, err := NewResolver(root, []string{"node_modules/left-pad/index.js", "app.js"}, ResolverOptions{DisableWorkspace: true})
	if err != nil {
		t.Fatal(err)
	}

	_, ok := r.Resolve("app.js", "left-pad", ImportRequire)
	if ok {
		t.Fatal("expected node_modules resolution to stay disabled by default")
	}
}

func TestResolve_NodeModulesOptIn(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "node_modules/left-pad/index.js"), `module.exports = {}`)

	r, err := NewResolver(root, []string{"node_modules/left-pad/index.js", "app.js"}, ResolverOptions{
		DisableWorkspace:  true,
		FollowNodeModules: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := r.Resolve("app.js", "left-pad", ImportRequire)
	if !ok {
		t.Fatal("expected node_modules resolution to succeed when opted in")
	}
	if got != "node_modules/left-pad/index.js" {
		t.Errorf("resolved = %q, want %q", got, "node_modules/left-pad/index.js")
	}
}

// --- idempotence ---

func TestResolve_Idempotent(t *testing.T) {
	r := newTestResolver(t, []string{"src/index.ts", "src/service.ts"})

	first, ok1 := r.Resolve("src/index.ts", "./service", ImportStatic)
	second, ok2 := r.Resolve("src/index.ts", "./service", ImportStatic)
	if ok1 != ok2 || first != second {
		t.Fatalf("resolution not idempotent: (%q,%v) vs (%q,%v)", first, ok1, second, ok2)
	}
}
