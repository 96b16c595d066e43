package graph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadTsconfigChain_SimpleBaseUrlAndPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{
		// comment
		"compilerOptions": {
			"baseUrl": ".",
			"paths": {
				"@app/*": ["src/*"],
				"@core": ["src/core/index.ts"],
			},
		},
	}`)

	node, err := LoadTsconfigChain(root, filepath.Join(root, "tsconfig.json"))
	if err != nil {
		t.Fatal(err)
	}
	if node.BaseURL != filepath.Clean(root) {
		t.Fatalf("expected baseURL %q, got %q", root, node.BaseURL)
	}

	mapping, capture, ok := node.Match("@app/widgets/button")
	if !ok {
		t.Fatal("expected @app/* to match")
	}
	if capture != "widgets/button" {
		t.Fatalf("expected capture %q, got %q", "widgets/button", capture)
	}
	if len(mapping.Targets) != 1 || mapping.Targets[0] != "src/*" {
		t.Fatalf("unexpected targets: %v", mapping.Targets)
	}

	_, _, ok = node.Match("@core")
	if !ok {
		t.Fatal("expected literal @core match")
	}
}

func TestLoadTsconfigChain_Extends(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.base.json"), `{
		"compilerOptions": { "baseUrl": ".", "paths": { "@base/*": ["base/*"] } }
	}`)
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{
		"extends": "./tsconfig.base.json",
		"compilerOptions": { "paths": { "@app/*": ["src/*"] } }
	}`)

	node, err := LoadTsconfigChain(root, filepath.Join(root, "tsconfig.json"))
	if err != nil {
		t.Fatal(err)
	}

	// paths fully replaces, not merges: @base/* must not survive.
	if _, _, ok := node.Match("@base/widgets"); ok {
		t.Fatal("expected paths to be fully replaced by the child config, not merged")
	}
	if _, _, ok := node.Match("@app/widgets"); !ok {
		t.Fatal("expected child's own paths to be present")
	}
}

func TestLoadTsconfigChain_ExtendsThreeLevelsDeep(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "base.json"), `{
		"compilerOptions": { "baseUrl": ".", "paths": { "@base/*": ["base/*"] } }
	}`)
	writeFile(t, filepath.Join(root, "mid.json"), `{
		"extends": "./base.json",
		"compilerOptions": { "paths": { "@mid/*": ["mid/*"] } }
	}`)
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{
		"extends": "./mid.json"
	}`)

	node, err := LoadTsconfigChain(root, filepath.Join(root, "tsconfig.json"))
	if err != nil {
		t.Fatal(err)
	}

	// paths replaces rather than merges at every link in the chain: mid.json
	// setting its own paths discards base.json's entirely, and tsconfig.json
	// setting none at all leaves mid's the effective set.
	if _, _, ok := node.Match("@base/widgets"); ok {
		t.Fatal("expected base.json's paths to be discarded once mid.json set its own")
	}
	if _, _, ok := node.Match("@mid/widgets"); !ok {
		t.Fatal("expected mid.json's paths to survive through the unrelated tsconfig.json link")
	}

	// base_url is set only by base.json; it must propagate through mid.json
	// and tsconfig.json, neither of which set their own, to the final node.
	wantBaseURL := filepath.Clean(root)
	if node.BaseURL != wantBaseURL {
		t.Fatalf("expected base_url %q inherited from the nearest ancestor that sets it, got %q", wantBaseURL, node.BaseURL)
	}
}

func TestLoadTsconfigChain_ExtendsCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.json"), `{ "extends": "./b.json" }`)
	writeFile(t, filepath.Join(root, "b.json"), `{ "extends": "./a.json" }`)

	_, err := LoadTsconfigChain(root, filepath.Join(root, "a.json"))
	if err == nil {
		t.Fatal("expected extends cycle error")
	}
	if _, ok := err.(*ErrExtendsCycle); !ok {
		t.Fatalf("expected *ErrExtendsCycle, got %T: %v", err, err)
	}
}

func TestStripJSONC(t *testing.T) {
	in := []byte(`{
		"a": 1, // trailing
		"b": [1, 2, 3,],
		/* block */
		"c": "value with // not a comment",
	}`)
	out := stripJSONC(in)

	var decoded map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("stripJSONC output did not parse as JSON: %v\n%s", err, out)
	}
	if decoded["c"] != "value with // not a comment" {
		t.Fatalf("string content was mangled: %v", decoded["c"])
	}
}
