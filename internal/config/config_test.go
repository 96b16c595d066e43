package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingConfigReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Path() != "" {
		t.Fatalf("expected empty path for a never-found config, got %q", cfg.Path())
	}
	if len(cfg.Exclude) != 0 {
		t.Fatalf("expected zero-value config, got %+v", cfg)
	}
}

func TestLoad_FindsCddrc(t *testing.T) {
	dir := t.TempDir()
	content := `{"exclude": ["node_modules", "dist"], "ignore_type_imports": true}`
	if err := os.WriteFile(filepath.Join(dir, ".cddrc.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Exclude) != 2 || cfg.Exclude[0] != "node_modules" {
		t.Fatalf("unexpected exclude list: %v", cfg.Exclude)
	}
	if !cfg.IgnoreTypeImports {
		t.Fatal("expected ignore_type_imports to be true")
	}
}

func TestLoad_WalksUpward(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "cdd.config.json"), []byte(`{"expected_cycles": 3}`), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ExpectedCycles != 3 {
		t.Fatalf("expected ExpectedCycles=3, got %d", cfg.ExpectedCycles)
	}
}

func TestLoad_MalformedConfigIsFatal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".cddrc.json"), []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected an error for malformed config")
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	cfg := &ProjectConfig{
		Exclude:        []string{"node_modules"},
		ExpectedHash:   "abc123def456",
		ExpectedCycles: 0,
	}
	path := filepath.Join(dir, ".cddrc.json")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after Save failed: %v", err)
	}
	if reloaded.ExpectedHash != cfg.ExpectedHash {
		t.Fatalf("expected hash %q, got %q", cfg.ExpectedHash, reloaded.ExpectedHash)
	}
}

func TestIsAllowed(t *testing.T) {
	cfg := &ProjectConfig{
		AllowedCycles: []AllowlistEntry{
			{Files: []string{"a.ts", "b.ts"}, Reason: "legacy"},
		},
	}

	if !cfg.IsAllowed([]string{"b.ts", "a.ts"}) {
		t.Fatal("expected cycle to be allowed regardless of reported order")
	}
	if cfg.IsAllowed([]string{"a.ts", "c.ts"}) {
		t.Fatal("expected non-matching file set to not be allowed")
	}
	if cfg.IsAllowed([]string{"a.ts"}) {
		t.Fatal("a strict subset must not match")
	}
}

func TestApply_CLIOverridesFile(t *testing.T) {
	cfg := &ProjectConfig{Exclude: []string{"dist"}, ExpectedCycles: 2}

	merged := cfg.Apply(Overrides{
		ExpectedCyclesSet: true,
		ExpectedCycles:    0,
	})

	if merged.ExpectedCycles != 0 {
		t.Fatalf("expected CLI override to win, got %d", merged.ExpectedCycles)
	}
	if len(merged.Exclude) != 1 || merged.Exclude[0] != "dist" {
		t.Fatalf("expected untouched field to keep file's value, got %v", merged.Exclude)
	}
}
