// Package discover implements File Discovery: walking a root directory to
// produce the stable, sorted working set of source files the rest of the
// pipeline resolves and parses.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// sourceExtensions are the extensions accepted into the working set (spec
// §4.1).
var sourceExtensions = map[string]bool{
	".ts":  true,
	".tsx": true,
	".js":  true,
	".jsx": true,
	".mjs": true,
	".cjs": true,
}

// Logger receives non-fatal diagnostics from the walk (unreadable
// directories, skipped symlink cycles). Satisfied by
// internal/pipeline.Diagnostics without either package importing the other.
type Logger interface {
	Debugf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}

// Walker discovers source files under a root directory.
type Walker struct {
	// ExcludeTokens are ancestor-segment literals or doublestar globs
	// matched against the path relative to the walk root.
	ExcludeTokens []string
	Logger        Logger
}

// NewWalker returns a Walker with the given exclusion tokens.
func NewWalker(excludeTokens []string) *Walker {
	return &Walker{ExcludeTokens: excludeTokens, Logger: noopLogger{}}
}

// inode identifies a symlink target for cycle detection across platforms
// that expose device+inode pairs via os.SameFile.
type inode struct {
	info os.FileInfo
}

// Discover walks root depth-first and returns a sorted list of
// root-relative, slash-separated paths for every accepted source file.
// Symlinks are followed; a dev+inode guard (via os.SameFile) prevents
// re-entering a cycle. Hidden directories other than the root are skipped.
// Unreadable directories are logged and skipped; a single I/O error never
// aborts the walk.
func (w *Walker) Discover(root string) ([]string, error) {
	logger := w.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("discover: resolve root: %w", err)
	}

	var gitIgnore *ignore.GitIgnore
	gitignorePath := filepath.Join(absRoot, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		gitIgnore, err = ignore.CompileIgnoreFile(gitignorePath)
		if err != nil {
			return nil, fmt.Errorf("discover: parse .gitignore: %w", err)
		}
	}

	var out []string
	visited := map[string]os.FileInfo{} // absolute dir path -> info, guards symlink re-entry

	var walk func(dir string, relDir string) error
	walk = func(dir string, relDir string) error {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			if info, err := os.Stat(real); err == nil {
				visited[real] = info
			}
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Debugf("discover: skipping unreadable directory %s: %v", dir, err)
			return nil
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			name := entry.Name()
			absPath := filepath.Join(dir, name)
			relPath := joinRel(relDir, name)

			if entry.Type()&fs.ModeSymlink != 0 {
				target, err := filepath.EvalSymlinks(absPath)
				if err != nil {
					logger.Debugf("discover: skipping broken symlink %s: %v", absPath, err)
					continue
				}
				info, err := os.Stat(target)
				if err != nil {
					logger.Debugf("discover: skipping symlink %s: %v", absPath, err)
					continue
				}
				if info.IsDir() {
					if cycleVisited(visited, target, info) {
						logger.Debugf("discover: skipping symlink cycle at %s", absPath)
						continue
					}
					visited[target] = info
					if w.excluded(relPath) || isHiddenDir(name) {
						continue
					}
					if err := walk(target, relPath); err != nil {
						return err
					}
					continue
				}
				if w.excluded(relPath) {
					continue
				}
				if sourceExtensions[filepath.Ext(name)] && !w.gitignored(gitIgnore, relPath) {
					out = append(out, relPath)
				}
				continue
			}

			if entry.IsDir() {
				if isHiddenDir(name) || w.excluded(relPath) {
					continue
				}
				if err := walk(absPath, relPath); err != nil {
					return err
				}
				continue
			}

			if !sourceExtensions[filepath.Ext(name)] {
				continue
			}
			if w.excluded(relPath) || w.gitignored(gitIgnore, relPath) {
				continue
			}
			out = append(out, relPath)
		}
		return nil
	}

	if err := walk(absRoot, ""); err != nil {
		return nil, err
	}

	sort.Strings(out)
	return out, nil
}

func (w *Walker) excluded(relPath string) bool {
	segments := strings.Split(relPath, "/")
	for _, token := range w.ExcludeTokens {
		for _, seg := range segments {
			if seg == token {
				return true
			}
		}
		if ok, _ := doublestar.Match(token, relPath); ok {
			return true
		}
	}
	return false
}

func (w *Walker) gitignored(gi *ignore.GitIgnore, relPath string) bool {
	return gi != nil && gi.MatchesPath(relPath)
}

func isHiddenDir(name string) bool {
	return strings.HasPrefix(name, ".") && name != "."
}

func joinRel(relDir, name string) string {
	if relDir == "" {
		return name
	}
	return relDir + "/" + name
}

func cycleVisited(visited map[string]os.FileInfo, target string, info os.FileInfo) bool {
	prior, ok := visited[target]
	return ok && os.SameFile(prior, info)
}
