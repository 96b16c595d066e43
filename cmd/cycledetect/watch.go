package main

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cycledetect/cycledetect/internal/pipeline"
)

// debounceWindow coalesces a burst of filesystem events into one run,
// grounded on the debounce timer pattern in bennypowers-cem's
// serve/filewatcher.go.
const debounceWindow = 200 * time.Millisecond

var watchIgnoredDirs = map[string]bool{
	".git": true, "node_modules": true, "dist": true, "build": true,
}

// runWatch runs runOnce once immediately, then re-runs it on every
// filesystem change under root. Spec.md §5: "a new file-system event during
// an in-progress run schedules a fresh run after the current one finishes;
// intermediate events coalesce."
func runWatch(ctx context.Context, root string, runOnce func(context.Context) (int, error), diagnostics *pipeline.Diagnostics) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addTreeToWatcher(watcher, root); err != nil {
		return err
	}

	var mu sync.Mutex
	running := false
	pending := false

	trigger := func() {
		mu.Lock()
		if running {
			pending = true
			mu.Unlock()
			return
		}
		running = true
		mu.Unlock()

		go func() {
			for {
				if _, err := runOnce(ctx); err != nil {
					diagnostics.Fatalf("watch run failed: %v", err)
				}
				mu.Lock()
				if pending {
					pending = false
					mu.Unlock()
					continue
				}
				running = false
				mu.Unlock()
				return
			}
		}()
	}

	trigger()

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if watchIgnoredDirs[filepath.Base(event.Name)] {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			diagnostics.Debugf("watch: %v", err)
		}
	}
}

func addTreeToWatcher(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if name != "." && (watchIgnoredDirs[name] || (len(name) > 1 && name[0] == '.' && path != root)) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
