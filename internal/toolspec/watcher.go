package toolspec

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/pocketomega/agentrt/internal/tool"
)

// Watcher keeps a Registry's manifest-backed tools in sync with
// <workspaceDir>/tools/ as files are written, created, or removed.
// Grounded on a file-watcher hot-reload: one fsnotify.Watcher, a single
// consumer goroutine, reload-on-write and load-on-create collapsed to the
// same full-rescan handler since a manifest rescan is cheap and idempotent.
type Watcher struct {
	registry *tool.Registry
	dir      string
	fsw      *fsnotify.Watcher
	loaded   map[string]bool // manifest-derived tool names currently registered
}

// NewWatcher creates a Watcher over <workspaceDir>/tools/, performing an
// initial scan so registry already holds every manifest present at startup.
func NewWatcher(registry *tool.Registry, workspaceDir string) (*Watcher, error) {
	w := &Watcher{registry: registry, dir: filepath.Join(workspaceDir, manifestDir), loaded: map[string]bool{}}
	w.rescan()
	return w, nil
}

// Start begins watching for filesystem changes until ctx is cancelled. It is
// a no-op (returns nil immediately) if the tools/ directory does not exist
// at call time — manifests are optional, so there is nothing to watch.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		log.Printf("[toolspec] tools/ directory not watchable, hot-reload disabled: %v", err)
		fsw.Close()
		return nil
	}
	w.fsw = fsw

	go func() {
		for {
			select {
			case <-ctx.Done():
				fsw.Close()
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				log.Printf("[toolspec] watch error: %v", err)
			}
		}
	}()
	return nil
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0:
		log.Printf("[toolspec] manifest change detected at %s, rescanning", event.Name)
		w.rescan()
	}
}

// rescan reloads every manifest under dir and reconciles the registry: new
// or changed manifests re-register via Registry.Register (which overwrites
// by name), and manifests that disappeared since the last scan are
// unregistered.
func (w *Watcher) rescan() {
	defs, errs := ScanDir(filepath.Dir(w.dir))
	for _, err := range errs {
		log.Printf("[toolspec] %v", err)
	}

	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		t, err := New(def)
		if err != nil {
			log.Printf("[toolspec] %v", err)
			continue
		}
		w.registry.Register(t)
		w.loaded[def.Name] = true
		seen[def.Name] = true
	}
	for name := range w.loaded {
		if !seen[name] {
			w.registry.Unregister(name)
			delete(w.loaded, name)
		}
	}
}
