// Package watcher reports page changes below a notebook root.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notecli/internal/checksum"
	"github.com/starford/notecli/internal/models"
	"github.com/starford/notecli/internal/storage"
)

// EventCallback is called for every page change. Paths are relative to the
// watched root, slash separated.
type EventCallback func(models.Event)

// SkipFunc reports whether an absolute path must be ignored.
type SkipFunc func(path string) bool

// tracker remembers the last checksum of every page so that writes which do
// not change the content are dropped.
type tracker struct {
	store  *storage.FS
	skip   SkipFunc
	logger *slog.Logger
	cb     EventCallback
	seen   map[string]string
}

func (t *tracker) emit(kind, rel string) {
	t.logger.Debug("watcher: "+kind, slog.String("path", rel))
	if t.cb != nil {
		t.cb(models.Event{Kind: kind, Path: rel})
	}
}

// touched records the current content of abs and emits created or updated
// when it differs from what was seen before.
func (t *tracker) touched(abs string) {
	info, err := os.Lstat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	rel, err := t.store.Rel(abs)
	if err != nil {
		return
	}
	sum, err := checksum.File(abs)
	if err != nil {
		t.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	prev, known := t.seen[rel]
	if known && prev == sum {
		return
	}
	t.seen[rel] = sum
	if known {
		t.emit(models.EventUpdated, rel)
	} else {
		t.emit(models.EventCreated, rel)
	}
}

func (t *tracker) removed(abs string) {
	rel, err := t.store.Rel(abs)
	if err != nil {
		return
	}
	if _, ok := t.seen[rel]; !ok {
		return
	}
	delete(t.seen, rel)
	t.emit(models.EventDeleted, rel)
}

// reconcile compares the tracked pages with the disk after renames, since
// fsnotify only reports the old name of a moved file.
func (t *tracker) reconcile() {
	metas, err := t.store.List("")
	if err != nil {
		t.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}
	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		if abs, err := t.store.Abs(m.Path); err == nil && t.skip(abs) {
			continue
		}
		disk[m.Path] = m.Checksum
	}
	for p := range t.seen {
		if _, ok := disk[p]; !ok {
			delete(t.seen, p)
			t.emit(models.EventDeleted, p)
		}
	}
	for p, cs := range disk {
		prev, known := t.seen[p]
		if known && prev == cs {
			continue
		}
		t.seen[p] = cs
		if known {
			t.emit(models.EventUpdated, p)
		} else {
			t.emit(models.EventCreated, p)
		}
	}
}

// Watch starts an fsnotify watcher on the root of store and reports page
// changes until ctx is cancelled. Pages that exist when it starts are not
// reported until they change. skip may be nil.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a reconciliation pass against the disk.
func Watch(ctx context.Context, store *storage.FS, skip SkipFunc, logger *slog.Logger, cb EventCallback) error {
	if skip == nil {
		skip = func(string) bool { return false }
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	root := store.Root()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root, skip); err != nil {
		return err
	}

	t := &tracker{store: store, skip: skip, logger: logger, seen: make(map[string]string)}
	t.reconcile()
	t.cb = cb

	logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			t.reconcile()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name
			if skip(absPath) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Lstat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath, skip); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					scanDir(t, absPath)
					continue
				}
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				t.touched(absPath)
			case ev.Op&fsnotify.Remove != 0:
				t.removed(absPath)
			case ev.Op&fsnotify.Rename != 0:
				t.removed(absPath)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// scanDir reports the files already present in a newly created directory.
func scanDir(t *tracker, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if t.skip(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !t.skip(path) {
			t.touched(path)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string, skip SkipFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skip(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
