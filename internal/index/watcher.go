package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/drctl/drctl/internal/repo"
	"github.com/drctl/drctl/internal/store"
)

// DefaultDebounce is the quiet period before the index is rebuilt.
const DefaultDebounce = 200 * time.Millisecond

// EventCallback is called after each watcher-driven regeneration with the
// number of records written.
type EventCallback func(count int)

// Watch regenerates the index whenever a decision file under rc.Root
// changes, until ctx is cancelled. Bursts of events are coalesced.
func Watch(ctx context.Context, rc *repo.Context, debounce time.Duration, logger *slog.Logger, cb EventCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, rc.Root, rc.Root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", rc.Root))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			n, err := Generate(rc)
			if err != nil {
				logger.Warn("watcher: regenerate failed", slog.String("error", err.Error()))
				continue
			}
			logger.Debug("watcher: regenerated", slog.Int("records", n))
			if cb != nil {
				cb(n)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if !ignoredDir(rc.Root, ev.Name) {
						if addErr := addDirsRecursive(w, rc.Root, ev.Name); addErr != nil {
							logger.Warn("watcher: add new dir failed",
								slog.String("path", ev.Name),
								slog.String("error", addErr.Error()))
						}
						schedule()
					}
					continue
				}
			}
			if relevant(rc.Root, ev.Name) {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// relevant reports whether a change at path can alter the index.
func relevant(root, path string) bool {
	if !strings.HasSuffix(path, ".md") {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == FileName || strings.HasPrefix(rel, store.TemplatesDir+"/") {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	return true
}

func ignoredDir(root, path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	rel, err := filepath.Rel(root, path)
	return err == nil && filepath.ToSlash(rel) == store.TemplatesDir
}

// addDirsRecursive adds dir and its subdirectories, skipping dot and
// template directories of root.
func addDirsRecursive(w *fsnotify.Watcher, root, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && ignoredDir(root, path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
