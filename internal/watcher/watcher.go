package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"picture-frame/internal/logging"
	"picture-frame/internal/metrics"
)

// Default quiet period after the last filesystem event before a rescan
// fires. Batches bursts like a photo import into one scan.
const defaultDebounce = 5 * time.Second

// Rescanner is the part of the scanner the watcher needs.
type Rescanner interface {
	TriggerScan()
}

// Watcher observes the media roots for filesystem changes and triggers
// a catalog rescan after a debounce window. fsnotify watches are not
// recursive, so every subdirectory is registered individually and newly
// created directories are added as they appear.
type Watcher struct {
	fsw      *fsnotify.Watcher
	scanner  Rescanner
	roots    []string
	debounce time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates a Watcher over the given roots. Roots that do not exist
// are skipped with a warning.
func New(roots []string, scanner Rescanner) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		scanner:  scanner,
		roots:    roots,
		debounce: defaultDebounce,
		stopChan: make(chan struct{}),
	}

	for _, root := range roots {
		if err := w.watchTree(root); err != nil {
			logging.Warn("Cannot watch media root %s: %v", root, err)
		}
	}

	return w, nil
}

// SetDebounce overrides the quiet period before a triggered rescan.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// WatchedDirs returns the directories currently registered, for
// diagnostics.
func (w *Watcher) WatchedDirs() []string {
	return w.fsw.WatchList()
}

// Start begins processing filesystem events.
func (w *Watcher) Start() {
	logging.Info("Watching %d directories under %d media root(s) for changes", len(w.fsw.WatchList()), len(w.roots))
	go w.loop()
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		if err := w.fsw.Close(); err != nil {
			logging.Warn("Error closing filesystem watcher: %v", err)
		}
	})
}

// watchTree registers root and every directory below it, skipping
// hidden directories.
func (w *Watcher) watchTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logging.Warn("Error walking %s for watch setup: %v", path, err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			logging.Warn("Cannot watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			metrics.WatcherEventsTotal.Inc()
			logging.Debug("Filesystem event: %s", event)

			// New directories need their own watch before files land
			// in them.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watchTree(event.Name); err != nil {
						logging.Warn("Cannot watch new directory %s: %v", event.Name, err)
					}
				}
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			metrics.WatcherRescansTotal.Inc()
			logging.Info("Filesystem changes settled, triggering rescan")
			w.scanner.TriggerScan()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("Filesystem watcher error: %v", err)

		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
