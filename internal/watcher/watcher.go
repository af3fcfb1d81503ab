// Package watcher re-parses a bundle stats file whenever it changes on disk
// and hands the fresh stats to a consumer, typically the report server's
// update entry point.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/bundlescope/bundlescope/internal/stats"
)

const debounceDelay = 300 * time.Millisecond

// StatsWatcher watches one stats file. Build tools rewrite the file on every
// build, often via rename, so the watch is placed on the parent directory and
// events are debounced.
type StatsWatcher struct {
	path     string
	onChange func(*stats.BundleStats)
	logger   zerolog.Logger

	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	stopOnce sync.Once

	timerMu sync.Mutex
	timer   *time.Timer
}

// New creates a watcher for the stats file at path. onChange receives the
// re-parsed stats after each settled change.
func New(path string, onChange func(*stats.BundleStats), logger zerolog.Logger) (*StatsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &StatsWatcher{
		path:     path,
		onChange: onChange,
		logger:   logger,
		watcher:  w,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching. It returns once the watch is registered; events are
// handled on a background goroutine.
func (w *StatsWatcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.logger.Info().Str("path", w.path).Msg("Watching stats file for changes")
	go w.watchLoop()
	return nil
}

func (w *StatsWatcher) watchLoop() {
	defer w.watcher.Close()

	base := filepath.Base(w.path)
	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			// Chmod-only events are noise.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Stats watcher error")
		}
	}
}

// scheduleReload coalesces bursts of events into one reload.
func (w *StatsWatcher) scheduleReload() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceDelay, w.reload)
}

func (w *StatsWatcher) reload() {
	s, err := stats.ParseFile(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", w.path).Msg("Failed to re-parse stats file, keeping previous report")
		return
	}

	w.logger.Info().Str("path", w.path).Msg("Stats file changed, updating report")
	w.onChange(s)
}

// Stop ends the watch. Safe to call more than once.
func (w *StatsWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
}
