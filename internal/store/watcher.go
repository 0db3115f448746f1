// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// =============================================================================
// EXTERNAL CHANGE WATCHER
// =============================================================================

// Refresher is notified when the database changed on disk.
type Refresher interface {
	Refresh()
}

// Watcher watches a SQLite database file for writes by other processes
// (a second gwen window, the CLI) and asks the store to republish changes
// to its live subscriptions. Writes from this process are seen too; the
// subscriptions drop snapshots that show nothing new.
type Watcher struct {
	target   Refresher
	watcher  *fsnotify.Watcher
	dir      string
	files    map[string]bool
	debounce time.Duration

	mu      sync.Mutex
	pending time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher for the database at dbPath.
func NewWatcher(target Refresher, dbPath string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	abs, err := filepath.Abs(dbPath)
	if err != nil {
		fw.Close()
		return nil, errors.Wrap(err, "failed to resolve database path")
	}

	ctx, cancel := context.WithCancel(context.Background())

	// The -shm file changes on reads as well, so only the database and its
	// write-ahead log count as changes
	return &Watcher{
		target:   target,
		watcher:  fw,
		dir:      filepath.Dir(abs),
		files:    map[string]bool{abs: true, abs + "-wal": true},
		debounce: debounce,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching. It returns once the watch is registered.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", w.dir)
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
	return nil
}

// Run watches until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Watch(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-w.ctx.Done():
	}
	return w.Close()
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.mu.Lock()
				w.pending = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("database watcher error")
		}
	}
}

// processPending fires one refresh per burst of writes.
func (w *Watcher) processPending() {
	defer w.wg.Done()

	tick := w.debounce / 2
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			fire := !w.pending.IsZero() && time.Since(w.pending) >= w.debounce
			if fire {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if fire {
				w.target.Refresh()
			}
		}
	}
}

// Close stops watching and waits for the watcher goroutines.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
