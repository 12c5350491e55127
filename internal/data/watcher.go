package data

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/fsnotify/fsnotify"
)

// Invalidator drops cached forms of a file.
type Invalidator interface {
	InvalidateName(name string)
}

// watchedExtensions are the artifact types the store serves.
var watchedExtensions = map[string]bool{
	".csv":  true,
	".docx": true,
	".html": true,
	".htm":  true,
	".txt":  true,
}

// Watcher invalidates cached artifacts when the nightly job rewrites them.
// Changes are collected and flushed once per debounce interval so a batch
// of rewrites costs one invalidation per file.
type Watcher struct {
	dir      string
	debounce time.Duration
	target   Invalidator
	watcher  *fsnotify.Watcher
	logger   *common.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	flushes func(n int)
	started bool
	done    chan struct{}
}

// NewWatcher creates a watcher over dir. It does nothing until Start.
func NewWatcher(dir string, debounce time.Duration, target Invalidator, logger *common.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		target:   target,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		done:     make(chan struct{}),
	}, nil
}

// OnFlush registers a callback invoked with the number of files invalidated
// by each non-empty flush. Must be called before Start.
func (w *Watcher) OnFlush(fn func(n int)) {
	w.flushes = fn
}

// Start begins watching the data directory.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		w.watcher.Close()
		return err
	}
	w.started = true
	go w.processEvents(ctx)

	w.logger.Info().
		Str("dir", w.dir).
		Dur("debounce", w.debounce).
		Msg("Data watcher started")
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	if w.started {
		<-w.done
	}
	return err
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.flushPending()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				w.flushPending()
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if !watchedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.pendingMu.Lock()
	w.pending[filepath.Base(event.Name)] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug().
		Str("file", filepath.Base(event.Name)).
		Str("op", event.Op.String()).
		Msg("Artifact change detected")
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for name := range toProcess {
		w.target.InvalidateName(name)
	}
	w.logger.Info().Int("files", len(toProcess)).Msg("Invalidated changed artifacts")
	if w.flushes != nil {
		w.flushes(len(toProcess))
	}
}
