package schema

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher watches the schema document file and triggers a reload when it
// changes on disk or when the process receives SIGHUP.
type Watcher struct {
	path    string
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
	onLoad  func(*Document)
	stopCh  chan struct{}
}

// NewWatcher creates a watcher for the schema file at path. The onLoad
// callback receives every successfully parsed document.
func NewWatcher(path string, logger zerolog.Logger, onLoad func(*Document)) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return &Watcher{
		path:   absPath,
		logger: logger,
		onLoad: onLoad,
		stopCh: make(chan struct{}),
	}, nil
}

// Reload re-reads the schema file and hands the document to the callback.
// A file that fails to parse keeps the previous document in effect.
func (w *Watcher) Reload() error {
	w.logger.Info().Str("path", w.path).Msg("reloading schema document")

	doc, err := LoadFile(w.path)
	if err != nil {
		w.logger.Error().Err(err).Msg("schema reload failed, keeping current bindings")
		return fmt.Errorf("reload schema: %w", err)
	}

	w.onLoad(doc)
	return nil
}

// WatchFile starts watching the schema file for changes.
func (w *Watcher) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.watcher = watcher

	// Watch the directory (more reliable for editors that do atomic saves)
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go w.watchLoop()

	w.logger.Info().Str("path", w.path).Msg("watching schema file for changes")
	return nil
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (w *Watcher) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				w.logger.Info().Msg("received SIGHUP, reloading schema")
				if err := w.Reload(); err != nil {
					w.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-w.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()
}

// Stop stops watching for file changes and signals.
func (w *Watcher) Stop() {
	close(w.stopCh)
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *Watcher) watchLoop() {
	filename := filepath.Base(w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only react to the schema file itself
			if filepath.Base(event.Name) != filename {
				continue
			}

			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("schema file changed")

				if err := w.Reload(); err != nil {
					w.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-w.stopCh:
			return
		}
	}
}
