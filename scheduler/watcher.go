package scheduler

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/giygas/prescription-builder/logging"
)

const defaultDebounce = 500 * time.Millisecond

// CatalogWatcher calls onChange once a burst of writes to one file has settled.
// It watches the parent directory so editors that replace the file on save
// are still seen.
type CatalogWatcher struct {
	path     string
	debounce time.Duration
	onChange func()
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	pending bool
	last    time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// NewCatalogWatcher creates a watcher for path. debounce <= 0 uses 500ms.
func NewCatalogWatcher(path string, debounce time.Duration, onChange func()) (*CatalogWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &CatalogWatcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		watcher:  fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins processing events in the background
func (w *CatalogWatcher) Start() {
	w.wg.Add(1)
	go w.processEvents()
	logging.Info("Catalog watcher started", "path", w.path, "debounce", w.debounce)
}

// Stop closes the watcher and waits for the event loop to exit
func (w *CatalogWatcher) Stop() {
	select {
	case <-w.done:
		return
	default:
		close(w.done)
	}
	if err := w.watcher.Close(); err != nil {
		logging.Warn("Failed to close catalog watcher", "error", err)
	}
	w.wg.Wait()
}

func (w *CatalogWatcher) processEvents() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Catalog watcher error", "error", err)

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *CatalogWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	w.pending = true
	w.last = time.Now()
	w.mu.Unlock()

	logging.Debug("Catalog file change detected", "path", w.path, "op", event.Op.String())
}

// flush fires onChange when no event arrived for a full debounce period
func (w *CatalogWatcher) flush() {
	w.mu.Lock()
	if !w.pending || time.Since(w.last) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	w.onChange()
}
