package credentials

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"qwenauth/pkg/logging"
)

// DefaultDebounceInterval is the time to wait after the last change event
// before invoking the callback. A single save produces several events
// (create temp, write, rename).
const DefaultDebounceInterval = 250 * time.Millisecond

// DefaultWatchInterval is the polling interval used when fsnotify is not
// available.
const DefaultWatchInterval = 5 * time.Second

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Path is the credential file to watch.
	Path string

	// WatchInterval is the fallback polling interval.
	WatchInterval time.Duration

	// Debounce is the quiet period before OnChange fires.
	Debounce time.Duration

	// OnChange is called after the file was created, written, replaced or
	// removed by any process.
	OnChange func()
}

// Watcher notices when the credential file changes on disk, for example
// when another CLI completes a login or refresh. It watches the parent
// directory because the file is replaced by rename on every save.
type Watcher struct {
	mu sync.Mutex

	config    WatcherConfig
	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	lastModTime time.Time

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// NewWatcher creates a watcher. Call Start to begin watching.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.WatchInterval == 0 {
		config.WatchInterval = DefaultWatchInterval
	}
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounceInterval
	}
	return &Watcher{config: config}
}

// Start begins watching. It falls back to polling when fsnotify cannot
// watch the directory.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.running = true

	dir := filepath.Dir(w.config.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		logging.Warn("CredentialWatcher", "Cannot create %s, falling back to polling: %v", dir, err)
		go w.pollForChanges()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("CredentialWatcher", "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges()
		return nil
	}

	if err := watcher.Add(dir); err != nil {
		logging.Warn("CredentialWatcher", "Failed to watch directory %s, falling back to polling: %v", dir, err)
		watcher.Close()
		go w.pollForChanges()
		return nil
	}
	w.fsWatcher = watcher

	// Capture channels before releasing the lock so Stop cannot race us.
	go w.processEvents(watcher.Events, watcher.Errors)

	logging.Debug("CredentialWatcher", "Watching %s for credential changes", w.config.Path)
	return nil
}

func (w *Watcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("CredentialWatcher", err, "fsnotify error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.config.Path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	logging.Debug("CredentialWatcher", "Credential file changed: %s (%s)", event.Name, event.Op)
	w.triggerDebounced()
}

func (w *Watcher) triggerDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		w.mu.Unlock()

		if running && callback != nil {
			callback()
		}
	})
}

func (w *Watcher) pollForChanges() {
	ticker := time.NewTicker(w.config.WatchInterval)
	defer ticker.Stop()

	w.lastModTime = w.modTime()

	for {
		select {
		case <-w.stopCh:
			return

		case <-ticker.C:
			current := w.modTime()
			if !current.Equal(w.lastModTime) {
				w.lastModTime = current
				logging.Debug("CredentialWatcher", "Credential file change detected via polling")
				w.triggerDebounced()
			}
		}
	}
}

// modTime returns the file's modification time, or zero when it is missing.
func (w *Watcher) modTime() time.Time {
	info, err := os.Stat(w.config.Path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("CredentialWatcher", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}
	return nil
}

// IsRunning returns whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
