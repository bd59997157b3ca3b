package webchat

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"dlchat/pkg/logging"
)

// debounceInterval coalesces the burst of filesystem events an editor emits
// on save into a single reload.
const debounceInterval = 500 * time.Millisecond

// configWatcher watches one config file and invokes a callback when it
// changes. The parent directory is watched rather than the file itself,
// since most editors replace the file on save.
type configWatcher struct {
	path     string
	onChange func()
	fs       *fsnotify.Watcher

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

func newConfigWatcher(path string, onChange func()) (*configWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, err
	}
	return &configWatcher{path: path, onChange: onChange, fs: fs}, nil
}

// run processes filesystem events until ctx is cancelled.
func (w *configWatcher) run(ctx context.Context) {
	defer w.fs.Close()

	logging.Debug("WebChat", "Watching %s for changes", w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.trigger()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Warn("WebChat", "Config watcher error: %v", err)
		}
	}
}

// trigger schedules the callback, resetting the debounce window.
func (w *configWatcher) trigger() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(debounceInterval, func() {
		logging.Info("WebChat", "Config file changed, reloading")
		w.onChange()
	})
}
