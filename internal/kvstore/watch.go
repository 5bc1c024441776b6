package kvstore

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch invokes onChange whenever the backing file is rewritten by another
// process (an externally edited settings file, a sync tool). The store's
// own atomic writes surface as rename events and are reported too; callers
// reloading on change are expected to be idempotent. The returned stop
// function releases the watcher.
func (f *File) Watch(onChange func(), logger *slog.Logger) (func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("kvstore: creating watcher: %w", err)
	}
	// Watch the directory: atomic renames replace the file node, and a
	// watch on the path itself would be lost after the first write.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("kvstore: watching %s: %w", f.path, err)
	}

	done := make(chan struct{})
	go func() {
		base := filepath.Base(f.path)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("kvstore watch error", "path", f.path, "error", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
