// Package watcher reruns a callback when any of a set of files changes.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Handler is called with the sorted names of the changed files.
type Handler func(changed []string) error

// FileWatcher watches individual files. Since editors often replace files
// instead of writing them, the directories of the files are watched and
// events are filtered by name.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	files     map[string]bool
	debouncer *debouncer
	log       *logrus.Entry
}

// New watches the given files. Events arriving within delay of each other
// are reported together.
func New(files []string, delay time.Duration, log *logrus.Entry) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:   w,
		files:     make(map[string]bool),
		debouncer: newDebouncer(delay),
		log:       log,
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			w.Close()
			return nil, err
		}
		fw.files[abs] = true

		dir := filepath.Dir(abs)
		if !dirs[dir] {
			dirs[dir] = true
			if err := w.Add(dir); err != nil {
				w.Close()
				return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
			}
		}
	}
	return fw, nil
}

// Run delivers changes to handler until ctx is done. Errors returned by the
// handler are logged and do not stop the watcher.
func (fw *FileWatcher) Run(ctx context.Context, handler Handler) error {
	defer fw.debouncer.stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if !fw.relevant(event) {
				continue
			}
			fw.log.WithFields(logrus.Fields{"file": event.Name, "op": event.Op}).Debug("file changed")
			fw.debouncer.add(event.Name, func(changed []string) {
				if err := handler(changed); err != nil {
					fw.log.WithError(err).Error("handling change failed")
				}
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.log.WithError(err).Warn("file watcher error")
		}
	}
}

func (fw *FileWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	return err == nil && fw.files[abs]
}

func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}
