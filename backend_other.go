//go:build !darwin

package dirwatch

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// fsnotifyBackend adapts an fsnotify watcher (inotify, kqueue, or
// ReadDirectoryChangesW depending on the platform) to the platformBackend
// contract for one directory.
type fsnotifyBackend struct {
	dir       string
	watcher   *fsnotify.Watcher
	events    chan rawNotification
	errors    chan error
	done      chan struct{}
	closeOnce sync.Once
}

func openBackend(dir string) (platformBackend, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	backend := &fsnotifyBackend{
		dir:     filepath.Clean(dir),
		watcher: watcher,
		events:  make(chan rawNotification, 64),
		errors:  make(chan error, 1),
		done:    make(chan struct{}),
	}
	go backend.translate()
	return backend, nil
}

func (backend *fsnotifyBackend) translate() {
	defer close(backend.events)
	for {
		select {
		case event, ok := <-backend.watcher.Events:
			if !ok {
				return
			}
			notification, relevant := backend.mapEvent(event)
			if !relevant {
				continue
			}
			select {
			case backend.events <- notification:
			case <-backend.done:
				return
			}
			if notification.Action == rawRootRemoved {
				return
			}
		case err, ok := <-backend.watcher.Errors:
			if !ok {
				return
			}
			select {
			case backend.errors <- err:
			default:
			}
			return
		}
	}
}

func (backend *fsnotifyBackend) mapEvent(event fsnotify.Event) (rawNotification, bool) {
	name := filepath.Clean(event.Name)
	if name == backend.dir {
		if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
			return rawNotification{Action: rawRootRemoved}, true
		}
		// Writes and metadata touches on the directory itself carry no
		// entry-level information.
		return rawNotification{}, false
	}

	entry := filepath.Base(name)
	switch {
	case event.Op.Has(fsnotify.Remove):
		return rawNotification{Name: entry, Action: rawRemove}, true
	case event.Op.Has(fsnotify.Rename):
		return rawNotification{Name: entry, Action: rawRenamedAway}, true
	case event.Op.Has(fsnotify.Create):
		return rawNotification{Name: entry, Action: rawCreate}, true
	case event.Op.Has(fsnotify.Write):
		return rawNotification{Name: entry, Action: rawWrite}, true
	case event.Op.Has(fsnotify.Chmod):
		return rawNotification{Name: entry, Action: rawMetadata}, true
	default:
		return rawNotification{}, false
	}
}

func (backend *fsnotifyBackend) Events() <-chan rawNotification {
	return backend.events
}

func (backend *fsnotifyBackend) Errors() <-chan error {
	return backend.errors
}

func (backend *fsnotifyBackend) Close() error {
	var err error
	backend.closeOnce.Do(func() {
		close(backend.done)
		err = backend.watcher.Close()
	})
	return err
}
