//go:build darwin

package dirwatch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsevents"
)

const fseventsLatency = 50 * time.Millisecond

// fseventsBackend adapts an FSEvents stream to the platformBackend contract.
// FSEvents reports whole subtrees, so notifications for anything deeper than
// a direct child of the watched directory are filtered out here.
type fseventsBackend struct {
	dir       string
	stream    *fsevents.EventStream
	events    chan rawNotification
	errors    chan error
	done      chan struct{}
	closeOnce sync.Once
}

func openBackend(dir string) (platformBackend, error) {
	dir = filepath.Clean(dir)
	device, err := fsevents.DeviceForPath(dir)
	if err != nil {
		return nil, err
	}

	stream := &fsevents.EventStream{
		Paths:   []string{dir},
		Device:  device,
		Latency: fseventsLatency,
		Flags:   fsevents.FileEvents | fsevents.WatchRoot,
	}
	if err := stream.Start(); err != nil {
		return nil, err
	}

	backend := &fseventsBackend{
		dir:    dir,
		stream: stream,
		events: make(chan rawNotification, 64),
		errors: make(chan error, 1),
		done:   make(chan struct{}),
	}
	go backend.translate()
	return backend, nil
}

func (backend *fseventsBackend) translate() {
	defer close(backend.events)
	for {
		var batch []fsevents.Event
		select {
		case received, ok := <-backend.stream.Events:
			if !ok {
				return
			}
			batch = received
		case <-backend.done:
			return
		}
		for _, event := range batch {
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
		}
	}
}

func (backend *fseventsBackend) mapEvent(event fsevents.Event) (rawNotification, bool) {
	// FSEvents paths come back without the leading slash.
	path := event.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = filepath.Clean(path)

	if event.Flags&fsevents.RootChanged != 0 || path == backend.dir {
		if _, err := os.Lstat(backend.dir); err != nil {
			return rawNotification{Action: rawRootRemoved}, true
		}
		return rawNotification{}, false
	}
	if filepath.Dir(path) != backend.dir {
		return rawNotification{}, false
	}

	entry := filepath.Base(path)
	switch {
	case event.Flags&fsevents.ItemRemoved != 0:
		return rawNotification{Name: entry, Action: rawRemove}, true
	case event.Flags&fsevents.ItemRenamed != 0:
		// A rename flag alone does not say which side of the move this
		// path was on.
		if _, err := os.Lstat(path); err != nil {
			return rawNotification{Name: entry, Action: rawRenamedAway}, true
		}
		return rawNotification{Name: entry, Action: rawCreate}, true
	case event.Flags&fsevents.ItemCreated != 0:
		return rawNotification{Name: entry, Action: rawCreate}, true
	case event.Flags&fsevents.ItemModified != 0:
		return rawNotification{Name: entry, Action: rawWrite}, true
	case event.Flags&(fsevents.ItemInodeMetaMod|fsevents.ItemChangeOwner|fsevents.ItemXattrMod) != 0:
		return rawNotification{Name: entry, Action: rawMetadata}, true
	default:
		return rawNotification{}, false
	}
}

func (backend *fseventsBackend) Events() <-chan rawNotification {
	return backend.events
}

func (backend *fseventsBackend) Errors() <-chan error {
	return backend.errors
}

func (backend *fseventsBackend) Close() error {
	backend.closeOnce.Do(func() {
		close(backend.done)
		backend.stream.Stop()
	})
	return nil
}
