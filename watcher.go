package dirwatch

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"dirwatch/internal/buffer"
	"dirwatch/internal/logging"
	"dirwatch/internal/metrics"
)

const defaultHistorySize = 128

var (
	ErrNotADirectory = errors.New("path is not a directory")
	ErrCallbackNil   = errors.New("callback is required")
	ErrWatcherClosed = errors.New("watcher is closed")
)

// Watcher is the handle for one watched directory. It owns a single worker
// goroutine which in turn owns the platform backend and is the only caller
// of the client callback.
type Watcher struct {
	dir      string
	callback Callback
	backend  platformBackend
	logger   *logging.Logger
	registry *metrics.Registry

	mutex   sync.Mutex
	state   State
	history *buffer.Ring[Event]

	done        chan struct{}
	stopped     chan struct{}
	initialDone chan struct{}
	closeOnce   sync.Once
	initialOnce sync.Once
	terminal    sync.Once
}

// Create opens a watcher on dir and starts delivering batches to callback.
//
// With waitForInitialSync true, Create does not return until the initial
// batch has been delivered. With false, the initial batch arrives later from
// the worker goroutine.
func Create(dir string, callback Callback, waitForInitialSync bool) (*Watcher, error) {
	return CreateWithOptions(dir, callback, waitForInitialSync, Options{})
}

// CreateWithOptions is Create with an injected logger, metrics registry, and
// history size.
func CreateWithOptions(dir string, callback Callback, waitForInitialSync bool, options Options) (*Watcher, error) {
	if callback == nil {
		return nil, ErrCallbackNil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.NewEntryBuffer(logging.DefaultBufferSize), logging.LevelInfo, nil)
	}
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}
	historySize := options.HistorySize
	if historySize <= 0 {
		historySize = defaultHistorySize
	}

	// The backend registration must be live before the initial scan runs,
	// so nothing created after registration can be missed. A file created
	// between registration and scan completion may show up twice.
	backend, err := openBackend(dir)
	if err != nil {
		return nil, err
	}

	watcher := &Watcher{
		dir:         dir,
		callback:    callback,
		backend:     backend,
		logger:      logger.With(map[string]string{"dirwatch.dir": dir}),
		registry:    registry,
		state:       StateCreated,
		history:     buffer.NewRing[Event](historySize),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		initialDone: make(chan struct{}),
	}

	registry.IncWatchersStarted()
	go watcher.run()

	if waitForInitialSync {
		<-watcher.initialDone
	}
	return watcher, nil
}

// Close requests teardown and blocks until the terminal WatcherInvalidated
// batch has been delivered and the worker has stopped. It is idempotent and
// safe to call at any point after Create, including before the initial scan
// finishes.
func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	w.closeOnce.Do(func() {
		close(w.done)
	})
	<-w.stopped
	return nil
}

// Dir returns the watched directory path.
func (w *Watcher) Dir() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// State reports the current lifecycle phase.
func (w *Watcher) State() State {
	if w == nil {
		return StateInvalidated
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.state
}

// Recent returns up to n recently delivered events, oldest first.
func (w *Watcher) Recent(n int) []Event {
	if w == nil {
		return nil
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.history.Last(n)
}

// run is the dispatch loop. It is the sole writer of the event stream: the
// initial batch first, then live batches, then exactly one terminal batch.
func (w *Watcher) run() {
	defer close(w.stopped)

	select {
	case <-w.done:
		w.invalidate(false)
		return
	default:
	}

	w.setState(StateScanningInitial)
	initial, err := scanDirectory(w.dir)
	if err != nil {
		w.logger.Warn("initial scan failed", map[string]string{"error": err.Error()})
		w.invalidate(true)
		return
	}
	w.deliver(initial, true)
	w.signalInitial()
	w.setState(StateLiveWatching)

	for {
		select {
		case <-w.done:
			w.invalidate(false)
			return
		case raw, ok := <-w.backend.Events():
			if !ok {
				w.invalidate(true)
				return
			}
			events, rootGone := w.collectBatch(raw)
			if len(events) > 0 {
				w.deliver(events, false)
			}
			if rootGone {
				w.invalidate(true)
				return
			}
		case err := <-w.backend.Errors():
			if err != nil {
				w.logger.Warn("backend error", map[string]string{"error": err.Error()})
			}
			w.registry.IncBackendErrors()
			w.invalidate(true)
			return
		}
	}
}

// collectBatch classifies the first notification and drains whatever else is
// already pending, so a burst of raw changes lands in one batch.
func (w *Watcher) collectBatch(first rawNotification) ([]Event, bool) {
	c := newClassifier()
	rootGone := c.add(first)
	for !rootGone {
		select {
		case raw, ok := <-w.backend.Events():
			if !ok {
				rootGone = true
			} else {
				rootGone = c.add(raw)
			}
		default:
			w.registry.AddEventsCoalesced(c.coalesced)
			return c.events, false
		}
	}
	w.registry.AddEventsCoalesced(c.coalesced)
	return c.events, true
}

// invalidate delivers the terminal batch and closes the backend. dirRemoved
// selects the source-removed form, WatchedDirRemoved then WatcherInvalidated
// in one batch. Runs at most once per handle.
func (w *Watcher) invalidate(dirRemoved bool) {
	w.terminal.Do(func() {
		w.setState(StateInvalidated)

		var events []Event
		if dirRemoved {
			events = append(events, Event{Kind: WatchedDirRemoved})
		}
		events = append(events, Event{Kind: WatcherInvalidated})
		w.deliver(events, false)

		w.signalInitial()
		if err := w.backend.Close(); err != nil {
			w.logger.Warn("backend close failed", map[string]string{"error": err.Error()})
		}
		w.registry.IncWatchersInvalidated()
		w.logger.Debug("watcher invalidated", map[string]string{
			"dir_removed": fmt.Sprintf("%t", dirRemoved),
		})
	})
}

func (w *Watcher) deliver(events []Event, initial bool) {
	w.callback(events, initial)

	w.mutex.Lock()
	for _, event := range events {
		w.history.Add(event)
	}
	w.mutex.Unlock()
	w.registry.AddBatchDelivered(len(events))
}

func (w *Watcher) signalInitial() {
	w.initialOnce.Do(func() {
		close(w.initialDone)
	})
}

func (w *Watcher) setState(state State) {
	w.mutex.Lock()
	w.state = state
	w.mutex.Unlock()
}
