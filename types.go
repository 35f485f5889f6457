package dirwatch

import (
	"encoding/json"
	"fmt"

	"dirwatch/internal/logging"
	"dirwatch/internal/metrics"
)

// EventKind classifies a single filesystem change.
type EventKind int

const (
	// Removed reports a file deleted or renamed out of the watched directory.
	Removed EventKind = iota
	// Modified reports a file created, written, or renamed into the
	// watched directory.
	Modified
	// WatchedDirRemoved reports that the watched directory itself is gone.
	WatchedDirRemoved
	// WatcherInvalidated is the terminal event for a Watcher. Nothing is
	// delivered after it.
	WatcherInvalidated
)

func (kind EventKind) String() string {
	switch kind {
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	case WatchedDirRemoved:
		return "watched_dir_removed"
	case WatcherInvalidated:
		return "watcher_invalidated"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the kind as its string name.
func (kind EventKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(kind.String())
}

func (kind *EventKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "removed":
		*kind = Removed
	case "modified":
		*kind = Modified
	case "watched_dir_removed":
		*kind = WatchedDirRemoved
	case "watcher_invalidated":
		*kind = WatcherInvalidated
	default:
		return fmt.Errorf("unknown event kind %q", name)
	}
	return nil
}

// Event describes one change inside the watched directory. Name is the entry
// name relative to that directory; it is empty for directory-level events
// (WatchedDirRemoved, WatcherInvalidated).
type Event struct {
	Name string    `json:"name"`
	Kind EventKind `json:"kind"`
}

// Callback receives each delivered batch. It runs on the watcher's worker
// goroutine, so a callback that blocks stalls delivery of later batches.
// The initial flag is true only for the batch produced by the initial scan.
type Callback func(events []Event, initial bool)

// State is the lifecycle phase of a Watcher.
type State int

const (
	StateCreated State = iota
	StateScanningInitial
	StateLiveWatching
	StateInvalidated
)

func (state State) String() string {
	switch state {
	case StateCreated:
		return "created"
	case StateScanningInitial:
		return "scanning_initial"
	case StateLiveWatching:
		return "live_watching"
	case StateInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Options controls optional Watcher behavior.
type Options struct {
	Logger      *logging.Logger
	Registry    *metrics.Registry
	HistorySize int
}
