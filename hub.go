package dirwatch

import (
	"context"
	"sync"

	"dirwatch/internal/event"
)

const hubSubscriberBuffer = 128

// Batch is one callback delivery, republished by a Hub.
type Batch struct {
	Dir     string  `json:"dir"`
	Events  []Event `json:"events"`
	Initial bool    `json:"initial"`
}

// Hub owns a Watcher and fans its batches out to any number of subscribers
// through a buffered bus, for callers that want a channel instead of a
// callback (or several consumers of one watcher). The initial batch is
// retained and replayed to subscribers that attach after it was delivered,
// so every subscriber sees the directory snapshot first.
type Hub struct {
	dir       string
	watcher   *Watcher
	bus       *event.Bus[Batch]
	mutex     sync.Mutex
	initial   *Batch
	closed    bool
	closeOnce sync.Once
}

// NewHub creates a watcher on dir and republishes every batch it delivers.
// The hub closes itself when ctx is cancelled.
func NewHub(ctx context.Context, dir string, options Options) (*Hub, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	hub := &Hub{
		dir: dir,
		bus: event.NewBus[Batch](ctx, event.BusOptions{
			Name:                 "dirwatch_batches",
			SubscriberBufferSize: hubSubscriberBuffer,
			Registry:             options.Registry,
		}),
	}

	watcher, err := CreateWithOptions(dir, hub.republish, false, options)
	if err != nil {
		hub.bus.Close()
		return nil, err
	}
	hub.watcher = watcher

	go func() {
		<-ctx.Done()
		_ = hub.Close()
	}()
	return hub, nil
}

// republish runs on the watcher worker; the mutex keeps the retained
// initial batch consistent with subscription order.
func (hub *Hub) republish(events []Event, initial bool) {
	batch := Batch{Dir: hub.dir, Events: events, Initial: initial}

	hub.mutex.Lock()
	if initial {
		hub.initial = &batch
	}
	hub.bus.Publish(batch)
	hub.mutex.Unlock()
}

// Subscribe returns a channel of batches plus a cancel function. If the
// initial batch was already delivered it is replayed first; batches
// published after the terminal one do not exist, so a subscription made
// after invalidation only sees the replay.
func (hub *Hub) Subscribe() (<-chan Batch, func(), error) {
	if hub == nil {
		return nil, func() {}, ErrWatcherClosed
	}

	hub.mutex.Lock()
	if hub.closed {
		hub.mutex.Unlock()
		return nil, func() {}, ErrWatcherClosed
	}
	replay := hub.initial
	source, cancelSource := hub.bus.Subscribe()
	hub.mutex.Unlock()

	out := make(chan Batch, hubSubscriberBuffer)
	done := make(chan struct{})
	var doneOnce sync.Once

	go func() {
		defer close(out)
		if replay != nil {
			select {
			case out <- *replay:
			case <-done:
				return
			}
		}
		for {
			select {
			case batch, open := <-source:
				if !open {
					return
				}
				select {
				case out <- batch:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	cancel := func() {
		doneOnce.Do(func() { close(done) })
		cancelSource()
	}
	return out, cancel, nil
}

// Watcher exposes the underlying handle for state, history, and metrics.
func (hub *Hub) Watcher() *Watcher {
	if hub == nil {
		return nil
	}
	return hub.watcher
}

// Close tears the watcher down, waits for its terminal batch to be
// published, then closes the bus and all subscriber channels.
func (hub *Hub) Close() error {
	if hub == nil {
		return nil
	}
	var err error
	hub.closeOnce.Do(func() {
		hub.mutex.Lock()
		hub.closed = true
		hub.mutex.Unlock()

		err = hub.watcher.Close()
		hub.bus.Close()
	})
	return err
}
