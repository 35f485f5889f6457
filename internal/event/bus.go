// Package event provides a small generic publish/subscribe bus. Subscribers
// get buffered channels; a subscriber that falls behind loses values rather
// than stalling the publisher, with drops accounted in the metrics registry.
package event

import (
	"context"
	"sync"

	"dirwatch/internal/metrics"
)

const defaultSubscriberBufferSize = 128

type BusOptions struct {
	Name                 string
	SubscriberBufferSize int
	MaxSubscribers       int
	Registry             *metrics.Registry
}

type subscription[T any] struct {
	id     uint64
	ch     chan T
	filter func(T) bool
}

type Bus[T any] struct {
	mu          sync.Mutex
	subscribers map[uint64]subscription[T]
	nextID      uint64
	closed      bool
	closeOnce   sync.Once
	options     BusOptions
	registry    *metrics.Registry
}

// NewBus creates a bus that closes itself when ctx is cancelled.
func NewBus[T any](ctx context.Context, options BusOptions) *Bus[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	if options.SubscriberBufferSize <= 0 {
		options.SubscriberBufferSize = defaultSubscriberBufferSize
	}
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}
	bus := &Bus[T]{
		subscribers: make(map[uint64]subscription[T]),
		options:     options,
		registry:    registry,
	}
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			bus.Close()
		}()
	}
	return bus
}

func (bus *Bus[T]) Subscribe() (<-chan T, func()) {
	return bus.SubscribeFiltered(nil)
}

// SubscribeFiltered delivers only values the filter accepts. A nil filter
// accepts everything. On a closed or full bus the returned channel is
// already closed.
func (bus *Bus[T]) SubscribeFiltered(filter func(T) bool) (<-chan T, func()) {
	if bus == nil {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	ch := make(chan T, bus.options.SubscriberBufferSize)

	bus.mu.Lock()
	if bus.closed || (bus.options.MaxSubscribers > 0 && len(bus.subscribers) >= bus.options.MaxSubscribers) {
		bus.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	bus.nextID++
	id := bus.nextID
	bus.subscribers[id] = subscription[T]{id: id, ch: ch, filter: filter}
	bus.mu.Unlock()

	return ch, func() {
		bus.removeSubscriber(id)
	}
}

func (bus *Bus[T]) Publish(value T) {
	if bus == nil {
		return
	}

	bus.mu.Lock()
	if bus.closed {
		bus.mu.Unlock()
		return
	}
	subs := make([]subscription[T], 0, len(bus.subscribers))
	for _, sub := range bus.subscribers {
		subs = append(subs, sub)
	}
	bus.mu.Unlock()

	dropped := 0
	for _, sub := range subs {
		if sub.filter != nil && !sub.filter(value) {
			continue
		}
		if !bus.safeSend(sub, value) {
			dropped++
		}
	}
	bus.registry.AddSubscriberDrops(dropped)
}

// safeSend delivers without blocking. A cancel racing the publish closes the
// subscriber channel after the snapshot was taken; the recover turns that
// into a drop instead of a panic on the publishing goroutine.
func (bus *Bus[T]) safeSend(sub subscription[T], value T) (delivered bool) {
	defer func() {
		if recover() != nil {
			delivered = false
		}
	}()
	select {
	case sub.ch <- value:
		return true
	default:
		return false
	}
}

func (bus *Bus[T]) SubscriberCount() int {
	if bus == nil {
		return 0
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return len(bus.subscribers)
}

func (bus *Bus[T]) Close() {
	if bus == nil {
		return
	}
	bus.closeOnce.Do(func() {
		bus.mu.Lock()
		bus.closed = true
		for id, sub := range bus.subscribers {
			delete(bus.subscribers, id)
			close(sub.ch)
		}
		bus.mu.Unlock()
	})
}

func (bus *Bus[T]) removeSubscriber(id uint64) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if sub, ok := bus.subscribers[id]; ok {
		delete(bus.subscribers, id)
		close(sub.ch)
	}
}
