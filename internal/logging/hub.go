package logging

import "sync"

const defaultSubscriberBuffer = 100

// Hub fans out log entries to live subscribers. Slow subscribers drop
// entries rather than block the logging path.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan Entry
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan Entry)}
}

func (hub *Hub) Subscribe(bufferSize int) (<-chan Entry, func()) {
	if hub == nil {
		return nil, func() {}
	}
	if bufferSize <= 0 {
		bufferSize = defaultSubscriberBuffer
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.closed {
		ch := make(chan Entry)
		close(ch)
		return ch, func() {}
	}
	hub.nextID++
	id := hub.nextID
	ch := make(chan Entry, bufferSize)
	hub.subs[id] = ch
	return ch, func() {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		if existing, ok := hub.subs[id]; ok {
			delete(hub.subs, id)
			close(existing)
		}
	}
}

func (hub *Hub) Broadcast(entry Entry) {
	if hub == nil {
		return
	}
	hub.mu.Lock()
	if hub.closed {
		hub.mu.Unlock()
		return
	}
	subs := make([]chan Entry, 0, len(hub.subs))
	for _, ch := range hub.subs {
		subs = append(subs, ch)
	}
	hub.mu.Unlock()

	for _, ch := range subs {
		send(ch, entry)
	}
}

// send drops when the subscriber is full. A cancel racing the broadcast
// closes the channel after the snapshot was taken; the recover turns that
// into a drop instead of a panic on the logging goroutine.
func send(ch chan Entry, entry Entry) {
	defer func() {
		_ = recover()
	}()
	select {
	case ch <- entry:
	default:
	}
}

func (hub *Hub) Close() {
	if hub == nil {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.closed {
		return
	}
	hub.closed = true
	for id, ch := range hub.subs {
		delete(hub.subs, id)
		close(ch)
	}
}
