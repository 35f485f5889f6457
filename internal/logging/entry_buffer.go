package logging

import (
	"sync"

	"dirwatch/internal/buffer"
)

// EntryBuffer retains the most recent log entries for inspection.
type EntryBuffer struct {
	mu      sync.Mutex
	entries *buffer.Ring[Entry]
}

func NewEntryBuffer(size int) *EntryBuffer {
	return &EntryBuffer{entries: buffer.NewRing[Entry](size)}
}

func (b *EntryBuffer) Add(entry Entry) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries.Add(entry)
}

func (b *EntryBuffer) List() []Entry {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries.List()
}
