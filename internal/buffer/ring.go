// Package buffer provides a fixed-capacity ring used for bounded histories:
// recent log entries, recently delivered watch events.
package buffer

// Ring keeps the most recent entries added, up to its capacity. The zero
// value is unusable; construct with NewRing.
type Ring[T any] struct {
	entries []T
	next    int
	full    bool
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{entries: make([]T, capacity)}
}

func (ring *Ring[T]) Add(entry T) {
	if ring == nil || len(ring.entries) == 0 {
		return
	}
	ring.entries[ring.next] = entry
	ring.next++
	if ring.next == len(ring.entries) {
		ring.next = 0
		ring.full = true
	}
}

func (ring *Ring[T]) Len() int {
	if ring == nil {
		return 0
	}
	if ring.full {
		return len(ring.entries)
	}
	return ring.next
}

// List returns the retained entries, oldest first.
func (ring *Ring[T]) List() []T {
	count := ring.Len()
	if count == 0 {
		return nil
	}
	out := make([]T, 0, count)
	start := 0
	if ring.full {
		start = ring.next
	}
	for i := 0; i < count; i++ {
		out = append(out, ring.entries[(start+i)%len(ring.entries)])
	}
	return out
}

// Last returns up to n of the most recent entries, oldest first.
func (ring *Ring[T]) Last(n int) []T {
	all := ring.List()
	if n <= 0 || len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}
