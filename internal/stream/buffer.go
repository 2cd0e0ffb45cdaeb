package stream

import "sync"

// DefaultCapacity is the number of entries kept for display.
const DefaultCapacity = 1000

// Buffer is a bounded FIFO of entries. Appending past capacity evicts the
// oldest entry.
type Buffer struct {
	mu       sync.RWMutex
	entries  []Entry
	head     int
	size     int
	capacity int
}

// NewBuffer creates a buffer; a non-positive capacity means DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Append adds e and reports whether an older entry was evicted to make room.
func (b *Buffer) Append(e Entry) (evicted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size < b.capacity {
		b.entries[(b.head+b.size)%b.capacity] = e
		b.size++
		return false
	}
	b.entries[b.head] = e
	b.head = (b.head + 1) % b.capacity
	return true
}

// Snapshot returns the entries oldest first.
func (b *Buffer) Snapshot() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Entry, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.entries[(b.head+i)%b.capacity]
	}
	return out
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Clear drops every entry.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.entries {
		b.entries[i] = Entry{}
	}
	b.head = 0
	b.size = 0
}
