// Package handle provides a generation-checked arena for mapping opaque
// integer handles to Go values. Handles passed across the FFI boundary as
// callback cookies go through an Arena so that a stale handle can never
// alias a recycled slot.
package handle

import "sync"

// ID is an opaque handle: low 32 bits index, high 32 bits generation.
// The zero ID is never valid.
type ID uint64

func makeID(index uint32, gen uint32) ID {
	return ID(uint64(gen)<<32 | uint64(index))
}

func (id ID) index() uint32      { return uint32(id) }
func (id ID) generation() uint32 { return uint32(id >> 32) }

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Arena stores values behind generation-checked IDs.
// All methods are safe for concurrent use.
type Arena[T any] struct {
	mu    sync.Mutex
	slots []slot[T]
	free  []uint32
}

// NewArena returns an empty arena.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Put stores v and returns its ID.
func (a *Arena[T]) Put(v T) ID {
	a.mu.Lock()
	defer a.mu.Unlock()

	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		index = uint32(len(a.slots) - 1)
	}

	s := &a.slots[index]
	// Generation starts at 1 so the zero ID stays invalid.
	s.gen++
	s.value = v
	s.live = true
	return makeID(index, s.gen)
}

// Get returns the value for id, or false if the id is stale or unknown.
func (a *Arena[T]) Get(id ID) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var zero T
	index := id.index()
	if int(index) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[index]
	if !s.live || s.gen != id.generation() {
		return zero, false
	}
	return s.value, true
}

// Remove deletes id and returns its value. Removing a stale or unknown id
// is a no-op, so entries are removed exactly once.
func (a *Arena[T]) Remove(id ID) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var zero T
	index := id.index()
	if int(index) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[index]
	if !s.live || s.gen != id.generation() {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.live = false
	a.free = append(a.free, index)
	return v, true
}

// Len returns the number of live entries.
func (a *Arena[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.slots) - len(a.free)
}
