// Package arena maps opaque wire handles back to the native instances they
// refer to. The side that boxes an instance owns it; the far side only ever
// sees the handle. Dropping a handle invalidates it exactly once, and a
// dropped slot is recycled through a free list without ever resurrecting the
// old referent.
package arena

import (
	"errors"
	"sync"

	"github.com/snowmerak/bridge.go/lib/wire"
)

var (
	// ErrBadHandle is returned for a zero, unknown, or already-dropped handle.
	ErrBadHandle = errors.New("arena: bad handle")
)

// Arena is a handle-keyed instance table safe for concurrent readers.
type Arena struct {
	mu       sync.RWMutex
	entries  []entry
	freeList []wire.Handle
}

type entry struct {
	value any
	valid bool
}

// New creates an empty arena.
func New() *Arena {
	return &Arena{
		entries:  make([]entry, 0, 16),
		freeList: make([]wire.Handle, 0, 4),
	}
}

// Box stores a native instance and returns its handle. Handles start at 1;
// the zero handle stays reserved as the invalid token.
func (a *Arena) Box(value any) wire.Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	e := entry{value: value, valid: true}

	if n := len(a.freeList); n > 0 {
		h := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		a.entries[h-1] = e
		return h
	}

	a.entries = append(a.entries, e)
	return wire.Handle(len(a.entries))
}

// Get resolves a handle to its boxed instance.
func (a *Arena) Get(h wire.Handle) (any, error) {
	if !h.IsValid() {
		return nil, ErrBadHandle
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	idx := int(h) - 1
	if idx >= len(a.entries) || !a.entries[idx].valid {
		return nil, ErrBadHandle
	}
	return a.entries[idx].value, nil
}

// Drop invalidates a handle and returns the instance that was boxed under it,
// so the owner can run its teardown. A second drop of the same handle fails
// with ErrBadHandle rather than yielding the value twice.
func (a *Arena) Drop(h wire.Handle) (any, error) {
	if !h.IsValid() {
		return nil, ErrBadHandle
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	idx := int(h) - 1
	if idx >= len(a.entries) || !a.entries[idx].valid {
		return nil, ErrBadHandle
	}

	value := a.entries[idx].value
	a.entries[idx] = entry{}
	a.freeList = append(a.freeList, h)
	return value, nil
}

// Len returns the number of live entries.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries) - len(a.freeList)
}
