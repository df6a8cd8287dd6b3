// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package registry implements SharedResource, a thread-safe indexed
// container whose iteration order is insertion order (modulo explicit
// Reorder calls), the generic shape behind the scheduler's module table.
//
// It follows the teacher's own map-plus-mutex registries
// (conn/gpio/gpioreg, conn/i2c/i2creg): a single mutex around a map, with
// the one addition this runtime needs that those don't — an explicit
// insertion-ordered id list, since execution order here is observable and
// meaningful.
package registry

import (
	"fmt"
	"sync"
)

// Deallocator releases whatever a resource holds when it is removed from
// the registry.
type Deallocator[R any] func(R)

type entry[R any] struct {
	res     R
	dealloc Deallocator[R]
}

// SharedResource is an insertion-ordered, mutex-protected map from K to R.
// All of Insert/Remove/ExecAll/ExecOne/Count/Managed/Reorder/RemoveIf/
// FreeAll serialize on a single internal mutex. AccessUnlocked is
// deliberately unsynchronized and must only be called from inside an
// ExecOne closure (where the mutex is already held) or during teardown
// after the owning Scheduler has stopped.
type SharedResource[K comparable, R any] struct {
	mu    sync.Mutex
	order []K
	items map[K]*entry[R]
}

// New returns an empty SharedResource.
func New[K comparable, R any]() *SharedResource[K, R] {
	return &SharedResource[K, R]{items: make(map[K]*entry[R])}
}

// Insert adds res under id with the given deallocator, appending id to the
// end of the insertion order. It is an error to insert an id already
// present.
func (s *SharedResource[K, R]) Insert(id K, res R, dealloc Deallocator[R]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; ok {
		return fmt.Errorf("registry: id %v already managed", id)
	}
	s.items[id] = &entry[R]{res: res, dealloc: dealloc}
	s.order = append(s.order, id)
	return nil
}

// Remove deallocates and removes id. It is a no-op, returning false, if id
// isn't managed.
func (s *SharedResource[K, R]) Remove(id K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

func (s *SharedResource[K, R]) removeLocked(id K) bool {
	e, ok := s.items[id]
	if !ok {
		return false
	}
	if e.dealloc != nil {
		e.dealloc(e.res)
	}
	delete(s.items, id)
	for i, cur := range s.order {
		if cur == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Count returns the number of managed resources.
func (s *SharedResource[K, R]) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Managed reports whether id is currently managed.
func (s *SharedResource[K, R]) Managed(id K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	return ok
}

// ExecAll calls fn(id, res) for every managed resource, in insertion
// order, holding the mutex for the whole traversal — the same contract as
// the teacher's registries, where callbacks run with the registry locked
// since they are expected to be quick and non-reentrant.
func (s *SharedResource[K, R]) ExecAll(fn func(id K, res R)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		e, ok := s.items[id]
		if !ok {
			continue
		}
		fn(id, e.res)
	}
}

// ExecOne calls fn(res) for the single managed resource id, holding the
// mutex for the call. Returns an error if id isn't managed, or whatever
// fn returns.
func (s *SharedResource[K, R]) ExecOne(id K, fn func(res R) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return fmt.Errorf("registry: id %v not managed", id)
	}
	return fn(e.res)
}

// AccessUnlocked returns the resource stored under id without taking the
// mutex. Valid only when the caller already holds it — from inside an
// ExecOne/ExecAll closure, or during teardown after the scheduler has
// stopped driving this registry.
func (s *SharedResource[K, R]) AccessUnlocked(id K) (R, bool) {
	e, ok := s.items[id]
	if !ok {
		var zero R
		return zero, false
	}
	return e.res, true
}

// Reorder ensures first precedes second in iteration order, preserving the
// relative order of every other id. It returns an error if either id isn't
// managed, and is a no-op if first already precedes second.
func (s *SharedResource[K, R]) Reorder(first, second K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fi, si := -1, -1
	for i, id := range s.order {
		if id == first {
			fi = i
		}
		if id == second {
			si = i
		}
	}
	if fi == -1 || si == -1 {
		return fmt.Errorf("registry: reorder requires both ids to be managed")
	}
	if fi < si {
		return nil
	}
	// Remove first from its current position and reinsert it directly
	// before second.
	order := make([]K, 0, len(s.order))
	for _, id := range s.order {
		if id == first {
			continue
		}
		if id == second {
			order = append(order, first)
		}
		order = append(order, id)
	}
	s.order = order
	return nil
}

// RemoveIf removes every managed resource for which pred returns true,
// deallocating each, and returns the removed ids in the order they were
// iterated.
func (s *SharedResource[K, R]) RemoveIf(pred func(id K, res R) bool) []K {
	s.mu.Lock()
	defer s.mu.Unlock()
	var toRemove []K
	for _, id := range s.order {
		e, ok := s.items[id]
		if ok && pred(id, e.res) {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		s.removeLocked(id)
	}
	return toRemove
}

// FreeAll deallocates and removes every managed resource.
func (s *SharedResource[K, R]) FreeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range append([]K(nil), s.order...) {
		s.removeLocked(id)
	}
}

// Snapshot returns the ids currently managed, in iteration order. Intended
// for diagnostics; the result is stale the instant the mutex is released.
func (s *SharedResource[K, R]) Snapshot() []K {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]K(nil), s.order...)
}
