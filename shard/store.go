package shard

import (
	"sync/atomic"
)

/*
This file defines how entries are held inside a shard.

Reads (Get, Keys, Values) are far more frequent than writes and must never wait
for a writer, so the store is copy-on-write: readers load an immutable map
snapshot, writers build a new map and swap it in atomically. Writers are
serialized by the owning shard's mutex, not by the store.
*/

// Store is the keyed storage of one shard.
type Store[V any] interface {

	// Get looks up one id in the current snapshot.
	Get(string) (V, bool)

	// Put inserts or replaces an entry.
	Put(string, V)

	// Delete removes an entry; deleting a missing id is a no-op.
	Delete(string)

	// Clear drops every entry.
	Clear()

	// Snapshot returns the current map. Callers must not modify it.
	Snapshot() map[string]V

	// Size returns how many entries are stored.
	Size() int
}

type cowStore[V any] struct {
	data atomic.Pointer[map[string]V]
}

func NewCOWStore[V any]() Store[V] {
	s := &cowStore[V]{}
	m := make(map[string]V)
	s.data.Store(&m)
	return s
}

func (s *cowStore[V]) load() map[string]V {
	return *s.data.Load()
}

func (s *cowStore[V]) Get(key string) (V, bool) {
	v, ok := s.load()[key]
	return v, ok
}

// Put copies the current map, adds the entry and swaps the copy in.
func (s *cowStore[V]) Put(key string, v V) {
	old := s.load()
	n := make(map[string]V, len(old)+1)
	for k, e := range old {
		n[k] = e
	}
	n[key] = v
	s.data.Store(&n)
}

func (s *cowStore[V]) Delete(key string) {
	old := s.load()
	if _, ok := old[key]; !ok {
		return
	}
	n := make(map[string]V, len(old))
	for k, e := range old {
		if k != key {
			n[k] = e
		}
	}
	s.data.Store(&n)
}

func (s *cowStore[V]) Clear() {
	n := make(map[string]V)
	s.data.Store(&n)
}

func (s *cowStore[V]) Snapshot() map[string]V {
	return s.load()
}

func (s *cowStore[V]) Size() int {
	return len(s.load())
}
