// Package userdata keeps application-defined values per viewer.
//
// Each viewer session owns a Store. Values are addressed by typed keys
// created once by the application:
//
//	var colorKey = userdata.NewKey[frame.Color32]("brush")
//
//	func app(ctx *ui.Context) {
//		c := colorKey.GetOrInit(ctx.Data(), func() frame.Color32 { return frame.Red })
//		...
//	}
//
// A key holds its values for every store, indexed by store identity, so no
// value is ever stored behind an untyped interface. Values never leak
// between stores.
package userdata

import (
	"sync"
	"sync/atomic"
)

var nextStoreID atomic.Uint64

// Store is the per-viewer handle. The zero value is not usable; use NewStore.
type Store struct {
	id uint64

	mu    sync.Mutex
	drops map[dropper]struct{}
}

// dropper is implemented by every Key[T].
type dropper interface {
	drop(id uint64)
}

// NewStore returns an empty store with a fresh identity.
func NewStore() *Store {
	return &Store{
		id:    nextStoreID.Add(1),
		drops: make(map[dropper]struct{}),
	}
}

// ID returns the store identity.
func (s *Store) ID() uint64 {
	return s.id
}

// Clear removes every value held for s from every key. Sessions call it on
// disconnect.
func (s *Store) Clear() {
	s.mu.Lock()
	keys := s.drops
	s.drops = make(map[dropper]struct{})
	s.mu.Unlock()

	for k := range keys {
		k.drop(s.id)
	}
}

func (s *Store) track(k dropper) {
	s.mu.Lock()
	s.drops[k] = struct{}{}
	s.mu.Unlock()
}

// Key addresses one kind of value across stores.
type Key[T any] struct {
	name string

	mu     sync.Mutex
	values map[uint64]T
}

// NewKey creates a key. The name is used for diagnostics only.
func NewKey[T any](name string) *Key[T] {
	return &Key[T]{name: name, values: make(map[uint64]T)}
}

// Name returns the key name.
func (k *Key[T]) Name() string {
	return k.name
}

// Get returns the value held for s.
func (k *Key[T]) Get(s *Store) (T, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.values[s.id]
	return v, ok
}

// Set stores v for s.
func (k *Key[T]) Set(s *Store, v T) {
	k.mu.Lock()
	k.values[s.id] = v
	k.mu.Unlock()
	s.track(k)
}

// GetOrInit returns the value held for s, storing newValue() first if there is
// none. newValue runs at most once per store.
func (k *Key[T]) GetOrInit(s *Store, newValue func() T) T {
	k.mu.Lock()
	v, ok := k.values[s.id]
	if !ok {
		v = newValue()
		k.values[s.id] = v
	}
	k.mu.Unlock()
	if !ok {
		s.track(k)
	}
	return v
}

// Update replaces the value held for s with fn(old), where old is the zero
// value if none is held, and returns the new value.
func (k *Key[T]) Update(s *Store, fn func(T) T) T {
	k.mu.Lock()
	v := fn(k.values[s.id])
	k.values[s.id] = v
	k.mu.Unlock()
	s.track(k)
	return v
}

// Delete removes the value held for s.
func (k *Key[T]) Delete(s *Store) {
	k.drop(s.id)
}

// Len returns the number of stores holding a value.
func (k *Key[T]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.values)
}

func (k *Key[T]) drop(id uint64) {
	k.mu.Lock()
	delete(k.values, id)
	k.mu.Unlock()
}

// Sequence hands out increasing indexes, one per store, stable for the
// store's lifetime. Applications use it to tell viewers apart.
type Sequence struct {
	key  *Key[int]
	next int
}

// NewSequence creates a sequence starting at 0.
func NewSequence(name string) *Sequence {
	return &Sequence{key: NewKey[int](name)}
}

// Index returns the index assigned to s, assigning the next one on first
// use. Indexes of cleared stores are not reused.
func (q *Sequence) Index(s *Store) int {
	return q.key.GetOrInit(s, func() int {
		n := q.next
		q.next++
		return n
	})
}
