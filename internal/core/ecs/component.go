package ecs

// Removable is implemented by all stores so the World can drop an entity's data
// from every store when it is destroyed.
type Removable interface {
	Remove(id EntityID)
	Clear()
}

// Store is a generic keyed store that remembers insertion order. Iteration is
// deterministic: entries are visited in the order they were first Set, which keeps
// frame processing replayable.
type Store[T any] struct {
	data  map[EntityID]*T
	order []EntityID
	dirty bool
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		data:  make(map[EntityID]*T, 256),
		order: make([]EntityID, 0, 256),
	}
}

func (s *Store[T]) Set(id EntityID, c *T) {
	if _, ok := s.data[id]; !ok {
		s.order = append(s.order, id)
	}
	s.data[id] = c
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *Store[T]) Remove(id EntityID) {
	if _, ok := s.data[id]; ok {
		delete(s.data, id)
		s.dirty = true
	}
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

func (s *Store[T]) Clear() {
	clear(s.data)
	s.order = s.order[:0]
	s.dirty = false
}

// Each visits entries in insertion order. Entries added during iteration are not
// visited; entries removed during iteration are skipped.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	s.compact()
	ids := s.order
	for _, id := range ids {
		if c, ok := s.data[id]; ok {
			fn(id, c)
		}
	}
}

// IDs returns a snapshot of live ids in insertion order.
func (s *Store[T]) IDs() []EntityID {
	s.compact()
	out := make([]EntityID, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Store[T]) compact() {
	if !s.dirty {
		return
	}
	// fresh backing array: an outer Each may still be ranging over the old one
	kept := make([]EntityID, 0, len(s.data))
	for _, id := range s.order {
		if _, ok := s.data[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
	s.dirty = false
}
