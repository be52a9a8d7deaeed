package tags

import "math/bits"

// Set is a growable bitset of tag ids.
type Set struct {
	words []uint64
}

func (s *Set) Add(id ID) bool {
	w, b := int(id>>6), uint64(1)<<(id&63)
	for w >= len(s.words) {
		s.words = append(s.words, 0)
	}
	if s.words[w]&b != 0 {
		return false
	}
	s.words[w] |= b
	return true
}

func (s *Set) Remove(id ID) bool {
	w, b := int(id>>6), uint64(1)<<(id&63)
	if w >= len(s.words) || s.words[w]&b == 0 {
		return false
	}
	s.words[w] &^= b
	return true
}

func (s *Set) Has(id ID) bool {
	w := int(id >> 6)
	return w < len(s.words) && s.words[w]&(uint64(1)<<(id&63)) != 0
}

func (s *Set) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Each calls fn for every id in ascending order.
func (s *Set) Each(fn func(ID)) {
	for wi, w := range s.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			fn(ID(wi<<6 | tz))
			w &= w - 1
		}
	}
}

func (s *Set) Clear() {
	for i := range s.words {
		s.words[i] = 0
	}
}
