package graph

import "encoding/binary"

// SeqSet records sequences of comparable values and reports whether a
// sequence was seen before. Elements are interned to integers and the
// sequence is encoded as varints, so distinct sequences can never collide
// the way delimiter-joined strings can.
type SeqSet[T comparable] struct {
	ids  map[T]uint64
	seen map[string]struct{}
	buf  []byte
}

// NewSeqSet returns an empty set.
func NewSeqSet[T comparable]() *SeqSet[T] {
	return &SeqSet[T]{
		ids:  make(map[T]uint64),
		seen: make(map[string]struct{}),
	}
}

// Add inserts seq and reports whether it was not already present.
func (s *SeqSet[T]) Add(seq []T) bool {
	s.buf = binary.AppendUvarint(s.buf[:0], uint64(len(seq)))
	for _, v := range seq {
		id, ok := s.ids[v]
		if !ok {
			id = uint64(len(s.ids))
			s.ids[v] = id
		}
		s.buf = binary.AppendUvarint(s.buf, id)
	}
	if _, ok := s.seen[string(s.buf)]; ok {
		return false
	}
	s.seen[string(s.buf)] = struct{}{}
	return true
}

// Len returns the number of distinct sequences recorded.
func (s *SeqSet[T]) Len() int { return len(s.seen) }
