// Package store holds the fixed-length shared byte store every node keeps
// a full copy of.
package store

import "github.com/parityfleet/paritynode/core/paritybyte"

// Store is a fixed-length sequence of parity-protected bytes, shared
// read-write by every worker, handler and scanner in the node. Each byte
// is independently atomic; the Store itself needs no coarse lock because
// callers only ever touch disjoint or self-checking single bytes.
type Store struct {
	data []paritybyte.Byte
}

// New allocates a store of the given size, every byte initialized to 0x00
// and parity-ok.
func New(size int) *Store {
	s := &Store{data: make([]paritybyte.Byte, size)}
	for i := range s.data {
		s.data[i].Set(0)
	}
	return s
}

// FromBytes seeds a store directly from a raw byte slice, e.g. a
// pre-loaded data file. len(raw) becomes the store's size.
func FromBytes(raw []byte) *Store {
	s := &Store{data: make([]paritybyte.Byte, len(raw))}
	for i, b := range raw {
		s.data[i].Set(b)
	}
	return s
}

// Len returns the number of bytes in the store.
func (s *Store) Len() int {
	return len(s.data)
}

// Get returns the data value at i and whether it is currently parity-ok.
func (s *Store) Get(i int) (byte, bool) {
	b := &s.data[i]
	return b.Value(), b.IsParityOk()
}

// IsParityOk reports whether the byte at i currently passes its parity
// check.
func (s *Store) IsParityOk(i int) bool {
	return s.data[i].IsParityOk()
}

// Set overwrites the byte at i with a fresh, parity-ok value. Used by
// bootstrap downloads and the error corrector.
func (s *Store) Set(i int, raw byte) {
	s.data[i].Set(raw)
}

// Corrupt flips one data bit at i without correcting its parity bit, so
// the byte becomes suspect. Test/operator injection only.
func (s *Store) Corrupt(i int) {
	s.data[i].Corrupt()
}

// WriteRange overwrites the range [start, start+len(values)) with values,
// each recomputed to be parity-ok. Used by a downloader worker writing a
// whole block it just received.
func (s *Store) WriteRange(start int, values []byte) {
	for offset, v := range values {
		s.data[start+offset].Set(v)
	}
}

// ReadRange copies out the raw data bytes in [start, start+length). It
// does not check parity — callers that must not serve suspect data are
// responsible for validating first (see core/corrector.Correct).
func (s *Store) ReadRange(start, length int) []byte {
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = s.data[start+i].Value()
	}
	return out
}
