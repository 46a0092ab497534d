// Package paritybyte implements the fleet's smallest unit of storage: an
// eight-bit value paired with an odd-parity check bit.
package paritybyte

import (
	"math/bits"
	"sync/atomic"
)

const parityBitPos = 8

// Byte is one parity-protected byte. The data byte and its parity bit are
// packed into a single atomic word so that concurrent readers never observe
// a torn value while a writer overwrites it — no separate lock is needed
// for single-byte reads and writes.
//
// A Byte must not be copied after first use.
type Byte struct {
	word atomic.Uint32
}

// New constructs a Byte from a raw 8-bit value, computing and storing the
// parity bit implicitly so the total count of 1-bits (data + parity) is
// odd.
func New(raw byte) *Byte {
	b := &Byte{}
	b.Set(raw)
	return b
}

// Set overwrites the byte with a fresh value, recomputing parity so the
// result is always parity-ok. Used by bootstrap downloads and the error
// corrector.
func (b *Byte) Set(raw byte) {
	b.word.Store(pack(raw))
}

// Value returns the eight data bits, ignoring the parity bit.
func (b *Byte) Value() byte {
	return byte(b.word.Load())
}

// IsParityOk reports whether the stored parity bit is still consistent
// with the stored data bits.
func (b *Byte) IsParityOk() bool {
	word := b.word.Load()
	data := byte(word)
	parityBit := (word >> parityBitPos) & 1
	return oddParity(data, parityBit)
}

// Corrupt flips one data bit without touching the stored parity bit, so a
// subsequent IsParityOk call fails. It exists solely for test/operator
// error injection and MUST NOT be used by any correctness path.
func (b *Byte) Corrupt() {
	for {
		old := b.word.Load()
		data := byte(old) ^ 0x01
		parityBit := (old >> parityBitPos) & 1
		next := uint32(data) | (parityBit << parityBitPos)
		if b.word.CompareAndSwap(old, next) {
			return
		}
	}
}

func pack(raw byte) uint32 {
	parityBit := parityBitFor(raw)
	return uint32(raw) | (parityBit << parityBitPos)
}

// parityBitFor returns the single bit that makes the total 1-bit count of
// raw plus that bit odd.
func parityBitFor(raw byte) uint32 {
	if bits.OnesCount8(raw)%2 == 1 {
		return 0
	}
	return 1
}

func oddParity(data byte, parityBit uint32) bool {
	total := bits.OnesCount8(data) + int(parityBit)
	return total%2 == 1
}
