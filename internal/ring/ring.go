// Package ring implements the single-producer/single-consumer byte ring
// buffer the serial producer pushes into and the extractor reads from.
//
// Unlike the LMAX Disruptor's slotted, sequence-gated design, this ring
// holds a raw byte stream: one producer goroutine (the serial reader)
// appends spans of bytes, and one consumer goroutine (the processor's
// run loop) peeks and advances past framed messages. Capacity is fixed
// at construction and never grows; a push that would overrun the
// consumer's read cursor is rejected wholesale (ErrOverflow) rather than
// partially applied, so a recognizer never sees a torn write.
package ring

import (
	"errors"
	"sync/atomic"
)

// ErrOverflow is returned when a push would exceed the unconsumed
// capacity of the ring.
var ErrOverflow = errors.New("ring: buffer overflow")

// Buffer is a fixed-capacity byte ring with one producer and one
// consumer goroutine. All exported methods are safe for exactly one
// concurrent producer and one concurrent consumer, not for multiple
// producers or multiple consumers.
type Buffer struct {
	data []byte
	mask uint64

	// writeIdx is advanced only by the producer; readIdx only by the
	// consumer. Each is padded to its own cache line to avoid false
	// sharing between the two goroutines.
	writeIdx atomic.Uint64
	_        [56]byte
	readIdx  atomic.Uint64
	_        [56]byte
}

// New creates a ring buffer with the given capacity in bytes. Capacity
// is rounded up to the next power of two.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	size := nextPowerOfTwo(uint64(capacity))
	return &Buffer{
		data: make([]byte, size),
		mask: size - 1,
	}
}

func nextPowerOfTwo(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// Capacity returns the ring's fixed byte capacity.
func (b *Buffer) Capacity() int {
	return len(b.data)
}

// Len returns the number of unconsumed bytes currently in the ring.
func (b *Buffer) Len() int {
	return int(b.writeIdx.Load() - b.readIdx.Load())
}

// Free returns the number of bytes that can be pushed before the ring
// is full.
func (b *Buffer) Free() int {
	return len(b.data) - b.Len()
}

// Push appends span to the ring. It returns ErrOverflow, and appends
// nothing, if span does not fit in the remaining free space — the
// caller (the producer) is expected to count the drop and retry on the
// next read.
func (b *Buffer) Push(span []byte) error {
	if len(span) == 0 {
		return nil
	}
	if len(span) > b.Free() {
		return ErrOverflow
	}

	write := b.writeIdx.Load()
	for i, c := range span {
		b.data[(write+uint64(i))&b.mask] = c
	}
	b.writeIdx.Store(write + uint64(len(span)))
	return nil
}

// Peek copies up to len(dst) unconsumed bytes starting at offset
// relative to the current read cursor, without advancing it. It
// returns the number of bytes copied, which may be less than len(dst)
// if fewer bytes are available.
func (b *Buffer) Peek(offset int, dst []byte) int {
	avail := b.Len() - offset
	if avail <= 0 {
		return 0
	}
	n := len(dst)
	if n > avail {
		n = avail
	}
	read := b.readIdx.Load() + uint64(offset)
	for i := 0; i < n; i++ {
		dst[i] = b.data[(read+uint64(i))&b.mask]
	}
	return n
}

// PeekByte returns the byte at offset relative to the current read
// cursor and true, or 0 and false if offset is beyond the unconsumed
// region.
func (b *Buffer) PeekByte(offset int) (byte, bool) {
	if offset >= b.Len() {
		return 0, false
	}
	read := b.readIdx.Load() + uint64(offset)
	return b.data[read&b.mask], true
}

// Advance moves the read cursor forward by n bytes, marking them
// consumed. n must not exceed Len().
func (b *Buffer) Advance(n int) {
	if n <= 0 {
		return
	}
	if n > b.Len() {
		n = b.Len()
	}
	b.readIdx.Add(uint64(n))
}

// Reset clears the ring, discarding all unconsumed bytes. The DTR reset
// sequence does not call it, so bytes buffered across a reset are still
// extracted once processing resumes.
func (b *Buffer) Reset() {
	b.readIdx.Store(b.writeIdx.Load())
}
