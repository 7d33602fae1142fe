// SPDX-License-Identifier: MIT
/*
Package ring implements the fixed-capacity sample buffer bridging the audio
capture callback and the analysis loop.

Single-writer/single-reader: the capture callback is the only Push caller,
the analysis loop the only PopWindow caller. The shared state is a pair of
atomic cursors holding absolute sample counts, so ordering and lap
detection are plain integer comparisons.

Overrun policy is drop-oldest: the writer never blocks and overwrites the
oldest samples past capacity, preferring freshness over completeness. A
reader that got lapped resynchronizes to the oldest retained sample. A read
raced by an overwriting push is detected by re-checking the reservation
cursor after the copy and reported as insufficient data, never returned
torn; the reservation advances before the push writes any data, so a push
still in flight over the region is caught too.
*/
package ring

import (
	"errors"
	"sync/atomic"

	"specviz/pkg/bitint"
)

// ErrInsufficientData signals that fewer samples than one full window have
// accumulated past the read position. Callers skip the cycle; this is
// starvation, not failure.
var ErrInsufficientData = errors.New("ring: insufficient data for window")

// Buffer is a drop-oldest circular store of float32 samples.
//
// The writer keeps two cursors: reserved advances before the data copy,
// written after it. The reader validates a finished copy against reserved,
// so a push that is still writing into the region counts as an overwrite
// even though written has not moved yet.
type Buffer struct {
	data []float32
	mask uint64

	reserved atomic.Uint64 // samples claimed by pushes, advanced pre-copy
	written  atomic.Uint64 // samples fully published, advanced post-copy
	readPos  uint64        // absolute read position, reader-owned
}

// New creates a Buffer with at least the requested capacity, rounded up to
// a power of two so index masking replaces modulo in the hot path.
func New(capacity int) *Buffer {
	c := bitint.NextPowerOfTwo(capacity)
	return &Buffer{
		data: make([]float32, c),
		mask: uint64(c - 1),
	}
}

// Capacity returns the number of samples the buffer retains.
func (b *Buffer) Capacity() int {
	return len(b.data)
}

// Push appends samples, overwriting the oldest data past capacity.
// Writer-only; never blocks and never allocates.
func (b *Buffer) Push(samples []float32) {
	n := uint64(len(samples))
	if n == 0 {
		return
	}

	// A block larger than the buffer reduces to its tail; the head would be
	// overwritten within this same call anyway.
	if n > uint64(len(b.data)) {
		samples = samples[n-uint64(len(b.data)):]
		n = uint64(len(samples))
	}

	w := b.written.Load()

	// Claim the region before touching it so a reader copying these slots
	// concurrently sees the push and discards its window.
	b.reserved.Store(w + n)

	start := w & b.mask
	first := copy(b.data[start:], samples)
	if first < len(samples) {
		copy(b.data, samples[first:])
	}
	b.written.Store(w + n)
}

// Buffered returns how many unread samples are available to the reader,
// capped at capacity.
func (b *Buffer) Buffered() int {
	avail := b.written.Load() - b.readPos
	if avail > uint64(len(b.data)) {
		avail = uint64(len(b.data))
	}
	return int(avail)
}

// PopWindow copies exactly len(dst) contiguous samples into dst and advances
// the read position by stride. Returns ErrInsufficientData when fewer than
// len(dst) samples are available or when the writer overwrote the region
// mid-copy; in either case dst contents are undefined and the next call
// retries from a consistent position. Reader-only.
func (b *Buffer) PopWindow(dst []float32, stride int) error {
	n := uint64(len(dst))
	if n == 0 || n > uint64(len(b.data)) {
		return ErrInsufficientData
	}

	// Lapped, or a claimed push is overwriting the oldest samples: jump
	// forward to the oldest sample no in-flight push can touch.
	if r := b.reserved.Load(); r-b.readPos > uint64(len(b.data)) {
		b.readPos = r - uint64(len(b.data))
	}

	if b.written.Load()-b.readPos < n {
		return ErrInsufficientData
	}

	start := b.readPos & b.mask
	first := copy(dst, b.data[start:])
	if uint64(first) < n {
		copy(dst[first:], b.data)
	}

	// A push may have claimed the region during the copy, even one whose
	// data is still being written. Discard the torn window; the reader
	// resynchronizes and the caller simply sees one starved cycle.
	if r := b.reserved.Load(); r-b.readPos > uint64(len(b.data)) {
		b.readPos = r - uint64(len(b.data))
		return ErrInsufficientData
	}

	b.readPos += uint64(stride)
	return nil
}
