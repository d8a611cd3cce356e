package sbuf

import (
	"sync/atomic"

	"github.com/kf7qqd/waveband/internal/xassert"
)

// Buffer is a fixed-capacity, immutable-once-published sample block.
//
// Samples always carries Q.15 values in native int16: two entries per
// sample (I, Q) for CS16/CS8-sourced complex data, one entry per sample for
// S16-sourced real data. Format conversion from the wire encoding (CS8's
// Q.7, or real S16) happens once at the acquisition boundary (internal/
// source), so every DSP stage downstream only ever sees Q.15.
//
// The producer sets refcount to the number of subscribing consumers before
// handing the buffer to any SPSCQueue. Each consumer calls Release exactly
// once when it is done reading; the last Release invokes the installed
// release callback, which normally returns the underlying frame to an
// Allocator. The buffer must never be mutated once published.
type Buffer struct {
	Fmt     Format
	NumSamp int
	Samples []int16

	refcount  atomic.Int32
	onRelease func(*Buffer)

	// Private is reserved for allocator bookkeeping (e.g. the frame this
	// buffer was carved from), never touched by DSP stages.
	Private any
}

// NewBuffer wraps samples with the given format and installs the release
// callback invoked once the last reference is dropped.
func NewBuffer(fmtTag Format, numSamp int, samples []int16, onRelease func(*Buffer)) *Buffer {
	return &Buffer{Fmt: fmtTag, NumSamp: numSamp, Samples: samples, onRelease: onRelease}
}

// Publish sets the initial reference count to nrConsumers. Must be called
// exactly once, before the buffer is enqueued into any consumer queue.
func (b *Buffer) Publish(nrConsumers int32) {
	b.refcount.Store(nrConsumers)
}

// Refs reports the current outstanding reference count. For diagnostics
// only — do not gate correctness decisions on a racy read of this value.
func (b *Buffer) Refs() int32 {
	return b.refcount.Load()
}

// Release drops one reference. When the reference count reaches zero the
// release callback fires exactly once.
func (b *Buffer) Release() {
	n := b.refcount.Add(-1)
	xassert.Invariant(n >= 0, "sbuf: buffer released after its refcount already reached zero")
	if n == 0 {
		if b.onRelease != nil {
			b.onRelease(b)
		}
	}
}

// IsComplex reports whether Samples is interleaved I/Q (CS16, CS8) rather
// than real-only (S16).
func (b *Buffer) IsComplex() bool {
	return b.Fmt == CS16 || b.Fmt == CS8
}
