package sbuf

import (
	"sync/atomic"

	"github.com/kf7qqd/waveband/internal/xassert"
)

// nilIndex marks an empty free list in a packed head value.
const nilIndex = ^uint32(0)

// frame is one fixed-size slot in the allocator's backing arena. Frames
// are never returned to the OS or reused outside this closed pool; they
// only ever move between the free stack and whatever Buffer currently
// references them. next is the array index of the next free frame, valid
// only while this frame sits on the free stack.
type frame struct {
	next    uint32
	samples []int16
}

// Allocator is a lock-free fixed-size frame pool. Frames are sized at
// construction to hold frameCap int16 samples; Alloc and the release path
// never block, and
// Alloc returns nil when the pool is empty, which callers must treat as
// backpressure rather than an error.
type Allocator struct {
	frames   []frame
	frameCap int

	// head packs the free-list top as (generation<<32 | index). The
	// generation increments on every push and pop, so a CAS that reads a
	// stale head value can never mistake a slot that cycled off and back
	// onto the stack in between for the one it originally observed — the
	// classic ABA hazard for a Treiber stack, here closed over a fixed
	// index space instead of raw pointers so the whole head fits in one
	// CAS-able word.
	head atomic.Uint64

	allocs atomic.Uint64
	frees  atomic.Uint64
}

func packHead(generation, index uint32) uint64 {
	return uint64(generation)<<32 | uint64(index)
}

func unpackHead(h uint64) (generation, index uint32) {
	return uint32(h >> 32), uint32(h)
}

// NewAllocator builds a pool of nrFrames frames, each able to hold
// frameCap int16 samples.
func NewAllocator(nrFrames, frameCap int) *Allocator {
	a := &Allocator{frameCap: frameCap, frames: make([]frame, nrFrames)}
	for i := range a.frames {
		a.frames[i].samples = make([]int16, frameCap)
		if i+1 < nrFrames {
			a.frames[i].next = uint32(i + 1)
		} else {
			a.frames[i].next = nilIndex
		}
	}
	if nrFrames == 0 {
		a.head.Store(packHead(0, nilIndex))
	} else {
		a.head.Store(packHead(0, 0))
	}
	return a
}

// Alloc pops a free frame and returns it wrapped as a *Buffer whose release
// callback returns it to this pool, or nil if the pool is exhausted.
// Callers must treat a nil result as backpressure: drop the incoming data
// and increment a dropped-buffer counter.
func (a *Allocator) Alloc(fmtTag Format) *Buffer {
	for {
		h := a.head.Load()
		gen, idx := unpackHead(h)
		if idx == nilIndex {
			return nil
		}
		next := a.frames[idx].next
		if a.head.CompareAndSwap(h, packHead(gen+1, next)) {
			a.allocs.Add(1)
			f := &a.frames[idx]
			b := NewBuffer(fmtTag, 0, f.samples[:0], a.release)
			b.Private = idx
			return b
		}
	}
}

// release is the Buffer release callback wired into frames produced by
// Alloc: it returns the frame identified by b.Private to the free stack.
func (a *Allocator) release(b *Buffer) {
	idx, ok := b.Private.(uint32)
	xassert.Invariant(ok && int(idx) < len(a.frames), "sbuf: buffer released to the wrong allocator")

	f := &a.frames[idx]
	f.samples = f.samples[:cap(f.samples)]
	for {
		h := a.head.Load()
		gen, top := unpackHead(h)
		f.next = top
		if a.head.CompareAndSwap(h, packHead(gen+1, idx)) {
			a.frees.Add(1)
			return
		}
	}
}

// Counts returns the allocator's debug counters and their difference, the
// number of frames currently outstanding.
func (a *Allocator) Counts() (allocs, frees uint64, outstanding int64) {
	al := a.allocs.Load()
	fr := a.frees.Load()
	return al, fr, int64(al) - int64(fr)
}

// FrameCap returns the per-frame sample capacity this allocator was built
// with.
func (a *Allocator) FrameCap() int {
	return a.frameCap
}
