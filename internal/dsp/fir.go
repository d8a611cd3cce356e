package dsp

import (
	"errors"

	"github.com/kf7qqd/waveband/internal/sbuf"
)

// ErrBusy is returned by PushBuffer when both the active and pending
// buffer slots are already occupied.
var ErrBusy = errors.New("dsp: direct FIR has no free buffer slot")

// DirectFIR is a direct-form complex FIR channelizer: a decimating,
// optionally derotating filter that walks ntaps complex Q.15 taps per
// output sample, spanning across buffer boundaries without copying.
type DirectFIR struct {
	taps       []Sample
	decimation int

	derotate  bool
	phase     Sample
	phaseIncr Sample

	active       *sbuf.Buffer
	next         *sbuf.Buffer
	sampleOffset int
	pending      int
}

// NewDirectFIR builds a channelizer with the given complex Q.15 taps and
// integer decimation, with derotation disabled.
func NewDirectFIR(taps []Sample, decimation int) *DirectFIR {
	return &DirectFIR{taps: taps, decimation: decimation}
}

// NewDirectFIRWithShift builds a channelizer that additionally derotates
// its output by shiftHz relative to sampleRateHz. Phase starts at (1, 0);
// no periodic renormalization is performed, so phase magnitude drifts
// slowly under repeated fixed-point multiplication.
func NewDirectFIRWithShift(taps []Sample, decimation int, shiftHz, sampleRateHz float64) *DirectFIR {
	f := NewDirectFIR(taps, decimation)
	f.derotate = true
	f.phase = Sample{Re: qOne, Im: 0}
	f.phaseIncr = derotationIncrement(shiftHz, sampleRateHz, decimation)
	return f
}

// PushBuffer adopts buf, taking ownership of the reference the caller
// already holds (the caller must not call buf.Release after a successful
// push; DirectFIR releases it once fully consumed). Returns ErrBusy if
// both the active and next slots are already occupied.
func (f *DirectFIR) PushBuffer(buf *sbuf.Buffer) error {
	switch {
	case f.active == nil:
		f.active = buf
	case f.next == nil:
		f.next = buf
	default:
		return ErrBusy
	}
	f.pending += buf.NumSamp
	return nil
}

// CanProcess reports whether enough pending input exists to produce at
// least one more output sample, and an estimate of how many it could
// produce from the currently pending input.
func (f *DirectFIR) CanProcess() (bool, int) {
	if f.pending < len(f.taps) {
		return false, 0
	}
	est := 1 + (f.pending-len(f.taps))/f.decimation
	return true, est
}

// Process writes up to len(out) output samples, stopping early when
// insufficient input remains. It returns the number produced.
func (f *DirectFIR) Process(out []Sample) int {
	produced := 0
	for produced < len(out) && f.pending >= len(f.taps) {
		out[produced] = f.convolveOne()
		f.advance(f.decimation)
		produced++
	}
	return produced
}

// convolveOne accumulates ntaps complex products starting at sampleOffset
// in active, continuing into next if the window crosses the boundary, and
// applies one step of derotation if enabled.
func (f *DirectFIR) convolveOne() Sample {
	var accRe, accIm int32
	for k, c := range f.taps {
		s := f.sampleAt(f.sampleOffset + k)
		accRe += mulQ15(s.Re, c.Re) - mulQ15(s.Im, c.Im)
		accIm += mulQ15(s.Re, c.Im) + mulQ15(s.Im, c.Re)
	}

	out := Sample{Re: roundQ30ToQ15(accRe), Im: roundQ30ToQ15(accIm)}
	if f.derotate {
		out = mulComplexQ15(out, f.phase)
		f.phase = mulComplexQ15(f.phase, f.phaseIncr)
	}
	return out
}

// sampleAt reads the complex sample at logical offset k from the active
// buffer, transparently spilling into next once k crosses active's length.
func (f *DirectFIR) sampleAt(k int) Sample {
	if k < f.active.NumSamp {
		return Sample{Re: f.active.Samples[2*k], Im: f.active.Samples[2*k+1]}
	}
	k -= f.active.NumSamp
	return Sample{Re: f.next.Samples[2*k], Im: f.next.Samples[2*k+1]}
}

// advance moves sampleOffset forward by n samples, retiring and releasing
// active (and promoting next) as many times as the window crosses a
// buffer boundary.
func (f *DirectFIR) advance(n int) {
	f.sampleOffset += n
	f.pending -= n
	for f.active != nil && f.sampleOffset >= f.active.NumSamp {
		f.sampleOffset -= f.active.NumSamp
		f.active.Release()
		f.active = f.next
		f.next = nil
	}
}
