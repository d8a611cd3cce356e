package dsp

import "github.com/kf7qqd/waveband/internal/sbuf"

// padToMultipleOf4Real right-pads a real sub-filter with zero taps so its
// length is a multiple of four.
func padToMultipleOf4Real(taps []int16) []int16 {
	for len(taps)%4 != 0 {
		taps = append(taps, 0)
	}
	return taps
}

func padToMultipleOf4Complex(taps []Sample) []Sample {
	for len(taps)%4 != 0 {
		taps = append(taps, Sample{})
	}
	return taps
}

// buildPolyphaseReal repacks a flat tap array into interp real sub-filters:
// sub-filter i holds taps i, interp+i, 2*interp+i, ….
func buildPolyphaseReal(taps []int16, interp int) [][]int16 {
	subs := make([][]int16, interp)
	for i := 0; i < interp; i++ {
		var sub []int16
		for j := i; j < len(taps); j += interp {
			sub = append(sub, taps[j])
		}
		subs[i] = padToMultipleOf4Real(sub)
	}
	return subs
}

func buildPolyphaseComplex(taps []Sample, interp int) [][]Sample {
	subs := make([][]Sample, interp)
	for i := 0; i < interp; i++ {
		var sub []Sample
		for j := i; j < len(taps); j += interp {
			sub = append(sub, taps[j])
		}
		subs[i] = padToMultipleOf4Complex(sub)
	}
	return subs
}

// PolyphaseFIR is a real-valued polyphase rational resampler, used for
// audio-rate conversion (e.g. channel rate to a pager decoder's fixed
// input rate).
type PolyphaseFIR struct {
	subs   [][]int16
	interp int
	decim  int

	lastPhase    int
	sampleOffset int
	pending      int

	active *sbuf.Buffer
	next   *sbuf.Buffer
}

// NewPolyphaseFIR builds a resampler from a flat prototype low-pass filter
// of ntaps coefficients, repacked into interp phase sub-filters, producing
// output at input_rate*interp/decim.
func NewPolyphaseFIR(taps []int16, interp, decim int) *PolyphaseFIR {
	return &PolyphaseFIR{subs: buildPolyphaseReal(taps, interp), interp: interp, decim: decim}
}

func (p *PolyphaseFIR) PushBuffer(buf *sbuf.Buffer) error {
	switch {
	case p.active == nil:
		p.active = buf
	case p.next == nil:
		p.next = buf
	default:
		return ErrBusy
	}
	p.pending += buf.NumSamp
	return nil
}

// CanProcess reports whether the window for the current phase is fully
// available in the pending input.
func (p *PolyphaseFIR) CanProcess() bool {
	return p.pending >= len(p.subs[p.lastPhase])
}

// Process writes up to len(out) real Q.15 output samples, stopping when
// the algorithm would need to advance past the available input.
func (p *PolyphaseFIR) Process(out []int16) int {
	produced := 0
	for produced < len(out) && p.pending >= len(p.subs[p.lastPhase]) {
		out[produced] = p.convolveOne()
		p.advancePhase()
		produced++
	}
	return produced
}

func (p *PolyphaseFIR) convolveOne() int16 {
	sub := p.subs[p.lastPhase]
	var acc int32
	for k, c := range sub {
		acc += mulQ15(p.sampleAt(p.sampleOffset+k), c)
	}
	return roundQ30ToQ15(acc)
}

func (p *PolyphaseFIR) sampleAt(k int) int16 {
	if k < p.active.NumSamp {
		return p.active.Samples[k]
	}
	return p.next.Samples[k-p.active.NumSamp]
}

func (p *PolyphaseFIR) advancePhase() {
	ph := p.lastPhase + p.decim
	step := ph / p.interp
	p.lastPhase = ph % p.interp

	p.sampleOffset += step
	p.pending -= step
	for p.active != nil && p.sampleOffset >= p.active.NumSamp {
		p.sampleOffset -= p.active.NumSamp
		p.active.Release()
		p.active = p.next
		p.next = nil
	}
}

// ComplexPolyphaseFIR is the complex-valued variant used for baseband
// channel resampling, with the same phase-accumulator structure as
// PolyphaseFIR plus optional derotation.
type ComplexPolyphaseFIR struct {
	subs   [][]Sample
	interp int
	decim  int

	derotate  bool
	phase     Sample
	phaseIncr Sample

	lastPhase    int
	sampleOffset int
	pending      int

	active *sbuf.Buffer
	next   *sbuf.Buffer
}

func NewComplexPolyphaseFIR(taps []Sample, interp, decim int) *ComplexPolyphaseFIR {
	return &ComplexPolyphaseFIR{subs: buildPolyphaseComplex(taps, interp), interp: interp, decim: decim}
}

// WithShift enables derotation on c, matching DirectFIR's convention of a
// (1,0)-initialized phase advanced once per output sample.
func (c *ComplexPolyphaseFIR) WithShift(shiftHz, sampleRateHz float64) *ComplexPolyphaseFIR {
	c.derotate = true
	c.phase = Sample{Re: qOne, Im: 0}
	c.phaseIncr = derotationIncrement(shiftHz, sampleRateHz, 1)
	return c
}

func (c *ComplexPolyphaseFIR) PushBuffer(buf *sbuf.Buffer) error {
	switch {
	case c.active == nil:
		c.active = buf
	case c.next == nil:
		c.next = buf
	default:
		return ErrBusy
	}
	c.pending += buf.NumSamp
	return nil
}

func (c *ComplexPolyphaseFIR) CanProcess() bool {
	return c.pending >= len(c.subs[c.lastPhase])
}

func (c *ComplexPolyphaseFIR) Process(out []Sample) int {
	produced := 0
	for produced < len(out) && c.pending >= len(c.subs[c.lastPhase]) {
		out[produced] = c.convolveOne()
		c.advancePhase()
		produced++
	}
	return produced
}

func (c *ComplexPolyphaseFIR) convolveOne() Sample {
	sub := c.subs[c.lastPhase]
	var accRe, accIm int32
	for k, coef := range sub {
		s := c.sampleAt(c.sampleOffset + k)
		accRe += mulQ15(s.Re, coef.Re) - mulQ15(s.Im, coef.Im)
		accIm += mulQ15(s.Re, coef.Im) + mulQ15(s.Im, coef.Re)
	}
	out := Sample{Re: roundQ30ToQ15(accRe), Im: roundQ30ToQ15(accIm)}
	if c.derotate {
		out = mulComplexQ15(out, c.phase)
		c.phase = mulComplexQ15(c.phase, c.phaseIncr)
	}
	return out
}

func (c *ComplexPolyphaseFIR) sampleAt(k int) Sample {
	if k < c.active.NumSamp {
		return Sample{Re: c.active.Samples[2*k], Im: c.active.Samples[2*k+1]}
	}
	k -= c.active.NumSamp
	return Sample{Re: c.next.Samples[2*k], Im: c.next.Samples[2*k+1]}
}

func (c *ComplexPolyphaseFIR) advancePhase() {
	ph := c.lastPhase + c.decim
	step := ph / c.interp
	c.lastPhase = ph % c.interp

	c.sampleOffset += step
	c.pending -= step
	for c.active != nil && c.sampleOffset >= c.active.NumSamp {
		c.sampleOffset -= c.active.NumSamp
		c.active.Release()
		c.active = c.next
		c.next = nil
	}
}
