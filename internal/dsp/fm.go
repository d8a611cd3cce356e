package dsp

import "math"

// FMDemod is a quadrature FM demodulator with carrier squelch: it consumes
// interleaved complex Q.15 samples and produces real Q.15 samples
// one-for-one.
type FMDemod struct {
	// CsqThresholdDBFS gates demodulation: below this RMS level the block
	// emits zeros instead of demodulated audio. Zero disables squelch.
	CsqThresholdDBFS float64

	prev    Sample
	hasPrev bool
}

// NewFMDemod builds a demodulator with the given squelch threshold in
// dBFS (0 disables squelch).
func NewFMDemod(csqThresholdDBFS float64) *FMDemod {
	return &FMDemod{CsqThresholdDBFS: csqThresholdDBFS}
}

// Process demodulates in[0:n] into out[0:n]; len(out) must be >= len(in).
func (f *FMDemod) Process(in []Sample, out []int16) {
	rms := blockRMSDBFS(in)
	squelchOpen := f.CsqThresholdDBFS == 0 || rms >= f.CsqThresholdDBFS

	for i, a := range in {
		if !squelchOpen {
			out[i] = 0
			f.prev = a
			f.hasPrev = true
			continue
		}

		if !f.hasPrev {
			out[i] = 0
			f.prev = a
			f.hasPrev = true
			continue
		}

		// z = a * conj(prev)
		zRe := mulQ15(a.Re, f.prev.Re) + mulQ15(a.Im, f.prev.Im)
		zIm := mulQ15(a.Im, f.prev.Re) - mulQ15(a.Re, f.prev.Im)

		freq := math.Atan2(float64(zIm), float64(zRe)) / math.Pi
		out[i] = float64ToQ15(freq)

		f.prev = a
	}
}

// blockRMSDBFS approximates the RMS power of a block of complex Q.15
// samples as a dBFS proxy: sum(|I|+|Q|), RMS, scaled against full scale.
func blockRMSDBFS(in []Sample) float64 {
	if len(in) == 0 {
		return math.Inf(-1)
	}
	var sumSq float64
	for _, s := range in {
		mag := math.Abs(float64(s.Re)) + math.Abs(float64(s.Im))
		sumSq += mag * mag
	}
	rms := math.Sqrt(sumSq / float64(len(in)))
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/float64(1<<15))
}

// Squelch is a standalone carrier-presence gate over the same RMS metric
// FMDemod uses, for callers that want to gate a stage other than FM
// demodulation (e.g. muting a sink writer). HangSamples, when nonzero,
// keeps the gate reporting open for that many samples after the signal
// last cleared threshold, so a momentary dropout mid-transmission doesn't
// chop the gate shut and back open again; HangSamples == 0 is an
// instantaneous threshold comparison with no hang time at all.
type Squelch struct {
	ThresholdDBFS float64
	HangSamples   int

	hangRemaining int
}

// Open reports whether in's block RMS clears the squelch threshold, or the
// gate is still hanging open from a recent open period. Must be called on
// successive blocks of the same signal in order; s carries hang-time state
// across calls.
func (s *Squelch) Open(in []Sample) bool {
	if s.ThresholdDBFS == 0 {
		return true
	}
	if blockRMSDBFS(in) >= s.ThresholdDBFS {
		s.hangRemaining = s.HangSamples
		return true
	}
	if s.hangRemaining > 0 {
		s.hangRemaining -= len(in)
		return true
	}
	return false
}
