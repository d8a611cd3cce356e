package dsp

import "math"

// CostasDemod is the optional narrowband BPSK-like Costas-loop
// demodulator: an (alpha, beta)-tuned NCO tracks carrier phase and
// frequency, derotating the input in place. FM is the canonical path;
// this exists for signals better modeled as a tracked carrier (e.g. a
// data pager's BPSK sync burst riding on an otherwise FM-shaped channel).
// A channel worker that enables it runs CostasDemod.Process on the
// channelized complex stream before FMDemod, so FM's phase-difference
// detector sees a carrier-locked signal instead of a free-running one.
type CostasDemod struct {
	Alpha, Beta float64
	ErrMax      float64

	phase float64 // radians
	freq  float64 // radians/sample
}

// NewCostasDemod builds a loop with the given loop-filter gains and error
// clamp.
func NewCostasDemod(alpha, beta, errMax float64) *CostasDemod {
	return &CostasDemod{Alpha: alpha, Beta: beta, ErrMax: errMax}
}

// Process derotates in[0:n] into out[0:n] by the NCO's current phase
// estimate, updating phase/frequency from the BPSK phase-error detector
// (sign(I)*Q) after each sample.
func (c *CostasDemod) Process(in []Sample, out []Sample) {
	for i, s := range in {
		nco := Sample{
			Re: float64ToQ15(math.Cos(-c.phase)),
			Im: float64ToQ15(math.Sin(-c.phase)),
		}
		derot := mulComplexQ15(s, nco)
		out[i] = derot

		errSig := phaseError(derot)
		if errSig > c.ErrMax {
			errSig = c.ErrMax
		} else if errSig < -c.ErrMax {
			errSig = -c.ErrMax
		}
		// The clamp works in raw Q.15 units; the loop gains act on the
		// error as a fraction of full scale.
		errSig /= 32768

		c.freq += c.Beta * errSig
		c.phase += c.freq + c.Alpha*errSig
		c.phase = math.Mod(c.phase, 2*math.Pi)
	}
}

// phaseError is the classic BPSK Costas detector: sign(I)*Q.
func phaseError(s Sample) float64 {
	i, q := float64(s.Re), float64(s.Im)
	if i >= 0 {
		return q
	}
	return -q
}
