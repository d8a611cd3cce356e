package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// A Costas loop locked onto an unmodulated carrier should converge its NCO
// frequency toward the carrier's offset and drive the derotated signal's
// quadrature component toward zero.
func Test_CostasDemod_LocksOntoConstantFrequencyOffset(t *testing.T) {
	const n = 4000
	const freqOffset = 0.01 // radians/sample

	in := make([]Sample, n)
	phase := 0.0
	for i := range in {
		in[i] = Sample{
			Re: float64ToQ15(0.9 * math.Cos(phase)),
			Im: float64ToQ15(0.9 * math.Sin(phase)),
		}
		phase += freqOffset
	}

	c := NewCostasDemod(0.05, 0.001, 1<<14)
	out := make([]Sample, n)
	c.Process(in, out)

	assert.InDelta(t, freqOffset, c.freq, 0.002)

	// Quadrature component of the last several derotated samples should
	// sit near zero once the loop has settled.
	for i := n - 20; i < n; i++ {
		assert.InDelta(t, 0, float64(out[i].Im), 3000, "sample %d", i)
	}
}

// A BPSK-style 180-degree phase flip should still leave the loop locked:
// sign(I)*Q is insensitive to the data polarity, only to the residual
// carrier phase.
func Test_CostasDemod_ToleratesPhaseFlips(t *testing.T) {
	const n = 2000

	in := make([]Sample, n)
	for i := range in {
		sign := 1.0
		if (i/50)%2 == 1 {
			sign = -1.0
		}
		in[i] = Sample{Re: float64ToQ15(sign * 0.8), Im: 0}
	}

	c := NewCostasDemod(0.05, 0.001, 1<<14)
	out := make([]Sample, n)
	c.Process(in, out)

	assert.InDelta(t, 0, c.freq, 0.01)
	for i := n - 50; i < n; i++ {
		assert.InDelta(t, 0, float64(out[i].Im), 4000, "sample %d", i)
	}
}
