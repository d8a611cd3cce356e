package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_FMDemod_ConstantFrequencyTone(t *testing.T) {
	const n = 2000
	const deviation = 0.2 // fraction of sample rate

	in := make([]Sample, n)
	phase := 0.0
	for i := range in {
		in[i] = Sample{
			Re: float64ToQ15(0.8 * math.Cos(phase)),
			Im: float64ToQ15(0.8 * math.Sin(phase)),
		}
		phase += 2 * math.Pi * deviation
	}

	d := NewFMDemod(0)
	out := make([]int16, n)
	d.Process(in, out)

	// After the first sample (no previous reference), every output should
	// sit near the per-sample phase step divided by pi, i.e. 2*deviation in
	// Q.15.
	want := float64ToQ15(deviation * 2)
	for i := 5; i < n; i++ {
		assert.InDelta(t, want, out[i], 1200, "sample %d", i)
	}
}

func Test_FMDemod_SquelchMutesBelowThreshold(t *testing.T) {
	in := make([]Sample, 100)
	for i := range in {
		in[i] = Sample{Re: 10, Im: 10} // far below full scale
	}

	d := NewFMDemod(-10) // dBFS, signal is well below this
	out := make([]int16, len(in))
	d.Process(in, out)

	for _, s := range out {
		assert.Equal(t, int16(0), s)
	}
}

func Test_Squelch_ZeroThresholdAlwaysOpen(t *testing.T) {
	s := Squelch{ThresholdDBFS: 0}
	assert.True(t, s.Open([]Sample{{Re: 0, Im: 0}}))
}

func Test_Squelch_HangSamplesKeepsGateOpenThroughBriefDropout(t *testing.T) {
	strong := []Sample{{Re: 20000, Im: 20000}}
	weak := []Sample{{Re: 0, Im: 0}}

	s := Squelch{ThresholdDBFS: -10, HangSamples: 2}
	require.True(t, s.Open(strong))

	// Still within the hang window: reports open despite the weak block.
	assert.True(t, s.Open(weak))
	assert.True(t, s.Open(weak))

	// Hang window exhausted: gate closes.
	assert.False(t, s.Open(weak))
}

func Test_Squelch_NoHangSamplesClosesImmediately(t *testing.T) {
	strong := []Sample{{Re: 20000, Im: 20000}}
	weak := []Sample{{Re: 0, Im: 0}}

	s := Squelch{ThresholdDBFS: -10}
	require.True(t, s.Open(strong))
	assert.False(t, s.Open(weak))
}

func Test_DCBlocker_RemovesConstantOffset(t *testing.T) {
	const offset = 5000
	const n = 100000

	in := make([]int16, n)
	for i := range in {
		in[i] = offset
	}

	d := NewDCBlocker(DefaultDCBlockerPole)
	d.Process(in)

	// The tail should settle close to zero once the IIR has converged.
	for i := n - 10; i < n; i++ {
		assert.InDelta(t, 0, in[i], 50)
	}
}
