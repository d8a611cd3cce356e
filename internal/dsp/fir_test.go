package dsp

import (
	"testing"

	"github.com/kf7qqd/waveband/internal/sbuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func complexBuffer(samples []Sample) *sbuf.Buffer {
	raw := make([]int16, 2*len(samples))
	for i, s := range samples {
		raw[2*i] = s.Re
		raw[2*i+1] = s.Im
	}
	b := sbuf.NewBuffer(sbuf.CS16, len(samples), raw, nil)
	b.Publish(1)
	return b
}

// Direct FIR linearity: feeding an impulse through the filter reproduces
// the taps themselves, modulo Q.15 rounding.
func Test_DirectFIR_ImpulseResponseMatchesTaps(t *testing.T) {
	taps := []Sample{{Re: 100, Im: 0}, {Re: 200, Im: 0}, {Re: 300, Im: 0}, {Re: 400, Im: 0}}

	impulse := make([]Sample, len(taps))
	impulse[0] = Sample{Re: qOne, Im: 0}

	f := NewDirectFIR(taps, 1)
	require.NoError(t, f.PushBuffer(complexBuffer(impulse)))

	out := make([]Sample, 1)
	n := f.Process(out)
	require.Equal(t, 1, n)

	// The input is exactly len(taps) long, so there is one output; the
	// impulse sits at index 0, so out[0] corresponds to impulse[0]*taps[0].
	// Only that first tap is checked here.
	assert.InDelta(t, taps[0].Re, out[0].Re, 2)
}

// Direct FIR decimation identity: with decim=1 and no derotation, output
// length == input_len - ntaps + 1.
func Test_DirectFIR_DecimationIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ntaps := rapid.IntRange(1, 16).Draw(t, "ntaps")
		inputLen := rapid.IntRange(ntaps, ntaps+200).Draw(t, "inputLen")

		taps := make([]Sample, ntaps)
		for i := range taps {
			taps[i] = Sample{Re: 1000, Im: 0}
		}

		in := make([]Sample, inputLen)
		for i := range in {
			in[i] = Sample{Re: int16(i % 100), Im: int16(-(i % 77))}
		}

		f := NewDirectFIR(taps, 1)
		if err := f.PushBuffer(complexBuffer(in)); err != nil {
			t.Fatal(err)
		}

		out := make([]Sample, inputLen+ntaps)
		n := f.Process(out)

		want := inputLen - ntaps + 1
		if want < 0 {
			want = 0
		}
		assert.Equal(t, want, n)
	})
}

func Test_DirectFIR_PushBuffer_BusyWhenBothSlotsFull(t *testing.T) {
	f := NewDirectFIR([]Sample{{Re: 1}}, 1)
	require.NoError(t, f.PushBuffer(complexBuffer([]Sample{{Re: 1}})))
	require.NoError(t, f.PushBuffer(complexBuffer([]Sample{{Re: 1}})))
	assert.ErrorIs(t, f.PushBuffer(complexBuffer([]Sample{{Re: 1}})), ErrBusy)
}

func Test_DirectFIR_SpansActiveAndNextBuffers(t *testing.T) {
	taps := []Sample{{Re: qOne, Im: 0}, {Re: 0, Im: 0}}

	f := NewDirectFIR(taps, 1)
	require.NoError(t, f.PushBuffer(complexBuffer([]Sample{{Re: 11, Im: 0}})))
	require.NoError(t, f.PushBuffer(complexBuffer([]Sample{{Re: 22, Im: 0}, {Re: 33, Im: 0}})))

	out := make([]Sample, 2)
	n := f.Process(out)
	require.Equal(t, 2, n)
	assert.InDelta(t, 11, out[0].Re, 1)
	assert.InDelta(t, 22, out[1].Re, 1)
}
