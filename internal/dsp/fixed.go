// Package dsp implements the fixed-point signal-processing stages shared by
// every channel: the direct-form complex FIR channelizer, the polyphase
// rational resampler, the DC blocker, and the FM/Costas demodulators. The
// hot paths are pure Q.15/Q.30 integer arithmetic; math.Sin/Cos is used
// only at construction time to generate filter and derotation
// coefficients, never per-sample.
package dsp

import "math"

// Sample is one complex Q.15 sample: Re and Im each represent a value in
// [-1, 1) scaled by 1<<15.
type Sample struct {
	Re, Im int16
}

// qOne is the Q.15 representation of 1.0. Int16 tops out at 32767, one LSB
// short of true unity, which is the usual Q.15 convention.
const qOne = int16(32767)

// mulQ15 multiplies two Q.15 values, producing a Q.30 result in a 32-bit
// accumulator.
func mulQ15(a, b int16) int32 {
	return int32(a) * int32(b)
}

// roundQ30ToQ15 rounds a Q.30 accumulator value back to Q.15 using
// round-half-up, then saturates to int16.
func roundQ30ToQ15(x int32) int16 {
	return saturateInt16((x + (1 << 14)) >> 15)
}

func saturateInt16(x int32) int16 {
	switch {
	case x > math.MaxInt16:
		return math.MaxInt16
	case x < math.MinInt16:
		return math.MinInt16
	default:
		return int16(x)
	}
}

// mulComplexQ15 multiplies two complex Q.15 samples and rounds the Q.30
// product back down to Q.15.
func mulComplexQ15(a, b Sample) Sample {
	re := mulQ15(a.Re, b.Re) - mulQ15(a.Im, b.Im)
	im := mulQ15(a.Re, b.Im) + mulQ15(a.Im, b.Re)
	return Sample{Re: roundQ30ToQ15(re), Im: roundQ30ToQ15(im)}
}

// float64ToQ15 converts a float in [-1, 1] to a saturated Q.15 value. Used
// only at construction time, for coefficient and derotation-phase
// generation.
func float64ToQ15(x float64) int16 {
	return saturateInt16(int32(math.Round(x * float64(1<<15))))
}

// derotationIncrement computes the per-output-sample Q.15 phase increment
// for a local-oscillator shift of shiftHz at sampleRateHz, advanced by
// step samples per output: phase_incr = exp(-j*2π*shift_hz/sample_rate_hz
// * decimation).
func derotationIncrement(shiftHz, sampleRateHz float64, step int) Sample {
	theta := -2 * math.Pi * shiftHz / sampleRateHz * float64(step)
	return Sample{Re: float64ToQ15(math.Cos(theta)), Im: float64ToQ15(math.Sin(theta))}
}
