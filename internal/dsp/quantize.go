package dsp

// QuantizeTapsReal converts a flat array of floating-point filter
// coefficients (as loaded from internal/config's JSON/YAML "lpfTaps") into
// Q.15 fixed point, the form every real-valued filter stage in this
// package operates on.
func QuantizeTapsReal(taps []float64) []int16 {
	out := make([]int16, len(taps))
	for i, t := range taps {
		out[i] = float64ToQ15(t)
	}
	return out
}

// QuantizeTapsComplex converts a flat array of real-valued low-pass taps
// into complex Q.15 Samples with a zero imaginary part — the channelizer
// baseband filter is real, DirectFIR/ComplexPolyphaseFIR just want it
// carried as Sample so derotation can be applied in the same accumulator.
func QuantizeTapsComplex(taps []float64) []Sample {
	out := make([]Sample, len(taps))
	for i, t := range taps {
		out[i] = Sample{Re: float64ToQ15(t)}
	}
	return out
}
