package receiver

import (
	"fmt"
	"math"
	"os"

	"github.com/kf7qqd/waveband/internal/config"
	"github.com/kf7qqd/waveband/internal/decode"
	"github.com/kf7qqd/waveband/internal/dsp"
	"github.com/kf7qqd/waveband/internal/logx"
	"github.com/kf7qqd/waveband/internal/metrics"
	"github.com/kf7qqd/waveband/internal/sbuf"
	"github.com/kf7qqd/waveband/internal/sink"
	"github.com/kf7qqd/waveband/internal/source"
)

// channelGain converts a channel's configured dB gain into the linear
// factor baked into its FIR taps: pow(10.0, channel_gain_db/10.0), a
// power-gain formula rather than the usual 20*log10 voltage-gain one,
// applied to the complex tap coefficients before Q.15 quantization rather
// than to the demodulated PCM afterward.
func channelGain(dBGain float64) float64 {
	return math.Pow(10.0, dBGain/10.0)
}

// buildChannelTaps gain-scales the wideband low-pass prototype for one
// channel, then quantizes to complex Q.15. Derotation is not baked into
// the taps: DirectFIR applies it as a separate per-sample phase multiply
// after convolution (NewDirectFIRWithShift), so only gain is baked into
// the real-valued taps before quantization.
func buildChannelTaps(lpfTaps []float64, dBGain float64) []dsp.Sample {
	gain := channelGain(dBGain)
	scaled := make([]float64, len(lpfTaps))
	for i, t := range lpfTaps {
		scaled[i] = t * gain
	}
	return dsp.QuantizeTapsComplex(scaled)
}

// BuildOptions carries the pieces BuildFromConfig can't derive from
// config.Config alone: the already-opened sample source, a metrics
// registry, a logger, and CPU affinity/GPIO choices left to the caller
// (cmd/waveband's flags).
type BuildOptions struct {
	Source       source.Source
	SourceFormat sbuf.Format
	Metrics      *metrics.Registry
	Log          *logx.Logger
	Sink         *sink.Writer

	// SamplesPerAcqBuf is how many source samples the acquisition loop
	// reads per iteration before fanning out a frame.
	SamplesPerAcqBuf int

	// AcquisitionCPU and ChannelCPUBase control optional CPU pinning; a
	// negative AcquisitionCPU disables pinning for the acquisition
	// thread, and channel i is pinned to ChannelCPUBase+i when
	// ChannelCPUBase >= 0.
	AcquisitionCPU int
	ChannelCPUBase int

	// GPIOChip optionally requests a squelch indicator line per channel
	// at offset GPIOBaseOffset+i, labelled with the channel index. Empty
	// disables GPIO entirely.
	GPIOChip       string
	GPIOBaseOffset int
}

// BuildFromConfig translates a loaded config.Config plus runtime options
// into a ready-to-Run Receiver, wiring per-channel DirectFIR/resampler/
// FMDemod/DCBlocker stages.
func BuildFromConfig(cfg *config.Config, opts BuildOptions) (*Receiver, error) {
	frameCap := opts.SamplesPerAcqBuf * 2 // worst case: complex samples
	alloc := sbuf.NewAllocator(cfg.NrSampBufs, frameCap)

	queues := make([]*sbuf.SPSCQueue, 0, len(cfg.Channels))
	workers := make([]*ChannelWorker, 0, len(cfg.Channels))

	for i, ch := range cfg.Channels {
		q := sbuf.NewSPSCQueue(cfg.NrSampBufs)
		queues = append(queues, q)

		taps := buildChannelTaps(cfg.LPFTaps, ch.DBGain)
		shiftHz := float64(ch.ChanCenterFreq - cfg.CenterFreqHz)
		fir := dsp.NewDirectFIRWithShift(taps, cfg.DecimationFactor, shiftHz, float64(cfg.SampleRateHz))

		var resampler *dsp.ComplexPolyphaseFIR
		if cfg.RationalResampler.Interpolate > 0 && cfg.RationalResampler.Decimate > 0 {
			rsTaps := dsp.QuantizeTapsComplex(cfg.RationalResampler.LPFCoeffs)
			resampler = dsp.NewComplexPolyphaseFIR(rsTaps, cfg.RationalResampler.Interpolate, cfg.RationalResampler.Decimate)
		}

		fm := dsp.NewFMDemod(ch.CsqThresholdDBFS)
		squelch := &dsp.Squelch{ThresholdDBFS: ch.CsqThresholdDBFS, HangSamples: ch.SquelchHangSamples}

		var costas *dsp.CostasDemod
		if ch.Costas != nil {
			costas = dsp.NewCostasDemod(ch.Costas.Alpha, ch.Costas.Beta, ch.Costas.ErrMax)
		}

		var dcBlock *dsp.DCBlocker
		if cfg.EnableDCBlocker {
			pole := cfg.DCBlockerPole
			if pole == 0 {
				pole = config.DefaultDCBlockerPole
			}
			dcBlock = dsp.NewDCBlocker(dsp.QuantizeTapsReal([]float64{pole})[0])
		}

		fifoSink, err := openFifoSink(ch.OutFifo)
		if err != nil {
			return nil, fmt.Errorf("receiver: channel %d: opening outFifo %q: %w", i, ch.OutFifo, err)
		}

		var debugSink *os.File
		if ch.SignalDebugFile != "" {
			debugSink, err = os.Create(ch.SignalDebugFile)
			if err != nil {
				return nil, fmt.Errorf("receiver: channel %d: opening signalDebugFile %q: %w", i, ch.SignalDebugFile, err)
			}
		}

		var dec Sample
		if opts.Sink != nil {
			switch ch.Decoder {
			case "flex":
				dec = decode.NewFlexDecoder(opts.Sink, uint32(ch.ChanCenterFreq))
			case "pocsag":
				dec = decode.NewPocsagDecoder(opts.Sink, uint32(ch.ChanCenterFreq))
			case "ais":
				dec = decode.NewAISDecoder(opts.Sink)
			}
		}

		var indicator *SquelchIndicator
		if opts.GPIOChip != "" {
			indicator, err = OpenSquelchIndicator(opts.GPIOChip, opts.GPIOBaseOffset+i, fmt.Sprintf("%d", i), opts.Log)
			if err != nil {
				return nil, fmt.Errorf("receiver: channel %d: opening GPIO squelch indicator: %w", i, err)
			}
		}

		cpuAffinity := -1
		if opts.ChannelCPUBase >= 0 {
			cpuAffinity = opts.ChannelCPUBase + i
		}

		label := fmt.Sprintf("%d", i)
		w := NewChannelWorker(ChannelWorkerConfig{
			Label:       label,
			Queue:       q,
			FIR:         fir,
			Resampler:   resampler,
			FM:          fm,
			Squelch:     squelch,
			Costas:      costas,
			DCBlock:     dcBlock,
			Sink:        fifoSink,
			DebugSink:   debugSink,
			Decoder:     dec,
			Metrics:     opts.Metrics,
			Log:         opts.Log,
			Indicator:   indicator,
			CPUAffinity: cpuAffinity,
		})
		workers = append(workers, w)
	}

	return NewReceiver(ReceiverConfig{
		Source:        opts.Source,
		Allocator:     alloc,
		Format:        opts.SourceFormat,
		SamplesPerBuf: opts.SamplesPerAcqBuf,
		Workers:       workers,
		Queues:        queues,
		Metrics:       opts.Metrics,
		Log:           opts.Log,
		CPUAffinity:   opts.AcquisitionCPU,
	}), nil
}
