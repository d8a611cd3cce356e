// Package receiver wires one acquisition goroutine and N channel-worker
// goroutines together: the acquisition side pulls raw samples from an
// internal/source.Source, allocates a buffer from an internal/sbuf.Allocator,
// publishes it with refcount = number of channels, and fans it out over one
// internal/sbuf.SPSCQueue per channel; each channel worker runs its own
// DirectFIR -> (optional resampler) -> FMDemod -> (optional DC blocker)
// chain and writes PCM to an output sink.
package receiver

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/kf7qqd/waveband/internal/dsp"
	"github.com/kf7qqd/waveband/internal/logx"
	"github.com/kf7qqd/waveband/internal/metrics"
	"github.com/kf7qqd/waveband/internal/sbuf"
)

// State is a channel worker's cooperative shutdown state: a per-worker
// atomic state word with values {Starting, Running, ShutdownRequested,
// Shutdown}.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateShutdownRequested
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateShutdownRequested:
		return "shutdown-requested"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Sample is the one-int16-at-a-time interface every protocol decoder
// (internal/flex.Decoder, internal/pocsag.Decoder, internal/ais.Decoder)
// implements. A worker with a non-nil decoder feeds it every demodulated
// PCM sample in addition to writing to the output FIFO; the decoder runs
// after squelch, distinct from the FIFO/JSON sink itself.
type Sample interface {
	ProcessSample(sample int16)
}

// idlePollInterval bounds how long a worker sleeps between empty polls of
// its input queue.
const idlePollInterval = 2 * time.Millisecond

// ChannelWorker demodulates one channel's share of the wideband stream.
type ChannelWorker struct {
	Label string // for logging and metric labels

	queue *sbuf.SPSCQueue
	fir   *dsp.DirectFIR

	resampler *dsp.ComplexPolyphaseFIR
	fm        *dsp.FMDemod
	squelch   *dsp.Squelch
	costas    *dsp.CostasDemod
	dcBlock   *dsp.DCBlocker

	sink      io.Writer
	debugSink io.Writer
	decoder   Sample

	metrics   *metrics.Registry
	log       *logx.Logger
	indicator *SquelchIndicator

	cpuAffinity int // < 0 disables pinning

	state           atomic.Int32
	droppedSamples  atomic.Uint64
	fifoBroken      bool
}

// ChannelWorkerConfig bundles a worker's constructed pipeline stages and
// destination. Built from internal/config by BuildFromConfig.
type ChannelWorkerConfig struct {
	Label       string
	Queue       *sbuf.SPSCQueue
	FIR         *dsp.DirectFIR
	Resampler   *dsp.ComplexPolyphaseFIR
	FM          *dsp.FMDemod
	Squelch     *dsp.Squelch
	Costas      *dsp.CostasDemod
	DCBlock     *dsp.DCBlocker
	Sink        io.Writer
	DebugSink   io.Writer
	Decoder     Sample
	Metrics     *metrics.Registry
	Log         *logx.Logger
	Indicator   *SquelchIndicator
	CPUAffinity int
}

// NewChannelWorker builds a worker from its pre-constructed stages.
func NewChannelWorker(cfg ChannelWorkerConfig) *ChannelWorker {
	w := &ChannelWorker{
		Label:       cfg.Label,
		queue:       cfg.Queue,
		fir:         cfg.FIR,
		resampler:   cfg.Resampler,
		fm:          cfg.FM,
		squelch:     cfg.Squelch,
		costas:      cfg.Costas,
		dcBlock:     cfg.DCBlock,
		sink:        cfg.Sink,
		debugSink:   cfg.DebugSink,
		decoder:     cfg.Decoder,
		metrics:     cfg.Metrics,
		log:         cfg.Log,
		indicator:   cfg.Indicator,
		cpuAffinity: cfg.CPUAffinity,
	}
	w.state.Store(int32(StateStarting))
	return w
}

// State reports the worker's current cooperative shutdown state.
func (w *ChannelWorker) State() State {
	return State(w.state.Load())
}

// RequestShutdown asks the worker to stop at the top of its next loop
// iteration. Safe to call from any goroutine.
func (w *ChannelWorker) RequestShutdown() {
	w.state.CompareAndSwap(int32(StateRunning), int32(StateShutdownRequested))
	w.state.CompareAndSwap(int32(StateStarting), int32(StateShutdownRequested))
}

// DroppedSamples reports the running count of PCM samples dropped because
// the output sink's reader was gone (EPIPE).
func (w *ChannelWorker) DroppedSamples() uint64 {
	return w.droppedSamples.Load()
}

// Run pins the calling OS thread (if cpuAffinity >= 0) and processes
// buffers from the input queue until shutdown is requested. Intended to be
// the entire body of a dedicated goroutine.
func (w *ChannelWorker) Run() {
	pinCurrentThread(w.cpuAffinity, w.Label, w.log)

	w.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
	for w.State() == StateRunning {
		buf, ok := w.queue.TryPop()
		if !ok {
			time.Sleep(idlePollInterval)
			continue
		}
		w.process(buf)
	}
	if w.indicator != nil {
		_ = w.indicator.Close()
	}
	w.state.Store(int32(StateShutdown))
}

// process runs one acquired buffer through the full channel pipeline:
// channelize/decimate, optionally resample, FM-demodulate, optionally
// DC-block, then write PCM to the output sink.
func (w *ChannelWorker) process(buf *sbuf.Buffer) {
	if err := w.fir.PushBuffer(buf); err != nil {
		buf.Release()
		if w.metrics != nil {
			w.metrics.SamplesDropped.WithLabelValues(w.Label).Inc()
		}
		return
	}

	for {
		can, est := w.fir.CanProcess()
		if !can {
			break
		}
		filtered := make([]dsp.Sample, est)
		n := w.fir.Process(filtered)
		filtered = filtered[:n]
		if n == 0 {
			break
		}

		if w.costas != nil {
			w.costas.Process(filtered, filtered)
		}

		if w.debugSink != nil {
			writeDebugIQ(w.debugSink, filtered)
		}

		complexOut := filtered
		if w.resampler != nil {
			complexOut = w.runResampler(filtered)
			if len(complexOut) == 0 {
				continue
			}
		}

		pcm := make([]int16, len(complexOut))
		squelchOpen := true
		if w.fm != nil {
			w.fm.Process(complexOut, pcm)
			squelchOpen = true
			if w.squelch != nil {
				squelchOpen = w.squelch.Open(complexOut)
			}
		}
		if w.dcBlock != nil {
			w.dcBlock.Process(pcm)
		}

		if w.metrics != nil {
			v := 0.0
			if squelchOpen {
				v = 1.0
			}
			w.metrics.SquelchOpen.WithLabelValues(w.Label).Set(v)
		}
		if w.indicator != nil {
			w.indicator.Set(squelchOpen)
		}
		if w.decoder != nil {
			for _, s := range pcm {
				w.decoder.ProcessSample(s)
			}
		}

		w.writeOutput(pcm)
	}
}

// runResampler pushes filtered into the optional rational resampler and
// drains as much output as is currently available.
func (w *ChannelWorker) runResampler(filtered []dsp.Sample) []dsp.Sample {
	buf := complexSamplesToBuffer(filtered)
	if err := w.resampler.PushBuffer(buf); err != nil {
		buf.Release()
		return nil
	}
	out := make([]dsp.Sample, len(filtered)+1)
	n := w.resampler.Process(out)
	return out[:n]
}

// writeOutput writes pcm to the output sink, tolerating EPIPE: drop
// samples and count them while the reader is gone, log once on both the
// initial drop and the eventual reconnect.
func (w *ChannelWorker) writeOutput(pcm []int16) {
	if w.sink == nil || len(pcm) == 0 {
		return
	}
	raw := int16sToBytes(pcm)
	_, err := w.sink.Write(raw)
	if err == nil {
		if w.fifoBroken {
			w.fifoBroken = false
			if w.metrics != nil {
				w.metrics.EPIPEReconnects.WithLabelValues(w.Label).Inc()
			}
			if w.log != nil {
				w.log.Warn("FIFO-RESUMED", "channel %s: remote reader reconnected, dropped %d samples while disconnected",
					w.Label, w.droppedSamples.Load())
			}
		}
		return
	}

	if !w.fifoBroken {
		w.fifoBroken = true
		if w.log != nil {
			w.log.Warn("FIFO-REMOTE-END-DISCONNECTED", "channel %s: reader disconnected (%v), dropping samples until it returns",
				w.Label, err)
		}
	}
	w.droppedSamples.Add(uint64(len(pcm)))
	if w.metrics != nil {
		w.metrics.SamplesDropped.WithLabelValues(w.Label).Add(float64(len(pcm)))
	}
}

func int16sToBytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, v := range in {
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

func complexSamplesToBuffer(s []dsp.Sample) *sbuf.Buffer {
	raw := make([]int16, len(s)*2)
	for i, v := range s {
		raw[2*i] = v.Re
		raw[2*i+1] = v.Im
	}
	b := sbuf.NewBuffer(sbuf.CS16, len(s), raw, nil)
	b.Publish(1)
	return b
}

func writeDebugIQ(w io.Writer, samples []dsp.Sample) {
	raw := make([]int16, 0, len(samples)*2)
	for _, s := range samples {
		raw = append(raw, s.Re, s.Im)
	}
	_, _ = w.Write(int16sToBytes(raw))
}
