package receiver

import (
	"sync/atomic"
	"time"

	"github.com/kf7qqd/waveband/internal/dsp"
	"github.com/kf7qqd/waveband/internal/logx"
	"github.com/kf7qqd/waveband/internal/metrics"
	"github.com/kf7qqd/waveband/internal/sbuf"
	"github.com/kf7qqd/waveband/internal/source"
)

// acquisitionIdle is how long the pump sleeps after a read that produced
// nothing, to avoid busy-spinning a dead source.
const acquisitionIdle = time.Millisecond

// Pump reads raw samples from a single source.Source, wraps each block in
// an internal/sbuf.Allocator frame, and fans it out (refcount pre-set to
// the sink count) to every registered sbuf.SPSCQueue. It carries no
// DSP-specific knowledge whatsoever — just the allocate/publish/fan-out
// pattern, reusable by any framer without a protocol decoder of its own.
// Receiver embeds one Pump for its wideband acquisition loop; any other
// single-source/multi-sink plumbing in this module can reuse the type
// directly instead of duplicating it.
type Pump struct {
	src    source.Source
	alloc  *sbuf.Allocator
	format sbuf.Format
	sinks  []*sbuf.SPSCQueue

	metrics *metrics.Registry
	log     *logx.Logger

	cpuAffinity int
	label       string

	state  atomic.Int32
	rawBuf []byte
}

// PumpConfig bundles a Pump's construction parameters.
type PumpConfig struct {
	Source        source.Source
	Allocator     *sbuf.Allocator
	Format        sbuf.Format
	SamplesPerBuf int
	Sinks         []*sbuf.SPSCQueue
	Metrics       *metrics.Registry
	Log           *logx.Logger
	CPUAffinity   int
	Label         string
}

// bytesPerSample reports the raw wire width of one sample in format.
func bytesPerSample(format sbuf.Format) int {
	if format == sbuf.CS8 || format == sbuf.S16 {
		return 2
	}
	return 4
}

// NewPump builds a Pump ready to Run.
func NewPump(cfg PumpConfig) *Pump {
	label := cfg.Label
	if label == "" {
		label = "acquisition"
	}
	p := &Pump{
		src:         cfg.Source,
		alloc:       cfg.Allocator,
		format:      cfg.Format,
		sinks:       cfg.Sinks,
		metrics:     cfg.Metrics,
		log:         cfg.Log,
		cpuAffinity: cfg.CPUAffinity,
		label:       label,
		rawBuf:      make([]byte, cfg.SamplesPerBuf*bytesPerSample(cfg.Format)),
	}
	p.state.Store(int32(StateStarting))
	return p
}

// State reports the pump's cooperative shutdown state.
func (p *Pump) State() State {
	return State(p.state.Load())
}

// RequestShutdown asks the pump to stop at the top of its next read.
func (p *Pump) RequestShutdown() {
	p.state.CompareAndSwap(int32(StateRunning), int32(StateShutdownRequested))
	p.state.CompareAndSwap(int32(StateStarting), int32(StateShutdownRequested))
}

// Run pins the calling OS thread (if cpuAffinity >= 0) and pumps raw reads
// to every sink until shutdown is requested or the source returns a
// permanent error. Intended to be the entire body of a dedicated
// goroutine; returns the terminal error, if any (nil on a clean shutdown
// request).
func (p *Pump) Run() error {
	pinCurrentThread(p.cpuAffinity, p.label, p.log)

	p.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
	defer p.state.Store(int32(StateShutdown))

	for p.State() == StateRunning {
		n, err := p.src.Read(p.rawBuf)
		if err != nil {
			if p.log != nil {
				p.log.Error("ACQ", "source read failed: %v", err)
			}
			p.RequestShutdown()
			return err
		}
		if n == 0 {
			time.Sleep(acquisitionIdle)
			continue
		}
		p.deliver(p.rawBuf[:n])
	}
	return nil
}

// deliver converts one raw read into a sample-format buffer and fans it
// out to every sink: allocate one frame, publish it with refcount ==
// number of sinks, then TryPush to every queue. A nil allocation (pool
// exhausted) or a full queue both count as a dropped frame — the pump
// never blocks on a slow sink.
func (p *Pump) deliver(raw []byte) {
	buf := p.alloc.Alloc(p.format)
	if buf == nil {
		if p.metrics != nil {
			p.metrics.FramesDropped.Inc()
		}
		return
	}

	numSamp := p.fillSamples(buf, raw)
	buf.NumSamp = numSamp
	buf.Publish(int32(len(p.sinks)))

	for _, q := range p.sinks {
		if !q.TryPush(buf) {
			buf.Release()
			if p.metrics != nil {
				p.metrics.FramesDropped.Inc()
			}
		}
	}
}

// fillSamples upconverts raw into buf's Q.15 sample slice and returns the
// sample count, handling CS8's u8-offset-binary wire encoding the way
// internal/source.UpconvertCS8ToCS16 does; CS16/S16 sources already arrive
// as native little-endian int16.
func (p *Pump) fillSamples(buf *sbuf.Buffer, raw []byte) int {
	switch p.format {
	case sbuf.CS8:
		n := len(raw) / 2
		complexSamples := make([]dsp.Sample, n)
		source.UpconvertCS8ToCS16(raw, complexSamples)
		out := buf.Samples[:0]
		for _, s := range complexSamples {
			out = append(out, s.Re, s.Im)
		}
		buf.Samples = out
		return n
	case sbuf.S16:
		n := len(raw) / 2
		out := buf.Samples[:0]
		for i := 0; i < n; i++ {
			out = append(out, int16(raw[2*i])|int16(raw[2*i+1])<<8)
		}
		buf.Samples = out
		return n
	default: // CS16
		n := len(raw) / 4
		out := buf.Samples[:0]
		for i := 0; i < n*2; i++ {
			out = append(out, int16(raw[2*i])|int16(raw[2*i+1])<<8)
		}
		buf.Samples = out
		return n
	}
}
