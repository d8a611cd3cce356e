package receiver

import (
	"sync"
	"sync/atomic"

	"github.com/kf7qqd/waveband/internal/logx"
	"github.com/kf7qqd/waveband/internal/metrics"
	"github.com/kf7qqd/waveband/internal/sbuf"
	"github.com/kf7qqd/waveband/internal/source"
)

// Receiver owns the wideband sample source, the shared frame allocator,
// and the set of channel workers fed from it: one acquisition thread
// reads raw samples, wraps each block in an allocator frame, and fans it
// out to every channel's work queue. The acquisition loop itself is a
// Pump; Receiver adds the channel workers fed from it and coordinates
// shutdown across both.
type Receiver struct {
	pump    *Pump
	workers []*ChannelWorker

	state atomic.Int32
}

// ReceiverConfig bundles everything needed to run the acquisition loop
// once the per-channel pipelines have already been built (see
// BuildFromConfig).
type ReceiverConfig struct {
	Source        source.Source
	Allocator     *sbuf.Allocator
	Format        sbuf.Format
	SamplesPerBuf int
	Workers       []*ChannelWorker
	Queues        []*sbuf.SPSCQueue
	Metrics       *metrics.Registry
	Log           *logx.Logger
	CPUAffinity   int
}

// NewReceiver builds a Receiver ready to Run.
func NewReceiver(cfg ReceiverConfig) *Receiver {
	pump := NewPump(PumpConfig{
		Source:        cfg.Source,
		Allocator:     cfg.Allocator,
		Format:        cfg.Format,
		SamplesPerBuf: cfg.SamplesPerBuf,
		Sinks:         cfg.Queues,
		Metrics:       cfg.Metrics,
		Log:           cfg.Log,
		CPUAffinity:   cfg.CPUAffinity,
		Label:         "acquisition",
	})

	r := &Receiver{
		pump:    pump,
		workers: cfg.Workers,
	}
	r.state.Store(int32(StateStarting))
	return r
}

// State reports the acquisition loop's cooperative shutdown state.
func (r *Receiver) State() State {
	return State(r.state.Load())
}

// RequestShutdown asks the acquisition pump, and every channel worker, to
// stop at the top of their next iteration. cmd/waveband calls it from its
// SIGINT/SIGTERM handler; each component polls its own state word, not a
// global flag.
func (r *Receiver) RequestShutdown() {
	r.state.CompareAndSwap(int32(StateRunning), int32(StateShutdownRequested))
	r.state.CompareAndSwap(int32(StateStarting), int32(StateShutdownRequested))
	r.pump.RequestShutdown()
	for _, w := range r.workers {
		w.RequestShutdown()
	}
}

// Run starts every channel worker in its own goroutine, then runs the
// acquisition pump on the calling goroutine until shutdown is requested or
// the source returns a permanent error. Returns the terminal error, if
// any (nil on a clean shutdown request).
func (r *Receiver) Run() error {
	var wg sync.WaitGroup
	for _, w := range r.workers {
		wg.Add(1)
		go func(w *ChannelWorker) {
			defer wg.Done()
			w.Run()
		}(w)
	}
	defer wg.Wait()

	r.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
	defer r.state.Store(int32(StateShutdown))

	err := r.pump.Run()
	r.RequestShutdown()
	return err
}
