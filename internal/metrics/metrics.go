// Package metrics exposes the counters this receiver's concurrency model
// needs observability into (frame-allocator drops, per-worker dropped
// samples, EPIPE reconnects, squelch state, BCH correction outcomes) via
// prometheus/client_golang, one counter/gauge family per concern with a
// per-channel label, mirroring how a per-mode decoder metrics registry
// instruments its own decoders.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every counter/gauge this module reports, registered
// against a private prometheus.Registry so tests can build independent
// instances without colliding on the default global registry.
type Registry struct {
	reg *prometheus.Registry

	FramesDropped    prometheus.Counter
	SamplesDropped   *prometheus.CounterVec
	EPIPEReconnects  *prometheus.CounterVec
	SquelchOpen      *prometheus.GaugeVec
	BCHCorrected     *prometheus.CounterVec
	BCHUncorrectable *prometheus.CounterVec
}

// New builds and registers every metric.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "waveband",
			Subsystem: "acquisition",
			Name:      "frames_dropped_total",
			Help:      "Raw buffers dropped because the frame allocator was empty.",
		}),
		SamplesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waveband",
			Subsystem: "worker",
			Name:      "samples_dropped_total",
			Help:      "Demodulated samples dropped per channel (EPIPE on the output FIFO).",
		}, []string{"channel"}),
		EPIPEReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waveband",
			Subsystem: "worker",
			Name:      "epipe_reconnects_total",
			Help:      "Output FIFO reader reconnects observed per channel.",
		}, []string{"channel"}),
		SquelchOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "waveband",
			Subsystem: "worker",
			Name:      "squelch_open",
			Help:      "1 when a channel's squelch is currently open, 0 otherwise.",
		}, []string{"channel"}),
		BCHCorrected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waveband",
			Subsystem: "decoder",
			Name:      "bch_corrected_total",
			Help:      "Codewords corrected by the BCH(31,21) decoder, per protocol decoder.",
		}, []string{"decoder"}),
		BCHUncorrectable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waveband",
			Subsystem: "decoder",
			Name:      "bch_uncorrectable_total",
			Help:      "Codewords the BCH(31,21) decoder could not correct, per protocol decoder.",
		}, []string{"decoder"}),
	}

	reg.MustRegister(
		r.FramesDropped,
		r.SamplesDropped,
		r.EPIPEReconnects,
		r.SquelchOpen,
		r.BCHCorrected,
		r.BCHUncorrectable,
	)
	return r
}

// Handler serves the Prometheus text exposition format for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
