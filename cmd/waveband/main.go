// Command waveband is the module's receiver entrypoint: load a config
// document, open an SDR front end or a replay file, build the acquisition
// + channel worker pipeline, and run it until SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kf7qqd/waveband/internal/config"
	"github.com/kf7qqd/waveband/internal/logx"
	"github.com/kf7qqd/waveband/internal/metrics"
	"github.com/kf7qqd/waveband/internal/receiver"
	"github.com/kf7qqd/waveband/internal/sbuf"
	"github.com/kf7qqd/waveband/internal/sink"
	"github.com/kf7qqd/waveband/internal/source"
	"github.com/kf7qqd/waveband/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configFile     = pflag.StringP("config-file", "c", "waveband.yaml", "Configuration file name.")
		sinkFile       = pflag.StringP("sink-file", "o", "-", "File to write decoded-message JSON lines to. \"-\" is stdout.")
		acqCPU         = pflag.IntP("acquisition-cpu", "A", -1, "Pin the acquisition thread to this CPU core. -1 disables pinning.")
		chanCPUBase    = pflag.IntP("channel-cpu-base", "C", -1, "Pin channel worker i to core (base+i). -1 disables pinning.")
		gpioChip       = pflag.StringP("gpio-chip", "g", "", "gpiochip device for per-channel squelch indicator lines. Empty disables GPIO.")
		gpioBase       = pflag.IntP("gpio-base-offset", "G", 0, "First GPIO line offset; channel i uses base+i.")
		samplesPerBuf  = pflag.IntP("samples-per-buf", "n", 16384, "Complex samples read per acquisition iteration.")
		portaudioIndex = pflag.IntP("portaudio-device", "p", -1, "Open this PortAudio device index as the sample source instead of iqDumpFile/sdrTestMode. -1 disables.")
		watchHotplug   = pflag.BoolP("watch-hotplug", "u", false, "Log USB device arrival/removal via udev (informational only).")
		metricsAddr    = pflag.StringP("metrics-addr", "m", "", "Serve Prometheus metrics (and, if enabled, the status websocket) on this address, e.g. :9090. Empty disables the HTTP server.")
		statusFeed     = pflag.BoolP("status-feed", "s", false, "Serve a read-only /ws/status websocket alongside metrics. Requires --metrics-addr.")
		dnssdName      = pflag.StringP("dnssd-name", "d", "", "Advertise the status feed via mDNS under this name. Empty disables advertisement.")
		help           = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "waveband - multi-channel SDR demodulation and pager/AIS decoding daemon.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: waveband [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return 1
	}

	log := logx.New("MAIN")

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("CONFIG", "%v", err)
		return 1
	}

	sinkOut, closeSink, err := openSinkTarget(*sinkFile)
	if err != nil {
		log.Error("SINK", "%v", err)
		return 1
	}
	defer closeSink()

	msgSink, err := sink.New(sinkOut)
	if err != nil {
		log.Error("SINK", "%v", err)
		return 1
	}

	src, srcFormat, err := openSource(cfg, *portaudioIndex, *samplesPerBuf, log)
	if err != nil {
		log.Error("SOURCE", "%v", err)
		return 1
	}
	defer src.Close()

	if *watchHotplug {
		cancel, err := source.WatchHotplug(context.Background(), logx.New("HOTPLUG"))
		if err != nil {
			log.Warn("HOTPLUG", "could not start udev watch: %v", err)
		} else {
			defer cancel()
		}
	}

	reg := metrics.New()

	rcv, err := receiver.BuildFromConfig(cfg, receiver.BuildOptions{
		Source:           src,
		SourceFormat:     srcFormat,
		Metrics:          reg,
		Log:              log,
		Sink:             msgSink,
		SamplesPerAcqBuf: *samplesPerBuf,
		AcquisitionCPU:   *acqCPU,
		ChannelCPUBase:   *chanCPUBase,
		GPIOChip:         *gpioChip,
		GPIOBaseOffset:   *gpioBase,
	})
	if err != nil {
		log.Error("BUILD", "%v", err)
		return 1
	}

	if *metricsAddr != "" {
		srv := startTelemetryServer(*metricsAddr, reg, *statusFeed, log)
		defer srv.Close()
	}

	if *dnssdName != "" {
		if *metricsAddr == "" {
			log.Warn("DNSSD", "--dnssd-name given without --metrics-addr, advertising a port of 0")
		}
		if err := telemetry.Advertise(context.Background(), *dnssdName, httpPort(*metricsAddr), log); err != nil {
			log.Warn("DNSSD", "mDNS advertisement failed: %v", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("SIGNAL", "received %v, requesting shutdown", sig)
		rcv.RequestShutdown()
	}()

	if err := rcv.Run(); err != nil {
		log.Error("RECV", "acquisition loop exited: %v", err)
		return 1
	}

	log.Info("MAIN", "clean shutdown")
	return 0
}

// openSinkTarget opens path for append-only writing, treating "-" as
// stdout (not closed on exit).
func openSinkTarget(path string) (out *os.File, closeFn func(), err error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening sink file %q: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

// openSource picks the sample source: a PortAudio device when requested
// explicitly on the command line, otherwise iqDumpFile/sdrTestMode replay
// from the config file.
func openSource(cfg *config.Config, portaudioIndex, samplesPerBuf int, log *logx.Logger) (source.Source, sbuf.Format, error) {
	if portaudioIndex >= 0 {
		s, err := source.OpenPortAudio(portaudioIndex, float64(cfg.SampleRateHz), samplesPerBuf)
		if err != nil {
			return nil, 0, err
		}
		return s, toBufFormat(s.Format()), nil
	}

	path := cfg.IQDumpFile
	if cfg.SDRTestMode && path == "" {
		return nil, 0, fmt.Errorf("sdrTestMode is set but iqDumpFile is empty")
	}
	if path == "" {
		return nil, 0, fmt.Errorf("no sample source: pass --portaudio-device or set iqDumpFile/sdrTestMode in the config")
	}

	log.Info("SOURCE", "replaying raw samples from %s", path)
	s, err := source.OpenFile(path, source.FormatCS16)
	if err != nil {
		return nil, 0, err
	}
	return s, toBufFormat(s.Format()), nil
}

// toBufFormat maps internal/source's wire-format enum onto
// internal/sbuf's, which BuildOptions expects — the two packages keep
// separate enums so internal/source has no dependency on buffer
// allocation (see source.Format's doc comment).
func toBufFormat(f source.Format) sbuf.Format {
	switch f {
	case source.FormatS16:
		return sbuf.S16
	case source.FormatCS8:
		return sbuf.CS8
	default:
		return sbuf.CS16
	}
}

// startTelemetryServer serves /metrics (always, once enabled) and
// optionally /ws/status on a single diagnostic listener.
func startTelemetryServer(addr string, reg *metrics.Registry, statusFeed bool, log *logx.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())

	if statusFeed {
		src := telemetry.NewStaticStatusSource()
		mux.Handle("/ws/status", telemetry.NewHandler(src, time.Second, log))
	}

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("TELEMETRY", "http server on %s stopped: %v", addr, err)
		}
	}()
	log.Info("TELEMETRY", "serving metrics on http://%s/metrics", addr)
	return srv
}

// httpPort extracts the numeric port from a "host:port" listen address for
// mDNS advertisement; 0 if addr is empty or malformed.
func httpPort(addr string) int {
	if addr == "" {
		return 0
	}
	i := len(addr) - 1
	for i >= 0 && addr[i] != ':' {
		i--
	}
	if i < 0 {
		return 0
	}
	port := 0
	for _, c := range addr[i+1:] {
		if c < '0' || c > '9' {
			return 0
		}
		port = port*10 + int(c-'0')
	}
	return port
}
