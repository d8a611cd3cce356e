package telemetry

import (
	"context"

	"github.com/brutella/dnssd"

	"github.com/kf7qqd/waveband/internal/logx"
)

// ServiceType is the mDNS/DNS-SD service type this package advertises for
// the websocket status feed.
const ServiceType = "_waveband._tcp"

// Advertise announces name on port over mDNS so a dashboard can discover
// the status websocket without a hardcoded address: build a dnssd.Config,
// wrap it in a dnssd.NewService/dnssd.NewResponder pair, add it, and run
// the responder loop in a goroutine.
func Advertise(ctx context.Context, name string, port int, log *logx.Logger) error {
	cfg := dnssd.Config{
		Name: name,
		Type: ServiceType,
		Port: port,
	}

	sv, err := dnssd.NewService(cfg)
	if err != nil {
		return err
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return err
	}

	if _, err := rp.Add(sv); err != nil {
		return err
	}

	if log != nil {
		log.Info("TELEMETRY", "advertising %s on port %d as %q", ServiceType, port, name)
	}

	go func() {
		if err := rp.Respond(ctx); err != nil && log != nil {
			log.Warn("TELEMETRY", "dnssd responder stopped: %v", err)
		}
	}()

	return nil
}
