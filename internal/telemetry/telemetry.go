// Package telemetry optionally serves a read-only websocket feed of
// per-channel status (squelch state, dropped-sample counters, last decode
// timestamp) and optionally advertises it over mDNS. Neither is part of
// spec.md's sink contract (§6); both are off by default and exist purely
// for a live dashboard, grounded on madpsy-ka9q_ubersdr's
// user_spectrum_websocket.go (gorilla/websocket upgrade + periodic push
// loop) and its mDNS-equivalent service advertisement pattern.
package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kf7qqd/waveband/internal/logx"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ChannelStatus is one channel's live status, serialized as the
// websocket feed's JSON payload.
type ChannelStatus struct {
	Label          string    `json:"label"`
	SquelchOpen    bool      `json:"squelchOpen"`
	DroppedSamples uint64    `json:"droppedSamples"`
	LastDecodeAt   time.Time `json:"lastDecodeAt,omitzero"`
}

// StatusSource is polled once per push interval to build the current
// snapshot. cmd/waveband wires an empty StaticStatusSource; there is no
// adapter over internal/receiver.Receiver.
type StatusSource interface {
	ChannelStatuses() []ChannelStatus
}

// Handler serves GET /ws/status, upgrading to a websocket and pushing a
// fresh snapshot from src every interval until the client disconnects.
type Handler struct {
	src      StatusSource
	interval time.Duration
	log      *logx.Logger
}

// NewHandler builds a status Handler pushing src's snapshot every
// interval.
func NewHandler(src StatusSource, interval time.Duration, log *logx.Logger) *Handler {
	return &Handler{src: src, interval: interval, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.log != nil {
			h.log.Warn("TELEMETRY", "websocket upgrade failed: %v", err)
		}
		return
	}
	defer conn.Close()

	// Drain and discard client messages so the read side doesn't pile up;
	// this feed is push-only, but gorilla/websocket needs a reader running
	// to notice the peer closing the connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(h.src.ChannelStatuses()); err != nil {
				return
			}
		}
	}
}

// StaticStatusSource is a StatusSource backed by a caller-maintained map,
// useful for wiring a Receiver whose per-worker state is read elsewhere.
type StaticStatusSource struct {
	mu       sync.RWMutex
	statuses map[string]ChannelStatus
}

// NewStaticStatusSource builds an empty StaticStatusSource.
func NewStaticStatusSource() *StaticStatusSource {
	return &StaticStatusSource{statuses: make(map[string]ChannelStatus)}
}

// Set replaces one channel's status.
func (s *StaticStatusSource) Set(status ChannelStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[status.Label] = status
}

// ChannelStatuses returns every tracked channel's status in map iteration
// order, which is not stable — callers needing stable ordering should sort
// the result.
func (s *StaticStatusSource) ChannelStatuses() []ChannelStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChannelStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, st)
	}
	return out
}
