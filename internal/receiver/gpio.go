package receiver

import (
	"github.com/warthog618/go-gpiocdev"

	"github.com/kf7qqd/waveband/internal/logx"
)

// SquelchIndicator drives a single GPIO line high while a channel's
// squelch is open, low otherwise: it requests one gpiocdev output line and
// toggles it in step with squelch state, since this receiver has no
// transmit side to key.
type SquelchIndicator struct {
	line  *gpiocdev.Line
	label string
	log   *logx.Logger
}

// OpenSquelchIndicator requests offset on chip as an output line, initially
// low.
func OpenSquelchIndicator(chip string, offset int, label string, log *logx.Logger) (*SquelchIndicator, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, err
	}
	return &SquelchIndicator{line: line, label: label, log: log}, nil
}

// Set drives the line to reflect open.
func (s *SquelchIndicator) Set(open bool) {
	v := 0
	if open {
		v = 1
	}
	if err := s.line.SetValue(v); err != nil && s.log != nil {
		s.log.Warn("GPIO", "channel %s: failed to set squelch indicator: %v", s.label, err)
	}
}

// Close releases the underlying line.
func (s *SquelchIndicator) Close() error {
	return s.line.Close()
}
