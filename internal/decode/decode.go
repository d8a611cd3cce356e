// Package decode wires the protocol decoder callbacks (internal/flex,
// internal/pocsag, internal/ais) to internal/sink's JSON line writer — the
// "[protocol decoder] -> [sink]" link after squelch. Each protocol decoder
// is a capability object receiving callbacks; this package is that
// capability object, one small adapter per protocol rather than a generic
// callback-dispatch layer.
package decode

import (
	"github.com/kf7qqd/waveband/internal/ais"
	"github.com/kf7qqd/waveband/internal/flex"
	"github.com/kf7qqd/waveband/internal/pocsag"
	"github.com/kf7qqd/waveband/internal/sink"
)

// Sample is the one-int16-at-a-time interface every protocol decoder and
// the AIS framer implement; internal/receiver's ChannelWorker holds one
// of these per channel when a protocol decoder is configured.
type Sample interface {
	ProcessSample(sample int16)
}

// FlexSink adapts flex.Callbacks to internal/sink.
type FlexSink struct {
	W *sink.Writer
}

func (f FlexSink) OnAlphanumeric(m flex.AlphanumericMessage) {
	_ = f.W.WriteFlex(sink.FlexEvent{
		Type:     "alphanumeric",
		Baud:     m.Baud,
		CycleNo:  m.CycleNo,
		FrameNo:  m.FrameNo,
		PhaseNo:  m.Phase,
		CapCode:  m.CapCode,
		Fragment: m.Fragment,
		Maildrop: m.Maildrop,
		FragSeq:  m.SeqNum,
		FreqHz:   m.FreqHz,
		Message:  m.Message,
	})
}

func (f FlexSink) OnNumeric(m flex.NumericMessage) {
	_ = f.W.WriteFlex(sink.FlexEvent{
		Type:    "numeric",
		Baud:    m.Baud,
		CycleNo: m.CycleNo,
		FrameNo: m.FrameNo,
		PhaseNo: m.Phase,
		CapCode: m.CapCode,
		FreqHz:  m.FreqHz,
		Message: m.Digits,
	})
}

func (f FlexSink) OnSIV(m flex.SIVMessage) {
	_ = f.W.WriteFlex(sink.FlexEvent{
		Type:    "tempAddrActivation",
		Baud:    m.Baud,
		CycleNo: m.CycleNo,
		FrameNo: m.FrameNo,
		PhaseNo: m.Phase,
		CapCode: m.CapCode,
		FreqHz:  m.FreqHz,
		Message: pocsagSIVText(m),
	})
}

func pocsagSIVText(m flex.SIVMessage) string {
	switch m.Subtype {
	case 0:
		return "temp-addr-activation"
	case 1:
		return "system-event"
	default:
		return "reserved-test"
	}
}

// NewFlexDecoder builds a FLEX decoder writing every decoded message to w.
func NewFlexDecoder(w *sink.Writer, freqHz uint32) *flex.Decoder {
	return flex.NewDecoder(FlexSink{W: w}, freqHz)
}

// PocsagSink adapts pocsag.Callbacks to internal/sink.
type PocsagSink struct {
	W      *sink.Writer
	FreqHz uint32
}

func (p PocsagSink) OnAlpha(m pocsag.AlphaMessage) {
	_ = p.W.WritePocsag(sink.PocsagEvent{CapCode: m.CapCode, Function: m.Function, Message: m.Message, FreqHz: m.FreqHz})
}

func (p PocsagSink) OnNumeric(m pocsag.NumericMessage) {
	_ = p.W.WritePocsag(sink.PocsagEvent{CapCode: m.CapCode, Function: m.Function, Message: m.Digits, FreqHz: m.FreqHz})
}

// NewPocsagDecoder builds a POCSAG decoder writing every decoded message
// to w.
func NewPocsagDecoder(w *sink.Writer, freqHz uint32) *pocsag.Decoder {
	return pocsag.NewDecoder(PocsagSink{W: w, FreqHz: freqHz}, freqHz)
}

// AISSink adapts ais.Callbacks to internal/sink, decoding the common
// navigation block (message types 1-3) when present and armoring the raw
// payload into six-bit ASCII for every message type.
type AISSink struct {
	W *sink.Writer
}

func (a AISSink) OnPacket(p ais.Packet) {
	event := sink.AISEvent{RawAscii: p.Armored(168)}

	switch p.MessageType() {
	case 1, 2, 3:
		pr := ais.DecodePositionReport(&p)
		event.MMSI = pr.MMSI
		event.NavStatus = pr.NavStatus
		if pr.RateOfTurnValid {
			event.RateOfTurn = pr.RateOfTurn
		}
		if pr.SOGValid {
			event.SpeedOverGround = pr.SpeedOverGround
		}
		if pr.PositionValid {
			event.LatDeg = pr.Position.Lat.Degrees()
			event.LonDeg = pr.Position.Lng.Degrees()
		}
		if pr.COGValid {
			event.Course = pr.CourseOverGround
		}
		if pr.HeadingValid {
			event.Heading = pr.TrueHeading
		}
	default:
		event.MMSI = ais.GetField(p.Payload[:], 8, 30)
	}

	_ = a.W.WriteAIS(event)
}

// NewAISDecoder builds an AIS HDLC framer writing every completed packet
// to w.
func NewAISDecoder(w *sink.Writer) *ais.Decoder {
	return ais.NewDecoder(AISSink{W: w})
}
