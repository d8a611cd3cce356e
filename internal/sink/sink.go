// Package sink emits decoded pager and AIS messages as one JSON object per
// line. Timestamps use a compiled lestrrat-go/strftime pattern rather than
// a hand-rolled time.Format layout string.
package sink

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/lestrrat-go/strftime"
	"github.com/tzneal/coordconv"
)

// Writer serializes decoded messages to an underlying io.Writer, one JSON
// object per line. Safe for concurrent use by multiple channel workers.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
	ts *strftime.Strftime
}

// New builds a Writer over w.
func New(w io.Writer) (*Writer, error) {
	ts, err := strftime.New("%Y-%m-%d %H:%M:%S UTC")
	if err != nil {
		return nil, fmt.Errorf("sink: compiling timestamp pattern: %w", err)
	}
	return &Writer{w: w, ts: ts}, nil
}

func (s *Writer) timestamp() string {
	return s.ts.FormatString(time.Now().UTC())
}

func (s *Writer) writeLine(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(line); err != nil {
		return err
	}
	_, err := s.w.Write([]byte{'\n'})
	return err
}

// escapeMessage renders msg as a quoted JSON string literal per spec.md
// §6's rule: standard \n, \", \\, and \uXXXX escapes for everything
// non-printable, except 0x03/0x04/0x17 which collapse to a literal space,
// \b which renders as the literal text "<BKSP>", and \f which renders as
// the literal text "<FF>".
func escapeMessage(msg string) string {
	var b bytes.Buffer
	b.WriteByte('"')
	for _, r := range msg {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case 0x03, 0x04, 0x17:
			b.WriteByte(' ')
		case '\b':
			b.WriteString("<BKSP>")
		case '\f':
			b.WriteString("<FF>")
		default:
			if r >= 0x20 && r < 0x7f {
				b.WriteRune(r)
			} else {
				fmt.Fprintf(&b, `\u%04x`, r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// FlexEvent is one FLEX message ready for emission.
type FlexEvent struct {
	Type     string // "alphanumeric", "numeric", or "tempAddrActivation"
	Baud     int
	CycleNo  int
	FrameNo  int
	PhaseNo  string
	CapCode  uint32
	Fragment bool
	Maildrop bool
	FragSeq  int
	FreqHz   uint32
	Message  string
}

// WriteFlex emits one FLEX JSON line.
func (s *Writer) WriteFlex(e FlexEvent) error {
	line := fmt.Sprintf(
		`{"proto":"flex","type":%q,"timestamp":%q,"baud":%d,"cycleNo":%d,"frameNo":%d,"phaseNo":%q,"capCode":%d,"fragment":%t,"maildrop":%t,"fragSeq":%d,"freq_hz":%d,"message":%s}`,
		e.Type, s.timestamp(), e.Baud, e.CycleNo, e.FrameNo, e.PhaseNo, e.CapCode, e.Fragment, e.Maildrop, e.FragSeq, e.FreqHz, escapeMessage(e.Message),
	)
	return s.writeLine([]byte(line))
}

// PocsagEvent is one POCSAG message ready for emission.
type PocsagEvent struct {
	CapCode  uint32
	Function uint8
	Message  string
	FreqHz   uint32
}

// WritePocsag emits one POCSAG JSON line.
func (s *Writer) WritePocsag(e PocsagEvent) error {
	line := fmt.Sprintf(
		`{"proto":"pocsag","timestamp":%q,"capCode":%d,"function":%d,"freq_hz":%d,"message":%s}`,
		s.timestamp(), e.CapCode, e.Function, e.FreqHz, escapeMessage(e.Message),
	)
	return s.writeLine([]byte(line))
}

// AISEvent is one decoded AIS position report ready for emission.
type AISEvent struct {
	MMSI           uint32
	NavStatus      uint8
	RateOfTurn     int8
	SpeedOverGround float64
	LatDeg         float64
	LonDeg         float64
	Course         float64
	Heading        uint16
	RawAscii       string
	// RenderUTM optionally adds a "utmEasting"/"utmNorthing"/"utmZone"
	// projection of LatDeg/LonDeg for downstream tools that plot on a
	// projected grid (internal/sink's use of github.com/tzneal/coordconv).
	RenderUTM bool
}

// WriteAIS emits one AIS JSON line.
func (s *Writer) WriteAIS(e AISEvent) error {
	utm := ""
	if e.RenderUTM {
		latlng := s2.LatLng{Lat: s1.Angle(e.LatDeg * math.Pi / 180), Lng: s1.Angle(e.LonDeg * math.Pi / 180)}
		if coord, err := coordconv.DefaultUTMConverter.ConvertFromGeodetic(latlng, 0); err == nil {
			hemi := byte('N')
			if coord.Hemisphere == coordconv.HemisphereSouth {
				hemi = 'S'
			}
			utm = fmt.Sprintf(`,"utmZone":%d,"utmHemisphere":%q,"utmEasting":%.1f,"utmNorthing":%.1f`, coord.Zone, string(hemi), coord.Easting, coord.Northing)
		}
	}
	line := fmt.Sprintf(
		`{"proto":"ais","timestamp":%q,"mmsi":%d,"navStatus":%d,"rateOfTurn":%d,"speedOverGround":%.1f,"lat":%.6f,"lon":%.6f,"course":%.1f,"heading":%d,"rawAscii":%s%s}`,
		s.timestamp(), e.MMSI, e.NavStatus, e.RateOfTurn, e.SpeedOverGround, e.LatDeg, e.LonDeg, e.Course, e.Heading, escapeMessage(e.RawAscii), utm,
	)
	return s.writeLine([]byte(line))
}
