package ais

import (
	"github.com/golang/geo/s2"
)

// Packet is one destuffed AIS HDLC frame: 256 payload bits plus a 16-bit FCS.
type Packet struct {
	Payload  [payloadBytes]byte
	FCS      uint16
	FCSValid bool
}

// MessageType returns the 6-bit ITU-R M.1371 message type field (bits 0-5).
func (p *Packet) MessageType() int {
	return int(GetField(p.Payload[:], 0, 6))
}

// Armored renders the first nbits bits of the payload as six-bit ASCII, the
// form an AIVDM sentence carries in its data field.
func (p *Packet) Armored(nbits int) string {
	return ArmorPayload(p.Payload[:], nbits)
}

// PositionReport holds the decoded fields common to AIS message types 1, 2,
// and 3 (the class A position report, 168 bits), per the ITU-R M.1371
// common navigation block layout.
type PositionReport struct {
	MessageType      int
	RepeatIndicator  int
	MMSI             uint32
	NavStatus        uint8
	RateOfTurn       int8
	RateOfTurnValid  bool
	SpeedOverGround  float64
	SOGValid         bool
	PositionAccurate bool
	Position         s2.LatLng
	PositionValid    bool
	CourseOverGround  float64
	COGValid          bool
	TrueHeading       uint16
	HeadingValid      bool
	Timestamp        int
}

// bit offsets within the 168-bit common navigation block (ITU-R M.1371).
const (
	offType        = 0
	offRepeat      = 6
	offMMSI        = 8
	offNavStatus   = 38
	offROT         = 42
	offSOG         = 50
	offAccuracy    = 60
	offLon         = 61
	offLat         = 89
	offCOG         = 116
	offHeading     = 128
	offTimestamp   = 137
)

// DecodePositionReport extracts a PositionReport from a type 1/2/3 packet.
// Callers should check MessageType is 1, 2, or 3 first (DecodePositionReport is
// defined for every message sharing the common navigation block).
func DecodePositionReport(p *Packet) PositionReport {
	payload := p.Payload[:]

	r := PositionReport{
		MessageType:     int(GetField(payload, offType, 6)),
		RepeatIndicator: int(GetField(payload, offRepeat, 2)),
		MMSI:            GetField(payload, offMMSI, 30),
		NavStatus:       uint8(GetField(payload, offNavStatus, 4)),
		PositionAccurate: GetField(payload, offAccuracy, 1) == 1,
		Timestamp:       int(GetField(payload, offTimestamp, 6)),
	}

	rot := GetFieldSigned(payload, offROT, 8)
	if int(rot) != rotUnavailable {
		r.RateOfTurn = int8(rot)
		r.RateOfTurnValid = true
	}

	sog := GetField(payload, offSOG, 10)
	if int(sog) != sogUnavailable {
		r.SpeedOverGround = float64(sog) / 10.0
		r.SOGValid = true
	}

	lat, latOK := GetFieldLat(payload, offLat, 27)
	lon, lonOK := GetFieldLon(payload, offLon, 28)
	if latOK && lonOK {
		r.Position = s2.LatLngFromDegrees(lat, lon)
		r.PositionValid = true
	}

	cog := GetField(payload, offCOG, 12)
	if int(cog) != cogUnavailable {
		r.CourseOverGround = float64(cog) / 10.0
		r.COGValid = true
	}

	heading := GetField(payload, offHeading, 9)
	if heading != 511 {
		r.TrueHeading = uint16(heading)
		r.HeadingValid = true
	}

	return r
}
