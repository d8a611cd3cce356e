package ais

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// setFieldMSB writes an MSB-first bitfield into payload, the inverse of
// GetField — test-only.
func setFieldMSB(payload []byte, start, length int, value uint32) {
	for k := 0; k < length; k++ {
		bit := (value >> uint(length-1-k)) & 1
		offset := start + k
		if bit != 0 {
			payload[offset>>3] |= mask[offset&0x7]
		} else {
			payload[offset>>3] &^= mask[offset&0x7]
		}
	}
}

func Test_GetField_RoundTrips(t *testing.T) {
	buf := make([]byte, payloadBytes)
	setFieldMSB(buf, 8, 30, 366123456)
	assert.Equal(t, uint32(366123456), GetField(buf, 8, 30))
}

func Test_GetFieldSigned_NegativeValue(t *testing.T) {
	buf := make([]byte, payloadBytes)
	// -10 as an 8-bit two's complement value is 0xf6.
	setFieldMSB(buf, 42, 8, 0xf6)
	assert.EqualValues(t, -10, GetFieldSigned(buf, 42, 8))
}

func Test_GetFieldLat_UnavailableSentinel(t *testing.T) {
	buf := make([]byte, payloadBytes)
	setFieldMSB(buf, 89, 27, uint32(latUnavailable)&(1<<27-1))
	_, ok := GetFieldLat(buf, 89, 27)
	assert.False(t, ok)
}

func Test_GetFieldLat_RealValue(t *testing.T) {
	buf := make([]byte, payloadBytes)
	// 40.7128 deg * 600000 = 24427680
	setFieldMSB(buf, 89, 27, 24427680)
	deg, ok := GetFieldLat(buf, 89, 27)
	assert.True(t, ok)
	assert.InDelta(t, 40.7128, deg, 1e-6)
}

func Test_SextetToChar_RangeBoundaries(t *testing.T) {
	assert.Equal(t, byte('0'), sextetToChar(0))
	assert.Equal(t, byte('W'), sextetToChar(39))
	assert.Equal(t, byte('`'), sextetToChar(40))
	assert.Equal(t, byte('w'), sextetToChar(63))
}

func Test_ArmorPayload_SixCharacters(t *testing.T) {
	buf := make([]byte, payloadBytes)
	setFieldMSB(buf, 0, 6, 1)  // '1'
	setFieldMSB(buf, 6, 6, 39) // 'W'
	assert.Equal(t, "1W", ArmorPayload(buf, 12))
}

func Test_DecodePositionReport_ExtractsMMSI(t *testing.T) {
	var p Packet
	setFieldMSB(p.Payload[:], offType, 6, 1)
	setFieldMSB(p.Payload[:], offMMSI, 30, 366123456)
	setFieldMSB(p.Payload[:], offNavStatus, 4, 0)
	setFieldMSB(p.Payload[:], offROT, 8, uint32(rotUnavailable)&0xff)
	setFieldMSB(p.Payload[:], offSOG, 10, sogUnavailable)
	setFieldMSB(p.Payload[:], offCOG, 12, cogUnavailable)
	setFieldMSB(p.Payload[:], offHeading, 9, 511)
	setFieldMSB(p.Payload[:], offLon, 28, uint32(lonUnavailable)&(1<<28-1))
	setFieldMSB(p.Payload[:], offLat, 27, uint32(latUnavailable)&(1<<27-1))

	r := DecodePositionReport(&p)
	assert.Equal(t, 1, r.MessageType)
	assert.Equal(t, uint32(366123456), r.MMSI)
	assert.False(t, r.RateOfTurnValid)
	assert.False(t, r.SOGValid)
	assert.False(t, r.COGValid)
	assert.False(t, r.HeadingValid)
	assert.False(t, r.PositionValid)
}
