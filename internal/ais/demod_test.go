package ais

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCallbacks struct {
	packets []Packet
}

func (r *recordingCallbacks) OnPacket(p Packet) {
	r.packets = append(r.packets, p)
}

// bitsMSB returns the n-bit binary expansion of v, most significant bit
// first — the order onSample's shift register (lane = lane<<1 | bit)
// expects its input fed in.
func bitsMSB(v uint32, n int) []int {
	bits := make([]int, n)
	for i := 0; i < n; i++ {
		bits[i] = int((v >> uint(n-1-i)) & 1)
	}
	return bits
}

// packLSB reassembles a decoded-bit sequence into bytes the same way
// receiver.onSample does: bit i goes to byte i/8, bit position i%8.
func packLSB(bits []int) []byte {
	buf := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b != 0 {
			buf[i/8] |= 1 << uint(i%8)
		}
	}
	return buf
}

// nrziSamples turns a decoded-bit sequence into a real (int16) oversampled
// waveform: a decoded 1 repeats the previous raw level, a decoded 0 flips
// it, each decoded bit held for oversample consecutive raw samples — the
// exact inverse of what onSample's bit = (prev==cur) rule decodes.
func nrziSamples(decodedBits []int, oversample int) []int16 {
	raw := 0
	out := make([]int16, 0, len(decodedBits)*oversample)
	for _, d := range decodedBits {
		if d == 0 {
			raw = 1 - raw
		}
		sample := int16(-1000)
		if raw == 1 {
			sample = 1000
		}
		for k := 0; k < oversample; k++ {
			out = append(out, sample)
		}
	}
	return out
}

// repeatPattern tiles pattern until it reaches n bits, truncating the final
// repetition if needed. Capped run lengths in pattern (at most 4 ones here)
// guarantee the destuffing logic never has to drop a bit, which keeps this
// round-trip test's expected output a byte-for-byte copy of the input.
func repeatPattern(pattern []int, n int) []int {
	out := make([]int, 0, n)
	for len(out) < n {
		out = append(out, pattern...)
	}
	return out[:n]
}

func Test_Decoder_FullPacketRoundTrip(t *testing.T) {
	preamble := bitsMSB(flagPattern, 32)
	payload := repeatPattern([]int{1, 1, 1, 1, 0}, totalBits)

	expectedFull := packLSB(payload)
	expectedPayload := expectedFull[:payloadBytes]
	expectedFCS := extractFCS(expectedFull)

	samples := nrziSamples(append(preamble, payload...), phases)

	cb := &recordingCallbacks{}
	d := NewDecoder(cb)
	for _, s := range samples {
		d.ProcessSample(s)
	}

	require.Len(t, cb.packets, 1)
	got := cb.packets[0]
	assert.Equal(t, expectedPayload, got.Payload[:])
	assert.Equal(t, expectedFCS, got.FCS)
	assert.True(t, got.FCSValid)
}

func Test_Decoder_NoLockOnNoise(t *testing.T) {
	// Alternating +1/-1 every sample (not oversampled by 9) never produces
	// a stable 0x5555557e window in any phase's lane.
	samples := make([]int16, 500)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 1000
		} else {
			samples[i] = -1000
		}
	}

	cb := &recordingCallbacks{}
	d := NewDecoder(cb)
	for _, s := range samples {
		d.ProcessSample(s)
	}

	assert.Empty(t, cb.packets)
	assert.Equal(t, stateSearchSync, d.state)
}
