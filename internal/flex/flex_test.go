package flex

import (
	"testing"

	"github.com/kf7qqd/waveband/internal/bch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCallbacks struct {
	alpha []AlphanumericMessage
	num   []NumericMessage
	siv   []SIVMessage
}

func (r *recordingCallbacks) OnAlphanumeric(m AlphanumericMessage) { r.alpha = append(r.alpha, m) }
func (r *recordingCallbacks) OnNumeric(m NumericMessage)           { r.num = append(r.num, m) }
func (r *recordingCallbacks) OnSIV(m SIVMessage)                   { r.siv = append(r.siv, m) }

// bitsMSBFirst returns value's low nbits bits, most significant first.
func bitsMSBFirst(value uint32, nbits int) []int {
	bits := make([]int, nbits)
	for i := 0; i < nbits; i++ {
		bits[i] = int((value >> uint(nbits-1-i)) & 1)
	}
	return bits
}

func bitSample(bit int) int16 {
	if bit != 0 {
		return 1
	}
	return -1
}

// appendLaneBits renders a Sync-1-style bit sequence: each bit occupies
// the first sample of a 10-sample chunk, followed by 9 filler samples —
// except the very last bit in the whole sequence, whose trailing filler
// is omitted so the next protocol section's cadence isn't disturbed.
func appendLaneBits(dst []int16, bits []int) []int16 {
	for i, b := range bits {
		dst = append(dst, bitSample(b))
		if i < len(bits)-1 {
			dst = append(dst, make([]int16, 9)...)
		}
	}
	return dst
}

// appendSymbolBits renders a Block-style bit sequence: each bit occupies
// the last sample of a 10-sample chunk, preceded by 9 filler samples.
func appendSymbolBits(dst []int16, bits []int) []int16 {
	for _, b := range bits {
		dst = append(dst, make([]int16, 9)...)
		dst = append(dst, bitSample(b))
	}
	return dst
}

func packWord(a, b, c byte) uint32 {
	return uint32(a)<<14 | uint32(b)<<7 | uint32(c)
}

// Test_Decoder_1600bps2FSK_AlphanumericFrame drives a synthetic
// 1600bps/2FSK frame carrying capcode 0x1A2B3C ("HELLO") through the
// full Sync-1/Sync-2/Block state machine and checks it is delivered as
// baud=1600, phase="A", capCode=1715004, message="HELLO".
func Test_Decoder_1600bps2FSK_AlphanumericFrame(t *testing.T) {
	code := bch.NewStandard()

	const capCode = 0x1A2B3C // 1715004
	require.Equal(t, uint32(1715004), uint32(capCode))

	var samples []int16

	// Sync 1: BS1 (32 bits alternating 1010...), A (upper 16 bits =
	// Codings[0].SeqA), B (arbitrary), inv_A (upper 16 bits = ~SeqA),
	// FIW (BCH(31,21) codeword for data=15: cycle=0, frame=0, checksum
	// nibble=15 so the six-nibble sum is 15 mod 16).
	var bs1Bits []int
	for i := 0; i < 16; i++ {
		bs1Bits = append(bs1Bits, 1, 0)
	}
	aField := uint32(Codings[0].SeqA)<<16 | 0x1234
	invAField := uint32(^Codings[0].SeqA)<<16 | 0x5678
	fiwCodeword := code.Encode(15)

	sync1Bits := append([]int{}, bs1Bits...)
	sync1Bits = append(sync1Bits, bitsMSBFirst(aField, 32)...)
	sync1Bits = append(sync1Bits, bitsMSBFirst(0x5555, 16)...)
	sync1Bits = append(sync1Bits, bitsMSBFirst(invAField, 32)...)
	sync1Bits = append(sync1Bits, bitsMSBFirst(fiwCodeword, 32)...)
	samples = appendLaneBits(samples, sync1Bits)

	// Sync 2: Codings[0].Sync2Samples (4) symbols at the locked cadence;
	// content is not validated, only elapsed sample count matters.
	samples = append(samples, make([]int16, Codings[0].Sync2Samples*(Codings[0].SampleSkip+1))...)

	// Block: one phase (NrPhases=1), 88 BCH-protected codewords.
	//   word0: BIW, eob=0, vsw=2
	//   word1: address word, addr = capCode+32768
	//   word2: vector, type=Alphanumeric(5), wordStart=3, wordLength=3
	//   word3: status word = 0 (no fragment/maildrop/seq)
	//   word4: "HEL" packed 7-bit ASCII
	//   word5: "LO" + terminator (0x3) packed 7-bit ASCII
	//   word6..87: unused, zero
	words := make([]uint32, wordsPerPhase)
	words[0] = code.Encode(2 << 10) // eob=0, vsw=2
	words[1] = code.Encode(uint32(capCode) + 32768)
	words[2] = code.Encode(5<<4 | 3<<7 | 3<<14) // type=Alphanumeric, wordStart=3, wordLength=3
	words[3] = code.Encode(0)
	words[4] = code.Encode(packWord('H', 'E', 'L'))
	words[5] = code.Encode(packWord('L', 'O', 0x3))

	var blockBits []int
	for _, w := range words {
		blockBits = append(blockBits, bitsMSBFirst(w, 32)...)
	}
	samples = appendSymbolBits(samples, blockBits)

	cb := &recordingCallbacks{}
	d := NewDecoder(cb, 929612500)
	for _, s := range samples {
		d.ProcessSample(s)
	}

	require.Len(t, cb.alpha, 1)
	msg := cb.alpha[0]
	assert.Equal(t, 1600, msg.Baud)
	assert.Equal(t, "A", msg.Phase)
	assert.Equal(t, uint32(1715004), msg.CapCode)
	assert.Equal(t, "HELLO", msg.Message)
	assert.False(t, msg.Fragment)
	assert.False(t, msg.Maildrop)
	assert.Empty(t, cb.num)
	assert.Empty(t, cb.siv)
}

func Test_WordChecksum_ValidFIWIsFifteen(t *testing.T) {
	assert.Equal(t, uint8(15), wordChecksum(15))
}

func Test_MatchCoding_ExactFieldsMatchEachEntry(t *testing.T) {
	for i, c := range Codings {
		a := uint32(c.SeqA) << 16
		invA := uint32(^c.SeqA) << 16
		got, ok := matchCoding(a, invA)
		require.True(t, ok)
		assert.Equal(t, c, got, "coding %d", i)
	}
}

func Test_MatchCoding_ToleratesBitErrorsInEitherField(t *testing.T) {
	a := uint32(Codings[1].SeqA)<<16 ^ 0x00070000 // 3 bit errors, upper 16 bits
	got, ok := matchCoding(a, 0)
	require.True(t, ok)
	assert.Equal(t, Codings[1], got)

	invA := uint32(^Codings[2].SeqA)<<16 ^ 0x00030000 // 2 bit errors, upper 16 bits
	got, ok = matchCoding(0, invA)
	require.True(t, ok)
	assert.Equal(t, Codings[2], got)
}

func Test_MatchCoding_RejectsFieldsWithTooManyBitErrors(t *testing.T) {
	a := uint32(Codings[0].SeqA)<<16 ^ 0x001f0000 // 5 bit errors: more than hammingLimit
	_, ok := matchCoding(a, ^uint32(0))
	assert.False(t, ok)
}
