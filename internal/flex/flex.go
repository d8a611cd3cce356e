// Package flex implements the FLEX pager protocol decoder: a streaming,
// one-real-Q.15-sample-at-a-time state machine that tracks Sync 1, Sync 2,
// and Block, emitting alphanumeric/numeric/special-instruction-vector
// messages through caller-supplied callbacks. The coding table, checksum,
// and capcode formulas follow the reference FLEX implementation; the
// streaming one-bit-at-a-time state machine follows a single per-symbol
// entry point, in the style of a classic HDLC bit-stuffing receiver.
package flex

// Coding describes one of the four FLEX Sync-1 baud/FSK combinations and
// the 16-bit bit-sequence (seq_a) used to identify it.
type Coding struct {
	SeqA            uint16
	Baud            int
	FSKLevels       int
	SampleSkip      int
	Sync2Samples    int
	SymBits         int
	SampleFudge     int
	SymbolsPerBlock int
	NrPhases        int
}

// Codings is the fixed table of FLEX Sync-1 magic/baud/FSK combinations.
var Codings = [4]Coding{
	{SeqA: 0x78f3, Baud: 1600, FSKLevels: 2, SampleSkip: 9, Sync2Samples: 4, SymBits: 1, SampleFudge: 0, SymbolsPerBlock: 2816, NrPhases: 1},
	{SeqA: 0x84e7, Baud: 3200, FSKLevels: 2, SampleSkip: 4, Sync2Samples: 24, SymBits: 1, SampleFudge: 2, SymbolsPerBlock: 5632, NrPhases: 2},
	{SeqA: 0x4f97, Baud: 3200, FSKLevels: 4, SampleSkip: 9, Sync2Samples: 12, SymBits: 2, SampleFudge: 0, SymbolsPerBlock: 2816, NrPhases: 2},
	{SeqA: 0x215f, Baud: 6400, FSKLevels: 4, SampleSkip: 4, Sync2Samples: 32, SymBits: 2, SampleFudge: 2, SymbolsPerBlock: 5632, NrPhases: 4},
}

const (
	syncBS1      = 0xaaaaaaaa
	hammingLimit = 4
)

// Message types carried by a vector word.
const (
	MessageSecure            = 0x0
	MessageSpecialInstr      = 0x1
	MessageTone              = 0x2
	MessageStandardNumeric   = 0x3
	MessageSpecialNumeric    = 0x4
	MessageAlphanumeric      = 0x5
	MessageHex               = 0x6
	MessageNumberedNumeric   = 0x7
)

// Phase names, one per simultaneous data stream a 4-phase coding can carry.
var phaseNames = [4]string{"A", "B", "C", "D"}

// AlphanumericMessage is delivered via Callbacks.OnAlphanumeric.
type AlphanumericMessage struct {
	Baud               int
	Phase              string
	CycleNo, FrameNo   int
	CapCode            uint32
	Fragment, Maildrop bool
	SeqNum             int
	Message            string
	FreqHz             uint32
}

// NumericMessage is delivered via Callbacks.OnNumeric.
type NumericMessage struct {
	Baud             int
	Phase            string
	CycleNo, FrameNo int
	CapCode          uint32
	Digits           string
	FreqHz           uint32
}

// SIVMessage is delivered via Callbacks.OnSIV for special-instruction
// vectors (temp-address activation, system event, reserved test).
type SIVMessage struct {
	Baud             int
	Phase            string
	CycleNo, FrameNo int
	CapCode          uint32
	Subtype          int
	Data             int
	FreqHz           uint32
}

// Callbacks is the capability object FLEX hands its decoded messages to.
type Callbacks interface {
	OnAlphanumeric(AlphanumericMessage)
	OnNumeric(NumericMessage)
	OnSIV(SIVMessage)
}

type topState int

const (
	topSync1 topState = iota
	topSync2
	topBlock
)

// Decoder is a streaming FLEX demodulator front-end: it consumes one real
// Q.15 sample at a time at 16 kS/s and drives the Sync-1/Sync-2/Block
// state machine.
type Decoder struct {
	cb    Callbacks
	state topState

	freqHz uint32

	s1 sync1State
	s2 sync2State
	bl blockState

	cycleID, frameID int
}

// NewDecoder builds a FLEX decoder delivering messages to cb.
func NewDecoder(cb Callbacks, freqHz uint32) *Decoder {
	d := &Decoder{cb: cb, freqHz: freqHz}
	d.resetToSync1()
	return d
}

func (d *Decoder) resetToSync1() {
	d.state = topSync1
	d.s1 = newSync1State()
}

// ProcessSample feeds one real Q.15 sample at 16 kS/s into the decoder.
func (d *Decoder) ProcessSample(sample int16) {
	switch d.state {
	case topSync1:
		if coding, fiwData, ok := d.s1.step(sample); ok {
			d.cycleID = int((fiwData >> 4) & 0xf)
			d.frameID = int((fiwData >> 8) & 0x7f)
			d.s2 = newSync2State(coding)
			d.state = topSync2
		}
	case topSync2:
		if d.s2.step(sample) {
			d.bl = newBlockState(d.s2.coding)
			d.state = topBlock
		}
	case topBlock:
		if d.bl.step(sample) {
			d.finishBlock()
			d.resetToSync1()
		}
	}
}

// sliceBit2FSK slices a sample into a 2FSK bit by its sign: a
// non-negative sample is a 1 bit.
func sliceBit2FSK(sample int16) uint32 {
	if sample >= 0 {
		return 1
	}
	return 0
}

// wordChecksum is the standard FLEX word checksum: the sum of the word's
// low 21 bits' six 4-bit nibbles, mod 16.
func wordChecksum(word uint32) uint8 {
	word &= 0x1fffff
	var cksum uint8
	for i := 0; i < 6; i++ {
		cksum += uint8(word & 0xf)
		word >>= 4
	}
	return cksum & 0xf
}

func hammingDistance16(a, b uint16) int {
	x := a ^ b
	count := 0
	for x != 0 {
		count++
		x &= x - 1
	}
	return count
}

// matchCoding identifies the Sync-1 coding from the accumulated A and
// inv_A shift registers. Only the upper 16 bits of each 32-bit register
// carry the coding's seq_a pattern; a coding matches if either the direct
// field is within hammingLimit bits of seq_a, or the inverted field is
// within hammingLimit bits of ~seq_a.
func matchCoding(a, invA uint32) (Coding, bool) {
	codingA := uint16(a >> 16)
	invCodingA := uint16(invA >> 16)
	for _, c := range Codings {
		if hammingDistance16(c.SeqA, codingA) <= hammingLimit ||
			hammingDistance16(^c.SeqA, invCodingA) <= hammingLimit {
			return c, true
		}
	}
	return Coding{}, false
}
