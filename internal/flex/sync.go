package flex

import "github.com/kf7qqd/waveband/internal/bch"

// sync1State tracks the Sync-1 phase: 10 parallel lanes of a 32-bit shift
// register hunt for BS1 (0xaaaaaaaa) at every possible bit-sample offset
// within a symbol; the lane that matches becomes the locked sampling
// phase for the rest of Sync 1 (BS1, then the A/B/inv_A/FIW sub-fields).
type sync1State struct {
	lanes         [10]uint32
	sampleCounter int

	locked     bool
	lockedLane int

	field    sync1Field
	a        uint32
	aBits    int
	b        uint16
	bBits    int
	invA     uint32
	invABits int
	fiw      uint32
	fiwBits  int

	coding Coding
}

type sync1Field int

const (
	fieldA sync1Field = iota
	fieldB
	fieldInvA
	fieldFIW
)

func newSync1State() sync1State {
	return sync1State{}
}

// step consumes one raw sample. It returns (coding, fiwData, true) once a
// coding has been identified and its FIW has passed BCH correction and
// checksum verification.
func (s *sync1State) step(sample int16) (Coding, uint32, bool) {
	bit := sliceBit2FSK(sample)
	lane := s.sampleCounter % 10
	s.lanes[lane] = (s.lanes[lane] << 1) | bit
	s.sampleCounter++

	if !s.locked {
		if s.lanes[lane] == syncBS1 {
			s.locked = true
			s.lockedLane = lane
			s.field = fieldA
			s.a, s.aBits = 0, 0
		}
		return Coding{}, 0, false
	}

	if lane != s.lockedLane {
		return Coding{}, 0, false
	}

	switch s.field {
	case fieldA:
		s.a = (s.a << 1) | bit
		s.aBits++
		if s.aBits == 32 {
			s.field, s.b, s.bBits = fieldB, 0, 0
		}
	case fieldB:
		s.b = (s.b << 1) | uint16(bit)
		s.bBits++
		if s.bBits == 16 {
			s.field, s.invA, s.invABits = fieldInvA, 0, 0
		}
	case fieldInvA:
		s.invA = (s.invA << 1) | bit
		s.invABits++
		if s.invABits == 32 {
			coding, ok := matchCoding(s.a, s.invA)
			if !ok {
				s.reset()
				return Coding{}, 0, false
			}
			s.coding = coding
			s.field, s.fiw, s.fiwBits = fieldFIW, 0, 0
		}
	case fieldFIW:
		s.fiw = (s.fiw << 1) | bit
		s.fiwBits++
		if s.fiwBits == 32 {
			fiwData, ok := verifyFIW(s.fiw)
			coding := s.coding
			if !ok {
				s.reset()
				return Coding{}, 0, false
			}
			s.reset()
			return coding, fiwData, true
		}
	}
	return Coding{}, 0, false
}

func (s *sync1State) reset() {
	*s = newSync1State()
}

// verifyFIW BCH-corrects the low 31 bits of the accumulated FIW register
// and checks its word checksum, which must equal 15.
func verifyFIW(fiw uint32) (uint32, bool) {
	codeword := fiw & 0x7fffffff
	corrected, err := globalBCH.Decode(codeword)
	if err != nil {
		return 0, false
	}
	data := corrected & 0x1fffff
	if wordChecksum(data) != 15 {
		return 0, false
	}
	return data, true
}

// sync2State times the Sync-2 interval for the coding identified during
// Sync 1: it shifts sliced bits into reg at the coding's cadence and hands
// over to Block after a fixed count. It does not parse or check the comma,
// C or ~C fields, and does not re-confirm the coding.
type sync2State struct {
	coding  Coding
	samples int
	reg     uint32
	seen    int
}

func newSync2State(coding Coding) sync2State {
	return sync2State{coding: coding}
}

// step consumes one raw sample at Sync-2 cadence (one bit per
// coding.SampleSkip+1 samples) and returns true once coding.Sync2Samples
// bits have been taken, handing control to Block.
func (s *sync2State) step(sample int16) bool {
	s.samples++
	symbolPeriod := s.coding.SampleSkip + 1
	if s.samples%symbolPeriod == 0 {
		bit := sliceBit2FSK(sample)
		s.reg = (s.reg << 1) | bit
		s.seen++
	}
	return s.seen >= s.coding.Sync2Samples
}

var globalBCH = bch.NewStandard()
