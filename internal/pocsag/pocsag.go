// Package pocsag implements the POCSAG pager protocol decoder: a
// streaming, one-real-sample-at-a-time state machine that detects one of
// three baud rates via parallel eye-pattern matching, locks to the sync
// codeword, accumulates 512-bit batches of BCH(31,21)-protected
// codewords, and assembles alphanumeric/numeric messages.
package pocsag

import "github.com/kf7qqd/waveband/internal/bch"

const (
	batchBits = 512
	batchWords = batchBits / 32 // 16

	// SyncCodeword is the POCSAG synchronization codeword, matched with up
	// to 4 bit errors tolerated.
	SyncCodeword = 0x7cd215d8

	// IdleCodeword marks an unused address/data slot, checked post-BCH
	// correction.
	IdleCodeword = 0x6983915e

	baseBaudRate = 38400

	maxAlphaLen   = 42
	maxNumericLen = 75

	hammingLimit = 4
)

// Baud rates POCSAG transmits at, and their sample-per-bit divisor at
// the base 38.4 kS/s sample rate.
var baudRates = [3]struct {
	Baud          int
	SamplesPerBit int
}{
	{Baud: 512, SamplesPerBit: baseBaudRate / 512},
	{Baud: 1200, SamplesPerBit: baseBaudRate / 1200},
	{Baud: 2400, SamplesPerBit: baseBaudRate / 2400},
}

type topState int

const (
	stateSearch topState = iota
	stateSynchronized
	stateBatchReceive
	stateSearchSyncword
)

// AlphaMessage is delivered via Callbacks.OnAlpha.
type AlphaMessage struct {
	CapCode  uint32
	Function uint8
	Message  string
	FreqHz   uint32
}

// NumericMessage is delivered via Callbacks.OnNumeric.
type NumericMessage struct {
	CapCode  uint32
	Function uint8
	Digits   string
	FreqHz   uint32
}

// Callbacks is the capability object messages are delivered through.
type Callbacks interface {
	OnAlpha(AlphaMessage)
	OnNumeric(NumericMessage)
}

// eyeDetect tracks one candidate baud rate's sync-word eye pattern: a
// lane per sample-phase within a bit period, each lane a 32-bit shift
// register hunting for SyncCodeword.
type eyeDetect struct {
	samplesPerBit int
	curWord       int
	nrEyeMatches  int
	lanes         []uint32
}

func newEyeDetect(samplesPerBit int) *eyeDetect {
	return &eyeDetect{samplesPerBit: samplesPerBit, lanes: make([]uint32, samplesPerBit)}
}

func (e *eyeDetect) reset() {
	for i := range e.lanes {
		e.lanes[i] = 0
	}
	e.curWord = 0
	e.nrEyeMatches = 0
}

// onSample feeds one sample. It returns true once the eye is judged
// open (more than half the lanes' bit periods have matched the sync
// codeword within hammingLimit bit errors).
func (e *eyeDetect) onSample(sample int16) bool {
	bit := uint32(0)
	if sample < 0 {
		bit = 1
	}
	e.lanes[e.curWord] = (e.lanes[e.curWord] << 1) | bit

	locked := false
	if hammingDistance(e.lanes[e.curWord], SyncCodeword) <= hammingLimit {
		e.nrEyeMatches++
	} else {
		if e.nrEyeMatches > e.samplesPerBit/2 {
			locked = true
		} else {
			e.nrEyeMatches = 0
		}
	}
	e.curWord = (e.curWord + 1) % e.samplesPerBit
	return locked
}

func hammingDistance(a, b uint32) int {
	x := a ^ b
	count := 0
	for x != 0 {
		count++
		x &= x - 1
	}
	return count
}

// batchAccum collects one 512-bit (16-word) batch of codewords at the
// locked sample-skip rate.
type batchAccum struct {
	curSampleSkip int
	words         [batchWords]uint32
	curWord       int
	curWordBit    int
	bitCount      int
}

func (b *batchAccum) reset() {
	*b = batchAccum{}
}

// onSample consumes one raw sample at the decimated batch cadence.
// Returns true once all 512 bits have been collected.
func (b *batchAccum) onSample(sample int16, sampleSkip int) bool {
	b.curSampleSkip++
	if b.curSampleSkip != sampleSkip {
		return false
	}
	b.curSampleSkip = 0

	bit := uint32(0)
	if sample < 0 {
		bit = 1
	}
	b.words[b.curWord] = (b.words[b.curWord] << 1) | bit
	b.curWordBit++
	b.bitCount++
	if b.curWordBit == 32 {
		b.curWordBit = 0
		b.curWord++
		if b.curWord == batchWords {
			return true
		}
	}
	return false
}

// syncSearch re-acquires the sync codeword at a previously-locked sample
// rate between batches.
type syncSearch struct {
	curSampleSkip int
	nrSyncBits    int
	syncWord      uint32
}

func (s *syncSearch) reset() {
	*s = syncSearch{}
}

// onSample returns (done, ok): done once 32 bits have been gathered, ok
// reporting whether they matched the sync codeword.
func (s *syncSearch) onSample(sample int16, sampleSkip int) (bool, bool) {
	s.curSampleSkip++
	if s.curSampleSkip != sampleSkip {
		return false, false
	}
	s.curSampleSkip = 0

	bit := uint32(0)
	if sample < 0 {
		bit = 1
	}
	s.syncWord = (s.syncWord << 1) | bit
	s.nrSyncBits++
	if s.nrSyncBits == 32 {
		return true, hammingDistance(s.syncWord, SyncCodeword) <= hammingLimit
	}
	return false, false
}

// Decoder is a streaming POCSAG demodulator front-end operating on real
// Q.15 samples at 38.4 kS/s.
type Decoder struct {
	cb     Callbacks
	freqHz uint32
	bch    *bch.Code

	state      topState
	sampleSkip int
	baudRate   int

	detect512, detect1200, detect2400 *eyeDetect
	batch                              batchAccum
	sync                               syncSearch

	pending *pendingMessage
}

// NewDecoder builds a POCSAG decoder delivering messages to cb.
func NewDecoder(cb Callbacks, freqHz uint32) *Decoder {
	d := &Decoder{
		cb:        cb,
		freqHz:    freqHz,
		bch:       bch.NewStandard(),
		detect512: newEyeDetect(baudRates[0].SamplesPerBit),
		detect1200: newEyeDetect(baudRates[1].SamplesPerBit),
		detect2400: newEyeDetect(baudRates[2].SamplesPerBit),
	}
	return d
}

func (d *Decoder) resetBaudSearch() {
	d.detect512.reset()
	d.detect1200.reset()
	d.detect2400.reset()
	d.state = stateSearch
	d.sampleSkip = 0
}

// ProcessSample feeds one real Q.15 sample at 38.4 kS/s.
func (d *Decoder) ProcessSample(sample int16) {
	switch d.state {
	case stateSearch:
		if d.detect512.onSample(sample) {
			d.lockBaud(baudRates[0].Baud, d.detect512)
			return
		}
		if d.detect1200.onSample(sample) {
			d.lockBaud(baudRates[1].Baud, d.detect1200)
			return
		}
		if d.detect2400.onSample(sample) {
			d.lockBaud(baudRates[2].Baud, d.detect2400)
			return
		}
	case stateSynchronized:
		d.state = stateBatchReceive
		d.ProcessSample(sample)
	case stateBatchReceive:
		if d.batch.onSample(sample, d.sampleSkip) {
			d.processBatch()
			d.state = stateSearchSyncword
			d.sync.reset()
		}
	case stateSearchSyncword:
		done, ok := d.sync.onSample(sample, d.sampleSkip)
		if done {
			if ok {
				d.state = stateBatchReceive
				d.batch.reset()
			} else {
				d.resetBaudSearch()
			}
		}
	}
}

func (d *Decoder) lockBaud(baud int, det *eyeDetect) {
	d.sampleSkip = det.samplesPerBit
	d.baudRate = baud
	d.batch.reset()
	d.batch.curSampleSkip = det.nrEyeMatches / 2
	d.state = stateSynchronized
}

// processBatch BCH-corrects each of the batch's 16 words and dispatches
// them through the address/data word state machine.
func (d *Decoder) processBatch() {
	for i := 0; i < batchWords; i++ {
		word := d.batch.words[i]
		corrected, err := d.bch.Decode(word & 0x7fffffff)
		if err != nil {
			continue
		}
		d.dispatchWord(corrected, i/2)
	}
}
