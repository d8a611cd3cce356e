package flex

const wordsPerPhase = 88

// blockState accumulates, per phase, a frame's worth of BCH-protected
// 32-bit codewords, then walks the Block Information Word / address
// word / vector word chain to dispatch complete messages.
type blockState struct {
	coding Coding

	symCounter  int
	symsPerWord int

	phase    [4]phaseAccum
	nrPhases int
}

type phaseAccum struct {
	words    [wordsPerPhase]uint32
	wordBits int
	nrWords  int
	reg      uint32
}

func newBlockState(coding Coding) blockState {
	symsPerWord := 32 / coding.SymBits
	return blockState{coding: coding, symsPerWord: symsPerWord, nrPhases: coding.NrPhases}
}

// step consumes one raw sample and returns true once every phase's block
// has been fully received and dispatched.
func (b *blockState) step(sample int16) bool {
	b.symCounter++
	symbolPeriod := b.coding.SampleSkip + 1
	if b.symCounter%symbolPeriod != 0 {
		return false
	}

	phaseIdx := (b.symCounter / symbolPeriod) % b.nrPhases
	p := &b.phase[phaseIdx]
	if p.nrWords >= wordsPerPhase {
		return b.allPhasesDone()
	}

	bits := symbolBits(sample, b.coding.SymBits)
	p.reg = (p.reg << uint(b.coding.SymBits)) | bits
	p.wordBits += b.coding.SymBits
	if p.wordBits >= 32 {
		p.words[p.nrWords] = p.reg
		p.nrWords++
		p.reg = 0
		p.wordBits = 0
	}

	return b.allPhasesDone()
}

func (b *blockState) allPhasesDone() bool {
	for i := 0; i < b.nrPhases; i++ {
		if b.phase[i].nrWords < wordsPerPhase {
			return false
		}
	}
	return true
}

// symbolBits slices a raw sample into a SymBits-wide symbol. For 4FSK,
// the two-bit symbol is derived from sample magnitude bands straddling
// zero (deepest negative -> 00, deepest positive -> 11).
func symbolBits(sample int16, symBits int) uint32 {
	if symBits == 1 {
		return sliceBit2FSK(sample)
	}
	const band = 65536 / 4
	level := (int32(sample) + 32768) / band
	if level > 3 {
		level = 3
	}
	if level < 0 {
		level = 0
	}
	return uint32(level)
}

// decodeWord BCH-corrects a block word's low 31 bits, returning its
// 21-bit data payload.
func decodeWord(word uint32) (uint32, bool) {
	corrected, err := globalBCH.Decode(word & 0x7fffffff)
	if err != nil {
		return 0, false
	}
	return corrected & 0x1fffff, true
}

// finishBlock walks each phase's BIW/address/vector chain and dispatches
// any complete messages to the decoder's callbacks.
//
// The BIW carries eob (end-of-block, 2 bits at offset 8) and vsw
// (vector-start word, 6 bits at offset 10). Words 1..eob are additional
// BIWs (date/time/country/local-ID fields); this decoder skips them,
// since none of them affect message content. Words (1+eob)..vsw are
// address words; each has a paired vector word at offset
// i+vsw-addrStart. A
// vector word carries the message type at offset 4 (3 bits) and the
// message body's start word at offset 7 (7 bits); numeric message
// lengths are 3 bits at offset 14, alphanumeric lengths are 7 bits at
// the same offset. A BCH-uncorrectable address or vector is skipped
// without abandoning the rest of the block.
func (d *Decoder) finishBlock() {
	for phaseIdx := 0; phaseIdx < d.bl.nrPhases; phaseIdx++ {
		p := &d.bl.phase[phaseIdx]
		biw, ok := decodeWord(p.words[0])
		if !ok {
			continue
		}
		eob := int((biw >> 8) & 0x3)
		vsw := int((biw >> 10) & 0x3f)
		if eob > vsw || vsw > wordsPerPhase {
			continue
		}

		addrStart := 1 + eob
		for i := addrStart; i < vsw; {
			advance := 1

			addrFirst, ok := decodeWord(p.words[i])
			if !ok {
				i += advance
				continue
			}

			var capCode uint32
			nrWords := 0
			switch {
			case (addrFirst > 0x8000 && addrFirst <= 0x1e0000) ||
				(addrFirst > 0x1f0000 && addrFirst < 0x1f7fff):
				capCode = addrFirst - 32768
			case i+1 < wordsPerPhase:
				addrSecond, ok := decodeWord(p.words[i+1])
				if !ok {
					i += advance
					continue
				}
				capCode = 0x1f9001 + (0x1fffff-addrSecond)*32768 + addrFirst - 1
				nrWords = 1
			default:
				i += advance
				continue
			}
			advance = nrWords + 1

			vecOffs := i + vsw - addrStart
			if vecOffs >= wordsPerPhase {
				i += advance
				continue
			}
			vecWord, ok := decodeWord(p.words[vecOffs])
			if !ok {
				i += advance
				continue
			}

			msgType := int((vecWord >> 4) & 0x7)
			wordStart := int((vecWord >> 7) & 0x7f)

			nrVecWords := nrWords + 1
			var longWord uint32
			if nrVecWords == 2 && vecOffs+1 < wordsPerPhase {
				if lw, ok := decodeWord(p.words[vecOffs+1]); ok {
					longWord = lw
				}
			}

			wordLength := 0
			switch msgType {
			case MessageStandardNumeric, MessageSpecialNumeric, MessageNumberedNumeric:
				wordLength = int((vecWord>>14)&0x7) + 1
				if nrVecWords == 2 {
					wordLength--
				}
			case MessageAlphanumeric:
				wordLength = int((vecWord >> 14) & 0x7f)
				if nrVecWords == 2 {
					wordLength--
				}
			}

			msgEnd := wordStart + wordLength
			if msgEnd > wordsPerPhase {
				msgEnd = wordsPerPhase
			}
			var words []uint32
			if msgEnd > wordStart {
				words = make([]uint32, 0, msgEnd-wordStart)
				for w := wordStart; w < msgEnd; w++ {
					if data, ok := decodeWord(p.words[w]); ok {
						words = append(words, data)
					}
				}
			}

			d.dispatchMessage(phaseNames[phaseIdx], msgType, capCode, longWord, vecWord, words)

			i += advance
		}
	}
}
