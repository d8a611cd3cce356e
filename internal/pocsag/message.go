package pocsag

// numericLUT maps a (bit-reversed) 4-bit numeric nibble to its display
// character: digits 0-9, then '*', 'U', space, '-', ')', '(' — the
// standard POCSAG numeric alphabet.
var numericLUT = [16]byte{
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'*', 'U', ' ', '-', ')', '(',
}

func bitReverse(x uint32, nbits int) uint32 {
	var out uint32
	for i := 0; i < nbits; i++ {
		out = (out << 1) | (x & 1)
		x >>= 1
	}
	return out
}

// pendingMessage accumulates one in-flight message's alpha and numeric
// decodes in parallel — POCSAG carries no explicit per-message type
// field reliable enough to trust alone, so both interpretations are
// built and scored at finalization time: alpha wins if >=80% of decoded
// characters are printable.
type pendingMessage struct {
	capCode  uint32
	function uint8

	alphaAcc     uint32
	alphaBits    int
	alphaChars   []byte
	alphaPrint   int
	seenNonPrint bool

	numericAcc    uint32
	numericBits   int
	numericDigits []byte
}

// addWord feeds one data word's 20 info bits into both accumulators.
func (p *pendingMessage) addWord(info20 uint32) {
	p.alphaAcc = (p.alphaAcc << 20) | info20
	p.alphaBits += 20
	for p.alphaBits >= 7 && len(p.alphaChars) < maxAlphaLen {
		shift := uint(p.alphaBits - 7)
		raw := (p.alphaAcc >> shift) & 0x7f
		p.alphaBits -= 7
		ch := byte(bitReverse(raw, 7))
		p.alphaChars = append(p.alphaChars, ch)
		if ch >= 0x20 && ch < 0x7f {
			p.alphaPrint++
		} else {
			p.seenNonPrint = true
		}
	}

	p.numericAcc = (p.numericAcc << 20) | info20
	p.numericBits += 20
	for p.numericBits >= 4 && len(p.numericDigits) < maxNumericLen {
		shift := uint(p.numericBits - 4)
		raw := (p.numericAcc >> shift) & 0xf
		p.numericBits -= 4
		nibble := bitReverse(raw, 4)
		p.numericDigits = append(p.numericDigits, numericLUT[nibble])
	}
}

// finalize picks the better-scoring interpretation and delivers it.
func (p *pendingMessage) finalize(freqHz uint32, cb Callbacks) {
	if len(p.alphaChars) == 0 && len(p.numericDigits) == 0 {
		return
	}
	printableRatio := 0.0
	if len(p.alphaChars) > 0 {
		printableRatio = float64(p.alphaPrint) / float64(len(p.alphaChars))
	}
	if printableRatio >= 0.8 {
		cb.OnAlpha(AlphaMessage{
			CapCode:  p.capCode,
			Function: p.function,
			Message:  string(p.alphaChars),
			FreqHz:   freqHz,
		})
		return
	}
	cb.OnNumeric(NumericMessage{
		CapCode:  p.capCode,
		Function: p.function,
		Digits:   string(p.numericDigits),
		FreqHz:   freqHz,
	})
}

// dispatchWord consumes one BCH-corrected 21-bit batch word. Bit 20 is
// the address/data flag (0 = address, 1 = data); address words carry an
// 18-bit capcode fragment and a 2-bit function in their remaining 20
// bits, combined with the word's frame index (0-7) via the standard
// POCSAG capcode formula: capCode = (info20>>2)<<3 | frameIndex.
func (d *Decoder) dispatchWord(corrected uint32, frameIndex int) {
	if corrected&0x7fffffff == IdleCodeword {
		return
	}
	data21 := corrected & 0x1fffff

	flag := (data21 >> 20) & 1
	info20 := data21 & 0xfffff

	if flag == 0 {
		if d.pending != nil {
			d.pending.finalize(d.freqHz, d.cb)
		}
		d.pending = &pendingMessage{
			capCode:  (info20>>2)<<3 | uint32(frameIndex),
			function: uint8(info20 & 0x3),
		}
		return
	}

	if d.pending != nil {
		d.pending.addWord(info20)
	}
}
