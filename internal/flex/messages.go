package flex

// pagerFlexNumLUT maps a 4-bit numeric-message nibble to its display
// character: 0-9 are digits, then X, U, space, -, ], [.
var pagerFlexNumLUT = [16]byte{
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'X', 'U', ' ', '-', ']', '[',
}

// dispatchMessage decodes one vector's payload and calls the matching
// Decoder callback.
func (d *Decoder) dispatchMessage(phase string, msgType int, capCode uint32, longWord uint32, vector uint32, words []uint32) {
	switch msgType {
	case MessageAlphanumeric:
		d.dispatchAlphanumeric(phase, capCode, longWord, words)
	case MessageStandardNumeric, MessageSpecialNumeric, MessageNumberedNumeric:
		d.dispatchNumeric(phase, capCode, longWord, words)
	case MessageSpecialInstr:
		d.dispatchSIV(phase, capCode, vector)
	}
}

// dispatchAlphanumeric unpacks a FLEX alphanumeric message: a status
// word (either the vector's long-address word, or the first message
// word) followed by 21-bit codewords each holding three packed 7-bit
// ASCII characters, terminated by character value 0x3.
func (d *Decoder) dispatchAlphanumeric(phase string, capCode uint32, longWord uint32, words []uint32) {
	var status uint32
	body := words
	if longWord != 0 {
		status = longWord
	} else {
		if len(words) == 0 {
			return
		}
		status = words[0]
		body = words[1:]
	}

	fragment := (status>>10)&1 != 0
	seqNum := int((status >> 11) & 0x3)
	maildrop := seqNum == 3 && (status>>20)&1 != 0

	var msg []byte
	for _, w := range body {
		for shift := 14; shift >= 0; shift -= 7 {
			ch := byte((w >> uint(shift)) & 0x7f)
			if ch == 0x3 {
				goto done
			}
			msg = append(msg, ch)
			if len(msg) >= 255 {
				goto done
			}
		}
	}
done:
	d.cb.OnAlphanumeric(AlphanumericMessage{
		Baud:     d.s2.coding.Baud,
		Phase:    phase,
		CycleNo:  d.cycleID,
		FrameNo:  d.frameID,
		CapCode:  capCode,
		Fragment: fragment,
		Maildrop: maildrop,
		SeqNum:   seqNum,
		Message:  string(msg),
		FreqHz:   d.freqHz,
	})
}

// dispatchNumeric unpacks a FLEX numeric message: a stream of 4-bit
// nibbles packed across 21-bit codeword boundaries, each looked up in
// pagerFlexNumLUT. The long-word case drops its low two reserved bits
// before the nibble stream begins, leaving 19 usable bits.
func (d *Decoder) dispatchNumeric(phase string, capCode uint32, longWord uint32, words []uint32) {
	var acc uint64
	var accBits uint

	push := func(value uint32, bits uint) {
		acc = (acc << bits) | uint64(value)
		accBits += bits
	}

	if longWord != 0 {
		push((longWord&0x1fffff)>>2, 19)
	}
	for _, w := range words {
		push(w, 21)
	}

	var digits []byte
	for accBits >= 4 {
		nibble := byte((acc >> (accBits - 4)) & 0xf)
		accBits -= 4
		digits = append(digits, pagerFlexNumLUT[nibble])
	}

	d.cb.OnNumeric(NumericMessage{
		Baud:    d.s2.coding.Baud,
		Phase:   phase,
		CycleNo: d.cycleID,
		FrameNo: d.frameID,
		CapCode: capCode,
		Digits:  string(digits),
		FreqHz:  d.freqHz,
	})
}

// dispatchSIV decodes a special-instruction vector's 3-bit subtype
// (offset 7) and 11 bits of inline data (offset 10) directly from the
// vector word; SIVs carry no message words.
func (d *Decoder) dispatchSIV(phase string, capCode uint32, vector uint32) {
	d.cb.OnSIV(SIVMessage{
		Baud:    d.s2.coding.Baud,
		Phase:   phase,
		CycleNo: d.cycleID,
		FrameNo: d.frameID,
		CapCode: capCode,
		Subtype: int((vector >> 7) & 0x7),
		Data:    int((vector >> 10) & 0x7ff),
		FreqHz:  d.freqHz,
	})
}
