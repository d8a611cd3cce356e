package bch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// BCH round-trip: encode any 21-bit data, inject 0-2 bit errors at any
// positions, decode -> original data. Injecting 3 errors must either
// correct to a valid (different) codeword or return ErrUncorrectable,
// never silently crash.
func Test_Code_RoundTrip_UpToTwoErrors(t *testing.T) {
	c := NewStandard()

	rapid.Check(t, func(t *rapid.T) {
		data := uint32(rapid.IntRange(0, (1<<21)-1).Draw(t, "data"))
		word := c.Encode(data)

		nrErrors := rapid.IntRange(0, 2).Draw(t, "nrErrors")
		corrupted := word
		used := map[int]bool{}
		for i := 0; i < nrErrors; i++ {
			pos := rapid.IntRange(0, n-1).Draw(t, "pos")
			for used[pos] {
				pos = (pos + 1) % n
			}
			used[pos] = true
			corrupted ^= 1 << uint(pos)
		}

		corrected, err := c.Decode(corrupted)
		require.NoError(t, err)
		assert.Equal(t, word, corrected)
	})
}

func Test_Code_ThreeErrors_UncorrectableOrWrongButNoPanic(t *testing.T) {
	c := NewStandard()

	rapid.Check(t, func(t *rapid.T) {
		data := uint32(rapid.IntRange(0, (1<<21)-1).Draw(t, "data"))
		word := c.Encode(data)

		corrupted := word
		used := map[int]bool{}
		for i := 0; i < 3; i++ {
			pos := rapid.IntRange(0, n-1).Draw(t, "pos")
			for used[pos] {
				pos = (pos + 1) % n
			}
			used[pos] = true
			corrupted ^= 1 << uint(pos)
		}

		assert.NotPanics(t, func() {
			_, _ = c.Decode(corrupted)
		})
	})
}

func Test_Code_ZeroErrors_DecodesCleanly(t *testing.T) {
	c := NewStandard()
	word := c.Encode(0x1fffff)
	corrected, err := c.Decode(word)
	require.NoError(t, err)
	assert.Equal(t, word, corrected)
}

// FLEX FIW checksum: summing the six 4-bit nibbles of a valid corrected
// FIW yields 15 mod 16.
func Test_FIWChecksum(t *testing.T) {
	// A FIW with nibbles chosen so their sum mod 16 is 15.
	var fiw uint32
	nibbles := [6]uint32{1, 2, 3, 4, 5, 0}
	var sum uint32
	for _, nb := range nibbles {
		sum += nb
	}
	nibbles[5] = (15 - sum%16 + 16) % 16
	for i, nb := range nibbles {
		fiw |= nb << uint(4*i)
	}

	var check uint32
	for i := 0; i < 6; i++ {
		check += (fiw >> uint(4*i)) & 0xf
	}
	assert.Equal(t, uint32(15), check%16)
}
