// Package bch implements the BCH(31,21,t=2) codec used to protect FLEX and
// POCSAG framing words. The decoder follows the classic multimon-ng-style
// syndrome-based two-error solver: it is not a general Berlekamp-Massey
// decoder, only the specialised n=31, k=21, t=2 case, so Code's field
// widths are fixed rather than parameterized.
package bch

import "errors"

const (
	m = 5  // order of GF(2^m)
	n = 31 // 2^m - 1, codeword length
	k = 21 // data bits
	t = 2  // error-correcting capability
)

// ErrUncorrectable is returned when the syndrome indicates more errors
// than the code can correct.
var ErrUncorrectable = errors.New("bch: uncorrectable codeword")

// StandardPrimitivePoly is the coefficients of x^5+x^2+1, the primitive
// polynomial used to generate GF(2^5).
var StandardPrimitivePoly = [m + 1]int{1, 0, 1, 0, 0, 1}

// Code holds the GF(2^5) log/antilog tables and generator polynomial for
// BCH(31,21,2).
type Code struct {
	alphaTo [n + 1]int
	indexOf [n + 1]int
	g       [n - k + 1]int
}

// New builds a Code from a primitive polynomial (as m+1 coefficients,
// p[i] for x^i).
func New(p [m + 1]int) *Code {
	c := &Code{}
	c.generateGF(p)
	c.genPoly()
	return c
}

// NewStandard builds a Code using StandardPrimitivePoly.
func NewStandard() *Code {
	return New(StandardPrimitivePoly)
}

func (c *Code) generateGF(p [m + 1]int) {
	mask := 1
	c.alphaTo[m] = 0
	for i := 0; i < m; i++ {
		c.alphaTo[i] = mask
		c.indexOf[c.alphaTo[i]] = i
		if p[i] != 0 {
			c.alphaTo[m] ^= mask
		}
		mask <<= 1
	}
	c.indexOf[c.alphaTo[m]] = m
	mask >>= 1
	for i := m + 1; i < n; i++ {
		if c.alphaTo[i-1] >= mask {
			c.alphaTo[i] = c.alphaTo[m] ^ ((c.alphaTo[i-1] ^ mask) << 1)
		} else {
			c.alphaTo[i] = c.alphaTo[i-1] << 1
		}
		c.indexOf[c.alphaTo[i]] = i
	}
	c.indexOf[0] = -1
}

// genPoly computes the generator polynomial via cyclic coset enumeration
// modulo n, mirroring bch_code.c's gen_poly exactly (including its 15/11
// element scratch arrays, which are sized for this specific (31,21,2)
// code and not general-purpose).
func (c *Code) genPoly() {
	var cycle [15][6]int
	var size [15]int
	var min [11]int
	var zeros [11]int

	cycle[0][0] = 0
	size[0] = 1
	cycle[1][0] = 1
	size[1] = 1

	jj := 1
	ll := 0
	for {
		ii := 0
		for {
			ii++
			cycle[jj][ii] = (cycle[jj][ii-1] * 2) % n
			size[jj]++
			aux := (cycle[jj][ii] * 2) % n
			if aux == cycle[jj][0] {
				break
			}
		}

		ll = 0
		test := false
		for {
			ll++
			test = false
			for ii := 1; ii <= jj && !test; ii++ {
				for kaux := 0; kaux < size[ii] && !test; kaux++ {
					if ll == cycle[ii][kaux] {
						test = true
					}
				}
			}
			if !(test && ll < n-1) {
				break
			}
		}
		if !test {
			jj++
			cycle[jj][0] = ll
			size[jj] = 1
		}
		if ll >= n-1 {
			break
		}
	}
	nocycles := jj

	kaux := 0
	rdncy := 0
	for ii := 1; ii <= nocycles; ii++ {
		min[kaux] = 0
		for jj := 0; jj < size[ii]; jj++ {
			for root := 1; root < 2*t+1; root++ {
				if root == cycle[ii][jj] {
					min[kaux] = ii
				}
			}
		}
		if min[kaux] != 0 {
			rdncy += size[min[kaux]]
			kaux++
		}
	}
	noterms := kaux
	kaux = 1
	for ii := 0; ii < noterms; ii++ {
		for jj := 0; jj < size[min[ii]]; jj++ {
			zeros[kaux] = cycle[min[ii]][jj]
			kaux++
		}
	}

	c.g[0] = c.alphaTo[zeros[1]]
	c.g[1] = 1
	for ii := 2; ii <= rdncy; ii++ {
		c.g[ii] = 1
		for jj := ii - 1; jj > 0; jj-- {
			if c.g[jj] != 0 {
				c.g[jj] = c.g[jj-1] ^ c.alphaTo[(c.indexOf[c.g[jj]]+zeros[ii])%n]
			} else {
				c.g[jj] = c.g[jj-1]
			}
		}
		c.g[0] = c.alphaTo[(c.indexOf[c.g[0]]+zeros[ii])%n]
	}
}

// encodeBB computes the 10-bit redundancy polynomial for a 21-bit data
// array via the systematic LFSR encoder: r(x) = (x^10·i(x)) mod g(x).
func (c *Code) encodeBB(data [k]int) [n - k]int {
	var bb [n - k]int
	for i := k - 1; i >= 0; i-- {
		feedback := data[i] ^ bb[n-k-1]
		if feedback != 0 {
			for j := n - k - 1; j > 0; j-- {
				if c.g[j] != 0 {
					bb[j] = bb[j-1] ^ feedback
				} else {
					bb[j] = bb[j-1]
				}
			}
			if c.g[0] != 0 {
				bb[0] = 1
			} else {
				bb[0] = 0
			}
		} else {
			for j := n - k - 1; j > 0; j-- {
				bb[j] = bb[j-1]
			}
			bb[0] = 0
		}
	}
	return bb
}

// Encode packs a 21-bit data value (MSB-first: bit 20 is data[0]) into a
// 31-bit BCH codeword. Used only by test vectors — no decoder path in the
// FLEX/POCSAG state machines calls this; they already receive
// BCH-protected words off the air and only ever Decode.
func (c *Code) Encode(dataValue uint32) uint32 {
	var data [k]int
	for i := 0; i < k; i++ {
		data[i] = int((dataValue >> uint(k-1-i)) & 1)
	}
	bb := c.encodeBB(data)

	var word uint32
	for j := 0; j < n-k; j++ {
		if bb[j] != 0 {
			word |= 1 << uint(n-1-j)
		}
	}
	for i := 0; i < k; i++ {
		j := i + (n - k)
		if data[i] != 0 {
			word |= 1 << uint(n-1-j)
		}
	}
	return word
}

// Decode corrects up to two bit errors in a 31-bit codeword, returning
// ErrUncorrectable if the syndrome can't be resolved to exactly two error
// locations.
func (c *Code) Decode(word uint32) (uint32, error) {
	recd := word

	var s [5]int
	synError := false
	for i := 1; i <= 4; i++ {
		var acc int
		for j := 0; j < n; j++ {
			if (recd>>uint(n-1-j))&1 != 0 {
				acc ^= c.alphaTo[(i*j)%n]
			}
		}
		if acc != 0 {
			synError = true
		}
		s[i] = c.indexOf[acc]
	}

	if !synError {
		return recd, nil
	}

	if s[1] == -1 {
		return recd, ErrUncorrectable
	}

	s3 := (s[1] * 3) % n
	if s[3] == s3 {
		recd ^= 1 << uint(n-1-s[1])
		return recd, nil
	}

	var aux int
	if s[3] != -1 {
		aux = c.alphaTo[s3] ^ c.alphaTo[s[3]]
	} else {
		aux = c.alphaTo[s3]
	}

	var elp [3]int
	elp[1] = (s[2] - c.indexOf[aux] + n) % n
	elp[2] = (s[1] - c.indexOf[aux] + n) % n

	reg := [3]int{0, elp[1], elp[2]}
	var loc [2]int
	count := 0
	for i := 1; i <= n; i++ {
		q := 1
		for j := 1; j <= 2; j++ {
			if reg[j] != -1 {
				reg[j] = (reg[j] + j) % n
				q ^= c.alphaTo[reg[j]]
			}
		}
		if q == 0 {
			if count < len(loc) {
				loc[count] = i % n
			}
			count++
		}
	}

	if count != 2 {
		return recd, ErrUncorrectable
	}
	recd ^= 1 << uint(n-1-loc[0])
	recd ^= 1 << uint(n-1-loc[1])
	return recd, nil
}
