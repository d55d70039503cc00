// Package cea608 encodes caption text as CEA-608 byte pairs wrapped in
// A/53 cc_data triplets: odd-parity protection, preamble address codes,
// and the roll-up/pop-on control sequences that drive a line-21 decoder.
package cea608

import "math/bits"

// cc_data triplet headers: marker_bits(5)=11111, cc_valid=1, cc_type(2).
// Field 1 is the only field this encoder emits; Field 2 exists so the
// triplet builder stays general.
const (
	HeaderField1 = 0xFC
	HeaderField2 = 0xFD
)

// MaxLineLength is the CEA-608 row width. Longer text is truncated, never
// wrapped.
const MaxLineLength = 32

// Parity masks b to 7 bits and sets bit 7 so the result has odd parity
// over all 8 bits, the CEA-608 transmission-error check.
func Parity(b byte) byte {
	b &= 0x7F
	if bits.OnesCount8(b)%2 == 0 {
		return b | 0x80
	}
	return b
}

// Pair is one CEA-608 payload byte pair, pre-parity.
type Pair [2]byte

// AppendTriplet appends one 3-byte cc_data triplet to dst: the field
// header followed by the parity-protected payload pair.
func AppendTriplet(dst []byte, header byte, p Pair) []byte {
	return append(dst, header, Parity(p[0]), Parity(p[1]))
}

// FrameText splits line into transmission pairs, at most MaxLineLength
// characters. An odd trailing character is padded with a space. Empty
// input yields no pairs.
func FrameText(line string) []Pair {
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength]
	}
	pairs := make([]Pair, 0, (len(line)+1)/2)
	for i := 0; i < len(line); i += 2 {
		c2 := byte(' ')
		if i+1 < len(line) {
			c2 = line[i+1]
		}
		pairs = append(pairs, Pair{line[i], c2})
	}
	return pairs
}
