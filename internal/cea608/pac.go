package cea608

// rowTable is the legacy CEA-608 PAC row permutation: transmission index
// (0-15) to on-screen row (1-15). The ordering is contractual (CEA-608-E
// preamble address codes) and must be reproduced literally, not derived.
// Indexes 0 and 1 both alias row 11; the first match wins.
var rowTable = [16]int{
	11, 11, 1, 2,
	3, 4, 12, 13,
	14, 15, 5, 6,
	7, 8, 9, 10,
}

// PAC returns the two-byte preamble address code that positions following
// text at row (1-15) with the given underline flag and 4-bit style
// attribute. ok is false when the row is not addressable; callers skip the
// emission rather than send malformed bytes.
func PAC(row int, underline bool, attr byte) (Pair, bool) {
	if row < 1 || row > 15 {
		return Pair{}, false
	}
	idx := -1
	for i, r := range rowTable {
		if r == row {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Pair{}, false
	}

	rowLSB := byte(idx & 1)
	rowHi3 := byte(idx>>1) & 7

	b1 := 0x10 | rowHi3
	b2 := 0x40 | rowLSB<<5 | (attr&0x0F)<<1
	if underline {
		b2 |= 1
	}
	return Pair{b1, b2}, true
}
