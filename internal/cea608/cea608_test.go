package cea608

import (
	"bytes"
	"math/bits"
	"testing"
)

func TestParityOddOverAllInputs(t *testing.T) {
	t.Parallel()

	for v := 0; v < 256; v++ {
		got := Parity(byte(v))
		if got&0x7F != byte(v)&0x7F {
			t.Errorf("Parity(%#02x) = %#02x, low 7 bits changed", v, got)
		}
		if bits.OnesCount8(got)%2 != 1 {
			t.Errorf("Parity(%#02x) = %#02x, want odd population count", v, got)
		}
	}
}

func TestAppendTriplet(t *testing.T) {
	t.Parallel()

	got := AppendTriplet(nil, HeaderField1, Pair{0x14, 0x25})
	want := []byte{0xFC, Parity(0x14), Parity(0x25)}
	if !bytes.Equal(got, want) {
		t.Fatalf("AppendTriplet = %#v, want %#v", got, want)
	}

	got = AppendTriplet(nil, HeaderField2, Pair{'H', 'I'})
	if got[0] != 0xFD {
		t.Fatalf("field 2 header = %#02x, want 0xFD", got[0])
	}
}

func TestFrameText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want []Pair
	}{
		{name: "empty", line: "", want: nil},
		{name: "even length", line: "HELLO!", want: []Pair{{'H', 'E'}, {'L', 'L'}, {'O', '!'}}},
		{name: "odd length pads space", line: "ABC", want: []Pair{{'A', 'B'}, {'C', ' '}}},
		{name: "single char", line: "X", want: []Pair{{'X', ' '}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := FrameText(tc.line)
			if len(got) != len(tc.want) {
				t.Fatalf("FrameText(%q) = %d pairs, want %d", tc.line, len(got), len(tc.want))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("pair %d = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestFrameTextTruncatesAt32(t *testing.T) {
	t.Parallel()

	line := "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" // 36 chars
	got := FrameText(line)
	if len(got) != 16 {
		t.Fatalf("FrameText(len %d) = %d pairs, want 16", len(line), len(got))
	}
	if got[15] != (Pair{'4', '5'}) {
		t.Errorf("last pair = %v, want {4 5}", got[15])
	}

	// Odd truncation boundary is impossible: the cap itself is even, so a
	// 33-char line still ends on a full pair.
	got = FrameText(line[:33])
	if got[15] != (Pair{'4', '5'}) {
		t.Errorf("last pair after 33-char input = %v, want {4 5}", got[15])
	}
}

func TestPACBitLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		row       int
		underline bool
		attr      byte
		want      Pair
	}{
		// Row 15 is transmission index 9: hi3=4, lsb=1.
		{name: "bottom row", row: 15, want: Pair{0x14, 0x60}},
		// Row 11 aliases indexes 0 and 1; the first (index 0) wins.
		{name: "row 11", row: 11, want: Pair{0x10, 0x40}},
		{name: "row 1", row: 1, want: Pair{0x11, 0x40}},
		{name: "underline", row: 15, underline: true, want: Pair{0x14, 0x61}},
		{name: "attribute", row: 15, attr: 0x05, want: Pair{0x14, 0x6A}},
		{name: "attribute masked to 4 bits", row: 15, attr: 0xF5, want: Pair{0x14, 0x6A}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := PAC(tc.row, tc.underline, tc.attr)
			if !ok {
				t.Fatalf("PAC(%d) not ok", tc.row)
			}
			if got != tc.want {
				t.Errorf("PAC(%d, %v, %#02x) = {%#02x %#02x}, want {%#02x %#02x}",
					tc.row, tc.underline, tc.attr, got[0], got[1], tc.want[0], tc.want[1])
			}
		})
	}
}

func TestPACRowsDistinctAndStable(t *testing.T) {
	t.Parallel()

	seen := map[Pair]int{}
	for row := 1; row <= 15; row++ {
		first, ok := PAC(row, false, 0)
		if !ok {
			t.Fatalf("PAC(%d) not ok", row)
		}
		if prev, dup := seen[first]; dup {
			t.Errorf("rows %d and %d share PAC {%#02x %#02x}", prev, row, first[0], first[1])
		}
		seen[first] = row

		for i := 0; i < 3; i++ {
			again, _ := PAC(row, false, 0)
			if again != first {
				t.Fatalf("PAC(%d) unstable: %v then %v", row, first, again)
			}
		}
	}
}

func TestPACRowOutOfRange(t *testing.T) {
	t.Parallel()

	for _, row := range []int{-1, 0, 16, 99} {
		if _, ok := PAC(row, false, 0); ok {
			t.Errorf("PAC(%d) ok, want no value", row)
		}
	}
}

// pairsOf splits encoded triplets back into parity-stripped payload pairs.
func pairsOf(t *testing.T, data []byte) []Pair {
	t.Helper()
	if len(data)%3 != 0 {
		t.Fatalf("output length %d not a multiple of 3", len(data))
	}
	var pairs []Pair
	for i := 0; i < len(data); i += 3 {
		if data[i] != HeaderField1 {
			t.Fatalf("triplet %d header = %#02x, want 0xFC", i/3, data[i])
		}
		pairs = append(pairs, Pair{data[i+1] & 0x7F, data[i+2] & 0x7F})
	}
	return pairs
}

func TestRollUp2FirstRepaintSendsModeEntry(t *testing.T) {
	t.Parallel()

	r := &RollUp2{}
	got := pairsOf(t, r.Repaint("HI"))
	want := []Pair{ctrlRU2, {0x14, 0x60}, {'H', 'I'}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, got[i], want[i])
		}
	}
	if !r.Started() {
		t.Error("renderer not marked started after repaint")
	}

	// Second repaint must not resend RU2.
	got = pairsOf(t, r.Repaint("HI"))
	if got[0] != (Pair{0x14, 0x60}) {
		t.Errorf("second repaint starts with %v, want PAC", got[0])
	}
}

func TestRollUp2RollCarriesReturnOnceStarted(t *testing.T) {
	t.Parallel()

	r := &RollUp2{}
	r.Repaint("ONE")

	got := pairsOf(t, r.Roll("TWO"))
	want := []Pair{ctrlRU2, ctrlCR, {0x14, 0x60}, {'T', 'W'}, {'O', ' '}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRollUp2RollBeforeStartOmitsReturn(t *testing.T) {
	t.Parallel()

	r := &RollUp2{}
	got := pairsOf(t, r.Roll("GO"))
	want := []Pair{ctrlRU2, {0x14, 0x60}, {'G', 'O'}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPopOnSelfContained(t *testing.T) {
	t.Parallel()

	p := PopOn{}
	for i := 0; i < 2; i++ {
		got := pairsOf(t, p.Repaint("OK"))
		want := []Pair{ctrlRCL, {0x14, 0x60}, {'O', 'K'}, ctrlEOC}
		if len(got) != len(want) {
			t.Fatalf("call %d: got %v, want %v", i, got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Errorf("call %d pair %d = %v, want %v", i, j, got[j], want[j])
			}
		}
	}
	if p.Started() {
		t.Error("pop-on reports started")
	}

	if !bytes.Equal(p.Roll("OK"), p.Repaint("OK")) {
		t.Error("pop-on Roll and Repaint differ")
	}
}
