package cea608

// Control code pairs for data channel 1 (CC1). Each pair is transmitted as
// one triplet.
var (
	ctrlRU2 = Pair{0x14, 0x25} // roll-up captions, 2 rows
	ctrlCR  = Pair{0x14, 0x2D} // carriage return: scroll the roll-up window
	ctrlRCL = Pair{0x14, 0x20} // resume caption loading (pop-on)
	ctrlEOC = Pair{0x14, 0x2F} // end of caption: flip pop-on memory to display
)

// bottomRow is where all caption text is painted.
const bottomRow = 15

// Renderer produces the complete cc_data byte sequence for one caption
// update. Roll scrolls the display up before painting the new line;
// Repaint redraws the bottom row in place.
type Renderer interface {
	Roll(line string) []byte
	Repaint(line string) []byte
	Started() bool
}

// RollUp2 renders two-row roll-up captions. The mode-entry control code is
// sent on first use and must not repeat on repaints; the started flag
// records that.
type RollUp2 struct {
	started bool
}

// Roll emits RU2, a carriage return once the mode is live, then the PAC
// and text for the bottom row.
func (r *RollUp2) Roll(line string) []byte {
	pairs := make([]Pair, 0, 3+(len(line)+1)/2)
	pairs = append(pairs, ctrlRU2)
	if r.started {
		pairs = append(pairs, ctrlCR)
	}
	pairs = appendPaint(pairs, line)
	r.started = true
	return encode(pairs)
}

// Repaint redraws the bottom row without scrolling. RU2 is sent only on
// first use.
func (r *RollUp2) Repaint(line string) []byte {
	pairs := make([]Pair, 0, 2+(len(line)+1)/2)
	if !r.started {
		pairs = append(pairs, ctrlRU2)
	}
	pairs = appendPaint(pairs, line)
	r.started = true
	return encode(pairs)
}

// Started reports whether the mode-entry control code has been sent.
func (r *RollUp2) Started() bool { return r.started }

// PopOn renders self-contained pop-on captions: load off-screen, then flip.
// Every update carries the full RCL..EOC sequence, so there is no state to
// track and Roll and Repaint are identical.
type PopOn struct{}

func (PopOn) Roll(line string) []byte { return PopOn{}.Repaint(line) }

func (PopOn) Started() bool { return false }

func (PopOn) Repaint(line string) []byte {
	pairs := make([]Pair, 0, 3+(len(line)+1)/2)
	pairs = append(pairs, ctrlRCL)
	pairs = appendPaint(pairs, line)
	pairs = append(pairs, ctrlEOC)
	return encode(pairs)
}

func appendPaint(pairs []Pair, line string) []Pair {
	if pac, ok := PAC(bottomRow, false, 0); ok {
		pairs = append(pairs, pac)
	}
	return append(pairs, FrameText(line)...)
}

func encode(pairs []Pair) []byte {
	out := make([]byte, 0, len(pairs)*3)
	for _, p := range pairs {
		out = AppendTriplet(out, HeaderField1, p)
	}
	return out
}
