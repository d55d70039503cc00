// Package caption decides, once per video frame, whether the caption
// display is left alone, repainted in place, or rolled up to a new line,
// and renders the chosen update as cc_data bytes. The decision weighs a
// bootstrap window at stream start, fresh lines from the text source, and
// a linger window that keeps sparse captions on screen.
package caption

import (
	"log/slog"
	"time"

	"github.com/zsiec/ccinject/internal/cea608"
	"github.com/zsiec/ccinject/internal/lines"
)

// Mode selects the CEA-608 display mode used for every update in a run.
type Mode int

const (
	ModeRollUp2 Mode = iota
	ModePopOn
)

// ParseMode maps a configuration string to a Mode; unknown values fall
// back to roll-up 2, the broadcast default for live captions.
func ParseMode(s string) Mode {
	if s == "popon" {
		return ModePopOn
	}
	return ModeRollUp2
}

// Decision is the per-frame arbitration outcome.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionRepaint
	DecisionRoll
)

func (d Decision) String() string {
	switch d {
	case DecisionRepaint:
		return "repaint"
	case DecisionRoll:
		return "roll"
	default:
		return "none"
	}
}

// state tracks what, if anything, the display is showing.
type state int

const (
	stateEmpty state = iota
	stateBootstrap
	stateShowing
)

// Timebase is the encoder clock as a rational: Den/Num ticks per second.
// Frame timestamps handed to the arbiter must be in this timebase.
type Timebase struct {
	Num int64
	Den int64
}

// TicksFor converts a duration to encoder ticks, truncating toward zero.
func (tb Timebase) TicksFor(d time.Duration) int64 {
	return d.Milliseconds() * tb.Den / (1000 * tb.Num)
}

// window is a caption hold interval with an absolute expiry tick.
type window struct {
	expire int64
	set    bool
}

// active reports whether the window covers tick. An unset window covers
// nothing.
func (w window) active(tick int64) bool {
	return w.set && tick < w.expire
}

// bootstrapHold is how long the stream-start placeholder stays forced on
// screen so players detect the caption track.
const bootstrapHold = time.Second

// Config is the caption arbitration surface. Zero values for text and
// linger are valid (no placeholder text, no linger).
type Config struct {
	Mode          Mode
	Bootstrap     bool
	BootstrapText string
	Linger        time.Duration
	Timebase      Timebase
}

// Arbiter runs the per-frame caption state machine. It owns the two-row
// display state, the bootstrap and linger windows, and the renderer; it is
// confined to the frame loop's goroutine and needs no locking.
type Arbiter struct {
	log  *slog.Logger
	cfg  Config
	src  lines.Source // nil when the external source is disabled
	rend cea608.Renderer

	st        state
	top       string // previous roll-up line, empty until the first roll
	bottom    string // most recently accepted line
	bootstrap window
	linger    window
	started   bool // first frame has been processed
}

// New creates an Arbiter. src may be nil, leaving only bootstrap and
// linger behavior. If log is nil, slog.Default() is used.
func New(cfg Config, src lines.Source, log *slog.Logger) *Arbiter {
	if log == nil {
		log = slog.Default()
	}
	var rend cea608.Renderer
	switch cfg.Mode {
	case ModePopOn:
		rend = cea608.PopOn{}
	default:
		rend = &cea608.RollUp2{}
	}
	return &Arbiter{
		log:  log.With("component", "caption"),
		cfg:  cfg,
		src:  src,
		rend: rend,
	}
}

// OnFrame runs one arbitration step for the frame at pts. hasPTS is false
// when the frame carries no usable timestamp; windows then degrade to
// absolute expiries measured from zero. The returned bytes are the cc_data
// triplets to attach to this frame; nil means no emission.
func (a *Arbiter) OnFrame(pts int64, hasPTS bool) ([]byte, Decision) {
	var fresh string
	var hasFresh bool
	if a.src != nil {
		fresh, hasFresh = a.src.Poll()
	}
	if hasFresh {
		a.linger = a.windowFrom(pts, hasPTS, a.cfg.Linger)
	}

	first := !a.started
	a.started = true

	switch {
	case a.cfg.Bootstrap && first:
		// Force the placeholder onto the empty screen and hold both
		// windows open for it; a line arriving this very frame loses.
		a.bootstrap = a.windowFrom(pts, hasPTS, bootstrapHold)
		a.linger = a.bootstrap
		a.bottom = a.cfg.BootstrapText
		a.st = stateBootstrap
		a.log.Debug("bootstrap window opened", "expire_tick", a.bootstrap.expire)
		return a.emit(DecisionRepaint, a.cfg.BootstrapText)

	case a.cfg.Bootstrap && !hasFresh && hasPTS && a.bootstrap.active(pts):
		// Keep the placeholder alive until the window closes or a real
		// line supersedes it.
		return a.emit(DecisionRepaint, a.cfg.BootstrapText)

	case hasFresh:
		a.st = stateShowing
		switch {
		case a.bottom == "" && !a.rend.Started():
			// The very first line must not scroll an empty screen.
			a.bottom = fresh
			return a.emit(DecisionRepaint, fresh)
		case fresh != a.bottom:
			a.top = a.bottom
			a.bottom = fresh
			return a.emit(DecisionRoll, fresh)
		default:
			// Source resent the current line; rolling would duplicate it
			// onto both rows.
			return a.emit(DecisionRepaint, fresh)
		}

	case a.bottom != "" && hasPTS && a.linger.active(pts):
		return a.emit(DecisionRepaint, a.bottom)

	default:
		return nil, DecisionNone
	}
}

// Display returns the current top and bottom lines of the roll-up window.
func (a *Arbiter) Display() (top, bottom string) {
	return a.top, a.bottom
}

// State names what the display is currently showing, for diagnostics.
func (a *Arbiter) State() string {
	switch a.st {
	case stateBootstrap:
		return "bootstrap"
	case stateShowing:
		return "showing"
	default:
		return "empty"
	}
}

func (a *Arbiter) emit(d Decision, text string) ([]byte, Decision) {
	var data []byte
	if d == DecisionRoll {
		data = a.rend.Roll(text)
	} else {
		data = a.rend.Repaint(text)
	}
	return data, d
}

func (a *Arbiter) windowFrom(pts int64, hasPTS bool, d time.Duration) window {
	ticks := a.cfg.Timebase.TicksFor(d)
	if !hasPTS {
		return window{expire: ticks, set: true}
	}
	return window{expire: pts + ticks, set: true}
}
