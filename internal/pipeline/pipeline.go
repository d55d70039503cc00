// Package pipeline ties the caption arbiter to the TS injector, counting
// frames and caption decisions along the way.
package pipeline

import (
	"log/slog"
	"sync/atomic"

	"github.com/zsiec/ccinject/internal/caption"
)

// Stats is a snapshot of pipeline counters, logged periodically and once
// at shutdown.
type Stats struct {
	Frames   int64  `json:"frames"`
	Injected int64  `json:"injected"`
	Rolls    int64  `json:"rolls"`
	Repaints int64  `json:"repaints"`
	LastPTS  int64  `json:"lastPts"`
	Top      string `json:"top"`
	Bottom   string `json:"bottom"`
	State    string `json:"state"`
}

// Pipeline adapts the arbiter to the injector's per-frame callback and
// keeps running counters. An optional monitor decodes every emitted
// cc_data block back to text for verification. ProcessFrame runs on the
// injector's goroutine; Snapshot may be called from any goroutine.
type Pipeline struct {
	log *slog.Logger
	arb *caption.Arbiter
	mon *caption.Monitor

	frames   atomic.Int64
	injected atomic.Int64
	rolls    atomic.Int64
	repaints atomic.Int64
	lastPTS  atomic.Int64
	top      atomic.Value // string
	bottom   atomic.Value // string
	state    atomic.Value // string
}

// New creates a Pipeline. mon may be nil to skip self-monitoring. If log
// is nil, slog.Default() is used.
func New(arb *caption.Arbiter, mon *caption.Monitor, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	p := &Pipeline{
		log: log.With("component", "pipeline"),
		arb: arb,
		mon: mon,
	}
	p.top.Store("")
	p.bottom.Store("")
	p.state.Store(arb.State())
	return p
}

// ProcessFrame runs the arbiter for one video frame and returns the
// cc_data to attach, nil for none. It satisfies mpegts.FrameFunc.
func (p *Pipeline) ProcessFrame(pts int64, hasPTS bool) []byte {
	p.frames.Add(1)
	if hasPTS {
		p.lastPTS.Store(pts)
	}

	ccData, decision := p.arb.OnFrame(pts, hasPTS)
	top, bottom := p.arb.Display()
	p.top.Store(top)
	p.bottom.Store(bottom)
	p.state.Store(p.arb.State())

	switch decision {
	case caption.DecisionRoll:
		p.rolls.Add(1)
	case caption.DecisionRepaint:
		p.repaints.Add(1)
	default:
		return nil
	}
	p.injected.Add(1)

	if p.mon != nil {
		p.mon.Observe(ccData, pts)
	}
	p.log.Debug("inject", "kind", decision.String(), "bytes", len(ccData), "pts", pts)
	return ccData
}

// Snapshot returns the current counters and display state.
func (p *Pipeline) Snapshot() Stats {
	return Stats{
		Frames:   p.frames.Load(),
		Injected: p.injected.Load(),
		Rolls:    p.rolls.Load(),
		Repaints: p.repaints.Load(),
		LastPTS:  p.lastPTS.Load(),
		Top:      p.top.Load().(string),
		Bottom:   p.bottom.Load().(string),
		State:    p.state.Load().(string),
	}
}
