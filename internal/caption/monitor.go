package caption

import (
	"log/slog"

	"github.com/zsiec/ccx"
)

// Monitor runs this process's own cc_data through a CEA-608 decoder,
// surfacing the text a viewer's decoder would put on screen. Observation
// only; it never affects emission.
type Monitor struct {
	log *slog.Logger
	dec *ccx.CEA608Decoder
}

// NewMonitor creates a Monitor. If log is nil, slog.Default() is used.
func NewMonitor(log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		log: log.With("component", "monitor"),
		dec: ccx.NewCEA608Decoder(),
	}
}

// Observe feeds one frame's cc_data triplets through the decoder and logs
// any display text they complete.
func (m *Monitor) Observe(ccData []byte, pts int64) {
	for i := 0; i+2 < len(ccData); i += 3 {
		if ccData[i]&0x04 == 0 { // cc_valid
			continue
		}
		if text := m.dec.Decode(ccData[i+1], ccData[i+2]); text != "" {
			m.log.Debug("decoded display", "text", text, "pts", pts)
		}
	}
}
