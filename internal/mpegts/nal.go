package mpegts

// VCL NAL types for H.264: non-IDR and IDR slices.
const (
	nalTypeSliceNonIDR = 1
	nalTypeSliceIDR    = 5
)

// findNALStarts returns the byte offsets immediately after each 3- or
// 4-byte Annex-B start code found in data.
func findNALStarts(data []byte) []int {
	var starts []int
	for i := 0; i < len(data)-3; i++ {
		if data[i] == 0 && data[i+1] == 0 {
			if data[i+2] == 0 && data[i+3] == 1 {
				starts = append(starts, i+4)
				i += 3
			} else if data[i+2] == 1 {
				starts = append(starts, i+3)
				i += 2
			}
		}
	}
	return starts
}

// insertSEI splices seiNAL into the elementary stream before the first VCL
// NAL, as H.264 access-unit ordering requires SEI to precede slice data.
// With no VCL NAL present it appends at the end.
func insertSEI(es, seiNAL []byte) []byte {
	for _, ns := range findNALStarts(es) {
		if ns >= len(es) {
			continue
		}
		nalType := es[ns] & 0x1F
		if nalType != nalTypeSliceNonIDR && nalType != nalTypeSliceIDR {
			continue
		}

		insertPos := ns
		if ns >= 4 && es[ns-4] == 0 && es[ns-3] == 0 && es[ns-2] == 0 && es[ns-1] == 1 {
			insertPos = ns - 4
		} else if ns >= 3 && es[ns-3] == 0 && es[ns-2] == 0 && es[ns-1] == 1 {
			insertPos = ns - 3
		}

		out := make([]byte, 0, len(es)+len(seiNAL))
		out = append(out, es[:insertPos]...)
		out = append(out, seiNAL...)
		out = append(out, es[insertPos:]...)
		return out
	}
	return append(es, seiNAL...)
}
