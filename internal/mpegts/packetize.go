package mpegts

// packetize splits pesData into 188-byte TS packets on pid, incrementing
// the continuity counter between packets. firstAdapt, when non-empty, is
// re-attached as the first packet's adaptation field content so the
// source's PCR survives re-packetization.
func packetize(pesData []byte, pid uint16, cc *byte, firstAdapt []byte) []byte {
	var out []byte
	offset := 0
	first := true

	if len(firstAdapt) > 0 && 5+len(firstAdapt) <= PacketSize {
		var pkt [PacketSize]byte
		pkt[0] = syncByte
		pkt[1] = 0x40 | byte(pid>>8)&0x1F
		pkt[2] = byte(pid)
		pkt[3] = 0x30 | *cc&0x0F
		*cc = (*cc + 1) & 0x0F

		// Widen the adaptation field with stuffing if the whole PES fits
		// in this one packet.
		capacity := PacketSize - 5 - len(firstAdapt)
		stuff := 0
		if len(pesData) < capacity {
			stuff = capacity - len(pesData)
		}
		pkt[4] = byte(len(firstAdapt) + stuff)
		copy(pkt[5:], firstAdapt)
		for i := 5 + len(firstAdapt); i < 5+len(firstAdapt)+stuff; i++ {
			pkt[i] = 0xFF
		}
		offset = copy(pkt[5+len(firstAdapt)+stuff:], pesData)
		out = append(out, pkt[:]...)
		first = false
	}

	for offset < len(pesData) {
		var pkt [PacketSize]byte
		pkt[0] = syncByte
		pkt[1] = byte(pid>>8) & 0x1F
		pkt[2] = byte(pid)
		if first {
			pkt[1] |= 0x40
			first = false
		}
		pkt[3] = 0x10 | *cc&0x0F
		*cc = (*cc + 1) & 0x0F

		remaining := len(pesData) - offset
		capacity := PacketSize - 4

		if remaining < capacity {
			stuffLen := capacity - remaining
			pkt[3] |= 0x20
			if stuffLen == 1 {
				pkt[4] = 0
			} else {
				pkt[4] = byte(stuffLen - 1)
				if stuffLen > 2 {
					pkt[5] = 0
					for i := 6; i < 4+stuffLen; i++ {
						pkt[i] = 0xFF
					}
				}
			}
			copy(pkt[4+stuffLen:], pesData[offset:])
			offset = len(pesData)
		} else {
			copy(pkt[4:], pesData[offset:offset+capacity])
			offset += capacity
		}

		out = append(out, pkt[:]...)
	}

	return out
}
