// Package a53 wraps CEA-608 cc_data in the ATSC A/53 Part 4 carriage
// structures used with H.264: the user_data_registered_itu_t_t35 payload
// and the SEI NAL unit that carries it into the elementary stream.
package a53

// seiTypeUserDataRegistered is SEI payload type 4,
// user_data_registered_itu_t_t35.
const seiTypeUserDataRegistered = 4

// maxCCCount is the 5-bit cc_count ceiling; excess triplets are dropped.
const maxCCCount = 31

// BuildPayload constructs the A/53 Part 4 cc_data() user data structure
// around the given cc_data triplets (3 bytes each, headers included).
func BuildPayload(ccData []byte) []byte {
	ccCount := len(ccData) / 3
	if ccCount > maxCCCount {
		ccCount = maxCCCount
	}

	payload := make([]byte, 0, 10+ccCount*3)
	payload = append(payload, 0xB5)       // itu_t_t35_country_code: United States
	payload = append(payload, 0x00, 0x31) // itu_t_t35_provider_code: ATSC
	payload = append(payload, 'G', 'A', '9', '4')
	payload = append(payload, 0x03) // user_data_type_code: cc_data

	payload = append(payload, 0x40|byte(ccCount)&0x1F) // process_cc_data_flag=1
	payload = append(payload, 0xFF)                    // em_data (reserved)
	payload = append(payload, ccData[:ccCount*3]...)
	payload = append(payload, 0xFF) // marker_bits
	return payload
}

// BuildSEINAL returns a complete Annex-B SEI NAL unit carrying ccData:
// start code, NAL header, SEI message framing, RBSP trailing bits, and
// emulation prevention.
func BuildSEINAL(ccData []byte) []byte {
	sei := EncodeSEIMessage(seiTypeUserDataRegistered, BuildPayload(ccData))
	sei = append(sei, 0x80) // RBSP trailing bits

	nal := make([]byte, 0, len(sei)+8)
	nal = append(nal, 0x00, 0x00, 0x00, 0x01) // start code
	nal = append(nal, 0x06)                   // NAL header: type 6 (SEI), NRI=0
	nal = append(nal, AddEPB(sei)...)
	return nal
}

// EncodeSEIMessage encodes one H.264 SEI message with the given payload
// type and bytes, using the 0xFF multi-byte encoding for large values.
func EncodeSEIMessage(payloadType int, payload []byte) []byte {
	var out []byte
	pt := payloadType
	for pt >= 255 {
		out = append(out, 0xFF)
		pt -= 255
	}
	out = append(out, byte(pt))

	ps := len(payload)
	for ps >= 255 {
		out = append(out, 0xFF)
		ps -= 255
	}
	out = append(out, byte(ps))
	out = append(out, payload...)
	return out
}

// AddEPB inserts emulation prevention bytes per ITU-T H.264: a 0x03 before
// any byte <= 0x03 that follows two consecutive zero bytes.
func AddEPB(data []byte) []byte {
	out := make([]byte, 0, len(data))
	zeros := 0
	for _, b := range data {
		if zeros >= 2 && b <= 0x03 {
			out = append(out, 0x03)
			zeros = 0
		}
		out = append(out, b)
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// RemoveEPB strips emulation prevention bytes (0x00 0x00 0x03 before a
// byte <= 0x03 becomes 0x00 0x00).
func RemoveEPB(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if i+2 < len(data) && data[i] == 0x00 && data[i+1] == 0x00 && data[i+2] == 0x03 &&
			(i+3 >= len(data) || data[i+3] <= 0x03) {
			out = append(out, 0x00, 0x00)
			i += 2
		} else {
			out = append(out, data[i])
		}
	}
	return out
}
