// Package mpegts carries caption side data into an MPEG-TS byte stream.
// The injector reassembles video PES packets, asks a per-frame callback
// for cc_data, inserts the resulting SEI NAL before the first VCL NAL of
// the access unit, and re-packetizes the video PID. All other PIDs pass
// through untouched.
package mpegts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zsiec/ccinject/internal/a53"
)

// PacketSize is the fixed size of an MPEG-TS packet.
const PacketSize = 188

const syncByte = 0x47

// FrameFunc is called once per completed video access unit with the
// frame's presentation timestamp in the 90 kHz PES timebase. hasPTS is
// false when the PES header carried none. Returned cc_data triplets, if
// any, are attached to the frame; nil means leave it alone.
type FrameFunc func(pts int64, hasPTS bool) []byte

// Injector streams TS packets from r to w, injecting caption SEI NALs into
// the video elementary stream. The video PID is discovered from the first
// PES payload start carrying a video stream ID.
type Injector struct {
	log   *slog.Logger
	r     io.Reader
	w     io.Writer
	frame FrameFunc

	videoPID uint16
	havePID  bool
	cc       byte
	cur      *pesBuffer
	frames   int64
}

// pesBuffer accumulates one video PES packet across TS packets.
type pesBuffer struct {
	hdr   []byte // PES header through PES_header_data_length
	es    []byte
	adapt []byte // adaptation field content of the first TS packet (PCR)
}

// NewInjector creates an Injector. If log is nil, slog.Default() is used.
func NewInjector(r io.Reader, w io.Writer, frame FrameFunc, log *slog.Logger) *Injector {
	if log == nil {
		log = slog.Default()
	}
	return &Injector{
		log:   log.With("component", "injector"),
		r:     r,
		w:     w,
		frame: frame,
	}
}

// Frames returns the number of video access units processed so far.
func (in *Injector) Frames() int64 { return in.frames }

// Run copies the transport stream until EOF or context cancellation,
// flushing the final buffered video frame on the way out.
func (in *Injector) Run(ctx context.Context) error {
	pkt := make([]byte, PacketSize)
	for {
		if ctx.Err() != nil {
			if err := in.flush(); err != nil {
				return err
			}
			in.log.Info("cancelled", "frames", in.frames)
			return nil
		}

		if _, err := io.ReadFull(in.r, pkt); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || ctx.Err() != nil {
				if err := in.flush(); err != nil {
					return err
				}
				in.log.Info("input drained", "frames", in.frames)
				return nil
			}
			return fmt.Errorf("read transport stream: %w", err)
		}

		if err := in.handlePacket(pkt); err != nil {
			return err
		}
	}
}

func (in *Injector) handlePacket(pkt []byte) error {
	if pkt[0] != syncByte {
		// Out of sync; emit as-is and hope the next read realigns.
		return in.write(pkt)
	}

	pid := uint16(pkt[1]&0x1F)<<8 | uint16(pkt[2])
	pusi := pkt[1]&0x40 != 0
	payload, adapt := splitPacket(pkt)

	if !in.havePID {
		if pusi && isVideoPES(payload) {
			in.videoPID = pid
			in.havePID = true
			in.log.Info("video stream found", "pid", fmt.Sprintf("0x%04X", pid))
		} else {
			return in.write(pkt)
		}
	}

	if pid != in.videoPID {
		return in.write(pkt)
	}

	if pusi {
		if err := in.flush(); err != nil {
			return err
		}
		in.cur = newPESBuffer(payload, adapt)
		if in.cur == nil {
			// Malformed PES start; pass the packet through untouched.
			return in.write(pkt)
		}
		return nil
	}

	if in.cur != nil {
		in.cur.es = append(in.cur.es, payload...)
	}
	return nil
}

// flush completes the buffered video frame: pull its PTS, ask the frame
// callback for captions, splice in the SEI NAL, and write the frame back
// out as TS packets.
func (in *Injector) flush() error {
	if in.cur == nil {
		return nil
	}
	pb := in.cur
	in.cur = nil
	in.frames++

	pts, hasPTS := extractPTS(pb.hdr)
	es := pb.es
	if ccData := in.frame(pts, hasPTS); len(ccData) > 0 {
		es = insertSEI(es, a53.BuildSEINAL(ccData))
	}

	pes := buildPES(pb.hdr, es)
	return in.write(packetize(pes, in.videoPID, &in.cc, pb.adapt))
}

func (in *Injector) write(p []byte) error {
	if _, err := in.w.Write(p); err != nil {
		return fmt.Errorf("write transport stream: %w", err)
	}
	return nil
}

// splitPacket returns the packet payload and, when present, the
// adaptation field content (without its length byte).
func splitPacket(pkt []byte) (payload, adapt []byte) {
	headerLen := 4
	if pkt[3]&0x20 != 0 {
		adaptLen := int(pkt[4])
		if 5+adaptLen > PacketSize {
			return nil, nil
		}
		adapt = pkt[5 : 5+adaptLen]
		headerLen = 5 + adaptLen
	}
	if headerLen >= PacketSize {
		return nil, adapt
	}
	return pkt[headerLen:], adapt
}

// isVideoPES reports whether payload opens a PES packet with an MPEG video
// stream ID (0xE0-0xEF).
func isVideoPES(payload []byte) bool {
	return len(payload) >= 4 &&
		payload[0] == 0x00 && payload[1] == 0x00 && payload[2] == 0x01 &&
		payload[3] >= 0xE0 && payload[3] <= 0xEF
}

// newPESBuffer captures the PES header and initial ES bytes from the first
// packet payload of a video PES. Returns nil when the header is malformed.
func newPESBuffer(payload, adapt []byte) *pesBuffer {
	if len(payload) < 9 || !isVideoPES(payload) {
		return nil
	}
	hdrEnd := 9 + int(payload[8])
	if hdrEnd > len(payload) {
		return nil
	}
	pb := &pesBuffer{
		hdr: append([]byte(nil), payload[:hdrEnd]...),
		es:  append([]byte(nil), payload[hdrEnd:]...),
	}
	if len(adapt) > 0 {
		pb.adapt = append([]byte(nil), adapt...)
	}
	return pb
}

// extractPTS pulls the 33-bit presentation timestamp out of a PES header.
func extractPTS(hdr []byte) (int64, bool) {
	if len(hdr) < 14 || hdr[7]&0x80 == 0 {
		return 0, false
	}
	b := hdr[9:14]
	pts := int64(b[0]>>1&0x07)<<30 |
		int64(b[1])<<22 |
		int64(b[2]>>1&0x7F)<<15 |
		int64(b[3])<<7 |
		int64(b[4]>>1&0x7F)
	return pts, true
}

// buildPES reassembles a PES packet from its header and elementary stream
// data, fixing up the PES length field (0 when the ES exceeds the 16-bit
// field, the normal case for video).
func buildPES(hdr, es []byte) []byte {
	pes := make([]byte, 0, len(hdr)+len(es))
	pes = append(pes, hdr...)
	pesLen := len(hdr) - 6 + len(es)
	if pesLen <= 0xFFFF {
		pes[4] = byte(pesLen >> 8)
		pes[5] = byte(pesLen)
	} else {
		pes[4] = 0
		pes[5] = 0
	}
	return append(pes, es...)
}
