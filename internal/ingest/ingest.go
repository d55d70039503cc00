// Package ingest opens the transport-stream input for a run: a local file,
// stdin, a bound UDP socket, or an SRT listener. Whatever the transport,
// the rest of the program sees a plain byte reader.
package ingest

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
)

// udpReadBufferSize bounds one TS datagram; 1316 bytes (7 TS packets) is
// the norm, 64 KiB covers jumbo senders.
const udpReadBufferSize = 64 * 1024

// Open returns a reader for url: "-" for stdin, "udp://host:port" for a
// bound datagram socket, "srt://host:port" for an SRT listener awaiting
// one publisher, anything else a file path. If log is nil, slog.Default()
// is used.
func Open(ctx context.Context, url string, log *slog.Logger) (io.ReadCloser, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "ingest")

	switch {
	case url == "-":
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(url, "udp://"):
		return openUDP(strings.TrimPrefix(url, "udp://"), log)
	case strings.HasPrefix(url, "srt://"):
		return openSRT(ctx, strings.TrimPrefix(url, "srt://"), log)
	default:
		return os.Open(url)
	}
}

// udpReader adapts a datagram socket to io.Reader, carrying the unread
// remainder of the last datagram between calls.
type udpReader struct {
	conn    *net.UDPConn
	scratch []byte
	rest    []byte
}

func openUDP(addr string, log *slog.Logger) (io.ReadCloser, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	log.Info("listening for transport stream", "addr", conn.LocalAddr().String())
	return &udpReader{conn: conn, scratch: make([]byte, udpReadBufferSize)}, nil
}

func (r *udpReader) Read(p []byte) (int, error) {
	for len(r.rest) == 0 {
		n, _, err := r.conn.ReadFromUDP(r.scratch)
		if err != nil {
			return 0, err
		}
		r.rest = r.scratch[:n]
	}
	n := copy(p, r.rest)
	r.rest = r.rest[n:]
	return n, nil
}

func (r *udpReader) Close() error {
	return r.conn.Close()
}
