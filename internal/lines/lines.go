// Package lines receives caption text over a datagram socket and hands the
// most recent complete line to the frame loop, one non-blocking poll per
// video frame. Bursts collapse: only the last usable line survives a poll.
package lines

import (
	"errors"
	"log/slog"
	"net"

	"github.com/zsiec/ccinject/internal/cea608"
)

// readBufferSize bounds one datagram; anything longer is truncated by the
// socket read, which is fine given the 32-character row cap.
const readBufferSize = 2048

// msgBacklog is the burst capacity between polls. Overflow drops the oldest
// message, which the last-line-wins contract makes invisible.
const msgBacklog = 64

// Source yields at most one sanitized caption line per poll.
type Source interface {
	// Poll drains everything received since the previous call and returns
	// the most recent complete line, if any. It never blocks; no data is
	// not an error.
	Poll() (string, bool)
	Close() error
}

// UDPSource owns a bound UDP socket for the lifetime of a run. A reader
// goroutine moves datagrams into a buffered channel; Poll drains the
// channel on the frame loop's thread.
type UDPSource struct {
	log  *slog.Logger
	conn *net.UDPConn
	msgs chan []byte
}

// Listen binds addr (host:port) and starts receiving caption text.
// If log is nil, slog.Default() is used.
func Listen(addr string, log *slog.Logger) (*UDPSource, error) {
	if log == nil {
		log = slog.Default()
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	s := &UDPSource{
		log:  log.With("component", "lines"),
		conn: conn,
		msgs: make(chan []byte, msgBacklog),
	}
	go s.readLoop()

	s.log.Info("listening for captions", "addr", conn.LocalAddr().String())
	return s, nil
}

func (s *UDPSource) readLoop() {
	buf := make([]byte, readBufferSize)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			// Read errors end the feed for the run; the caption path
			// keeps running on whatever arrived before.
			if !errors.Is(err, net.ErrClosed) {
				s.log.Warn("caption socket read failed", "error", err)
			}
			return
		}
		msg := make([]byte, n)
		copy(msg, buf[:n])
		select {
		case s.msgs <- msg:
		default:
			select {
			case <-s.msgs:
			default:
			}
			select {
			case s.msgs <- msg:
			default:
			}
		}
	}
}

// Poll drains all queued datagrams and returns the last one that reduces to
// a non-empty sanitized line. Earlier messages in the burst are discarded.
func (s *UDPSource) Poll() (string, bool) {
	var line string
	var got bool
	for {
		select {
		case msg := <-s.msgs:
			if l, ok := ExtractLine(msg); ok {
				line, got = l, true
				s.log.Info("caption line received", "text", line)
			}
		default:
			return line, got
		}
	}
}

// Close releases the socket and stops the reader goroutine.
func (s *UDPSource) Close() error {
	return s.conn.Close()
}

// ExtractLine reduces one datagram to its caption-line candidate. Carriage
// returns count as line feeds, the last non-empty LF-separated segment
// wins, and the segment is sanitized: printable ASCII kept, tab becomes a
// space, scanning stops at any other control character, the result is
// capped at 32 characters and trimmed of surrounding spaces. ok is false
// when nothing usable remains.
func ExtractLine(msg []byte) (string, bool) {
	var last []byte
	start := 0
	for i := 0; i <= len(msg); i++ {
		if i == len(msg) || msg[i] == '\n' || msg[i] == '\r' {
			if i > start {
				last = msg[start:i]
			}
			start = i + 1
		}
	}
	if len(last) == 0 {
		return "", false
	}

	buf := make([]byte, 0, cea608.MaxLineLength)
scan:
	for _, c := range last {
		switch {
		case c == '\t':
			c = ' '
		case c < 0x20 || c > 0x7E:
			break scan
		}
		buf = append(buf, c)
		if len(buf) == cea608.MaxLineLength {
			break
		}
	}

	line := string(trimSpaces(buf))
	if line == "" {
		return "", false
	}
	return line, true
}

func trimSpaces(b []byte) []byte {
	for len(b) > 0 && b[0] == ' ' {
		b = b[1:]
	}
	for len(b) > 0 && b[len(b)-1] == ' ' {
		b = b[:len(b)-1]
	}
	return b
}
