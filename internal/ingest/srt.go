package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	srtgo "github.com/zsiec/srtgo"
)

// srtReadBufferSize is the read buffer for SRT socket reads.
// 1316 bytes = 7 MPEG-TS packets (188 * 7), the standard SRT payload size.
const srtReadBufferSize = 1316 * 10

// srtLatencyNs is the SRT latency setting in nanoseconds (120ms).
const srtLatencyNs = 120_000_000

// openSRT listens on addr and hands back a pipe fed by the first publisher
// to connect. The listener stops accepting after that first connection;
// the pipe closes when the publisher disconnects or ctx is cancelled.
func openSRT(ctx context.Context, addr string, log *slog.Logger) (io.ReadCloser, error) {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs

	l, err := srtgo.Listen(addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("SRT listen on %s: %w", addr, err)
	}
	log.Info("awaiting SRT publisher", "addr", addr)

	l.SetAcceptRejectFunc(func(req srtgo.ConnRequest) srtgo.RejectReason {
		return 0
	})

	pr, pw := io.Pipe()

	go func() {
		defer l.Close()

		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				l.Close()
			case <-done:
			}
		}()

		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				pw.CloseWithError(ctx.Err())
			} else {
				pw.CloseWithError(fmt.Errorf("SRT accept: %w", err))
			}
			return
		}
		defer conn.Close()
		log.Info("publisher connected", "remote", conn.RemoteAddr(), "stream_id", conn.StreamID())

		buf := make([]byte, srtReadBufferSize)
		for {
			if ctx.Err() != nil {
				pw.CloseWithError(ctx.Err())
				return
			}
			n, err := conn.Read(buf)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					log.Debug("read error", "error", err)
				}
				pw.Close()
				return
			}
			if _, err := pw.Write(buf[:n]); err != nil {
				return
			}
		}
	}()

	return pr, nil
}
