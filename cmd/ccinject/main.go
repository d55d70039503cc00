// Command ccinject reads an MPEG transport stream, arbitrates a CEA-608
// caption display from lines received over UDP, and writes the stream back
// out with caption SEI NALs injected into the video elementary stream.
//
// Configuration is by environment variable:
//
//	IN             input: "-" (stdin), udp://host:port, srt://host:port, or a file path
//	OUT            output: "-" (stdout) or a file path (default out.ts)
//	CC_ADDR        UDP address for caption lines (default 127.0.0.1:54001)
//	CC_ENABLE      listen for caption lines (default 1)
//	BOOTSTRAP      paint a placeholder at stream start (default 1)
//	BOOTSTRAP_TEXT placeholder text (default "CC ONLINE")
//	LINGER_MS      caption hold after the last line, in ms (default 750)
//	MODE           rollup2 or popon (default rollup2)
//	DEBUG          any value enables debug logging and the caption monitor
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/ccinject/internal/caption"
	"github.com/zsiec/ccinject/internal/ingest"
	"github.com/zsiec/ccinject/internal/lines"
	"github.com/zsiec/ccinject/internal/mpegts"
	"github.com/zsiec/ccinject/internal/pipeline"
)

var version = "dev"

// statsInterval is how often running counters are logged.
const statsInterval = 10 * time.Second

func main() {
	debug := os.Getenv("DEBUG") != ""
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	inURL := envOr("IN", "-")
	outPath := envOr("OUT", "out.ts")
	ccAddr := envOr("CC_ADDR", "127.0.0.1:54001")
	ccEnable := envOr("CC_ENABLE", "1") == "1"
	bootstrap := envOr("BOOTSTRAP", "1") == "1"
	bootstrapText := envOr("BOOTSTRAP_TEXT", "CC ONLINE")
	lingerMs := envInt("LINGER_MS", 750)
	mode := caption.ParseMode(envOr("MODE", "rollup2"))

	slog.Info("ccinject starting",
		"version", version,
		"in", inURL,
		"out", outPath,
		"cc_addr", ccAddr,
		"cc_enable", ccEnable,
	)

	var src lines.Source
	if ccEnable {
		s, err := lines.Listen(ccAddr, nil)
		if err != nil {
			// The video path still works without a caption source.
			slog.Warn("caption line socket unavailable, continuing without", "addr", ccAddr, "error", err)
		} else {
			src = s
			defer src.Close()
		}
	}

	input, err := ingest.Open(ctx, inURL, nil)
	if err != nil {
		slog.Error("failed to open input", "in", inURL, "error", err)
		os.Exit(1)
	}
	defer input.Close()

	var output io.WriteCloser
	if outPath == "-" {
		output = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			slog.Error("failed to create output", "out", outPath, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		output = f
	}

	arb := caption.New(caption.Config{
		Mode:          mode,
		Bootstrap:     bootstrap,
		BootstrapText: bootstrapText,
		Linger:        time.Duration(lingerMs) * time.Millisecond,
		Timebase:      caption.Timebase{Num: 1, Den: 90000},
	}, src, nil)

	var mon *caption.Monitor
	if debug {
		mon = caption.NewMonitor(nil)
	}

	pipe := pipeline.New(arb, mon, nil)
	inj := mpegts.NewInjector(input, output, pipe.ProcessFrame, nil)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return inj.Run(ctx)
	})

	// Socket inputs block in Read; closing them is what actually stops the
	// injector on shutdown.
	g.Go(func() error {
		<-ctx.Done()
		input.Close()
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				logStats("stats", pipe.Snapshot())
			}
		}
	})

	if err := g.Wait(); err != nil {
		slog.Error("injector error", "error", err)
		os.Exit(1)
	}

	logStats("finished", pipe.Snapshot())
}

func logStats(msg string, s pipeline.Stats) {
	slog.Info(msg,
		"frames", s.Frames,
		"injected", s.Injected,
		"rolls", s.Rolls,
		"repaints", s.Repaints,
		"last_pts", s.LastPTS,
		"state", s.State,
		"bottom", s.Bottom,
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring bad integer in environment", "key", key, "value", v)
		return fallback
	}
	return n
}
