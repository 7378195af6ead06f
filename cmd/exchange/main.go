// Command exchange serves the node exchange API. Handlers are routed by
// their verb markers.
//
// Run:
//
//	go run ./cmd/exchange
//
// Print the marker manifest:
//
//	go run ./cmd/exchange -manifest                    YAML to stdout
//	go run ./cmd/exchange -manifest -format json       JSON to stdout
//	go run ./cmd/exchange -manifest -o markers.yaml    write to file
//
// Then explore:
//
//	GET    http://localhost:8080/nodes
//	POST   http://localhost:8080/nodes
//	GET    http://localhost:8080/nodes/{id}
//	PUT    http://localhost:8080/nodes/{id}
//	PATCH  http://localhost:8080/nodes/{id}
//	DELETE http://localhost:8080/nodes/{id}
//	GET    http://localhost:8080/admin/status
//	GET    http://localhost:8080/markers.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bjaus/marker"
	"github.com/bjaus/marker/internal/exchange"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	manifestFlag := flag.Bool("manifest", false, "Print the marker manifest and exit")
	outFlag := flag.String("o", "", "Output file for the manifest (requires -manifest)")
	formatFlag := flag.String("format", "yaml", "Manifest format: yaml or json")
	rps := flag.Float64("rps", 0, "Per-client request rate limit; 0 disables it")
	corsFlag := flag.String("cors", "", "Comma-separated CORS origins; \"*\" allows any")
	burst := flag.Int("burst", 20, "Rate limit burst")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *manifestFlag {
		if err := writeManifest(*outFlag, marker.Format(*formatFlag)); err != nil {
			logger.Error("manifest generation failed", "err", err)
			os.Exit(1)
		}
		return
	}

	opts := []exchange.Option{exchange.WithLogger(logger)}
	if *rps > 0 {
		opts = append(opts, exchange.WithRateLimit(*rps, *burst))
	}
	if *corsFlag != "" {
		opts = append(opts, exchange.WithCORS(strings.Split(*corsFlag, ",")...))
	}

	r, err := exchange.NewRouter(exchange.NewNodes(), opts...)
	if err != nil {
		logger.Error("router setup failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server", "addr", *addr, "routes", len(r.Routes()))

	if err := r.ListenAndServe(ctx, *addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func writeManifest(outFile string, format marker.Format) error {
	var w io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile) //nolint:gosec // user-provided CLI flag
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(); err != nil {
				slog.Error("failed to close output file", "err", err)
			}
		}()
		w = f
	}
	return exchange.Registry().WriteManifest(w, format)
}
