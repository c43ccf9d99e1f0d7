// Lingopipe is a demo web service that chains speech-to-text, grammar
// correction, machine translation, and text-to-speech behind a single
// HTTP endpoint.
//
// Usage:
//
//	lingopipe [flags]
//	lingopipe --config /path/to/lingopipe.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nadzzz/lingopipe/internal/config"
	"github.com/nadzzz/lingopipe/internal/correct"
	"github.com/nadzzz/lingopipe/internal/health"
	"github.com/nadzzz/lingopipe/internal/metrics"
	"github.com/nadzzz/lingopipe/internal/pipeline"
	"github.com/nadzzz/lingopipe/internal/seq2seq"
	"github.com/nadzzz/lingopipe/internal/server"
	"github.com/nadzzz/lingopipe/internal/stt/whisper"
	"github.com/nadzzz/lingopipe/internal/transcode"
	"github.com/nadzzz/lingopipe/internal/translate"
	"github.com/nadzzz/lingopipe/internal/tts/piper"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/lingopipe.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lingopipe %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("lingopipe starting", "version", version)

	// Artifact directories must exist before the first request.
	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.AudioDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics registry.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Wire up the pipeline adapters.
	ffmpeg := transcode.New(cfg.Transcode.FFmpegPath, cfg.Transcode.SampleRate,
		cfg.Transcode.Channels, time.Duration(cfg.Transcode.TimeoutSeconds)*time.Second)

	transcriber := whisper.New(cfg.STT)
	defer transcriber.Close()
	slog.Info("using whisper transcriber",
		"endpoint", cfg.STT.Endpoint, "flavor", cfg.STT.Flavor, "language", cfg.STT.Language)

	correctorClient := seq2seq.New(cfg.Corrector.Endpoint,
		time.Duration(cfg.Corrector.TimeoutSeconds)*time.Second)
	corrector := correct.New(correctorClient, cfg.Corrector.Model, cfg.Corrector.MaxLength)

	// The correction model is pinned at startup so the first request does
	// not pay the load cost; translation models stay lazy.
	if err := correctorClient.LoadModel(ctx, cfg.Corrector.Model); err != nil {
		slog.Error("failed to load correction model", "model", cfg.Corrector.Model, "error", err)
		os.Exit(1)
	}

	translatorClient := seq2seq.New(cfg.Translator.Endpoint,
		time.Duration(cfg.Translator.TimeoutSeconds)*time.Second)
	translator := translate.New(translatorClient, cfg.Translator.Source,
		cfg.Translator.Models, cfg.Translator.MaxLength)
	translator.OnModelLoad = func(code string) {
		m.TranslationModelLoads.WithLabelValues(code).Inc()
	}
	slog.Info("translator ready",
		"source", cfg.Translator.Source, "targets", len(cfg.Translator.Models))

	synthesizer := piper.New(cfg.TTS)
	defer synthesizer.Close()

	pipe := pipeline.New(ffmpeg, transcriber, corrector, translator, synthesizer,
		m, cfg.Storage.UploadDir, cfg.Storage.AudioDir)

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort, version)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start the public HTTP server.
	srv := server.New(cfg.Server.Port, cfg.Server.MaxUploadBytes,
		cfg.Storage.AudioDir, pipe, m, registry)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(ctx)
	}()

	healthServer.SetReady(true)
	slog.Info("lingopipe ready",
		"port", cfg.Server.Port,
		"health_port", cfg.Server.HealthPort,
		"upload_dir", cfg.Storage.UploadDir,
		"audio_dir", cfg.Storage.AudioDir)

	// Block until shutdown signal or server failure.
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining...")
	case err := <-errCh:
		if err != nil {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}

	if err := srv.Close(); err != nil {
		slog.Error("server close error", "error", err)
	}
	slog.Info("lingopipe stopped")
}
