package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/snarg/voxnote/internal/api"
	"github.com/snarg/voxnote/internal/config"
	"github.com/snarg/voxnote/internal/metrics"
	"github.com/snarg/voxnote/internal/notify"
	"github.com/snarg/voxnote/internal/pipeline"
	"github.com/snarg/voxnote/internal/sentiment"
	"github.com/snarg/voxnote/internal/storage"
	"github.com/snarg/voxnote/internal/synthesize"
	"github.com/snarg/voxnote/internal/transcribe"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default: .env)")
	flag.StringVar(&overrides.HTTPAddr, "listen", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.DataDir, "data-dir", "", "artifact root directory (overrides DATA_DIR)")
	flag.StringVar(&overrides.STTProvider, "stt-provider", "", "speech-to-text backend: whisper or openai (overrides STT_PROVIDER)")
	flag.Parse()

	if *showVersion {
		fmt.Println("voxnote", version)
		return
	}

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("voxnote starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	storeLog := log.With().Str("component", "storage").Logger()
	store, services, err := storage.New(cfg.S3, cfg.DataDir, storeLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}
	for _, svc := range services {
		svc.Start()
	}
	log.Info().Str("type", store.Type()).Str("data_dir", cfg.DataDir).Msg("storage ready")

	// Capabilities
	stt, err := transcribe.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure transcriber")
	}
	tts := synthesize.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAITTSModel)
	analyzer := sentiment.NewVaderAnalyzer()
	log.Info().
		Str("stt", stt.Name()).
		Str("tts", tts.Name()).
		Str("sentiment", analyzer.Name()).
		Msg("capabilities configured")

	// MQTT (optional)
	var publisher notify.Publisher = notify.Nop{}
	var mqttStatus api.ConnectionStatus
	if cfg.MQTT.Enabled() {
		mqttLog := log.With().Str("component", "mqtt").Logger()
		mqtt, err := notify.Connect(notify.Options{
			BrokerURL: cfg.MQTT.BrokerURL,
			ClientID:  cfg.MQTT.ClientID,
			Topic:     cfg.MQTT.Topic,
			Username:  cfg.MQTT.Username,
			Password:  cfg.MQTT.Password,
			Log:       mqttLog,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer mqtt.Close()
		publisher = mqtt
		mqttStatus = mqtt
	}

	// Pipeline
	orch := pipeline.New(pipeline.Options{
		Store:           store,
		Transcriber:     stt,
		Synthesizer:     tts,
		Analyzer:        analyzer,
		Publisher:       publisher,
		UpstreamTimeout: cfg.UpstreamTimeout,
		Log:             log.With().Str("component", "pipeline").Logger(),
	})
	if err := orch.SeedNamer(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to scan existing artifacts")
	}
	prometheus.MustRegister(metrics.NewCollector(orch))

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, api.ServerOptions{
		Pipeline:  orch,
		Store:     store,
		MQTT:      mqttStatus,
		Version:   version,
		StartTime: startTime,
		Log:       httpLog,
	})

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	// Drain pending uploads after the last request has finished
	for i := len(services) - 1; i >= 0; i-- {
		services[i].Stop()
	}

	log.Info().Msg("voxnote stopped")
}
