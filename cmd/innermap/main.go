package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/innermap/innermap-backend/internal/api"
	"github.com/innermap/innermap-backend/internal/config"
	"github.com/innermap/innermap-backend/internal/metrics"
	"github.com/innermap/innermap-backend/internal/mqttclient"
	"github.com/innermap/innermap-backend/internal/transcribe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var version = "dev"

func main() {
	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default .env)")
	flag.StringVar(&overrides.Host, "host", "", "listen host (overrides HOST)")
	flag.IntVar(&overrides.Port, "port", 0, "listen port (overrides PORT)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.Backend, "backend", "", "whisper backend: local, http, openai (overrides WHISPER_BACKEND)")
	flag.StringVar(&overrides.Model, "model", "", "whisper model (overrides WHISPER_MODEL)")
	flag.Parse()

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
	log.Info().Str("version", version).Msg("innermap-backend starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Engine: a load failure only disables /transcribe
	engineLog := log.With().Str("component", "engine").Logger()
	engineLog.Info().
		Str("backend", cfg.Whisper.Backend).
		Str("model", cfg.Whisper.Model).
		Msg("loading whisper engine")
	engine, err := transcribe.Load(ctx, transcribe.EngineOptions{
		Backend:     cfg.Whisper.Backend,
		Model:       cfg.Whisper.Model,
		Language:    cfg.Whisper.Language,
		Bin:         cfg.Whisper.Bin,
		ModelDir:    cfg.Whisper.ModelDir,
		URL:         cfg.Whisper.URL,
		SkipProbe:   cfg.Whisper.SkipProbe,
		APIKey:      cfg.Whisper.OpenAIAPIKey,
		BaseURL:     cfg.Whisper.OpenAIBaseURL,
		OpenAIModel: cfg.Whisper.OpenAIModel,
		Timeout:     cfg.TranscribeTimeout,
		Log:         engineLog,
	})
	if err != nil {
		engineLog.Error().Err(err).Msg("whisper engine failed to load, transcription disabled")
		engine = nil
	} else {
		engineLog.Info().Str("engine", engine.Name()).Str("model", engine.Model()).Msg("whisper engine loaded")
	}

	// Inference pool
	pool := transcribe.NewWorkerPool(transcribe.WorkerPoolOptions{
		Engine:    engine,
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
		Timeout:   cfg.TranscribeTimeout,
		Log:       log.With().Str("component", "pool").Logger(),
	})
	pool.Start()
	prometheus.MustRegister(metrics.NewCollector(pool))

	// MQTT (optional)
	var events api.EventPublisher
	if cfg.MQTT.Enabled() {
		mqttLog := log.With().Str("component", "mqtt").Logger()
		mqtt, err := mqttclient.Connect(mqttclient.Options{
			BrokerURL: cfg.MQTT.BrokerURL,
			ClientID:  cfg.MQTT.ClientID,
			Topic:     cfg.MQTT.Topic,
			Username:  cfg.MQTT.Username,
			Password:  cfg.MQTT.Password,
			Log:       mqttLog,
		})
		if err != nil {
			mqttLog.Error().Err(err).Msg("mqtt connect failed, event publishing disabled")
		} else {
			defer mqtt.Close()
			events = mqtt
		}
	}

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, api.ServerOptions{
		Transcriber: pool,
		Events:      events,
		Log:         httpLog,
	})

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	pool.Stop()

	log.Info().Msg("innermap-backend stopped")
}
