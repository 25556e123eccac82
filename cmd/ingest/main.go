package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	bqadapter "github.com/mesuradors/tank-telemetry/internal/adapter/bigquery"
	"github.com/mesuradors/tank-telemetry/internal/adapter/httpapi"
	kafkaadapter "github.com/mesuradors/tank-telemetry/internal/adapter/kafka"
	"github.com/mesuradors/tank-telemetry/internal/config"
	"github.com/mesuradors/tank-telemetry/internal/observability"
	"github.com/mesuradors/tank-telemetry/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := bqadapter.NewStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create warehouse client", "error", err)
		os.Exit(1)
	}
	calibrations := bqadapter.NewCachedCalibrations(store, cfg.CalibrationCacheSize, cfg.CalibrationCacheTTL)

	// Readings mirror (feature-flagged via KAFKA_MIRROR_ENABLED).
	var mirror pipeline.Mirror
	var mirrorCloser *kafkaadapter.Mirror
	if cfg.KafkaMirrorEnabled {
		m := kafkaadapter.NewMirror(cfg, logger)
		mirror = m
		mirrorCloser = m
		metrics.MirrorEnabled.Set(1)
		logger.Info("kafka readings mirror enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaReadingsTopic)
	} else {
		metrics.MirrorEnabled.Set(0)
		logger.Info("kafka readings mirror disabled")
	}

	p := pipeline.New(calibrations, store, store, mirror, logger, metrics)

	srv := httpapi.NewServer(cfg, p, store, p, logger, metrics)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if mirrorCloser != nil {
		if err := mirrorCloser.Close(); err != nil {
			logger.Error("kafka mirror close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("warehouse client close error", "error", err)
	}

	logger.Info("shutdown complete")
}
