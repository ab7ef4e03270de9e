package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/climate-forecast-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/climate-forecast-service/internal/adapter/kafka"
	"github.com/couchcryptid/climate-forecast-service/internal/adapter/localfs"
	s3adapter "github.com/couchcryptid/climate-forecast-service/internal/adapter/s3"
	"github.com/couchcryptid/climate-forecast-service/internal/config"
	"github.com/couchcryptid/climate-forecast-service/internal/domain"
	"github.com/couchcryptid/climate-forecast-service/internal/forecast"
	"github.com/couchcryptid/climate-forecast-service/internal/observability"
	"github.com/couchcryptid/climate-forecast-service/internal/resolver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	profiles, err := domain.LoadProfiles()
	if err != nil {
		logger.Error("failed to load climate profiles", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Remote tier first, local tier as fallback (feature-flagged via S3_BUCKET).
	var tiers []resolver.Tier
	if cfg.RemoteEnabled() {
		client, err := s3adapter.NewClient(ctx, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			logger.Error("failed to create s3 client", "error", err)
			os.Exit(1)
		}
		tiers = append(tiers, s3adapter.NewStore(client, cfg.S3Bucket, cfg.S3Prefix, logger,
			s3adapter.WithTimeout(cfg.RemoteTimeout),
			s3adapter.WithRateLimit(cfg.RemoteRateLimit, cfg.RemoteRateBurst),
		))
		metrics.RemoteTierEnabled.Set(1)
		logger.Info("remote bundle tier enabled", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix, "timeout", cfg.RemoteTimeout)
	} else {
		logger.Info("remote bundle tier disabled")
	}
	local := localfs.NewStore(cfg.ModelDir, logger)
	tiers = append(tiers, local)

	cache := resolver.NewTTLCache(cfg.BundleCacheTTL, cfg.BundleCacheSize, nil)
	res := resolver.New(tiers, logger, metrics, resolver.WithCache(cache))

	engine := forecast.NewEngine(
		domain.NewFeatureBuilder(profiles, logger),
		domain.NewSyntheticGenerator(profiles, domain.NewSource(cfg.SyntheticSeed)),
		cfg.MaxHorizonDays,
		logger,
	)

	opts := []forecast.Option{
		forecast.WithLookbackDays(cfg.RiskLookbackDays),
		forecast.WithReadinessCheck(local),
	}
	var writer *kafkaadapter.Writer
	if cfg.AlertsEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, forecast.WithAlertPublisher(writer))
		logger.Info("risk alert publishing enabled", "topic", cfg.KafkaAlertTopic)
	}

	svc := forecast.NewService(res, engine, profiles, logger, metrics, opts...)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

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
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
