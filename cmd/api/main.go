package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/davidleathers/outreach-compliance-backend/internal/api/rest"
	"github.com/davidleathers/outreach-compliance-backend/internal/infrastructure/cache"
	"github.com/davidleathers/outreach-compliance-backend/internal/infrastructure/config"
	"github.com/davidleathers/outreach-compliance-backend/internal/infrastructure/repository"
	"github.com/davidleathers/outreach-compliance-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/outreach-compliance-backend/internal/metrics"
	campaignservice "github.com/davidleathers/outreach-compliance-backend/internal/service/campaign"
	dncservice "github.com/davidleathers/outreach-compliance-backend/internal/service/dnc"
)

const serviceName = "outreach-compliance-api"

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	zapLogger, err := telemetry.NewZapLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to create service logger: %w", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	provider, err := telemetry.InitializeOpenTelemetry(ctx, telemetry.ConfigFrom(cfg, serviceName))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("failed to shutdown telemetry", "error", err)
		}
	}()

	registry := metrics.NewRegistry(true)
	health := rest.NewHealthService(rest.HealthConfig{
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
	})

	dncOpts := []dncservice.Option{dncservice.WithMetrics(registry)}
	if cfg.Redis.Enabled {
		store, err := cache.NewSnapshotStore(&cfg.Redis, zapLogger)
		if err != nil {
			return fmt.Errorf("failed to connect snapshot store: %w", err)
		}
		defer store.Close()

		dncOpts = append(dncOpts, dncservice.WithPublisher(store), dncservice.WithSnapshotSource(store))
		health.RegisterChecker(rest.NewRedisHealthChecker(store))
	}

	dncSvc, err := dncservice.NewService(zapLogger, repository.NewDNCRepository(), dncOpts...)
	if err != nil {
		return fmt.Errorf("failed to create dnc service: %w", err)
	}
	health.RegisterChecker(rest.NewRegistryHealthChecker(dncSvc))

	if cfg.Redis.Enabled {
		// publishes continue from the shared version
		if _, err := dncSvc.Sync(ctx); err != nil {
			zapLogger.Warn("initial dnc registry sync failed", zap.Error(err))
		}
		go dncSvc.RunSync(ctx, cfg.Redis.SyncInterval)
	}

	campaignSvc, err := campaignservice.NewService(zapLogger,
		campaignservice.Config{MaxContactsPerRequest: cfg.Compliance.MaxContactsPerRequest},
		dncSvc, repository.NewCampaignRepository(), nil, registry)
	if err != nil {
		return fmt.Errorf("failed to create campaign service: %w", err)
	}

	trustedProxies, err := rest.ParseTrustedProxies(cfg.Security.RateLimit.TrustedProxies)
	if err != nil {
		return fmt.Errorf("invalid rate limit config: %w", err)
	}
	limiter := rest.NewRateLimiter(rest.RateLimitConfig{
		RequestsPerSecond: cfg.Security.RateLimit.RequestsPerSecond,
		Burst:             cfg.Security.RateLimit.BurstSize,
		TrustedProxies:    trustedProxies,
	})
	go limiter.Run(ctx)

	handler, err := rest.NewRouter(rest.Config{
		Version:          cfg.Version,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		ContractChecking: true,
	}, rest.Dependencies{
		DNC:         dncSvc,
		Campaigns:   campaignSvc,
		Health:      health,
		Metrics:     registry,
		RateLimiter: limiter,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	zapLogger.Info("starting outreach compliance backend",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("redis_enabled", cfg.Redis.Enabled))

	server := rest.NewServer(rest.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, handler, logger)

	return server.Run(ctx)
}
