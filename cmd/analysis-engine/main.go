package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelstack/sentinel-analysis/internal/api"
	"github.com/sentinelstack/sentinel-analysis/internal/cache"
	"github.com/sentinelstack/sentinel-analysis/internal/config"
	"github.com/sentinelstack/sentinel-analysis/internal/engine"
	"github.com/sentinelstack/sentinel-analysis/internal/intel"
	"github.com/sentinelstack/sentinel-analysis/internal/metrics"
	"github.com/sentinelstack/sentinel-analysis/internal/services"
	"github.com/sentinelstack/sentinel-analysis/internal/store"
	"github.com/sentinelstack/sentinel-analysis/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting sentinel-analysis", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled {
		switch cfg.Cache.Backend {
		case "valkey":
			provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
				Addr:         cfg.Cache.Addr,
				Username:     cfg.Cache.Username,
				Password:     cfg.Cache.Password,
				DB:           cfg.Cache.DB,
				DialTimeout:  cfg.Cache.DialTimeout,
				ReadTimeout:  cfg.Cache.ReadTimeout,
				WriteTimeout: cfg.Cache.WriteTimeout,
				MaxRetries:   cfg.Cache.MaxRetries,
				TLS:          cfg.Cache.TLS,
			})
			if err != nil {
				logger.Warn("valkey cache unavailable, results will not be cached", slog.Any("error", err))
			} else {
				cacheProvider = provider
			}
		default:
			cacheProvider = cache.NewMemoryProvider()
		}
	}
	defer cacheProvider.Close()

	ledger := store.NewTelemetryLedger(cfg.Stores.TelemetryCapacity, nil)
	aggregator := intel.NewAggregator(cfg.Stores.ThreatCapacity, ledger, nil)

	analysisService := services.NewAnalysisService(
		logger,
		ledger,
		engine.NewIntervalDetector(cfg.Analysis.SigmaThreshold),
		engine.NewThreatScorer(cfg.Analysis.ExpectedBatchesPerHour),
		aggregator,
		cacheProvider,
		services.Options{
			DefaultWindowHours: cfg.Analysis.DefaultWindowHours,
			ResultTTL:          cfg.Cache.ResultTTL,
		},
		nil,
	)

	server, err := api.NewServer(cfg.Server, logger, analysisService)
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("sentinel-analysis stopped")
}
