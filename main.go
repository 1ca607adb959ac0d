package main

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/adapters/target/oracle"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/config"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/database"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/handlers"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/logging"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/metrics"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/middleware"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/repositories"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("store", logging.SanitizeDSN(cfg.Store.URL())),
		zap.String("target", logging.SanitizeDSN(cfg.Target.DSN())))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{URL: cfg.Store.URL()})
	if err != nil {
		logger.Fatal("Failed to connect to advisor store", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Store.URL(), cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.String("error", logging.SanitizeError(err)))
	}

	adapter, err := oracle.New(ctx, cfg.Target.DSN(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to target database", zap.String("error", logging.SanitizeError(err)))
	}
	defer func() { _ = adapter.Close() }()

	// Repositories
	strategyRepo := repositories.NewStrategyRepository(db)
	runRepo := repositories.NewRunRepository(db)
	recRepo := repositories.NewRecommendationRepository(db)
	execRepo := repositories.NewExecutionRepository(db)

	if cfg.StrategiesPath != "" {
		if err := services.SeedStrategies(ctx, strategyRepo, cfg.StrategiesPath, logger); err != nil {
			logger.Fatal("Failed to seed strategies", zap.Error(err))
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	execMetrics := metrics.NewExecutionMetrics(registry)

	// Services
	scorer := services.NewScorer(cfg.Scoring)
	resolver := services.NewPlatformResolver(services.OracleSignals(adapter), logger)
	matcher := services.NewMatcher(logger)
	builder := services.NewDDLBuilder(adapter, logger)
	coordinator := services.NewCoordinator(cfg.Coordinator, adapter, adapter, builder, execRepo, execMetrics, logger)
	analysisSvc := services.NewAnalysisService(adapter, scorer, matcher, resolver, strategyRepo, runRepo, recRepo, logger)
	execSvc := services.NewExecutionService(coordinator, adapter, recRepo, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAnalysisHandler(analysisSvc, runRepo, logger).RegisterRoutes(mux)
	handlers.NewRecommendationHandler(recRepo, analysisSvc, logger).RegisterRoutes(mux)
	handlers.NewExecutionHandler(execSvc, execRepo, recRepo, logger).RegisterRoutes(mux)
	handlers.NewStrategyHandler(strategyRepo, logger).RegisterRoutes(mux)
	handlers.NewStatsHandler(execRepo, recRepo, logger).RegisterRoutes(mux)

	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting compadvisor",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
