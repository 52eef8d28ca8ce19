package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/analytics"
	"github.com/folio-service/folio_service/internal/infrastructure/cache"
	"github.com/folio-service/folio_service/internal/infrastructure/config"
	"github.com/folio-service/folio_service/internal/infrastructure/database"
	"github.com/folio-service/folio_service/internal/infrastructure/queue"
	"github.com/folio-service/folio_service/internal/infrastructure/repositories"
	"github.com/folio-service/folio_service/internal/infrastructure/storage"
	"github.com/folio-service/folio_service/internal/nav"
	"github.com/folio-service/folio_service/internal/parser"
	"github.com/folio-service/folio_service/internal/workers/casprocessor"
	"github.com/folio-service/folio_service/pkg/health"
	"github.com/folio-service/folio_service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel, cfg.Environment)
	log := appLogger.Zap()
	defer log.Sync()

	log.Info("starting statement processing worker",
		zap.String("environment", cfg.Environment),
		zap.Int("concurrency", cfg.Worker.Concurrency),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	queueConn, err := queue.NewConnection(cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer queueConn.Close()

	s3Store, err := storage.NewS3Store(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("failed to initialize object storage", zap.Error(err))
	}

	jobRepo := repositories.NewJobRepository(db, log)
	lotRepo := repositories.NewLotRepository(db, log)
	reportRepo := repositories.NewReportRepository(db, log)
	statusCache := cache.NewJobStatusCache(redisClient, log)

	navClient := nav.NewClient(nav.ClientConfig{
		BaseURL: cfg.Nav.BaseURL,
		Timeout: time.Duration(cfg.Nav.TimeoutSeconds) * time.Second,
	}, log)
	navService := nav.NewService(navClient, cfg.Nav.MatchThreshold, log)

	engine := analytics.NewEngine(navService, analytics.EngineConfig{
		RiskFreeRate:    cfg.Nav.RiskFreeRate,
		BenchmarkReturn: cfg.Nav.BenchmarkReturn,
	}, log)

	processor := casprocessor.NewProcessor(
		jobRepo,
		lotRepo,
		reportRepo,
		statusCache,
		s3Store,
		casprocessor.PlainTextExtractor{},
		parser.New(log),
		engine,
		casprocessor.ProcessorConfig{
			DownloadMaxAttempts: cfg.Worker.DownloadMaxAttempts,
			DownloadRetryDelay:  time.Duration(cfg.Worker.DownloadRetryDelaySecs) * time.Second,
		},
		log,
	)

	manager := casprocessor.NewManager(queueConn, processor, casprocessor.ManagerConfig{
		Concurrency:    cfg.Worker.Concurrency,
		RestartBackoff: time.Duration(cfg.Worker.RestartBackoffSecs) * time.Second,
	}, log)

	healthChecks := health.NewAggregator(10 * time.Second)
	healthChecks.Register(health.NewDatabaseChecker(db))
	healthChecks.Register(health.NewRedisChecker(redisClient))
	healthChecks.Register(health.NewQueueChecker(queueConn.IsAlive))

	opsServer := startOpsServer(cfg.Server, healthChecks, log)

	manager.Start(ctx)

	<-ctx.Done()
	log.Info("shutdown signal received")

	manager.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("ops server shutdown failed", zap.Error(err))
	}

	log.Info("worker stopped")
}

// startOpsServer exposes metrics and health on the operational port.
func startOpsServer(cfg config.ServerConfig, checks *health.Aggregator, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		results := checks.CheckAll(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if !health.Healthy(results) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(results)
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: mux,
	}

	go func() {
		log.Info("ops server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("ops server failed", zap.Error(err))
		}
	}()

	return server
}
