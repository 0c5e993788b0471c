// Package main provides the label warmer entry point.
// Consumes medication.checked events and prefetches openFDA label evidence
// into the shared PostgreSQL lookup cache.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/drfirst/go-healthassist/internal/config"
	"github.com/drfirst/go-healthassist/internal/infrastructure/postgres"
	"github.com/drfirst/go-healthassist/internal/infrastructure/redpanda"
	"github.com/drfirst/go-healthassist/internal/lookup"
	"github.com/drfirst/go-healthassist/internal/observability/logging"
	"github.com/drfirst/go-healthassist/internal/observability/metrics"
	"github.com/drfirst/go-healthassist/internal/observability/tracing"
	"github.com/drfirst/go-healthassist/internal/warmer"
	"github.com/drfirst/go-healthassist/pkg/circuitbreaker"
	"github.com/drfirst/go-healthassist/pkg/responsecache"
	"github.com/drfirst/go-healthassist/pkg/workerpool"
)

const serviceName = "label-warmer"

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("logger setup failed", zap.Error(err))
	}
	defer logger.Sync()

	// A private cache would be useless to the API.
	if !cfg.UsesDatabase() {
		logger.Fatal("DATABASE_URL is required for the label warmer")
	}
	if !cfg.KafkaEnabled() {
		logger.Fatal("KAFKA_BROKERS is required for the label warmer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tcfg := tracing.DefaultConfig(serviceName)
	tcfg.Enabled = cfg.EnableTracing
	tcfg.Environment = cfg.Environment
	tcfg.OTLPEndpoint = cfg.OTLPEndpoint
	tp, err := tracing.Init(ctx, tcfg)
	if err != nil {
		logger.Fatal("tracing setup failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	m := metrics.New(nil)

	if cfg.RunMigrations {
		if err := postgres.Migrate(cfg.DatabaseURL, logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	// Make sure the topic exists before joining the group
	admin, err := redpanda.NewAdmin(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.Fatal("admin client creation failed", zap.Error(err))
	}
	if err := admin.EnsureTopics(ctx); err != nil {
		logger.Warn("topic bootstrap failed", zap.Error(err))
	}

	cacheCfg := responsecache.DefaultConfig()
	cacheCfg.TTL = cfg.CacheTTL
	cache := responsecache.New(postgres.NewCacheStore(pool), cacheCfg, logger, responsecache.WithObserver(m.ObserveCache))

	breakers := circuitbreaker.NewManager(logger, m.ObserveBreaker)
	cb, err := breakers.GetOrCreate("openfda")
	if err != nil {
		logger.Fatal("circuit breaker setup failed", zap.Error(err))
	}
	client := lookup.NewClient(cfg.LookupTimeout, cache, logger, lookup.WithObserver(m.ObserveLookup))
	labels := lookup.NewOpenFDA(client, cb, cfg.OpenFDAURL)

	// Create worker pool
	poolCfg := workerpool.DefaultConfig()
	poolCfg.Workers = cfg.WarmerWorkers
	poolCfg.TaskTimeout = cfg.LookupTimeout + 5*time.Second

	w, err := warmer.New(labels, poolCfg, m, logger)
	if err != nil {
		logger.Fatal("warmer creation failed", zap.Error(err))
	}
	w.Start()

	// Create consumer
	consumerCfg := redpanda.DefaultConsumerConfig()
	consumerCfg.Brokers = cfg.KafkaBrokers

	consumer, err := redpanda.NewConsumer(consumerCfg, w.HandleMessage, logger)
	if err != nil {
		logger.Fatal("consumer creation failed", zap.Error(err))
	}
	consumer.Start()

	// Metrics and lag are exposed for the operator
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(rw http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		if !w.Healthy() {
			status = http.StatusServiceUnavailable
		}
		lag, err := admin.GroupLag(r.Context(), consumerCfg.GroupID)
		if err != nil {
			logger.Debug("group lag unavailable", zap.Error(err))
		}
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(status)
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"healthy": status == http.StatusOK,
			"pool":    w.Stats(),
			"lag":     lag,
		})
	})
	server := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	logger.Info("label warmer started",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.Int("workers", poolCfg.Workers))

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	if err := consumer.Stop(); err != nil {
		logger.Warn("consumer stop failed", zap.Error(err))
	}
	w.Stop()
	admin.Close()

	stats := consumer.Stats()
	logger.Info("label warmer stopped",
		zap.Int64("messages_read", stats.MessagesRead),
		zap.Int64("errors", stats.ErrorCount),
		zap.Int64("tasks_completed", w.Stats().TasksCompleted))
}
