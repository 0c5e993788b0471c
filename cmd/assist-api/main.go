// Package main provides the assistant API service entry point.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/drfirst/go-healthassist/internal/api/handlers"
	"github.com/drfirst/go-healthassist/internal/api/middleware"
	"github.com/drfirst/go-healthassist/internal/calendar"
	"github.com/drfirst/go-healthassist/internal/config"
	"github.com/drfirst/go-healthassist/internal/infrastructure/postgres"
	"github.com/drfirst/go-healthassist/internal/infrastructure/redpanda"
	"github.com/drfirst/go-healthassist/internal/lexicon"
	"github.com/drfirst/go-healthassist/internal/lookup"
	"github.com/drfirst/go-healthassist/internal/medication"
	"github.com/drfirst/go-healthassist/internal/observability/logging"
	"github.com/drfirst/go-healthassist/internal/observability/metrics"
	"github.com/drfirst/go-healthassist/internal/observability/tracing"
	"github.com/drfirst/go-healthassist/internal/tables"
	"github.com/drfirst/go-healthassist/internal/triage"
	"github.com/drfirst/go-healthassist/pkg/circuitbreaker"
	"github.com/drfirst/go-healthassist/pkg/responsecache"
)

const (
	serviceName = "assist-api"
	version     = "0.1.0"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tcfg := tracing.DefaultConfig(serviceName)
	tcfg.Enabled = cfg.EnableTracing
	tcfg.ServiceVersion = version
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

	// Database is optional
	var pool *pgxpool.Pool
	if cfg.UsesDatabase() {
		if cfg.RunMigrations {
			if err := postgres.Migrate(cfg.DatabaseURL, logger); err != nil {
				logger.Fatal("migrations failed", zap.Error(err))
			}
		}
		pool, err = postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("connected to database")
	}

	// Lookup tables
	var sources []tables.Source
	if cfg.TableSource == config.TableSourcePostgres && pool != nil {
		sources = append(sources, postgres.NewTableSource(pool))
	}
	sources = append(sources, tables.CSVSource{Dir: cfg.DataDir})
	tbl := tables.Load(ctx, logger, sources...)
	logger.Info("lookup tables loaded", zap.Any("origins", tbl.Origins))

	lx := lexicon.Load(cfg.LexiconPath, logger)

	// Response cache
	var store responsecache.Store = responsecache.NewMemoryStore()
	if cfg.CacheBackend == config.CacheBackendPostgres && pool != nil {
		store = postgres.NewCacheStore(pool)
	}
	cacheCfg := responsecache.DefaultConfig()
	cacheCfg.TTL = cfg.CacheTTL
	cache := responsecache.New(store, cacheCfg, logger, responsecache.WithObserver(m.ObserveCache))
	cache.StartCleanup()
	defer cache.Stop()

	// External lookups
	breakers := circuitbreaker.NewManager(logger, m.ObserveBreaker)
	client := lookup.NewClient(cfg.LookupTimeout, cache, logger, lookup.WithObserver(m.ObserveLookup))

	var resolver medication.NameResolver
	if cfg.UseLiveRxNorm {
		resolver = lookup.NewRxNav(client, mustBreaker(breakers, "rxnav", logger), cfg.RxNavBaseURL, logger)
	}
	labels := lookup.NewOpenFDA(client, mustBreaker(breakers, "openfda", logger), cfg.OpenFDAURL)

	var suggester triage.SymptomSuggester
	if zs := lookup.NewZeroShot(client, mustBreaker(breakers, "zeroshot", logger), cfg.HFZeroShotURL, cfg.HFToken); zs.Enabled() {
		suggester = zs
	}

	// Events are optional
	var publisher handlers.EventPublisher
	if cfg.KafkaEnabled() {
		pcfg := redpanda.DefaultProducerConfig()
		pcfg.Brokers = cfg.KafkaBrokers
		pcfg.OnDelivery = func(_ string, err error) {
			if err == nil {
				m.KafkaMessagesProduced.Inc()
			}
		}
		producer, err := redpanda.NewProducer(pcfg, logger)
		if err != nil {
			logger.Fatal("failed to create producer", zap.Error(err))
		}
		defer producer.Close()
		publisher = producer
	}

	triageHandler := handlers.NewTriageHandler(triage.NewService(lx, suggester, logger), lx.Symptoms(), tbl.Links, m, logger)
	medicationHandler := handlers.NewMedicationHandler(
		medication.NewNormalizer(medication.NewAliasTable(tbl.Aliases), resolver, logger),
		medication.NewChecker(tbl.Rules),
		labels, publisher, m, logger,
	)
	reminderHandler := handlers.NewReminderHandler(calendar.NewEmitter(), logger)

	var db handlers.Pinger
	if pool != nil {
		db = pool
	}
	healthHandler := handlers.NewHealthHandler(serviceName, version, db, breakers, tbl.Origins)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Metrics(m.ObserveRequest))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.BodyLimit(middleware.DefaultBodyLimit))

	healthHandler.Routes(r)
	r.Handle("/metrics", m.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		triageHandler.Routes(r)
		medicationHandler.Routes(r)
		reminderHandler.Routes(r)
	})

	// Lookups can take the full timeout on each of several calls.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.LookupTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting assistant API",
		zap.String("port", cfg.Port),
		zap.Bool("live_rxnorm", cfg.UseLiveRxNorm),
		zap.Bool("zero_shot", suggester != nil),
		zap.Bool("events", publisher != nil))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func mustBreaker(m *circuitbreaker.Manager, name string, logger *zap.Logger) *circuitbreaker.CircuitBreaker {
	cb, err := m.GetOrCreate(name)
	if err != nil {
		logger.Fatal("circuit breaker setup failed", zap.String("name", name), zap.Error(err))
	}
	return cb
}
