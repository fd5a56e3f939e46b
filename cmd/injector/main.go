// Command injector serves skill selection over HTTP and RPC.
//
// It loads the skill corpus from a directory or PostgreSQL, answers
// POST /api/v1/inject and InjectionService.ProcessMessage, caches selections
// in Redis, publishes injection analytics to Kafka and reloads the corpus
// when another instance announces a change.
//
// Usage:
//
//	go run ./cmd/injector [-config configs/development.yaml] [-env .env]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/injector"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/injector/cache"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/injector/handler"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/skills"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	instanceID := uuid.NewString()
	slog.Info("starting injection service",
		"port", cfg.Server.Port,
		"instance_id", instanceID,
		"skills_source", cfg.Skills.Source,
		"relevance", cfg.Injection.RelevanceEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker(cfg.Server.RequestTimeout)

	db := connectPostgres(ctx, cfg)
	if db != nil {
		defer db.Close()
		checker.Register("postgres", health.PingCheck(db.Ping, cfg.Skills.Source == config.SourcePostgres))
	}

	source, err := buildSource(cfg, db)
	if err != nil {
		slog.Error("failed to configure skill source", "error", err)
		os.Exit(1)
	}

	registry := injector.NewRegistry(source, injector.ConfigFromSettings(cfg.Injection), m)
	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.Skills.LoadTimeout)
	result, err := registry.Reload(loadCtx)
	cancelLoad()
	if err != nil {
		slog.Error("initial corpus load failed", "error", err)
		os.Exit(1)
	}
	slog.Info("skill corpus loaded", "skills", result.Skills, "fingerprint", result.Fingerprint)
	checker.Register("corpus", func(ctx context.Context) health.ComponentHealth {
		snap, err := registry.Current()
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d skills", snap.Selector.Corpus().TotalDocuments()),
		}
	})

	serviceOpts := []injector.ServiceOption{
		injector.WithMetrics(m),
		injector.WithMaxMessageBytes(cfg.Injection.MaxMessageBytes),
	}

	var selectionCache *cache.SelectionCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, selection caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("selection-cache", resilience.CircuitBreakerConfig{
				OnStateChange: func(name string, _, to resilience.State) {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				},
			})
			m.CircuitBreakerState.WithLabelValues(breaker.Name()).Set(float64(resilience.StateClosed))
			selectionCache = cache.New(redisClient, cfg.Redis.CacheTTL, breaker, m)
			serviceOpts = append(serviceOpts, injector.WithCache(selectionCache))
			checker.Register("redis", health.PingCheck(redisClient.Ping, false))
			slog.Info("selection cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	agg := analytics.NewAggregator(nil)
	var history analytics.SnapshotLister
	if db != nil && cfg.Analytics.SnapshotInterval > 0 {
		store := aggregator.NewStore(db, instanceID, cfg.Analytics.SnapshotRetention)
		go store.Run(ctx, agg, cfg.Analytics.SnapshotInterval)
		history = store
	}

	var notifier *injector.Notifier
	if cfg.Kafka.Enabled {
		eventsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.InjectionEvents,
			kafka.WithLeaderAck(), kafka.WithBatchTimeout(100*time.Millisecond))
		defer eventsProducer.Close()
		collector := analytics.NewCollector(eventsProducer, cfg.Analytics.BufferSize, 100, time.Second)
		collector.OnDrop(func(reason string) {
			m.AnalyticsDropsTotal.WithLabelValues(reason).Inc()
		})
		collector.Start(ctx)
		defer collector.Close()
		serviceOpts = append(serviceOpts, injector.WithTracker(collector))

		eventsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.InjectionEvents, analytics.HandleEvent(agg),
			kafka.WithGroupID(cfg.Kafka.ConsumerGroup+"-analytics-"+instanceID))
		agg.SetSource(eventsConsumer)

		updatesProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CorpusUpdates)
		defer updatesProducer.Close()
		notifier = injector.NewNotifier(updatesProducer, instanceID)

		listener := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CorpusUpdates,
			injector.HandleCorpusUpdate(registry, instanceID),
			kafka.WithGroupID(cfg.Kafka.ConsumerGroup+"-corpus-"+instanceID))
		go func() {
			if err := listener.Start(ctx); err != nil {
				slog.Error("corpus update listener error", "error", err)
			}
		}()
		slog.Info("kafka enabled",
			"events_topic", cfg.Kafka.Topics.InjectionEvents,
			"updates_topic", cfg.Kafka.Topics.CorpusUpdates,
		)
	} else {
		serviceOpts = append(serviceOpts, injector.WithTracker(trackerFunc(agg.Record)))
	}
	go func() {
		if err := agg.Start(ctx); err != nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()

	service := injector.NewService(registry, serviceOpts...)

	var cacheAdmin handler.CacheAdmin
	if selectionCache != nil {
		cacheAdmin = selectionCache
	}
	h := handler.New(service, cacheAdmin, notifier)
	analyticsH := analytics.NewHandler(agg, history)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /api/v1/analytics/history", analyticsH.History)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	if cfg.Tracing.Enabled {
		chain = middleware.Tracing(tracing.NewSampler(cfg.Tracing.SampleRate))(chain)
	}
	if cfg.Server.RateLimit.Requests > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)
		go limiter.RunCleanup(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	if cfg.RPC.Enabled {
		rpcServer := grpc.NewServer(cfg.Server.RequestTimeout)
		handler.RegisterRPC(rpcServer, service, notifier)
		go func() {
			if err := rpcServer.Serve(fmt.Sprintf(":%d", cfg.RPC.Port)); err != nil {
				slog.Error("rpc server error", "error", err)
			}
		}()
		defer rpcServer.Stop()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Deferred closers must run after Shutdown has drained in-flight requests.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("injection service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone

	slog.Info("injection service stopped")
}

// connectPostgres opens the database when a component needs it. A failure
// is fatal only when skills are read from PostgreSQL.
func connectPostgres(ctx context.Context, cfg *config.Config) *postgres.Client {
	needed := cfg.Skills.Source == config.SourcePostgres
	if !needed && cfg.Analytics.SnapshotInterval <= 0 {
		return nil
	}
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		if needed {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		slog.Warn("postgres unavailable, analytics history disabled", "error", err)
		return nil
	}
	return db
}

func buildSource(cfg *config.Config, db *postgres.Client) (skills.Source, error) {
	switch cfg.Skills.Source {
	case config.SourceDir:
		return skills.NewDirSource(skills.NewLoader(slog.Default()), cfg.Skills.Dir), nil
	case config.SourcePostgres:
		if db == nil {
			return nil, errors.New("postgres skill source requires a database connection")
		}
		return skills.NewStore(db, cfg.Skills.LoadTimeout), nil
	default:
		return nil, fmt.Errorf("unknown skill source %q", cfg.Skills.Source)
	}
}

type trackerFunc func(analytics.InjectionEvent)

func (f trackerFunc) Track(event analytics.InjectionEvent) { f(event) }
