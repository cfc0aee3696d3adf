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
	"sync"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting occupation search service",
		"port", cfg.Server.Port,
		"dataset", cfg.Dataset.Source,
		"scoring_mode", cfg.Ranking.ScoringMode,
		"tokenizer", cfg.Ranking.Tokenizer,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	svc, err := service.New(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to build search service", "error", err)
		os.Exit(1)
	}

	checker := health.NewChecker()
	stats := svc.Engine.Stats()
	if stats.Documents > 0 {
		checker.Register("index_engine", health.Static(health.StatusUp, fmt.Sprintf("%d occupations, %d terms", stats.Documents, stats.Terms)))
	} else {
		checker.Register("index_engine", health.Static(health.StatusDown, "no occupations loaded"))
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, svc.CacheNamespace(), m)
			checker.Register("redis", health.Ping(false, redisClient.Ping))
			slog.Info("search cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
				"namespace", svc.CacheNamespace(),
			)
		}
	}

	var collector *analytics.Collector
	var aggregator *analytics.Aggregator
	stopAnalytics := func() {}
	if cfg.Analytics.Enabled {
		collector, aggregator, stopAnalytics = startAnalytics(cfg, checker)
	}

	h := handler.New(svc.Executor, svc.Engine, queryCache, collector, m)

	mux := http.NewServeMux()
	h.Register(mux)
	if aggregator != nil {
		mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator, collector).Stats)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		chain = middleware.RateLimit(middleware.NewLimiter(cfg.Server.RateLimit, time.Minute))(chain)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	}
	chain = middleware.Metrics(m, mux)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownMetrics := func(context.Context) error { return nil }
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	stopAnalytics()
	slog.Info("search service stopped")
}

// startAnalytics wires the collector to Kafka when brokers are configured and
// straight to the aggregator otherwise. The returned stop function flushes
// pending events, then lets the snapshot loop save its final snapshot.
func startAnalytics(cfg *config.Config, checker *health.Checker) (*analytics.Collector, *analytics.Aggregator, func()) {
	aggregator := analytics.NewAggregator()
	// Not derived from the signal context: the last flush and snapshot run
	// after the server has drained.
	bgCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var closers []func() error

	var sink analytics.Sink = aggregator
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		if err != nil {
			slog.Warn("kafka producer unavailable, aggregating in process", "error", err)
		} else {
			consumer, err := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleMessage(aggregator))
			if err != nil {
				producer.Close()
				slog.Warn("kafka consumer unavailable, aggregating in process", "error", err)
			} else {
				sink = producer
				closers = append(closers, producer.Close)
				checker.Register("kafka", health.Ping(false, producer.Ping))
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := consumer.Run(bgCtx); err != nil {
						slog.Error("analytics consumer error", "error", err)
					}
				}()
				slog.Info("analytics routed through kafka",
					"brokers", cfg.Kafka.Brokers,
					"topic", cfg.Kafka.Topics.AnalyticsEvents,
				)
			}
		}
	}

	collector := analytics.NewCollector(sink, analytics.CollectorOptions{
		BufferSize:    cfg.Analytics.BufferSize,
		BatchSize:     cfg.Analytics.BatchSize,
		FlushInterval: cfg.Analytics.FlushInterval,
	})
	collector.Start(bgCtx)

	if db, err := openSnapshotDB(cfg); err != nil {
		slog.Warn("analytics snapshots disabled", "store", cfg.Analytics.SnapshotStore, "error", err)
	} else if db != nil {
		store, err := snapshot.NewStore(bgCtx, db)
		if err != nil {
			db.Close()
			slog.Warn("analytics snapshots disabled", "store", cfg.Analytics.SnapshotStore, "error", err)
		} else {
			closers = append(closers, db.Close)
			checker.Register("analytics_snapshots", health.Ping(false, db.Ping))
			wg.Add(1)
			go func() {
				defer wg.Done()
				store.Run(bgCtx, aggregator, cfg.Analytics.SnapshotInterval)
			}()
		}
	}

	stop := func() {
		collector.Close()
		cancel()
		wg.Wait()
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Error("analytics shutdown error", "error", err)
			}
		}
	}
	return collector, aggregator, stop
}

func openSnapshotDB(cfg *config.Config) (*database.Client, error) {
	switch cfg.Analytics.SnapshotStore {
	case "", config.SnapshotNone:
		return nil, nil
	case config.SnapshotSQLite:
		return database.OpenSQLite(cfg.Analytics.SnapshotPath)
	case config.SnapshotPostgres:
		return database.OpenPostgres(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown snapshot store %q", cfg.Analytics.SnapshotStore)
	}
}
