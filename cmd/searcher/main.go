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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/session"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	dataDir := flag.String("data", "", "index directory, overrides index.dataDir")
	serveHTTP := flag.Bool("http", false, "serve the HTTP API instead of the interactive prompt")
	explain := flag.Bool("explain", false, "print the score breakdown of every hit")
	limit := flag.Int("limit", 0, "hits per query (0 uses search.defaultLimit)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Index.DataDir = *dataDir
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *serveHTTP, session.Options{Limit: *limit, Explain: *explain}); err != nil {
		slog.Error("searcher failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, serveHTTP bool, opts session.Options) error {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	aggregator := analytics.NewAggregator()
	svcOpts := []service.Option{service.WithMetrics(m), service.WithAggregator(aggregator)}

	var redisClient *pkgredis.Client
	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			svcOpts = append(svcOpts, service.WithCache(queryCache))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, 100, 0)
		collectorCtx, cancel := context.WithCancel(context.Background())
		collector.Start(collectorCtx)
		defer func() {
			cancel()
			collector.Close()
		}()
		svcOpts = append(svcOpts, service.WithCollector(collector))
	}

	svc := service.New(*cfg, svcOpts...)
	if _, err := svc.Reload(ctx); err != nil {
		return fmt.Errorf("loading index from %s: %w", cfg.Index.DataDir, err)
	}
	go svc.Watch(ctx, cfg.Search.ReloadInterval)

	if !serveHTTP {
		n, err := session.Run(ctx, svc, os.Stdin, os.Stdout, opts)
		slog.Debug("session ended", "queries", n)
		return err
	}

	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		defer shutdown(context.Background())
	}

	checker := health.NewChecker()
	checker.Register("index", health.Required(func(context.Context) error {
		if svc.Snapshot() == nil {
			return errors.New("no generation loaded")
		}
		return nil
	}))
	if redisClient != nil {
		checker.Register("redis", health.Optional(redisClient.Ping))
	}

	mux := http.NewServeMux()
	handler.New(svc, queryCache, aggregator).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, middleware.Recover, middleware.RequestID, middleware.Metrics(m)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("search service stopped")
	return nil
}
