// Command harvester runs metadata harvest tasks declared in TOML task files.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/custodia-labs/harvester/internal/adapters/driven/events/redis"
	metrics "github.com/custodia-labs/harvester/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/harvester/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/harvester/internal/adapters/driving/cli"
	"github.com/custodia-labs/harvester/internal/config"
	"github.com/custodia-labs/harvester/internal/connectors"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/core/services"
	"github.com/custodia-labs/harvester/internal/logger"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if cfg.Verbose {
		logger.SetVerbose(true)
	}
	log := logger.Named("main")
	defer func() { _ = log.Sync() }()

	opts, err := wire(cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return 1
	}
	cli.Configure(opts)

	cli.SetVersion(Version)
	if err := cli.Execute(); err != nil {
		return 1
	}
	return 0
}

// wire builds the connector registry and the CLI options. The engine and
// the stores, servers and connections it needs are opened only when a
// command asks for the engine.
func wire(cfg *config.Config, log *zap.Logger) (cli.Options, error) {
	registry, err := connectors.NewRegistry()
	if err != nil {
		return cli.Options{}, fmt.Errorf("registering connectors: %w", err)
	}
	return cli.Options{
		Catalog:         registry,
		ShutdownTimeout: cfg.ShutdownTimeout,
		EngineFactory: func(ctx context.Context) (driving.Engine, func(), error) {
			return buildEngine(ctx, cfg, log, registry)
		},
	}, nil
}

// buildEngine opens the history store, the metrics endpoint and the event
// stream configured in cfg. The returned func releases everything it opened.
func buildEngine(ctx context.Context, cfg *config.Config, log *zap.Logger, registry *services.ConnectorRegistry) (driving.Engine, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	processors, err := services.NewProcessorRegistry(services.NewDefaultProcessor(ctx))
	if err != nil {
		return nil, nil, fmt.Errorf("registering processors: %w", err)
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history store: %w", err)
	}
	closers = append(closers, func() {
		if err := store.Close(); err != nil {
			log.Warn("closing history store", zap.Error(err))
		}
	})

	opts := []services.EngineOption{
		services.WithProcessStore(store.ProcessStore(), cfg.HistoryLimit),
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector := metrics.NewCollector(reg)
		opts = append(opts, services.WithListeners(collector.Listener))

		stop := serveMetrics(cfg.MetricsAddr, reg, log)
		closers = append(closers, stop)
	}

	if cfg.Events.Enabled() {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Events.RedisAddr,
			Password: cfg.Events.Password,
			DB:       cfg.Events.DB,

			ContextTimeoutEnabled: true,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			cleanup()
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		log.Info("connected to Redis", zap.String("addr", cfg.Events.RedisAddr))
		closers = append(closers, func() { _ = client.Close() })

		publisher := redis.NewPublisher(client, cfg.Events.Stream, logger.Named("events"))
		opts = append(opts, services.WithListeners(publisher.Listener))
		closers = append(closers, func() {
			if err := publisher.Close(); err != nil {
				log.Warn("flushing events", zap.Error(err))
			}
		})
	}

	return services.NewEngine(registry, processors, opts...), cleanup, nil
}

// serveMetrics exposes reg on addr until the returned func is called.
func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
