// Package bootstrap assembles the engine and its collaborators from config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nulzo/vision-grader/internal/analytics"
	"github.com/nulzo/vision-grader/internal/config"
	"github.com/nulzo/vision-grader/internal/engine"
	"github.com/nulzo/vision-grader/internal/httpclient"
	"github.com/nulzo/vision-grader/internal/platform/otel"
	"github.com/nulzo/vision-grader/internal/store/sqlite"
	"github.com/nulzo/vision-grader/internal/strategy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type App struct {
	Config    *config.Config
	Engine    *engine.Engine
	Registry  *prometheus.Registry
	Analytics analytics.Service // nil when the store is disabled

	logger  *zap.Logger
	closers []func(context.Context) error
}

type options struct {
	traceOut     io.Writer
	withoutStore bool
}

type Option func(*options)

// WithTraceOutput sets where spans are written when tracing is enabled.
func WithTraceOutput(w io.Writer) Option {
	return func(o *options) { o.traceOut = w }
}

// WithoutStore skips the call log even when it is enabled in config.
// One-shot CLI runs use it.
func WithoutStore() Option {
	return func(o *options) { o.withoutStore = true }
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{traceOut: io.Discard}
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
		logger:   logger,
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cache, err := app.strategyCache(ctx)
	if err != nil {
		return nil, err
	}

	engineOpts := []engine.Option{
		engine.WithMetrics(engine.NewMetrics(app.Registry)),
		engine.WithMaxRetries(cfg.Engine.MaxRetries),
		engine.WithMinAnswerLength(cfg.Engine.MinAnswerLength),
	}

	if cfg.Store.Enabled && !o.withoutStore {
		repo, err := sqlite.NewSQLiteStorage(cfg.Store.DSN, logger)
		if err != nil {
			_ = app.Close(ctx)
			return nil, fmt.Errorf("open call store: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return repo.Close() })

		ingestor := analytics.NewIngestor(logger.Named("ingestor"), repo)
		ingestor.Start(context.WithoutCancel(ctx))
		app.closers = append(app.closers, func(context.Context) error {
			ingestor.Stop()
			return nil
		})

		app.Analytics = analytics.NewService(repo)
		engineOpts = append(engineOpts, engine.WithRecorder(ingestor))
	}

	if cfg.Tracing.Enabled {
		shutdown, err := otel.InitTracer(cfg.Tracing.ServiceName, logger, o.traceOut)
		if err != nil {
			_ = app.Close(ctx)
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		app.closers = append(app.closers, shutdown)
		engineOpts = append(engineOpts, engine.WithTracer(otel.Tracer("vision-grader/engine")))
	}

	transport := httpclient.New(logger.Named("transport"), httpclient.WithPolicy(cfg.Engine.Policy()))
	app.Engine = engine.New(transport, cache, logger.Named("engine"), engineOpts...)

	logger.Info("engine ready",
		zap.String("strategy_cache", cfg.StrategyCache.Backend),
		zap.Bool("store", app.Analytics != nil),
		zap.Bool("tracing", cfg.Tracing.Enabled),
		zap.Duration("time_unit", cfg.Engine.TimeUnit),
	)

	return app, nil
}

func (a *App) strategyCache(ctx context.Context) (strategy.Cache, error) {
	sc := a.Config.StrategyCache
	if sc.Backend != config.CacheBackendRedis {
		return strategy.NewMemoryCache(), nil
	}

	cache, err := strategy.NewRedisCache(ctx, strategy.RedisConfig{
		Addr:      sc.Redis.Addr,
		Password:  sc.Redis.Password,
		DB:        sc.Redis.DB,
		KeyPrefix: sc.KeyPrefix,
		TTL:       sc.TTL,
	}, a.logger.Named("strategy"))
	if err != nil {
		return nil, fmt.Errorf("connect strategy cache: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return cache.Close() })
	return cache, nil
}

// Close releases resources in reverse order of acquisition. The ingestor is
// stopped before the store it writes to is closed.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
