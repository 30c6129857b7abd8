package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/nulzo/vision-grader/internal/bootstrap"
	"github.com/nulzo/vision-grader/internal/config"
	"github.com/nulzo/vision-grader/internal/platform/logger"
	"github.com/nulzo/vision-grader/internal/server"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Get().Fatal("failed to load config", zap.Error(err))
	}

	logger.Initialize(logger.FromSettings(cfg.Log.Level, cfg.Log.Format))
	log := logger.Get()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log, bootstrap.WithTraceOutput(os.Stdout))
	if err != nil {
		log.Fatal("failed to start engine", zap.Error(err))
	}

	srv := server.New(cfg, log, server.Deps{
		Grader:    app.Engine,
		Slots:     cfg,
		Analytics: app.Analytics,
		Gatherer:  app.Registry,
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Handler(),
	}

	if cfg.Server.DebugAddr != "" {
		go serveDebug(cfg.Server.DebugAddr, log)
	}

	go func() {
		log.Info("vision grader listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.Server.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	// abort in-flight grading at the next checkpoint
	app.Engine.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if err := app.Close(shutdownCtx); err != nil {
		log.Error("resource shutdown", zap.Error(err))
	}
}

func serveDebug(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	log.Info("debug listener", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("debug listener stopped", zap.Error(err))
	}
}
