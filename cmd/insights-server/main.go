package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/marketing-insights/internal/app"
	"github.com/radiusdt/marketing-insights/internal/config"
	"github.com/radiusdt/marketing-insights/internal/httpserver"
	"github.com/radiusdt/marketing-insights/internal/middleware"
	"github.com/radiusdt/marketing-insights/internal/storage"
)

const (
	watchDebounce      = 250 * time.Millisecond
	limiterCleanupTick = time.Minute
	limiterMaxIdle     = 10 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := middleware.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting marketing insights",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("source", cfg.Source.Kind),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close backends", zap.Error(err))
		}
	}()

	// Warm the dataset so a broken source shows up in the startup log.
	if _, err := a.Views.Snapshot(ctx); err != nil {
		logger.Warn("initial dataset load failed", zap.Error(err))
	}

	if fs, ok := a.Source.(*storage.FileSource); ok && cfg.Source.Watch {
		go func() {
			if err := fs.Watch(ctx, watchDebounce, logger, a.Views.Invalidate); err != nil {
				logger.Error("dataset watcher stopped", zap.Error(err))
			}
		}()
	}

	rl := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger)
	go func() {
		ticker := time.NewTicker(limiterCleanupTick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := rl.CleanupIPLimiters(limiterMaxIdle); n > 0 {
					logger.Debug("removed idle rate limiters", zap.Int("count", n))
				}
			}
		}
	}()

	handler := httpserver.NewServer(&httpserver.Dependencies{
		Config:      cfg,
		Logger:      logger,
		Metrics:     a.Metrics,
		Views:       a.Views,
		Connections: a.Connections,
		Sink:        a.Sink,
		RateLimiter: rl,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
	}

	logger.Info("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
