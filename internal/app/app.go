// Package app wires configuration, backends and the view service together for the
// server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/pariz/gountries"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radiusdt/marketing-insights/internal/config"
	"github.com/radiusdt/marketing-insights/internal/database"
	"github.com/radiusdt/marketing-insights/internal/heatmap"
	"github.com/radiusdt/marketing-insights/internal/metrics"
	"github.com/radiusdt/marketing-insights/internal/storage"
	"github.com/radiusdt/marketing-insights/internal/views"
)

// App holds everything a process needs to serve views.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Registry    *prometheus.Registry
	Connections *database.Connections
	Source      storage.DatasetSource
	Views       *views.Service
	// Sink is nil unless ClickHouse export is enabled.
	Sink storage.GroupSink
}

// New opens the configured backends and builds the view service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	conns, err := database.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:      cfg,
		Logger:      logger,
		Registry:    prometheus.NewRegistry(),
		Connections: conns,
	}
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.NewMetrics("insights", a.Registry)
	}

	a.Source, err = NewSource(ctx, cfg, conns)
	if err != nil {
		conns.Close()
		return nil, err
	}

	locator, err := NewLocator(cfg.Geo)
	if err != nil {
		conns.Close()
		return nil, err
	}

	opts := []views.Option{views.WithLocator(locator)}
	if a.Metrics != nil {
		opts = append(opts, views.WithMetrics(a.Metrics))
	}
	if conns.Redis != nil {
		opts = append(opts, views.WithCache(storage.NewRedisReportCache(conns.Redis.Client, cfg.Cache.Prefix)))
	}
	a.Views = views.NewService(a.Source, logger, views.OptionsFromConfig(cfg), opts...)

	if conns.ClickHouse != nil {
		sink, err := storage.NewClickHouseSink(conns.ClickHouse.Conn, cfg.ClickHouse.Table)
		if err != nil {
			conns.Close()
			return nil, err
		}
		if err := sink.EnsureTable(ctx); err != nil {
			conns.Close()
			return nil, err
		}
		a.Sink = sink
	}

	return a, nil
}

// Close releases the backends.
func (a *App) Close() error {
	return a.Connections.Close()
}

// NewSource builds the dataset source selected by cfg.Source.Kind.
func NewSource(ctx context.Context, cfg *config.Config, conns *database.Connections) (storage.DatasetSource, error) {
	switch cfg.Source.Kind {
	case config.SourceFile:
		return storage.NewFileSource(cfg.Source.Path), nil
	case config.SourceHTTP:
		return storage.NewHTTPSource(cfg.Source.URL, cfg.Source.Timeout), nil
	case config.SourcePostgres:
		if conns == nil || conns.Postgres == nil {
			return nil, fmt.Errorf("postgres source requires a database connection")
		}
		src := storage.NewPostgresSource(conns.Postgres.Pool, cfg.Source.Dataset)
		if err := src.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return src, nil
	}
	return nil, fmt.Errorf("unknown dataset source %q", cfg.Source.Kind)
}

// NewLocator builds the geo locator from the coordinate table and, when enabled, the
// country centroid fallback.
func NewLocator(cfg config.GeoConfig) (*heatmap.Locator, error) {
	table, err := heatmap.LoadCoordinateTable(cfg.CoordinatesPath)
	if err != nil {
		return nil, err
	}
	var countries *gountries.Query
	if cfg.CountryFallback {
		countries = gountries.New()
	}
	return heatmap.NewLocator(table, countries), nil
}
