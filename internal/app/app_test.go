package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/marketing-insights/internal/config"
	"github.com/radiusdt/marketing-insights/internal/database"
	"github.com/radiusdt/marketing-insights/internal/heatmap"
	"github.com/radiusdt/marketing-insights/internal/views"
)

func TestNewSource(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{Source: config.SourceConfig{
		Kind: config.SourceFile, Path: "data.json", URL: "http://example.invalid/data.json", Timeout: time.Second,
	}}

	src, err := NewSource(ctx, cfg, &database.Connections{})
	require.NoError(t, err)
	assert.Equal(t, "file", src.Kind())

	cfg.Source.Kind = config.SourceHTTP
	src, err = NewSource(ctx, cfg, &database.Connections{})
	require.NoError(t, err)
	assert.Equal(t, "http", src.Kind())

	cfg.Source.Kind = config.SourcePostgres
	_, err = NewSource(ctx, cfg, &database.Connections{})
	assert.Error(t, err)

	cfg.Source.Kind = "s3"
	_, err = NewSource(ctx, cfg, nil)
	assert.ErrorContains(t, err, "unknown dataset source")
}

func TestNewLocator(t *testing.T) {
	l, err := NewLocator(config.GeoConfig{CountryFallback: true})
	require.NoError(t, err)

	_, src, ok := l.Locate("California", "USA")
	require.True(t, ok)
	assert.Equal(t, heatmap.SourceTable, src)

	_, src, ok = l.Locate("Nowhere Province", "France")
	require.True(t, ok)
	assert.Equal(t, heatmap.SourceCountry, src)

	l, err = NewLocator(config.GeoConfig{})
	require.NoError(t, err)
	_, _, ok = l.Locate("Nowhere Province", "France")
	assert.False(t, ok)

	_, err = NewLocator(config.GeoConfig{CoordinatesPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestNewWithFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketing.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"campaigns":[{"id":1,"name":"A","spend":10,"revenue":20}]}`), 0o600))

	cfg := &config.Config{
		Source:  config.SourceConfig{Kind: config.SourceFile, Path: path},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Views:   config.ViewsConfig{WeeklyWindow: 8, TopRegions: 6, ROASHigh: 80, ROASMedium: 50, MemoSize: 2},
	}
	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Sink)
	assert.NotNil(t, a.Metrics)

	r, err := a.Views.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "marketing.json", r.Meta.Dataset)
	assert.Equal(t, 2.0, r.Totals.ROAS)

	_, err = a.Views.Render(context.Background(), views.Request{View: views.ViewWeekly})
	assert.NoError(t, err)
}
