package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, SourceFile, cfg.Source.Kind)
	assert.Equal(t, 8, cfg.Views.WeeklyWindow)
	assert.Equal(t, 6, cfg.Views.TopRegions)
	assert.Equal(t, 80.0, cfg.Views.ROASHigh)
	assert.Equal(t, 50.0, cfg.Views.ROASMedium)
	assert.Equal(t, []string{"/health", "/metrics"}, cfg.Auth.SkipPaths)
	assert.Equal(t, "marketing-insights", cfg.Database.AppName)
	assert.Equal(t, 5*time.Second, cfg.Database.StatementTimeout)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("INSIGHTS_SOURCE", "HTTP")
	t.Setenv("INSIGHTS_SOURCE_URL", "http://example.test/data.json")
	t.Setenv("INSIGHTS_SOURCE_TIMEOUT", "3s")
	t.Setenv("INSIGHTS_WEEKLY_WINDOW", "12")
	t.Setenv("INSIGHTS_ROAS_HIGH", "5")
	t.Setenv("INSIGHTS_ROAS_MEDIUM", "2.5")
	t.Setenv("INSIGHTS_CLICKHOUSE_ADDR", "ch1:9000, ch2:9000")
	t.Setenv("INSIGHTS_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceHTTP, cfg.Source.Kind)
	assert.Equal(t, 3*time.Second, cfg.Source.Timeout)
	assert.Equal(t, 12, cfg.Views.WeeklyWindow)
	assert.Equal(t, 5.0, cfg.Views.ROASHigh)
	assert.Equal(t, 2.5, cfg.Views.ROASMedium)
	assert.Equal(t, []string{"ch1:9000", "ch2:9000"}, cfg.ClickHouse.Addr)
	assert.True(t, cfg.IsProduction())
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("INSIGHTS_WEEKLY_WINDOW", "eight")
	t.Setenv("INSIGHTS_CACHE_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Views.WeeklyWindow)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"auth without key", map[string]string{"INSIGHTS_AUTH_ENABLED": "true"}},
		{"unknown source", map[string]string{"INSIGHTS_SOURCE": "s3"}},
		{"http without url", map[string]string{"INSIGHTS_SOURCE": "http"}},
		{"inverted roas bands", map[string]string{"INSIGHTS_ROAS_HIGH": "10", "INSIGHTS_ROAS_MEDIUM": "20"}},
		{"no top regions", map[string]string{"INSIGHTS_TOP_REGIONS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5433, DBName: "x", SSLMode: "require"}
	assert.Equal(t, "postgres://u:p@db:5433/x?sslmode=require", d.DSN())
}
