package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the marketing insights service.
type Config struct {
	Server     ServerConfig
	Source     SourceConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Views      ViewsConfig
	Geo        GeoConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// Source kinds.
const (
	SourceFile     = "file"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
)

// SourceConfig selects where the marketing dataset is loaded from.
type SourceConfig struct {
	Kind    string
	Path    string
	URL     string
	Dataset string
	Timeout time.Duration
	Watch   bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int

	// AppName is reported to the server as application_name.
	AppName          string
	StatementTimeout time.Duration
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig configures the rendered report cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// ClickHouseConfig configures the aggregated group export.
type ClickHouseConfig struct {
	Enabled     bool
	Addr        []string
	Database    string
	Username    string
	Password    string
	Table       string
	DialTimeout time.Duration
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
	// Per client IP
	IPRPS   float64
	IPBurst int
}

type LogConfig struct {
	Level  string
	Format string
	// File, when set, receives logs with size based rotation.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// ViewsConfig tunes the dashboard views.
type ViewsConfig struct {
	WeeklyWindow int
	TopRegions   int
	ROASHigh     float64
	ROASMedium   float64
	MemoSize     int

	// RefreshInterval is how long a loaded dataset is served before the source is read again.
	RefreshInterval time.Duration
}

// GeoConfig configures the geographic heat map.
type GeoConfig struct {
	CoordinatesPath string
	CountryFallback bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("INSIGHTS_HTTP_ADDR", ":8080"),
			Env:             getEnv("INSIGHTS_ENV", "development"),
			ShutdownTimeout: getDurationEnv("INSIGHTS_SHUTDOWN_TIMEOUT", 30*time.Second),
			ReadTimeout:     getDurationEnv("INSIGHTS_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("INSIGHTS_WRITE_TIMEOUT", 30*time.Second),
		},
		Source: SourceConfig{
			Kind:    strings.ToLower(getEnv("INSIGHTS_SOURCE", SourceFile)),
			Path:    getEnv("INSIGHTS_SOURCE_PATH", "data/marketing.json"),
			URL:     getEnv("INSIGHTS_SOURCE_URL", ""),
			Dataset: getEnv("INSIGHTS_SOURCE_DATASET", "default"),
			Timeout: getDurationEnv("INSIGHTS_SOURCE_TIMEOUT", 10*time.Second),
			Watch:   getBoolEnv("INSIGHTS_SOURCE_WATCH", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("INSIGHTS_DB_HOST", "localhost"),
			Port:     getIntEnv("INSIGHTS_DB_PORT", 5432),
			User:     getEnv("INSIGHTS_DB_USER", "insights"),
			Password: getEnv("INSIGHTS_DB_PASSWORD", "insights_secret"),
			DBName:   getEnv("INSIGHTS_DB_NAME", "insights"),
			SSLMode:  getEnv("INSIGHTS_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("INSIGHTS_DB_MAX_CONNS", 10),
			MinConns: getIntEnv("INSIGHTS_DB_MIN_CONNS", 1),

			AppName:          getEnv("INSIGHTS_DB_APP_NAME", "marketing-insights"),
			StatementTimeout: getDurationEnv("INSIGHTS_DB_STATEMENT_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("INSIGHTS_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("INSIGHTS_REDIS_PASSWORD", ""),
			DB:       getIntEnv("INSIGHTS_REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled: getBoolEnv("INSIGHTS_CACHE_ENABLED", false),
			TTL:     getDurationEnv("INSIGHTS_CACHE_TTL", 10*time.Minute),
			Prefix:  getEnv("INSIGHTS_CACHE_PREFIX", "insights:view:"),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:     getBoolEnv("INSIGHTS_CLICKHOUSE_ENABLED", false),
			Addr:        getSliceEnv("INSIGHTS_CLICKHOUSE_ADDR", []string{"localhost:9000"}),
			Database:    getEnv("INSIGHTS_CLICKHOUSE_DB", "default"),
			Username:    getEnv("INSIGHTS_CLICKHOUSE_USER", "default"),
			Password:    getEnv("INSIGHTS_CLICKHOUSE_PASSWORD", ""),
			Table:       getEnv("INSIGHTS_CLICKHOUSE_TABLE", "marketing_groups"),
			DialTimeout: getDurationEnv("INSIGHTS_CLICKHOUSE_DIAL_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("INSIGHTS_AUTH_ENABLED", false),
			MasterKey: getEnv("INSIGHTS_API_KEY", ""),
			SkipPaths: getSliceEnv("INSIGHTS_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("INSIGHTS_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("INSIGHTS_RATE_LIMIT_RPS", 200),
			Burst:   getIntEnv("INSIGHTS_RATE_LIMIT_BURST", 50),
			IPRPS:   getFloatEnv("INSIGHTS_RATE_LIMIT_IP_RPS", 20),
			IPBurst: getIntEnv("INSIGHTS_RATE_LIMIT_IP_BURST", 10),
		},
		Log: LogConfig{
			Level:      getEnv("INSIGHTS_LOG_LEVEL", "info"),
			Format:     getEnv("INSIGHTS_LOG_FORMAT", "json"),
			File:       getEnv("INSIGHTS_LOG_FILE", ""),
			MaxSizeMB:  getIntEnv("INSIGHTS_LOG_MAX_SIZE_MB", 100),
			MaxBackups: getIntEnv("INSIGHTS_LOG_MAX_BACKUPS", 5),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("INSIGHTS_METRICS_ENABLED", true),
			Path:    getEnv("INSIGHTS_METRICS_PATH", "/metrics"),
		},
		Views: ViewsConfig{
			WeeklyWindow: getIntEnv("INSIGHTS_WEEKLY_WINDOW", 8),
			TopRegions:   getIntEnv("INSIGHTS_TOP_REGIONS", 6),
			ROASHigh:     getFloatEnv("INSIGHTS_ROAS_HIGH", 80),
			ROASMedium:   getFloatEnv("INSIGHTS_ROAS_MEDIUM", 50),
			MemoSize:     getIntEnv("INSIGHTS_MEMO_SIZE", 4),

			RefreshInterval: getDurationEnv("INSIGHTS_REFRESH_INTERVAL", 30*time.Second),
		},
		Geo: GeoConfig{
			CoordinatesPath: getEnv("INSIGHTS_GEO_COORDINATES", ""),
			CountryFallback: getBoolEnv("INSIGHTS_GEO_COUNTRY_FALLBACK", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("INSIGHTS_API_KEY is required when auth is enabled")
	}

	switch c.Source.Kind {
	case SourceFile:
		if c.Source.Path == "" {
			return fmt.Errorf("INSIGHTS_SOURCE_PATH is required for the file source")
		}
	case SourceHTTP:
		if c.Source.URL == "" {
			return fmt.Errorf("INSIGHTS_SOURCE_URL is required for the http source")
		}
	case SourcePostgres:
		if c.Source.Dataset == "" {
			return fmt.Errorf("INSIGHTS_SOURCE_DATASET is required for the postgres source")
		}
	default:
		return fmt.Errorf("unknown INSIGHTS_SOURCE %q (want file, http or postgres)", c.Source.Kind)
	}

	if c.Views.ROASMedium > c.Views.ROASHigh {
		return fmt.Errorf("INSIGHTS_ROAS_MEDIUM (%v) must not exceed INSIGHTS_ROAS_HIGH (%v)",
			c.Views.ROASMedium, c.Views.ROASHigh)
	}
	if c.Views.TopRegions < 1 {
		return fmt.Errorf("INSIGHTS_TOP_REGIONS must be positive")
	}
	if c.ClickHouse.Enabled && len(c.ClickHouse.Addr) == 0 {
		return fmt.Errorf("INSIGHTS_CLICKHOUSE_ADDR is required when export is enabled")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
