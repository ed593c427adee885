package database

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/radiusdt/marketing-insights/internal/config"
)

// Connections holds the backends the configuration asks for. Unused backends stay nil.
type Connections struct {
	Postgres   *PostgresDB
	Redis      *RedisDB
	ClickHouse *ClickHouseDB
}

// Open connects to PostgreSQL when the dataset source is postgres, to Redis when the
// report cache is enabled and to ClickHouse when export is enabled. A Redis failure only
// disables the cache; the other backends are required.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Connections, error) {
	c := &Connections{}

	if cfg.Source.Kind == config.SourcePostgres {
		db, err := NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		c.Postgres = db
	}

	if cfg.Cache.Enabled {
		r, err := NewRedisDB(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis not available, report cache disabled", zap.Error(err))
		} else {
			c.Redis = r
		}
	}

	if cfg.ClickHouse.Enabled {
		ch, err := NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.ClickHouse = ch
	}

	return c, nil
}

// Close closes every open backend.
func (c *Connections) Close() error {
	var err error
	if c.Postgres != nil {
		c.Postgres.Close()
	}
	if c.Redis != nil {
		err = multierr.Append(err, c.Redis.Close())
	}
	if c.ClickHouse != nil {
		err = multierr.Append(err, c.ClickHouse.Close())
	}
	return err
}

// Health pings every open backend.
func (c *Connections) Health(ctx context.Context) map[string]error {
	out := make(map[string]error)
	if c.Postgres != nil {
		out["postgres"] = c.Postgres.Health(ctx)
	}
	if c.Redis != nil {
		out["redis"] = c.Redis.Health(ctx)
	}
	if c.ClickHouse != nil {
		out["clickhouse"] = c.ClickHouse.Health(ctx)
	}
	return out
}
