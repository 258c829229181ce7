// Package application wires configuration into the running pieces shared by
// the server and the CLI: the toll API client, the optional Redis cache, the
// optional PostgreSQL run history and the bulk service.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/tollbatch/internal/config"
	"github.com/JonMunkholm/tollbatch/internal/core"
	"github.com/JonMunkholm/tollbatch/internal/retry"
	"github.com/JonMunkholm/tollbatch/internal/tollapi"
)

// App holds the wired components. Close releases them.
type App struct {
	Config  *config.Config
	Client  *tollapi.Client
	Service *core.Service
	History *core.PgHistoryStore

	pool  *pgxpool.Pool
	redis *redis.Client
}

// Options adjust wiring for a particular entry point.
type Options struct {
	// SkipHistory leaves run history off even when a database is configured.
	SkipHistory bool
}

// New builds an App from cfg. Optional backends that are configured but
// unreachable are fatal, so a misconfigured deployment fails at startup.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}

	var geocoder tollapi.Geocoder
	if cfg.Geocode.APIKey != "" {
		g, err := tollapi.NewMapsGeocoder(cfg.Geocode.APIKey, cfg.Geocode.Region, cfg.Geocode.Country)
		if err != nil {
			return nil, err
		}
		geocoder = g
	}

	app.Client = tollapi.New(tollapi.Config{
		TollURL:           cfg.Lookup.TollURL,
		FuelURL:           cfg.Lookup.FuelURL,
		APIKey:            cfg.Lookup.APIKey,
		Timeout:           cfg.Lookup.Timeout,
		RequestsPerSecond: cfg.Lookup.RequestsPerSecond,
		Burst:             cfg.Lookup.Burst,
		Geocoder:          geocoder,
	})
	if app.Client.SampleMode() {
		slog.Warn("LEPTON_API_KEY not set, lookups return sample data")
	}

	lookup := core.LookupFunc(app.Client.Lookup)

	if cfg.Cache.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		lookup = tollapi.NewCache(app.redis, cfg.Cache.TTL).Wrap(lookup)
		slog.Info("lookup cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
	}

	var history core.HistoryStore
	if cfg.Database.Enabled() && !opts.SkipHistory {
		pool, err := connectDB(ctx, cfg.Database)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.pool = pool

		app.History = core.NewPgHistoryStore(pool)
		if err := app.History.EnsureSchema(ctx); err != nil {
			app.Close()
			return nil, err
		}
		history = app.History
	}

	app.Service = core.NewService(
		lookup,
		core.NewRunLimiter(cfg.Bulk.MaxConcurrent, cfg.Bulk.MaxWaitTime),
		history,
		core.ServiceConfig{
			MaxFileSize:     cfg.Bulk.MaxFileSize,
			Encoding:        cfg.Bulk.Encoding,
			RunTimeout:      cfg.Bulk.RunTimeout,
			ResultRetention: cfg.Bulk.ResultRetention,
			Retry: retry.Policy{
				MaxAttempts: cfg.Bulk.RetryAttempts,
				Delay:       cfg.Bulk.RetryDelay,
			},
		},
	)

	return app, nil
}

// StartBackground runs periodic jobs until ctx is cancelled.
func (a *App) StartBackground(ctx context.Context) {
	if a.History == nil {
		return
	}
	go core.StartHistoryPruner(ctx, a.History, core.PruneConfig{
		Retention:     a.Config.Database.HistoryRetention,
		CheckInterval: a.Config.Database.HistoryPruneInterval,
	})
}

// Close releases database and cache connections.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("closing redis", "error", err)
		}
	}
}

func connectDB(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
