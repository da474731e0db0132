// Package app assembles the classification service from configuration.
// The API server and the admin CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"detailinfra/internal/classification"
	"detailinfra/internal/config"
	"detailinfra/internal/db"
	"detailinfra/internal/events"
	"detailinfra/internal/pricing"
	"detailinfra/internal/queue"
	"detailinfra/internal/remote"
	"detailinfra/internal/vehicle"
)

type App struct {
	Config  config.Config
	Service *classification.Service
	Pool    *pgxpool.Pool
	Events  *events.NATS

	closers []func()
}

// Build opens every configured backend. A missing database URL leaves the
// remote store disabled so the service runs queue-only; a missing NATS URL
// disables events.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg}

	catalog := pricing.DefaultCatalog()
	if cfg.CatalogPath != "" {
		c, err := pricing.LoadCatalogFile(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		catalog = c
	}
	dataset := vehicle.DefaultDataset()
	if cfg.DatasetPath != "" {
		d, err := vehicle.LoadDatasetFile(cfg.DatasetPath)
		if err != nil {
			return nil, err
		}
		dataset = d
	}

	var rs remote.Store = remote.Disabled{}
	if cfg.DatabaseURL != "" {
		pool, err := connect(ctx, cfg.DatabaseURL)
		if err != nil {
			// The queue still accepts writes while the database is down.
			log.Warn("remote store unavailable; running queue-only", zap.Error(err))
		} else {
			a.Pool = pool
			a.closers = append(a.closers, pool.Close)
			rs = remote.NewPostgres(pool)
		}
	} else {
		log.Info("DATABASE_URL not set; running queue-only")
	}

	store, err := queue.OpenSQLite(ctx, cfg.QueuePath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = store.Close() })

	opts := []queue.Option{queue.WithLogger(log)}
	if cfg.SyncRatePerSec > 0 {
		opts = append(opts, queue.WithLimiter(rate.NewLimiter(rate.Limit(cfg.SyncRatePerSec), 1)))
	}
	q := queue.New(store, rs, opts...)

	var pub events.Publisher = events.Discard{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, cfg.ServiceName)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect nats: %w", err)
		}
		a.Events = nc
		a.closers = append(a.closers, nc.Close)
		pub = nc
	}

	a.Service = classification.New(classification.Deps{
		Classifier: vehicle.NewClassifier(dataset),
		Remote:     rs,
		Queue:      q,
		Catalog:    catalog,
		Events:     pub,
		Logger:     log,
	})
	return a, nil
}

// Migrate applies pending schema migrations to the remote database.
func (a *App) Migrate(ctx context.Context) (int, error) {
	if a.Pool == nil {
		return 0, errors.New("database not configured")
	}
	return db.Migrate(ctx, a.Pool)
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := db.NewPool(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}
