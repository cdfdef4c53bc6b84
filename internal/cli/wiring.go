package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/studio-engine/internal/booking"
	"github.com/terra-clan/studio-engine/internal/config"
	"github.com/terra-clan/studio-engine/internal/events"
	"github.com/terra-clan/studio-engine/internal/session"
	"github.com/terra-clan/studio-engine/internal/storage"
)

// openRepository connects the configured storage driver. With sqlite, inserts
// go straight to pub; with postgres they arrive through the notify listener.
func openRepository(ctx context.Context, c *config.Config, pub events.Publisher) (storage.Repository, error) {
	switch c.Storage.Driver {
	case config.DriverPostgres:
		if c.Storage.AutoMigrate {
			slog.Info("running database migrations", "dir", c.Storage.MigrationsDir)
			if err := storage.MigrateFromDSN(ctx, c.Storage.PostgresDSN, c.Storage.MigrationsDir); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
			DSN:          c.Storage.PostgresDSN,
			MaxOpenConns: c.Storage.MaxOpenConns,
			MaxIdleConns: c.Storage.MaxIdleConns,
			MaxLifetime:  c.Storage.MaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		var opts []storage.SQLiteOption
		if pub != nil {
			opts = append(opts, storage.WithPublisher(pub))
		}
		repo, err := storage.OpenSQLite(c.Storage.SQLitePath, opts...)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

// sessionStore is a session.Store that may hold a connection
type sessionStore interface {
	session.Store
	Close() error
}

type memoryStore struct {
	*session.MemoryStore
}

func (memoryStore) Close() error { return nil }

func openSessionStore(ctx context.Context, c *config.Config) (sessionStore, error) {
	if c.Sessions.Store == config.StoreRedis {
		store, err := session.NewRedisStore(ctx, session.RedisConfig{
			Addr:      c.Sessions.Redis.Address,
			Password:  c.Sessions.Redis.Password,
			DB:        c.Sessions.Redis.DB,
			KeyPrefix: c.Sessions.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return memoryStore{session.NewMemoryStore()}, nil
}

func newSubmitter(c *config.Config, repo storage.Repository) booking.Submitter {
	if c.Booking.Submitter == config.SubmitterRepository {
		return booking.NewRepositorySubmitter(repo)
	}
	return booking.NewSimulatedSubmitter(booking.WithDelay(c.Booking.SubmitDelay))
}
