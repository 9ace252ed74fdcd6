package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lectern/internal/config"
	resourceRepo "lectern/internal/domain/repositories/resource"
	"lectern/internal/repository/cache"
	"lectern/internal/repository/memory"
	"lectern/internal/repository/postgres"
	"lectern/internal/repository/s3"
)

// Backends holds the opened metadata store and blob store
type Backends struct {
	Store   resourceRepo.ResourceStore
	Blobs   resourceRepo.BlobStore
	closers []func() error
}

// Close releases every backend connection
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open connects the backends selected by cfg. A non-empty RedisAddr puts the
// snapshot cache in front of the metadata store.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}

	if err := b.openStore(ctx, cfg, logger); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openBlobs(ctx, cfg, logger); err != nil {
		b.Close()
		return nil, err
	}

	if cfg.RedisAddr != "" {
		client, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		b.Store = cache.NewCachedResourceStore(b.Store, client, cfg.CacheTTL, logger.With("component", "snapshot_cache"))
		logger.Info("snapshot cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}

	return b, nil
}

func (b *Backends) openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	switch cfg.StoreBackend {
	case "memory":
		b.Store = memory.NewResourceStore()
		logger.Warn("using in-memory resource store; records are lost on exit")
		return nil

	case "postgres":
		pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		b.closers = append(b.closers, func() error { pool.Close(); return nil })

		tables := postgres.NewTableNames(cfg.TablePrefix)
		b.Store = postgres.NewResourceRepository(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger.With("component", "postgres"),
		})
		logger.Info("database connected", "table", tables.Resources)
		return nil

	default:
		return fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func (b *Backends) openBlobs(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	switch cfg.StorageBackend {
	case "memory":
		b.Blobs = memory.NewBlobStore(cfg.StoragePublicURL)
		return nil

	case "s3":
		blobs, err := s3.NewBlobStore(ctx, s3.Config{
			Bucket:          cfg.StorageBucket,
			Endpoint:        cfg.StorageEndpoint,
			Region:          cfg.StorageRegion,
			AccessKeyID:     cfg.StorageAccessKeyID,
			SecretAccessKey: cfg.StorageSecretAccessKey,
			PublicURL:       cfg.StoragePublicURL,
		}, logger.With("component", "s3"))
		if err != nil {
			return fmt.Errorf("failed to create blob store: %w", err)
		}
		b.Blobs = blobs
		logger.Info("object storage configured", "bucket", cfg.StorageBucket, "endpoint", cfg.StorageEndpoint)
		return nil

	default:
		return fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
