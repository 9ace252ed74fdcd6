package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	models "lectern/internal/domain/models/resource"
	resourceRepo "lectern/internal/domain/repositories/resource"
)

// snapshotCache is the slice of a key/value store the decorator needs
type snapshotCache interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Drop(ctx context.Context, key string) error
}

// clientCache adapts a go-redis client to snapshotCache
type clientCache struct {
	client *redis.Client
}

func (c clientCache) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c clientCache) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c clientCache) Drop(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// CachedResourceStore serves List from a per-course snapshot and drops the
// snapshot on every write. Cache failures fall through to the wrapped store.
type CachedResourceStore struct {
	resourceRepo.ResourceStore
	cache  snapshotCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedResourceStore wraps store with a Redis snapshot cache
func NewCachedResourceStore(store resourceRepo.ResourceStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedResourceStore {
	return newCachedResourceStore(store, clientCache{client: client}, ttl, logger)
}

func newCachedResourceStore(store resourceRepo.ResourceStore, cache snapshotCache, ttl time.Duration, logger *slog.Logger) *CachedResourceStore {
	return &CachedResourceStore{
		ResourceStore: store,
		cache:         cache,
		ttl:           ttl,
		logger:        logger,
	}
}

var _ resourceRepo.ResourceStore = (*CachedResourceStore)(nil)

func snapshotKey(courseID string) string {
	return fmt.Sprintf("lectern:resources:%s", courseID)
}

// List returns the cached snapshot when present
func (s *CachedResourceStore) List(ctx context.Context, courseID string) ([]models.ResourceRecord, error) {
	key := snapshotKey(courseID)

	data, ok, err := s.cache.Load(ctx, key)
	if err != nil {
		s.logger.Warn("snapshot cache read failed", "course_id", courseID, "error", err)
	}
	if ok {
		var records []models.ResourceRecord
		if err := json.Unmarshal(data, &records); err == nil {
			return records, nil
		}
		s.logger.Warn("discarding corrupt snapshot", "course_id", courseID)
	}

	records, err := s.ResourceStore.List(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(records); err == nil {
		if err := s.cache.Save(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn("snapshot cache write failed", "course_id", courseID, "error", err)
		}
	}
	return records, nil
}

func (s *CachedResourceStore) Upsert(ctx context.Context, rec *models.ResourceRecord, mode models.UpsertMode) error {
	err := s.ResourceStore.Upsert(ctx, rec, mode)
	s.invalidate(ctx, rec.CourseID)
	return err
}

func (s *CachedResourceStore) Update(ctx context.Context, courseID, path string, patch models.ResourcePatch) error {
	err := s.ResourceStore.Update(ctx, courseID, path, patch)
	s.invalidate(ctx, courseID)
	return err
}

func (s *CachedResourceStore) DeleteByPath(ctx context.Context, courseID, path string) error {
	err := s.ResourceStore.DeleteByPath(ctx, courseID, path)
	s.invalidate(ctx, courseID)
	return err
}

func (s *CachedResourceStore) DeleteByPrefix(ctx context.Context, courseID, prefix string) (int64, error) {
	n, err := s.ResourceStore.DeleteByPrefix(ctx, courseID, prefix)
	s.invalidate(ctx, courseID)
	return n, err
}

// invalidate runs even when the write failed: a failed write may still have landed
func (s *CachedResourceStore) invalidate(ctx context.Context, courseID string) {
	if err := s.cache.Drop(context.WithoutCancel(ctx), snapshotKey(courseID)); err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("snapshot cache invalidation failed", "course_id", courseID, "error", err)
	}
}
