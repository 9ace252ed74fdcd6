package resource

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	models "lectern/internal/domain/models/resource"
	resourceRepo "lectern/internal/domain/repositories/resource"
	resourceSvc "lectern/internal/domain/services/resource"
)

// PlaceholderName is the zero-byte object that keeps an otherwise empty
// course root or folder listable in the blob store.
const PlaceholderName = ".emptyFolderPlaceholder"

// ObjectKey returns the path-derived key used by folder markers and by
// file records stored without an object key
func ObjectKey(courseID, path string) string {
	return Join(courseID, path)
}

// UploadKey returns a fresh object key for one uploaded file. Upload keys
// are independent of the record path, which can change after upload.
func UploadKey(courseID, name string) string {
	return Join(Join(courseID, uuid.NewString()), name)
}

// PlaceholderKey returns the marker key for a folder ("" = course root)
func PlaceholderKey(courseID, folderPath string) string {
	return Join(ObjectKey(courseID, folderPath), PlaceholderName)
}

type materializer struct {
	store  resourceRepo.ResourceStore
	blobs  resourceRepo.BlobStore
	group  singleflight.Group
	roots  *ristretto.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewMaterializer creates the folder materializer. Verified course roots are
// remembered for ttl.
func NewMaterializer(
	store resourceRepo.ResourceStore,
	blobs resourceRepo.BlobStore,
	ttl time.Duration,
	logger *slog.Logger,
) (resourceSvc.Materializer, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 16,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create course root cache: %w", err)
	}

	return &materializer{
		store:  store,
		blobs:  blobs,
		roots:  cache,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// EnsureAncestors upserts a folder record for every proper ancestor of path,
// top-down. Existing folders are left untouched.
func (m *materializer) EnsureAncestors(ctx context.Context, courseID, path string) error {
	for _, ancestor := range AncestorChain(path) {
		if err := m.ensureFolder(ctx, courseID, ancestor); err != nil {
			return err
		}
	}
	return nil
}

// ensureFolder coalesces concurrent requests for the same folder within this
// process; the store-level upsert keeps cross-process races safe.
func (m *materializer) ensureFolder(ctx context.Context, courseID, path string) error {
	key := courseID + "\x00" + path
	_, err, shared := m.group.Do(key, func() (any, error) {
		folder := &models.ResourceRecord{
			CourseID: courseID,
			Path:     path,
			Name:     BaseName(path),
			Kind:     models.KindFolder,
		}
		if err := m.store.Upsert(ctx, folder, models.UpsertIgnore); err != nil {
			return nil, fmt.Errorf("failed to materialize folder %q: %w", path, err)
		}
		return nil, nil
	})

	if shared {
		m.logger.Debug("folder materialization coalesced",
			"course_id", courseID,
			"path", path,
		)
	}
	return err
}

// EnsureCourseRoot writes the root placeholder when the course has no
// objects yet. The check is cached per course.
func (m *materializer) EnsureCourseRoot(ctx context.Context, courseID string) error {
	if _, ok := m.roots.Get(courseID); ok {
		return nil
	}

	_, err, _ := m.group.Do("root\x00"+courseID, func() (any, error) {
		entries, err := m.blobs.List(ctx, courseID+"/")
		if err != nil {
			return nil, fmt.Errorf("failed to list course root: %w", err)
		}

		if len(entries) == 0 {
			err := m.blobs.Put(ctx, PlaceholderKey(courseID, ""), bytes.NewReader(nil), resourceRepo.PutOptions{
				Overwrite:   true,
				ContentType: "application/octet-stream",
				Size:        0,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create course root: %w", err)
			}
			m.logger.Info("course root created", "course_id", courseID)
		}

		m.roots.SetWithTTL(courseID, true, 1, m.ttl)
		m.roots.Wait()
		return nil, nil
	})
	return err
}
