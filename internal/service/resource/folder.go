package resource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lectern/internal/domain"
	models "lectern/internal/domain/models/resource"
	resourceRepo "lectern/internal/domain/repositories/resource"
	resourceSvc "lectern/internal/domain/services/resource"
)

type folderService struct {
	store        resourceRepo.ResourceStore
	blobs        resourceRepo.BlobStore
	materializer resourceSvc.Materializer
	logger       *slog.Logger
}

// NewFolderService creates a new folder service
func NewFolderService(
	store resourceRepo.ResourceStore,
	blobs resourceRepo.BlobStore,
	materializer resourceSvc.Materializer,
	logger *slog.Logger,
) resourceSvc.FolderService {
	return &folderService{
		store:        store,
		blobs:        blobs,
		materializer: materializer,
		logger:       logger,
	}
}

// CreateFolder creates ParentPath/Name. Missing ancestors are materialized;
// an existing record at the target path is a conflict.
func (s *folderService) CreateFolder(ctx context.Context, req *resourceSvc.CreateFolderRequest) (*models.ResourceRecord, error) {
	if err := validateCreateFolderRequest(req); err != nil {
		return nil, invalid(err)
	}

	path := Join(Normalize(req.ParentPath), req.Name)
	if err := ValidatePath(path); err != nil {
		return nil, invalid(err)
	}

	existing, err := s.store.Get(ctx, req.CourseID, path)
	switch {
	case err == nil:
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("a %s named %q already exists in this location", existing.Kind, req.Name),
			ResourceType: string(existing.Kind),
			ResourceID:   existing.ID,
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to check for existing resource: %w", err)
	}

	if err := s.materializer.EnsureAncestors(ctx, req.CourseID, path); err != nil {
		return nil, err
	}

	folder := &models.ResourceRecord{
		CourseID: req.CourseID,
		Path:     path,
		Name:     req.Name,
		Kind:     models.KindFolder,
	}
	if err := s.store.Upsert(ctx, folder, models.UpsertIgnore); err != nil {
		return nil, err
	}

	// The marker keeps the folder visible to blob listings; the record is authoritative
	marker := PlaceholderKey(req.CourseID, path)
	if err := s.blobs.Put(ctx, marker, bytes.NewReader(nil), resourceRepo.PutOptions{Overwrite: true, Size: 0}); err != nil {
		s.logger.Warn("failed to write folder marker",
			"course_id", req.CourseID,
			"key", marker,
			"error", err,
		)
	}

	s.logger.Info("folder created",
		"id", folder.ID,
		"course_id", req.CourseID,
		"path", folder.Path,
	)

	return folder, nil
}
