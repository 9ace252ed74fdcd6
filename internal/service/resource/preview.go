package resource

import (
	"context"
	"fmt"

	"lectern/internal/domain"
	models "lectern/internal/domain/models/resource"
	resourceRepo "lectern/internal/domain/repositories/resource"
	resourceSvc "lectern/internal/domain/services/resource"
	"lectern/internal/mimetypes"
)

type previewService struct {
	store resourceRepo.ResourceStore
	blobs resourceRepo.BlobStore
	types *mimetypes.Registry
}

// NewPreviewService creates a new preview service
func NewPreviewService(
	store resourceRepo.ResourceStore,
	blobs resourceRepo.BlobStore,
	types *mimetypes.Registry,
) resourceSvc.PreviewService {
	return &previewService{store: store, blobs: blobs, types: types}
}

// ResolvePreview returns the URL and content type of a file. Records written
// before URLs were stored fall back to the blob store and the type table.
func (s *previewService) ResolvePreview(ctx context.Context, courseID, path string) (*models.Preview, error) {
	path = Normalize(path)
	if err := ValidatePath(path); err != nil {
		return nil, invalid(err)
	}

	rec, err := s.store.Get(ctx, courseID, path)
	if err != nil {
		return nil, err
	}
	if rec.IsFolder() {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("%q is a folder and has no preview", path)}
	}

	preview := &models.Preview{
		Path: rec.Path,
		Name: rec.Name,
	}

	if rec.URL != nil && *rec.URL != "" {
		preview.URL = *rec.URL
	} else {
		key := ObjectKey(courseID, rec.Path)
		if rec.ObjectKey != nil && *rec.ObjectKey != "" {
			key = *rec.ObjectKey
		}
		preview.URL = s.blobs.PublicURL(key)
	}

	declared := ""
	if rec.MimeType != nil {
		declared = *rec.MimeType
	}
	preview.MimeType = s.types.Resolve(rec.Name, declared, nil)

	if rec.Size != nil {
		preview.Size = *rec.Size
	}

	return preview, nil
}
