package resource

import (
	"fmt"
	"log/slog"

	"lectern/internal/config"
	resourceRepo "lectern/internal/domain/repositories/resource"
	resourceSvc "lectern/internal/domain/services/resource"
	"lectern/internal/mimetypes"
)

// Services holds all resource manager services
type Services struct {
	Tree         resourceSvc.TreeService
	Folder       resourceSvc.FolderService
	Upload       resourceSvc.UploadService
	Mutation     resourceSvc.MutationService
	Preview      resourceSvc.PreviewService
	Materializer resourceSvc.Materializer
}

// SetupServices wires the resource services over one store and one blob store
func SetupServices(
	store resourceRepo.ResourceStore,
	blobs resourceRepo.BlobStore,
	cfg *config.Config,
	logger *slog.Logger,
) (*Services, error) {
	types, err := mimetypes.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load content types: %w", err)
	}

	materializer, err := NewMaterializer(store, blobs, cfg.CacheTTL, logger.With("component", "materializer"))
	if err != nil {
		return nil, err
	}

	return &Services{
		Tree:         NewTreeService(store, logger.With("component", "tree")),
		Folder:       NewFolderService(store, blobs, materializer, logger.With("component", "folder")),
		Upload:       NewUploadService(store, blobs, materializer, types, cfg.UploadConcurrency, DefaultRetryPolicy, logger.With("component", "upload")),
		Mutation:     NewMutationService(store, blobs, cfg.CascadeConcurrency, DefaultRetryPolicy, logger.With("component", "cascade")),
		Preview:      NewPreviewService(store, blobs, types),
		Materializer: materializer,
	}, nil
}
