package resource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"lectern/internal/config"
	"lectern/internal/domain"
	models "lectern/internal/domain/models/resource"
	resourceRepo "lectern/internal/domain/repositories/resource"
	resourceSvc "lectern/internal/domain/services/resource"
)

// mutationService implements rename, move and delete as cascades over the
// flat table. The store has no multi-row transaction: the root record is
// written first, then every descendant independently, and the outcome is
// reported per record in a CascadeResult.
type mutationService struct {
	store       resourceRepo.ResourceStore
	blobs       resourceRepo.BlobStore
	concurrency int
	retry       RetryPolicy
	logger      *slog.Logger
}

// NewMutationService creates a new mutation service
func NewMutationService(
	store resourceRepo.ResourceStore,
	blobs resourceRepo.BlobStore,
	concurrency int,
	retry RetryPolicy,
	logger *slog.Logger,
) resourceSvc.MutationService {
	if concurrency <= 0 {
		concurrency = config.DefaultCascadeConcurrency
	}
	if retry.Attempts == 0 {
		retry = DefaultRetryPolicy
	}
	return &mutationService{
		store:       store,
		blobs:       blobs,
		concurrency: concurrency,
		retry:       retry,
		logger:      logger,
	}
}

// Rename renames a record in place, cascading to descendants of a folder
func (s *mutationService) Rename(ctx context.Context, req *resourceSvc.RenameRequest) (*models.CascadeResult, error) {
	if err := validateRenameRequest(req); err != nil {
		return nil, invalid(err)
	}

	rec, err := s.store.Get(ctx, req.CourseID, Normalize(req.Path))
	if err != nil {
		return nil, err
	}

	newPath := Join(ParentOf(rec.Path), req.Name)
	if err := ValidatePath(newPath); err != nil {
		return nil, invalid(err)
	}
	return s.relocate(ctx, "rename", rec, newPath, req.DryRun)
}

// Move moves a record into Destination, cascading to descendants of a folder
func (s *mutationService) Move(ctx context.Context, req *resourceSvc.MoveRequest) (*models.CascadeResult, error) {
	if err := validateMoveRequest(req); err != nil {
		return nil, invalid(err)
	}

	rec, err := s.store.Get(ctx, req.CourseID, Normalize(req.Path))
	if err != nil {
		return nil, err
	}

	dest := Normalize(req.Destination)
	if rec.IsFolder() && (dest == rec.Path || IsDescendant(dest, rec.Path)) {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("cannot move folder %q into itself or one of its subfolders", rec.Path),
		}
	}

	if dest != "" {
		target, err := s.store.Get(ctx, req.CourseID, dest)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("destination folder %q does not exist", dest)}
		}
		if err != nil {
			return nil, err
		}
		if !target.IsFolder() {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("destination %q is not a folder", dest)}
		}
	}

	newPath := Join(dest, rec.Name)
	if err := ValidatePath(newPath); err != nil {
		return nil, invalid(err)
	}
	return s.relocate(ctx, "move", rec, newPath, req.DryRun)
}

// relocate rewrites rec to newPath and every descendant to the same relative
// position under it.
func (s *mutationService) relocate(
	ctx context.Context,
	op string,
	rec *models.ResourceRecord,
	newPath string,
	dryRun bool,
) (*models.CascadeResult, error) {
	result := newCascadeResult(op, rec, newPath, dryRun)
	if newPath == rec.Path {
		return result, nil
	}

	_, err := s.store.Get(ctx, rec.CourseID, newPath)
	switch {
	case err == nil:
		return nil, &domain.ValidationError{Message: fmt.Sprintf("a resource already exists at %q", newPath)}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to check target path: %w", err)
	}

	descendants, err := s.descendants(ctx, rec)
	if err != nil {
		return nil, err
	}

	if dryRun {
		result.Planned = append(result.Planned, result.Root)
		for _, d := range descendants {
			result.Planned = append(result.Planned, models.PathChange{From: d.Path, To: RebasePath(d.Path, rec.Path, newPath)})
		}
		return result, nil
	}

	// Root first: a failure here leaves the tree untouched
	err = s.retry.do(ctx, s.logger, op, func() error {
		return s.store.Update(ctx, rec.CourseID, rec.Path, models.ResourcePatch{Path: newPath, Name: BaseName(newPath)})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to %s %q: %w", op, rec.Path, err)
	}
	result.Applied = append(result.Applied, result.Root)

	var mu sync.Mutex
	var movedFolders []models.PathChange
	if rec.IsFolder() {
		movedFolders = append(movedFolders, result.Root)
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, d := range descendants {
		change := models.PathChange{From: d.Path, To: RebasePath(d.Path, rec.Path, newPath)}
		g.Go(func() error {
			err := s.retry.do(ctx, s.logger, op, func() error {
				return s.store.Update(ctx, rec.CourseID, change.From, models.ResourcePatch{Path: change.To, Name: BaseName(change.To)})
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, models.CascadeFailure{
					Path:  change.From,
					Kind:  domain.Kind(err),
					Error: err.Error(),
				})
				return nil
			}
			result.Applied = append(result.Applied, change)
			if d.IsFolder() {
				movedFolders = append(movedFolders, change)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.relocateMarkers(ctx, rec.CourseID, movedFolders)
	sortCascade(result)
	s.logCascade(result, len(descendants))

	return result, nil
}

// relocateMarkers keeps folder markers in step with moved folder records.
// File blobs stay under their original object keys.
func (s *mutationService) relocateMarkers(ctx context.Context, courseID string, folders []models.PathChange) {
	if len(folders) == 0 {
		return
	}

	stale := make([]string, 0, len(folders))
	for _, change := range folders {
		key := PlaceholderKey(courseID, change.To)
		if err := s.blobs.Put(ctx, key, bytes.NewReader(nil), resourceRepo.PutOptions{Overwrite: true}); err != nil {
			s.logger.Warn("failed to write folder marker", "key", key, "error", err)
		}
		stale = append(stale, PlaceholderKey(courseID, change.From))
	}

	if err := s.blobs.Remove(ctx, stale...); err != nil {
		s.logger.Warn("failed to remove stale folder markers",
			"course_id", courseID,
			"count", len(stale),
			"error", err,
		)
	}
}

// Delete removes a record, every descendant of a folder, and their blobs
func (s *mutationService) Delete(ctx context.Context, req *resourceSvc.DeleteRequest) (*models.CascadeResult, error) {
	if err := validateDeleteRequest(req); err != nil {
		return nil, invalid(err)
	}

	rec, err := s.store.Get(ctx, req.CourseID, Normalize(req.Path))
	if err != nil {
		return nil, err
	}

	descendants, err := s.descendants(ctx, rec)
	if err != nil {
		return nil, err
	}

	result := newCascadeResult("delete", rec, "", req.DryRun)
	if req.DryRun {
		result.Planned = append(result.Planned, result.Root)
		for _, d := range descendants {
			result.Planned = append(result.Planned, models.PathChange{From: d.Path})
		}
		return result, nil
	}

	err = s.retry.do(ctx, s.logger, "delete", func() error {
		return s.store.DeleteByPath(ctx, rec.CourseID, rec.Path)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete %q: %w", rec.Path, err)
	}
	result.Applied = append(result.Applied, result.Root)

	// Blobs of records whose rows are gone
	var keys []string
	if rec.IsFolder() {
		keys = append(keys, PlaceholderKey(rec.CourseID, rec.Path))

		var deleted int64
		err := s.retry.do(ctx, s.logger, "delete descendants", func() error {
			var err error
			deleted, err = s.store.DeleteByPrefix(ctx, rec.CourseID, rec.Path+"/")
			return err
		})
		if err != nil {
			for _, d := range descendants {
				result.Failed = append(result.Failed, models.CascadeFailure{
					Path:  d.Path,
					Kind:  domain.Kind(err),
					Error: err.Error(),
				})
			}
		} else {
			if deleted != int64(len(descendants)) {
				s.logger.Warn("descendant count changed during delete",
					"course_id", rec.CourseID,
					"path", rec.Path,
					"listed", len(descendants),
					"deleted", deleted,
				)
			}
			for _, d := range descendants {
				result.Applied = append(result.Applied, models.PathChange{From: d.Path})
				keys = append(keys, blobKeyOf(&d))
			}
		}
	} else {
		keys = append(keys, blobKeyOf(rec))
	}

	if err := s.removeBlobs(ctx, keys); err != nil {
		result.Failed = append(result.Failed, models.CascadeFailure{
			Path:  rec.Path,
			Kind:  domain.Kind(err),
			Error: fmt.Sprintf("failed to remove %d objects: %v", len(keys), err),
		})
	}

	sortCascade(result)
	s.logCascade(result, len(descendants))

	return result, nil
}

func (s *mutationService) removeBlobs(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.retry.do(ctx, s.logger, "remove blobs", func() error {
		return s.blobs.Remove(ctx, keys...)
	})
}

// descendants lists every record strictly below a folder; files have none
func (s *mutationService) descendants(ctx context.Context, rec *models.ResourceRecord) ([]models.ResourceRecord, error) {
	if !rec.IsFolder() {
		return nil, nil
	}
	records, err := s.store.ListByPrefix(ctx, rec.CourseID, rec.Path+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list descendants of %q: %w", rec.Path, err)
	}
	return records, nil
}

func (s *mutationService) logCascade(result *models.CascadeResult, descendants int) {
	level := slog.LevelInfo
	if !result.OK() {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "cascade complete",
		"operation", result.Operation,
		"course_id", result.CourseID,
		"from", result.Root.From,
		"to", result.Root.To,
		"descendants", descendants,
		"applied", len(result.Applied),
		"failed", len(result.Failed),
	)
}

// blobKeyOf returns the object key a file was stored under; folders map to their marker
func blobKeyOf(rec *models.ResourceRecord) string {
	if rec.IsFolder() {
		return PlaceholderKey(rec.CourseID, rec.Path)
	}
	if rec.ObjectKey != nil && *rec.ObjectKey != "" {
		return *rec.ObjectKey
	}
	return ObjectKey(rec.CourseID, rec.Path)
}

func newCascadeResult(op string, rec *models.ResourceRecord, newPath string, dryRun bool) *models.CascadeResult {
	return &models.CascadeResult{
		Operation: op,
		CourseID:  rec.CourseID,
		Root:      models.PathChange{From: rec.Path, To: newPath},
		DryRun:    dryRun,
		Applied:   []models.PathChange{},
		Failed:    []models.CascadeFailure{},
	}
}

func sortCascade(result *models.CascadeResult) {
	sort.Slice(result.Applied, func(i, j int) bool { return result.Applied[i].From < result.Applied[j].From })
	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].Path < result.Failed[j].Path })
}
