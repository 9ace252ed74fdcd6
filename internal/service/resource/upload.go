package resource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"lectern/internal/config"
	"lectern/internal/domain"
	models "lectern/internal/domain/models/resource"
	resourceRepo "lectern/internal/domain/repositories/resource"
	resourceSvc "lectern/internal/domain/services/resource"
	"lectern/internal/mimetypes"
)

// sniffLen is how much of a file is read up front for content sniffing
const sniffLen = 512

// uploadService implements the UploadService interface
type uploadService struct {
	store        resourceRepo.ResourceStore
	blobs        resourceRepo.BlobStore
	materializer resourceSvc.Materializer
	types        *mimetypes.Registry
	concurrency  int
	retry        RetryPolicy
	logger       *slog.Logger
}

// NewUploadService creates a new upload service
func NewUploadService(
	store resourceRepo.ResourceStore,
	blobs resourceRepo.BlobStore,
	materializer resourceSvc.Materializer,
	types *mimetypes.Registry,
	concurrency int,
	retry RetryPolicy,
	logger *slog.Logger,
) resourceSvc.UploadService {
	if concurrency <= 0 {
		concurrency = config.DefaultUploadConcurrency
	}
	if retry.Attempts == 0 {
		retry = DefaultRetryPolicy
	}
	return &uploadService{
		store:        store,
		blobs:        blobs,
		materializer: materializer,
		types:        types,
		concurrency:  concurrency,
		retry:        retry,
		logger:       logger,
	}
}

// uploadJob is one validated (targetPath, file) pair
type uploadJob struct {
	target string
	file   resourceSvc.UploadedFile
}

// batch collects per-file outcomes from concurrent workers
type batch struct {
	mu     sync.Mutex
	result *models.UploadResult
}

func (b *batch) succeeded(rec models.ResourceRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result.Summary.Uploaded++
	b.result.Records = append(b.result.Records, rec)
}

func (b *batch) failed(path string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result.Summary.Failed++
	b.result.Errors = append(b.result.Errors, models.UploadError{
		Path:  path,
		Kind:  domain.Kind(err),
		Error: err.Error(),
	})
}

// Upload stores a picker or directory-picker batch
func (s *uploadService) Upload(ctx context.Context, req *resourceSvc.UploadRequest) (*models.UploadResult, error) {
	if err := validateUploadRequest(req); err != nil {
		return nil, invalid(err)
	}
	return s.run(ctx, req, nil), nil
}

// UploadEntries expands dropped entries and stores them as a directory batch
func (s *uploadService) UploadEntries(ctx context.Context, req *resourceSvc.UploadEntriesRequest) (*models.UploadResult, error) {
	if err := validateUploadEntriesRequest(req); err != nil {
		return nil, invalid(err)
	}

	folder := Normalize(req.FolderPath)
	var files []resourceSvc.UploadedFile
	var emptyDirs []string
	var walkErrs []models.UploadError

	for entry, err := range Walk(ctx, req.Entries, WalkOptions{IncludeEmptyDirs: req.IncludeEmptyDirs}) {
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			walkErrs = append(walkErrs, models.UploadError{
				Path:  Join(folder, entry.RelativePath),
				Kind:  domain.Kind(err),
				Error: err.Error(),
			})
			continue
		}
		if entry.IsDir {
			emptyDirs = append(emptyDirs, entry.RelativePath)
			continue
		}
		files = append(files, entry.File)
	}

	result := s.run(ctx, &resourceSvc.UploadRequest{
		CourseID:   req.CourseID,
		FolderPath: folder,
		Files:      files,
		Overwrite:  req.Overwrite,
		OnProgress: req.OnProgress,
	}, walkErrs)

	for _, dir := range emptyDirs {
		target := Join(folder, dir)
		if err := s.materializeEmptyDir(ctx, req.CourseID, target); err != nil {
			result.Summary.Failed++
			result.Errors = append(result.Errors, models.UploadError{
				Path:  target,
				Kind:  domain.Kind(err),
				Error: err.Error(),
			})
			continue
		}
		result.Folders = append(result.Folders, target)
	}
	sortUploadErrors(result.Errors)

	return result, nil
}

// materializeEmptyDir creates a dropped directory that contained no files
func (s *uploadService) materializeEmptyDir(ctx context.Context, courseID, target string) error {
	if err := ValidatePath(target); err != nil {
		return invalid(err)
	}
	if err := s.materializer.EnsureAncestors(ctx, courseID, target); err != nil {
		return err
	}
	folder := &models.ResourceRecord{
		CourseID: courseID,
		Path:     target,
		Name:     BaseName(target),
		Kind:     models.KindFolder,
	}
	return s.retry.do(ctx, s.logger, "upsert folder", func() error {
		return s.store.Upsert(ctx, folder, models.UpsertIgnore)
	})
}

// run validates and plans the batch, then uploads every file concurrently.
// Per-file failures are collected; the batch itself never fails.
func (s *uploadService) run(ctx context.Context, req *resourceSvc.UploadRequest, prior []models.UploadError) *models.UploadResult {
	folder := Normalize(req.FolderPath)
	result := &models.UploadResult{
		Records: []models.ResourceRecord{},
		Errors:  append([]models.UploadError{}, prior...),
	}
	result.Summary.Failed = len(prior)
	b := &batch{result: result}

	jobs := s.plan(folder, req.Files, b)
	result.Summary.TotalFiles = len(req.Files) + len(prior)

	var total int64
	for _, job := range jobs {
		total += job.file.Size
	}
	result.Summary.TotalBytes = total

	tracker := newProgressTracker(total, req.OnProgress)
	defer tracker.finish()

	if len(jobs) > 0 {
		if err := s.materializer.EnsureCourseRoot(ctx, req.CourseID); err != nil {
			s.logger.Warn("failed to ensure course root",
				"course_id", req.CourseID,
				"error", err,
			)
		}
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			rec, err := s.uploadOne(ctx, req.CourseID, job, req.Overwrite, tracker)
			if err != nil {
				b.failed(job.target, err)
				s.logger.Warn("file upload failed",
					"course_id", req.CourseID,
					"path", job.target,
					"error", err,
				)
				return nil
			}
			b.succeeded(*rec)
			return nil
		})
	}
	_ = g.Wait()

	result.Summary.UploadedBytes = tracker.uploadedBytes()
	sort.Slice(result.Records, func(i, j int) bool { return result.Records[i].Path < result.Records[j].Path })
	sortUploadErrors(result.Errors)

	s.logger.Info("upload batch complete",
		"course_id", req.CourseID,
		"folder", folder,
		"uploaded", result.Summary.Uploaded,
		"failed", result.Summary.Failed,
		"total_files", result.Summary.TotalFiles,
		"bytes", humanize.Bytes(uint64(result.Summary.UploadedBytes)),
	)

	return result
}

// plan resolves target paths and rejects invalid files before any store call
func (s *uploadService) plan(folder string, files []resourceSvc.UploadedFile, b *batch) []uploadJob {
	jobs := make([]uploadJob, 0, len(files))
	seen := make(map[string]bool, len(files))

	for _, file := range files {
		rel := file.RelativePath
		if rel == "" {
			rel = file.Name
		}
		target := Join(folder, Normalize(rel))

		if err := s.validateFile(target, file); err != nil {
			b.failed(target, err)
			continue
		}
		if seen[target] {
			b.failed(target, &domain.ValidationError{Message: fmt.Sprintf("duplicate target path in batch: %s", target)})
			continue
		}
		seen[target] = true
		jobs = append(jobs, uploadJob{target: target, file: file})
	}
	return jobs
}

func (s *uploadService) validateFile(target string, file resourceSvc.UploadedFile) error {
	if err := ValidatePath(target); err != nil {
		return invalid(err)
	}
	if BaseName(target) == PlaceholderName {
		return &domain.ValidationError{Message: fmt.Sprintf("%s is a reserved name", PlaceholderName)}
	}
	if file.Source == nil {
		return &domain.ValidationError{Message: "file has no content"}
	}
	if file.Size < 0 {
		return &domain.ValidationError{Message: "file size is unknown"}
	}
	if file.Size > config.MaxUploadFileSize {
		return &domain.ValidationError{Message: fmt.Sprintf("file exceeds maximum size of %s",
			humanize.IBytes(config.MaxUploadFileSize))}
	}
	return nil
}

// uploadOne is the per-file core: target check, blob put, public URL,
// record upsert, ancestors. A failure after the blob put removes what this
// file wrote, so a reported failure leaves no record behind.
func (s *uploadService) uploadOne(
	ctx context.Context,
	courseID string,
	job uploadJob,
	overwrite bool,
	tracker *progressTracker,
) (*models.ResourceRecord, error) {
	var previous string
	err := s.retry.do(ctx, s.logger, "check target", func() error {
		var err error
		previous, err = s.checkTarget(ctx, courseID, job.target, overwrite)
		return err
	})
	if err != nil {
		return nil, err
	}

	key := UploadKey(courseID, BaseName(job.target))
	contentType := job.file.MimeType

	err = s.retry.do(ctx, s.logger, "put blob", func() error {
		rc, err := job.file.Source.Open()
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer rc.Close()

		head := make([]byte, sniffLen)
		n, err := io.ReadFull(rc, head)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("failed to read file: %w", err)
		}
		head = head[:n]
		contentType = s.types.Resolve(job.file.Name, job.file.MimeType, head)

		// Hand seekable sources through unchanged so the blob store can stream them
		var body io.Reader = io.MultiReader(bytes.NewReader(head), rc)
		if seeker, ok := rc.(io.ReadSeeker); ok {
			if _, err := seeker.Seek(0, io.SeekStart); err == nil {
				body = seeker
			}
		}

		// The key is fresh, so a retry after a lost response may overwrite its own object
		return s.blobs.Put(ctx, key, body, resourceRepo.PutOptions{
			Overwrite:   true,
			ContentType: contentType,
			Size:        job.file.Size,
		})
	})
	if err != nil {
		return nil, err
	}

	url := s.blobs.PublicURL(key)
	size := job.file.Size
	rec := &models.ResourceRecord{
		CourseID:  courseID,
		Path:      job.target,
		Name:      BaseName(job.target),
		Kind:      models.KindFile,
		Size:      &size,
		URL:       &url,
		MimeType:  &contentType,
		ObjectKey: &key,
	}
	err = s.retry.do(ctx, s.logger, "upsert record", func() error {
		return s.store.Upsert(ctx, rec, models.UpsertReplace)
	})
	if err != nil {
		s.discardBlobs(ctx, courseID, key)
		return nil, fmt.Errorf("failed to save record: %w", err)
	}

	if err := s.materializer.EnsureAncestors(ctx, courseID, job.target); err != nil {
		s.rollback(ctx, courseID, job.target, key, previous)
		return nil, err
	}

	if previous != "" && previous != key {
		s.discardBlobs(ctx, courseID, previous)
	}
	tracker.add(job.file.Size)

	s.logger.Debug("file uploaded",
		"course_id", courseID,
		"path", job.target,
		"key", key,
		"size", humanize.Bytes(uint64(size)),
	)
	return rec, nil
}

// checkTarget rejects a file whose ancestors include a file, or whose path
// holds a folder, or a file when overwrite is off. It returns the object key
// of the file being replaced, if any.
func (s *uploadService) checkTarget(ctx context.Context, courseID, target string, overwrite bool) (string, error) {
	for _, ancestor := range AncestorChain(target) {
		rec, err := s.store.Get(ctx, courseID, ancestor)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to check %q: %w", ancestor, err)
		}
		if !rec.IsFolder() {
			return "", &domain.ValidationError{
				Message: fmt.Sprintf("%q is a file and cannot contain %q", ancestor, target),
			}
		}
	}

	existing, err := s.store.Get(ctx, courseID, target)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("failed to check %q: %w", target, err)
	case existing.IsFolder():
		return "", &domain.ConflictError{
			Message:      fmt.Sprintf("a folder already exists at %q", target),
			ResourceType: string(models.KindFolder),
			ResourceID:   existing.ID,
		}
	case !overwrite:
		return "", &domain.ConflictError{
			Message:      fmt.Sprintf("a file already exists at %q", target),
			ResourceType: string(models.KindFile),
			ResourceID:   existing.ID,
		}
	}
	return blobKeyOf(existing), nil
}

// rollback undoes a file whose ancestors could not be materialized. The
// record is gone afterwards, so a replaced object goes with it.
func (s *uploadService) rollback(ctx context.Context, courseID, target, key, previous string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.store.DeleteByPath(ctx, courseID, target); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("failed to roll back file record",
			"course_id", courseID,
			"path", target,
			"error", err,
		)
	}

	keys := []string{key}
	if previous != "" && previous != key {
		keys = append(keys, previous)
	}
	s.discardBlobs(ctx, courseID, keys...)
}

// discardBlobs removes objects no record points to; failures only leave orphans
func (s *uploadService) discardBlobs(ctx context.Context, courseID string, keys ...string) {
	if err := s.blobs.Remove(context.WithoutCancel(ctx), keys...); err != nil {
		s.logger.Warn("failed to remove unreferenced objects",
			"course_id", courseID,
			"keys", keys,
			"error", err,
		)
	}
}

func sortUploadErrors(errs []models.UploadError) {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Path < errs[j].Path })
}
