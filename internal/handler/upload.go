package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"lectern/internal/config"
	"lectern/internal/domain"
	models "lectern/internal/domain/models/resource"
	resourceSvc "lectern/internal/domain/services/resource"
	"lectern/internal/handler/sse"
	"lectern/internal/httputil"
	resourceService "lectern/internal/service/resource"
)

// UploadHandler accepts multipart upload batches.
//
// Form layout:
//   - files: one part per file
//   - paths: optional, parallel to files; the browser-supplied relative path
//     ("Week 1/notes.pdf") for directory uploads
//
// Query parameters:
//   - folder: target folder (empty = course root)
//   - overwrite: replace existing files
//   - unzip: treat the single uploaded file as a zip archive and upload its tree
//   - empty_dirs: with unzip, also create folders for empty archive directories
type UploadHandler struct {
	uploadService resourceSvc.UploadService
	sseConfig     *sse.Config
	logger        *slog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadService resourceSvc.UploadService, sseConfig *sse.Config, logger *slog.Logger) *UploadHandler {
	if sseConfig == nil {
		sseConfig = sse.DefaultConfig()
	}
	return &UploadHandler{
		uploadService: uploadService,
		sseConfig:     sseConfig,
		logger:        logger,
	}
}

// streamError is the payload of a terminal "error" event
type streamError struct {
	Status int    `json:"status"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// uploadFunc runs one batch, reporting progress through onProgress
type uploadFunc func(ctx context.Context, onProgress resourceSvc.ProgressFunc) (*models.UploadResult, error)

// Upload stores a batch of files
// POST /api/courses/{courseID}/uploads
// With Accept: text/event-stream the response is a stream of "progress"
// events followed by one "result" (or "error") event.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	courseID, ok := PathParam(w, r, "courseID", "Course ID")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(config.MaxMultipartMemory); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	query := r.URL.Query()
	folder := query.Get("folder")
	overwrite := httputil.QueryBool(r, "overwrite")

	var run uploadFunc
	if httputil.QueryBool(r, "unzip") {
		if len(headers) != 1 {
			httputil.RespondError(w, http.StatusBadRequest, "unzip expects exactly one archive")
			return
		}
		archive, err := headers[0].Open()
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("failed to open %s", headers[0].Filename))
			return
		}
		defer archive.Close()

		entries, err := resourceService.ZipEntries(r.Context(), archive, headers[0].Size)
		if err != nil {
			handleError(w, h.logger, err)
			return
		}

		includeEmpty := httputil.QueryBool(r, "empty_dirs")
		run = func(ctx context.Context, onProgress resourceSvc.ProgressFunc) (*models.UploadResult, error) {
			return h.uploadService.UploadEntries(ctx, &resourceSvc.UploadEntriesRequest{
				CourseID:         courseID,
				FolderPath:       folder,
				Entries:          entries,
				Overwrite:        overwrite,
				IncludeEmptyDirs: includeEmpty,
				OnProgress:       onProgress,
			})
		}
	} else {
		files := formFiles(headers, r.MultipartForm.Value["paths"])
		run = func(ctx context.Context, onProgress resourceSvc.ProgressFunc) (*models.UploadResult, error) {
			return h.uploadService.Upload(ctx, &resourceSvc.UploadRequest{
				CourseID:   courseID,
				FolderPath: folder,
				Files:      files,
				Overwrite:  overwrite,
				OnProgress: onProgress,
			})
		}
	}

	h.logger.Info("starting upload",
		"course_id", courseID,
		"folder", folder,
		"parts", len(headers),
		"overwrite", overwrite,
		"user_id", httputil.GetUserID(r),
		"request_id", httputil.GetRequestID(r),
	)

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		h.stream(w, r, run)
		return
	}

	result, err := run(r.Context(), nil)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, partialStatus(result.Summary.Failed == 0), result)
}

// stream runs the batch while forwarding progress as SSE events
func (h *UploadHandler) stream(w http.ResponseWriter, r *http.Request, run uploadFunc) {
	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	stopped := keepAlive.Start(writer, h.logger)
	defer func() {
		keepAlive.Stop()
		<-stopped
	}()

	// A dropped client stops receiving events; the batch itself runs to completion
	onProgress := func(p models.Progress) {
		if err := writer.WriteEvent("progress", p); err != nil {
			h.logger.Debug("progress event dropped", "error", err)
		}
	}

	result, err := run(context.WithoutCancel(r.Context()), onProgress)
	if err != nil {
		_ = writer.WriteEvent("error", streamError{
			Status: statusOf(err),
			Kind:   domain.Kind(err),
			Detail: err.Error(),
		})
		return
	}
	_ = writer.WriteEvent("result", result)
}

// formFiles pairs each file part with its relative path, when one was sent
func formFiles(headers []*multipart.FileHeader, paths []string) []resourceSvc.UploadedFile {
	files := make([]resourceSvc.UploadedFile, 0, len(headers))
	for i, fh := range headers {
		file := resourceSvc.UploadedFile{
			Name:     fh.Filename,
			Size:     fh.Size,
			MimeType: fh.Header.Get("Content-Type"),
			Source: resourceSvc.FileSourceFunc(func() (io.ReadCloser, error) {
				return fh.Open()
			}),
		}
		if len(paths) == len(headers) {
			file.RelativePath = paths[i]
		}
		files = append(files, file)
	}
	return files
}
