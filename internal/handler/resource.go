package handler

import (
	"log/slog"
	"net/http"

	models "lectern/internal/domain/models/resource"
	resourceSvc "lectern/internal/domain/services/resource"
	"lectern/internal/httputil"
)

// ResourceHandler serves browsing and single-resource mutations
type ResourceHandler struct {
	treeService     resourceSvc.TreeService
	folderService   resourceSvc.FolderService
	mutationService resourceSvc.MutationService
	previewService  resourceSvc.PreviewService
	logger          *slog.Logger
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(
	treeService resourceSvc.TreeService,
	folderService resourceSvc.FolderService,
	mutationService resourceSvc.MutationService,
	previewService resourceSvc.PreviewService,
	logger *slog.Logger,
) *ResourceHandler {
	return &ResourceHandler{
		treeService:     treeService,
		folderService:   folderService,
		mutationService: mutationService,
		previewService:  previewService,
		logger:          logger,
	}
}

// HealthCheck reports liveness
// GET /health
func (h *ResourceHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Browse lists the direct children of a folder
// GET /api/courses/{courseID}/resources?path=A/B
func (h *ResourceHandler) Browse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := PathParam(w, r, "courseID", "Course ID")
	if !ok {
		return
	}

	path := r.URL.Query().Get("path")
	children, err := h.treeService.Browse(r.Context(), courseID, path)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"path":      path,
		"resources": children,
	})
}

// GetTree returns the whole course as a nested tree
// GET /api/courses/{courseID}/tree
func (h *ResourceHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	courseID, ok := PathParam(w, r, "courseID", "Course ID")
	if !ok {
		return
	}

	tree, err := h.treeService.Tree(r.Context(), courseID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}

// CreateFolder creates one folder and any missing ancestors
// POST /api/courses/{courseID}/folders
// Returns 201 if created, 409 if something already exists at the path
func (h *ResourceHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	courseID, ok := PathParam(w, r, "courseID", "Course ID")
	if !ok {
		return
	}

	var req resourceSvc.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.CourseID = courseID

	folder, err := h.folderService.CreateFolder(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// Rename renames a file or folder in place
// PATCH /api/courses/{courseID}/resources/rename
func (h *ResourceHandler) Rename(w http.ResponseWriter, r *http.Request) {
	courseID, ok := PathParam(w, r, "courseID", "Course ID")
	if !ok {
		return
	}

	var req resourceSvc.RenameRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.CourseID = courseID

	result, err := h.mutationService.Rename(r.Context(), &req)
	h.respondCascade(w, r, result, err)
}

// Move moves a file or folder under another folder
// PATCH /api/courses/{courseID}/resources/move
func (h *ResourceHandler) Move(w http.ResponseWriter, r *http.Request) {
	courseID, ok := PathParam(w, r, "courseID", "Course ID")
	if !ok {
		return
	}

	var req resourceSvc.MoveRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.CourseID = courseID

	result, err := h.mutationService.Move(r.Context(), &req)
	h.respondCascade(w, r, result, err)
}

// Delete removes a file, or a folder with everything under it
// DELETE /api/courses/{courseID}/resources?path=A/B&dry_run=true
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	courseID, ok := PathParam(w, r, "courseID", "Course ID")
	if !ok {
		return
	}

	result, err := h.mutationService.Delete(r.Context(), &resourceSvc.DeleteRequest{
		CourseID: courseID,
		Path:     r.URL.Query().Get("path"),
		DryRun:   httputil.QueryBool(r, "dry_run"),
	})
	h.respondCascade(w, r, result, err)
}

// Preview resolves a file's public URL and content type
// GET /api/courses/{courseID}/resources/preview?path=A/b.pdf
func (h *ResourceHandler) Preview(w http.ResponseWriter, r *http.Request) {
	courseID, ok := PathParam(w, r, "courseID", "Course ID")
	if !ok {
		return
	}

	preview, err := h.previewService.ResolvePreview(r.Context(), courseID, r.URL.Query().Get("path"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, preview)
}

// respondCascade writes 200 for a complete cascade and 207 when some
// descendants were left behind; clients should re-fetch the tree on 207.
func (h *ResourceHandler) respondCascade(w http.ResponseWriter, r *http.Request, result *models.CascadeResult, err error) {
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if !result.DryRun {
		h.logger.Info("resources changed",
			"operation", result.Operation,
			"course_id", result.CourseID,
			"path", result.Root.From,
			"applied", len(result.Applied),
			"failed", len(result.Failed),
			"user_id", httputil.GetUserID(r),
			"request_id", httputil.GetRequestID(r),
		)
	}
	httputil.RespondJSON(w, partialStatus(result.OK()), result)
}
