package resource

import (
	"context"

	models "lectern/internal/domain/models/resource"
)

// TreeService projects flat snapshots into browse views
type TreeService interface {
	// Browse returns the direct children of path, folders first, then by name
	Browse(ctx context.Context, courseID, path string) ([]models.ResourceRecord, error)

	// Tree returns the whole course as a forest
	Tree(ctx context.Context, courseID string) ([]*models.TreeNode, error)
}

// Materializer guarantees implied folder records exist
type Materializer interface {
	EnsureAncestors(ctx context.Context, courseID, path string) error
	EnsureCourseRoot(ctx context.Context, courseID string) error
}

// FolderService handles explicit folder creation
type FolderService interface {
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*models.ResourceRecord, error)
}

// UploadService stores files and their metadata records
type UploadService interface {
	// Upload handles picker and directory-picker batches
	Upload(ctx context.Context, req *UploadRequest) (*models.UploadResult, error)

	// UploadEntries expands drag-and-drop entries, then uploads them like a directory batch
	UploadEntries(ctx context.Context, req *UploadEntriesRequest) (*models.UploadResult, error)
}

// MutationService renames, moves and deletes records with their descendants
type MutationService interface {
	Rename(ctx context.Context, req *RenameRequest) (*models.CascadeResult, error)
	Move(ctx context.Context, req *MoveRequest) (*models.CascadeResult, error)
	Delete(ctx context.Context, req *DeleteRequest) (*models.CascadeResult, error)
}

// PreviewService resolves a file's public URL and type
type PreviewService interface {
	ResolvePreview(ctx context.Context, courseID, path string) (*models.Preview, error)
}

// ProgressFunc receives aggregate progress. Calls are serialized.
type ProgressFunc func(models.Progress)

// CreateFolderRequest creates ParentPath/Name
type CreateFolderRequest struct {
	CourseID   string `json:"course_id"`
	ParentPath string `json:"parent_path"`
	Name       string `json:"name"`
}

// UploadRequest is a picker or directory-picker batch
type UploadRequest struct {
	CourseID   string
	FolderPath string // Target folder; empty = course root
	Files      []UploadedFile
	Overwrite  bool // Upsert semantics: an existing object counts as success
	OnProgress ProgressFunc
}

// UploadEntriesRequest is a drag-and-drop batch
type UploadEntriesRequest struct {
	CourseID         string
	FolderPath       string
	Entries          []Entry
	Overwrite        bool
	IncludeEmptyDirs bool // Materialize folder records for dropped directories with no files
	OnProgress       ProgressFunc
}

// RenameRequest renames the record at Path to Name in the same folder
type RenameRequest struct {
	CourseID string `json:"course_id"`
	Path     string `json:"path"`
	Name     string `json:"name"`
	DryRun   bool   `json:"dry_run"`
}

// MoveRequest moves the record at Path into Destination ("" = course root)
type MoveRequest struct {
	CourseID    string `json:"course_id"`
	Path        string `json:"path"`
	Destination string `json:"destination"`
	DryRun      bool   `json:"dry_run"`
}

// DeleteRequest deletes the record at Path and, for folders, every descendant
type DeleteRequest struct {
	CourseID string `json:"course_id"`
	Path     string `json:"path"`
	DryRun   bool   `json:"dry_run"`
}
