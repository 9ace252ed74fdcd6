package resource

import (
	"context"

	models "lectern/internal/domain/models/resource"
)

// ResourceStore is the remote metadata table: one row per path, unique on
// (courseID, path). No multi-row transaction is offered.
type ResourceStore interface {
	// List returns every record of a course (flat snapshot)
	List(ctx context.Context, courseID string) ([]models.ResourceRecord, error)

	// Get retrieves one record by path; ErrNotFound if absent
	Get(ctx context.Context, courseID, path string) (*models.ResourceRecord, error)

	// ListByPrefix returns records whose path starts with prefix (callers pass "folder/")
	ListByPrefix(ctx context.Context, courseID, prefix string) ([]models.ResourceRecord, error)

	// Upsert inserts rec keyed by (CourseID, Path). On an existing row of the same
	// kind, UpsertReplace overwrites and UpsertIgnore is a no-op; either way rec is
	// filled with the stored ID and timestamps. A row of the other kind is a ConflictError.
	Upsert(ctx context.Context, rec *models.ResourceRecord, mode models.UpsertMode) error

	// Update rewrites one record's path and name
	Update(ctx context.Context, courseID, path string, patch models.ResourcePatch) error

	// DeleteByPath removes one record
	DeleteByPath(ctx context.Context, courseID, path string) error

	// DeleteByPrefix removes every record whose path starts with prefix
	DeleteByPrefix(ctx context.Context, courseID, prefix string) (int64, error)
}
