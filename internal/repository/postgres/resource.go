package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lectern/internal/domain"
	models "lectern/internal/domain/models/resource"
	resourceRepo "lectern/internal/domain/repositories/resource"
)

const resourceColumns = `id, course_id, path, name, kind, size, url, mime_type, object_key, created_at, updated_at`

// PostgresResourceRepository implements the ResourceStore interface
type PostgresResourceRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewResourceRepository creates a new resource repository
func NewResourceRepository(config *RepositoryConfig) resourceRepo.ResourceStore {
	return &PostgresResourceRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanResource(row pgx.Row, rec *models.ResourceRecord) error {
	return row.Scan(
		&rec.ID,
		&rec.CourseID,
		&rec.Path,
		&rec.Name,
		&rec.Kind,
		&rec.Size,
		&rec.URL,
		&rec.MimeType,
		&rec.ObjectKey,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
}

func (r *PostgresResourceRepository) queryResources(ctx context.Context, op, query string, args ...any) ([]models.ResourceRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(op, "", err)
	}
	defer rows.Close()

	records := make([]models.ResourceRecord, 0)
	for rows.Next() {
		var rec models.ResourceRecord
		if err := scanResource(rows, &rec); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(op, "", err)
	}

	return records, nil
}

// List returns every record of a course ordered by path
func (r *PostgresResourceRepository) List(ctx context.Context, courseID string) ([]models.ResourceRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE course_id = $1
		ORDER BY path
	`, resourceColumns, r.tables.Resources)

	return r.queryResources(ctx, "list resources", query, courseID)
}

// Get retrieves one record by path
func (r *PostgresResourceRepository) Get(ctx context.Context, courseID, path string) (*models.ResourceRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE course_id = $1 AND path = $2
	`, resourceColumns, r.tables.Resources)

	var rec models.ResourceRecord
	if err := scanResource(r.pool.QueryRow(ctx, query, courseID, path), &rec); err != nil {
		return nil, wrapError("get resource", path, err)
	}

	return &rec, nil
}

// ListByPrefix returns records whose path starts with prefix.
// starts_with avoids LIKE, so "_" and "%" in names need no escaping.
func (r *PostgresResourceRepository) ListByPrefix(ctx context.Context, courseID, prefix string) ([]models.ResourceRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE course_id = $1 AND starts_with(path, $2)
		ORDER BY path
	`, resourceColumns, r.tables.Resources)

	return r.queryResources(ctx, "list resources by prefix", query, courseID, prefix)
}

// Upsert inserts or updates by (course_id, path). The kind guard in the
// conflict clause turns a file/folder clash into zero rows.
func (r *PostgresResourceRepository) Upsert(ctx context.Context, rec *models.ResourceRecord, mode models.UpsertMode) error {
	var onConflict string
	switch mode {
	case models.UpsertReplace:
		onConflict = `
			DO UPDATE SET
				name = EXCLUDED.name,
				size = EXCLUDED.size,
				url = EXCLUDED.url,
				mime_type = EXCLUDED.mime_type,
				object_key = EXCLUDED.object_key,
				updated_at = now()
			WHERE t.kind = EXCLUDED.kind`
	default:
		onConflict = `DO NOTHING`
	}

	query := fmt.Sprintf(`
		INSERT INTO %s AS t (course_id, path, name, kind, size, url, mime_type, object_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (course_id, path) %s
		RETURNING %s
	`, r.tables.Resources, onConflict, resourceColumns)

	err := scanResource(r.pool.QueryRow(ctx, query,
		rec.CourseID,
		rec.Path,
		rec.Name,
		rec.Kind,
		rec.Size,
		rec.URL,
		rec.MimeType,
		rec.ObjectKey,
	), rec)
	if err == nil {
		return nil
	}
	if !isPgNoRowsError(err) {
		return wrapError("upsert resource", rec.Path, err)
	}

	// No row returned: DO NOTHING hit an existing row, or the kind guard rejected it
	existing, getErr := r.Get(ctx, rec.CourseID, rec.Path)
	if getErr != nil {
		return getErr
	}
	if existing.Kind != rec.Kind {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a %s already exists at %q", existing.Kind, rec.Path),
			ResourceType: string(existing.Kind),
			ResourceID:   existing.ID,
		}
	}
	*rec = *existing
	return nil
}

// Update rewrites one record's path and name
func (r *PostgresResourceRepository) Update(ctx context.Context, courseID, path string, patch models.ResourcePatch) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET path = $1, name = $2, updated_at = now()
		WHERE course_id = $3 AND path = $4
	`, r.tables.Resources)

	result, err := r.pool.Exec(ctx, query, patch.Path, patch.Name, courseID, path)
	if err != nil {
		return wrapError("update resource", patch.Path, err)
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("resource not found: %s", path)}
	}

	return nil
}

// DeleteByPath removes one record
func (r *PostgresResourceRepository) DeleteByPath(ctx context.Context, courseID, path string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE course_id = $1 AND path = $2`, r.tables.Resources)

	result, err := r.pool.Exec(ctx, query, courseID, path)
	if err != nil {
		return wrapError("delete resource", path, err)
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("resource not found: %s", path)}
	}

	return nil
}

// DeleteByPrefix removes every record under prefix in one statement
func (r *PostgresResourceRepository) DeleteByPrefix(ctx context.Context, courseID, prefix string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE course_id = $1 AND starts_with(path, $2)`, r.tables.Resources)

	result, err := r.pool.Exec(ctx, query, courseID, prefix)
	if err != nil {
		return 0, wrapError("delete resources by prefix", prefix, err)
	}

	r.logger.Debug("deleted resources by prefix",
		"course_id", courseID,
		"prefix", prefix,
		"count", result.RowsAffected(),
	)

	return result.RowsAffected(), nil
}
