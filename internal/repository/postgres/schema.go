package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema returns the DDL for the resource table. Path uniqueness per course
// is the only integrity rule; parent folders are implied by path shape.
func Schema(tables *TableNames) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	course_id   TEXT NOT NULL,
	path        TEXT NOT NULL CHECK (path <> '' AND left(path, 1) <> '/' AND right(path, 1) <> '/'),
	name        VARCHAR(255) NOT NULL,
	kind        TEXT NOT NULL CHECK (kind IN ('file', 'folder')),
	size        BIGINT,
	url         TEXT,
	mime_type   TEXT,
	object_key  TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (course_id, path),
	CHECK (kind = 'file' OR (size IS NULL AND url IS NULL AND mime_type IS NULL AND object_key IS NULL))
);

CREATE INDEX IF NOT EXISTS %[1]s_prefix_idx ON %[1]s (course_id, path text_pattern_ops);
`, tables.Resources)
}

// EnsureSchema creates the resource table if it does not exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, Schema(tables)); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// DropSchema drops the resource table for this prefix. Blobs are left in place.
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", tables.Resources)); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}
