package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"lectern/internal/domain"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: domain.ErrNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", pgx.ErrNoRows), want: domain.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: domain.ErrConflict},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: domain.ErrTransient},
		{name: "connection failure", err: &pgconn.PgError{Code: "08006"}, want: domain.ErrTransient},
		{name: "admin shutdown", err: &pgconn.PgError{Code: "57P01"}, want: domain.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, wrapError("op", "A/b.pdf", tt.err), tt.want)
		})
	}
}

func TestWrapError_OtherErrorsStayInternal(t *testing.T) {
	err := wrapError("update resource", "x", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"})
	assert.Equal(t, "internal", domain.Kind(err))
	assert.True(t, strings.HasPrefix(err.Error(), "update resource: "))

	plain := errors.New("boom")
	assert.ErrorIs(t, wrapError("op", "x", plain), plain)
}

func TestSchema_UsesPrefixedTable(t *testing.T) {
	ddl := Schema(NewTableNames("test_"))
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS test_course_resources")
	assert.Contains(t, ddl, "UNIQUE (course_id, path)")
	assert.Contains(t, ddl, "test_course_resources_prefix_idx")
}
