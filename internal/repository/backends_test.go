package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/internal/config"
	"lectern/internal/repository/memory"
)

func TestOpen_Memory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	b, err := Open(context.Background(), &config.Config{
		StoreBackend:   "memory",
		StorageBackend: "memory",
	}, logger)
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &memory.ResourceStore{}, b.Store)
	assert.IsType(t, &memory.BlobStore{}, b.Blobs)
}

func TestOpen_UnknownBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := Open(context.Background(), &config.Config{StoreBackend: "sqlite", StorageBackend: "memory"}, logger)
	assert.ErrorContains(t, err, `unknown store backend "sqlite"`)

	_, err = Open(context.Background(), &config.Config{StoreBackend: "memory", StorageBackend: "ftp"}, logger)
	assert.ErrorContains(t, err, `unknown storage backend "ftp"`)
}
