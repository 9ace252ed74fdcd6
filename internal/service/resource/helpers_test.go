package resource

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	models "lectern/internal/domain/models/resource"
	resourceRepo "lectern/internal/domain/repositories/resource"
	resourceSvc "lectern/internal/domain/services/resource"
	"lectern/internal/mimetypes"
	"lectern/internal/repository/memory"
)

const testCourse = "course-1"

var fastRetry = RetryPolicy{Attempts: 3, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture wires every service over in-memory stores
type fixture struct {
	store        *memory.ResourceStore
	blobs        *memory.BlobStore
	materializer resourceSvc.Materializer
	tree         resourceSvc.TreeService
	folders      resourceSvc.FolderService
	uploads      resourceSvc.UploadService
	mutations    resourceSvc.MutationService
	previews     resourceSvc.PreviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewResourceStore()
	blobs := memory.NewBlobStore("https://cdn.test/public")
	logger := discardLogger()

	types, err := mimetypes.NewRegistry()
	require.NoError(t, err)

	materializer, err := NewMaterializer(store, blobs, time.Minute, logger)
	require.NoError(t, err)

	return &fixture{
		store:        store,
		blobs:        blobs,
		materializer: materializer,
		tree:         NewTreeService(store, logger),
		folders:      NewFolderService(store, blobs, materializer, logger),
		uploads:      NewUploadService(store, blobs, materializer, types, 4, fastRetry, logger),
		mutations:    NewMutationService(store, blobs, 4, fastRetry, logger),
		previews:     NewPreviewService(store, blobs, types),
	}
}

// textFile builds an in-memory upload
func textFile(name, content string) resourceSvc.UploadedFile {
	return resourceSvc.UploadedFile{
		Name: name,
		Size: int64(len(content)),
		Source: resourceSvc.FileSourceFunc(func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		}),
	}
}

// relFile builds a directory-picker upload
func relFile(relPath, content string) resourceSvc.UploadedFile {
	f := textFile(BaseName(relPath), content)
	f.RelativePath = relPath
	return f
}

func (f *fixture) seed(t *testing.T, records ...models.ResourceRecord) {
	t.Helper()
	for i := range records {
		rec := records[i]
		rec.CourseID = testCourse
		if rec.Name == "" {
			rec.Name = BaseName(rec.Path)
		}
		require.NoError(t, f.store.Upsert(context.Background(), &rec, models.UpsertReplace))
	}
}

func (f *fixture) paths(t *testing.T) []string {
	t.Helper()
	records, err := f.store.List(context.Background(), testCourse)
	require.NoError(t, err)
	paths := make([]string, 0, len(records))
	for _, rec := range records {
		paths = append(paths, rec.Path)
	}
	return paths
}

func folderRec(path string) models.ResourceRecord {
	return models.ResourceRecord{Path: path, Kind: models.KindFolder}
}

func fileRec(path string) models.ResourceRecord {
	size := int64(1)
	return models.ResourceRecord{Path: path, Kind: models.KindFile, Size: &size}
}

func putOverwrite() resourceRepo.PutOptions {
	return resourceRepo.PutOptions{Overwrite: true}
}

// objectKey returns the blob key recorded for the file at path
func (f *fixture) objectKey(t *testing.T, path string) string {
	t.Helper()
	rec, err := f.store.Get(context.Background(), testCourse, path)
	require.NoError(t, err)
	require.NotNil(t, rec.ObjectKey, path)
	return *rec.ObjectKey
}

// content returns the stored bytes behind the file at path
func (f *fixture) content(t *testing.T, path string) string {
	t.Helper()
	data, ok := f.blobs.Object(f.objectKey(t, path))
	require.True(t, ok, "no object for %s", path)
	return string(data)
}

// fileKeys lists every stored object except folder markers
func (f *fixture) fileKeys(t *testing.T) []string {
	t.Helper()
	entries, err := f.blobs.List(context.Background(), testCourse+"/")
	require.NoError(t, err)
	var keys []string
	for _, e := range entries {
		if BaseName(e.Key) != PlaceholderName {
			keys = append(keys, e.Key)
		}
	}
	return keys
}
