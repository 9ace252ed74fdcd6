package resource

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/internal/domain"
	resourceSvc "lectern/internal/domain/services/resource"
)

func TestResolvePreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uploads.Upload(ctx, &resourceSvc.UploadRequest{
		CourseID: testCourse,
		Files:    []resourceSvc.UploadedFile{relFile("Week 1/Lecture 1.pdf", "%PDF-1.4 body")},
	})
	require.NoError(t, err)

	preview, err := f.previews.ResolvePreview(ctx, testCourse, "Week 1/Lecture 1.pdf")
	require.NoError(t, err)
	assert.Equal(t, f.blobs.PublicURL(f.objectKey(t, "Week 1/Lecture 1.pdf")), preview.URL)
	assert.True(t, strings.HasSuffix(preview.URL, "/Lecture%201.pdf"), preview.URL)
	assert.Equal(t, "application/pdf", preview.MimeType)
	assert.Equal(t, int64(13), preview.Size)
	assert.Equal(t, "Lecture 1.pdf", preview.Name)
}

func TestResolvePreview_FallsBackForBareRecords(t *testing.T) {
	f := newFixture(t)
	f.seed(t, fileRec("legacy/notes.md"))

	preview, err := f.previews.ResolvePreview(context.Background(), testCourse, "legacy/notes.md")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/public/course-1/legacy/notes.md", preview.URL)
	assert.Equal(t, "text/markdown", preview.MimeType)
}

func TestResolvePreview_Errors(t *testing.T) {
	f := newFixture(t)
	f.seed(t, folderRec("A"))

	_, err := f.previews.ResolvePreview(context.Background(), testCourse, "A")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.previews.ResolvePreview(context.Background(), testCourse, "missing.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
