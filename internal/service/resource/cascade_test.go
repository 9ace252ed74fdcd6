package resource

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/internal/domain"
	models "lectern/internal/domain/models/resource"
	resourceSvc "lectern/internal/domain/services/resource"
)

func TestRename_CascadesToDescendants(t *testing.T) {
	f := newFixture(t)
	f.seed(t, folderRec("W1"), fileRec("W1/L1.pdf"), folderRec("W1/Lab"), fileRec("W1/Lab/a.py"), fileRec("W10/x.pdf"))

	result, err := f.mutations.Rename(context.Background(), &resourceSvc.RenameRequest{
		CourseID: testCourse,
		Path:     "W1",
		Name:     "W-One",
	})
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, models.PathChange{From: "W1", To: "W-One"}, result.Root)
	assert.Len(t, result.Applied, 4)

	assert.ElementsMatch(t, []string{"W-One", "W-One/L1.pdf", "W-One/Lab", "W-One/Lab/a.py", "W10/x.pdf"}, f.paths(t))
	for _, p := range f.paths(t) {
		assert.False(t, p == "W1" || strings.HasPrefix(p, "W1/"), "stale path %s", p)
	}

	rec, err := f.store.Get(context.Background(), testCourse, "W-One/Lab")
	require.NoError(t, err)
	assert.Equal(t, "Lab", rec.Name)
}

func TestRename_ValidationBeforeWrites(t *testing.T) {
	f := newFixture(t)
	f.seed(t, folderRec("A"), folderRec("B"), fileRec("A/x.pdf"))

	tests := []struct {
		name string
		req  resourceSvc.RenameRequest
	}{
		{name: "empty name", req: resourceSvc.RenameRequest{CourseID: testCourse, Path: "A", Name: "  "}},
		{name: "slash in name", req: resourceSvc.RenameRequest{CourseID: testCourse, Path: "A", Name: "C/D"}},
		{name: "target exists", req: resourceSvc.RenameRequest{CourseID: testCourse, Path: "A", Name: "B"}},
		{name: "missing course", req: resourceSvc.RenameRequest{Path: "A", Name: "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.mutations.Rename(context.Background(), &tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.ElementsMatch(t, []string{"A", "B", "A/x.pdf"}, f.paths(t))
		})
	}
}

func TestRename_MissingRecord(t *testing.T) {
	f := newFixture(t)
	_, err := f.mutations.Rename(context.Background(), &resourceSvc.RenameRequest{CourseID: testCourse, Path: "nope", Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRename_SameNameIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seed(t, fileRec("a.pdf"))

	result, err := f.mutations.Rename(context.Background(), &resourceSvc.RenameRequest{CourseID: testCourse, Path: "a.pdf", Name: "a.pdf"})
	require.NoError(t, err)
	assert.Empty(t, result.Applied)
	assert.Equal(t, []string{"a.pdf"}, f.paths(t))
}

func TestRename_DryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.seed(t, folderRec("W1"), fileRec("W1/L1.pdf"))

	result, err := f.mutations.Rename(context.Background(), &resourceSvc.RenameRequest{
		CourseID: testCourse,
		Path:     "W1",
		Name:     "W2",
		DryRun:   true,
	})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, []models.PathChange{
		{From: "W1", To: "W2"},
		{From: "W1/L1.pdf", To: "W2/L1.pdf"},
	}, result.Planned)
	assert.Empty(t, result.Applied)
	assert.ElementsMatch(t, []string{"W1", "W1/L1.pdf"}, f.paths(t))
}

func TestRename_PartialFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.seed(t, folderRec("W1"), fileRec("W1/a.pdf"), fileRec("W1/b.pdf"), fileRec("W1/c.pdf"))
	f.store.FailUpdate = func(path string) error {
		if path == "W1/b.pdf" {
			return errors.New("row locked")
		}
		return nil
	}

	result, err := f.mutations.Rename(context.Background(), &resourceSvc.RenameRequest{CourseID: testCourse, Path: "W1", Name: "W2"})
	require.NoError(t, err)
	assert.False(t, result.OK())
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "W1/b.pdf", result.Failed[0].Path)
	assert.Len(t, result.Applied, 3)

	// Path-consistent per record, mixed in aggregate
	assert.ElementsMatch(t, []string{"W2", "W2/a.pdf", "W1/b.pdf", "W2/c.pdf"}, f.paths(t))
}

func TestRename_RootFailureAppliesNothing(t *testing.T) {
	f := newFixture(t)
	f.seed(t, folderRec("W1"), fileRec("W1/a.pdf"))
	f.store.FailUpdate = func(path string) error {
		if path == "W1" {
			return errors.New("unavailable")
		}
		return nil
	}

	_, err := f.mutations.Rename(context.Background(), &resourceSvc.RenameRequest{CourseID: testCourse, Path: "W1", Name: "W2"})
	assert.Error(t, err)
	assert.ElementsMatch(t, []string{"W1", "W1/a.pdf"}, f.paths(t))
}

func TestRename_MovesFolderMarker(t *testing.T) {
	f := newFixture(t)
	_, err := f.folders.CreateFolder(context.Background(), &resourceSvc.CreateFolderRequest{CourseID: testCourse, Name: "W1"})
	require.NoError(t, err)

	_, err = f.mutations.Rename(context.Background(), &resourceSvc.RenameRequest{CourseID: testCourse, Path: "W1", Name: "W2"})
	require.NoError(t, err)

	_, ok := f.blobs.Object(PlaceholderKey(testCourse, "W1"))
	assert.False(t, ok)
	_, ok = f.blobs.Object(PlaceholderKey(testCourse, "W2"))
	assert.True(t, ok)
}

func TestMove_FileToRoot(t *testing.T) {
	f := newFixture(t)
	f.seed(t, folderRec("W-One"), fileRec("W-One/L1.pdf"))

	result, err := f.mutations.Move(context.Background(), &resourceSvc.MoveRequest{
		CourseID:    testCourse,
		Path:        "W-One/L1.pdf",
		Destination: "",
	})
	require.NoError(t, err)
	assert.Equal(t, "L1.pdf", result.Root.To)

	rec, err := f.store.Get(context.Background(), testCourse, "L1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "", ParentOf(rec.Path))
	assert.ElementsMatch(t, []string{"W-One", "L1.pdf"}, f.paths(t))
}

func TestMove_FolderWithDescendants(t *testing.T) {
	f := newFixture(t)
	f.seed(t, folderRec("Archive"), folderRec("W1"), fileRec("W1/a.pdf"), folderRec("W1/sub"), fileRec("W1/sub/b.pdf"))

	result, err := f.mutations.Move(context.Background(), &resourceSvc.MoveRequest{CourseID: testCourse, Path: "W1", Destination: "Archive"})
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.ElementsMatch(t, []string{"Archive", "Archive/W1", "Archive/W1/a.pdf", "Archive/W1/sub", "Archive/W1/sub/b.pdf"}, f.paths(t))
}

func TestMove_Rejections(t *testing.T) {
	f := newFixture(t)
	f.seed(t, folderRec("A"), folderRec("A/B"), fileRec("A/x.pdf"), fileRec("y.pdf"), fileRec("x.pdf"))

	tests := []struct {
		name        string
		path        string
		destination string
	}{
		{name: "into itself", path: "A", destination: "A"},
		{name: "into descendant", path: "A", destination: "A/B"},
		{name: "missing destination", path: "y.pdf", destination: "nowhere"},
		{name: "destination is a file", path: "y.pdf", destination: "x.pdf"},
		{name: "name taken at destination", path: "A/x.pdf", destination: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.mutations.Move(context.Background(), &resourceSvc.MoveRequest{
				CourseID:    testCourse,
				Path:        tt.path,
				Destination: tt.destination,
			})
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.ElementsMatch(t, []string{"A", "A/B", "A/x.pdf", "y.pdf", "x.pdf"}, f.paths(t))
}

func TestMove_SiblingPrefixIsNotADescendant(t *testing.T) {
	f := newFixture(t)
	f.seed(t, folderRec("A"), folderRec("AB"))

	_, err := f.mutations.Move(context.Background(), &resourceSvc.MoveRequest{CourseID: testCourse, Path: "A", Destination: "AB"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"AB", "AB/A"}, f.paths(t))
}

func TestDelete_FolderCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uploads.Upload(ctx, &resourceSvc.UploadRequest{
		CourseID: testCourse,
		Files: []resourceSvc.UploadedFile{
			relFile("W-One/L1.pdf", "1"),
			relFile("W-One/sub/L2.pdf", "2"),
			relFile("W-One-Other/x", "3"),
		},
	})
	require.NoError(t, err)
	removed := []string{f.objectKey(t, "W-One/L1.pdf"), f.objectKey(t, "W-One/sub/L2.pdf")}
	kept := f.objectKey(t, "W-One-Other/x")

	result, err := f.mutations.Delete(ctx, &resourceSvc.DeleteRequest{CourseID: testCourse, Path: "W-One"})
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Len(t, result.Applied, 4)

	assert.ElementsMatch(t, []string{"W-One-Other", "W-One-Other/x"}, f.paths(t))

	for _, key := range removed {
		_, ok := f.blobs.Object(key)
		assert.False(t, ok, key)
	}
	_, ok := f.blobs.Object(kept)
	assert.True(t, ok)
}

func TestDelete_FileRemovesBlobAtOriginalKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uploads.Upload(ctx, &resourceSvc.UploadRequest{
		CourseID: testCourse,
		Files:    []resourceSvc.UploadedFile{relFile("A/a.pdf", "1")},
	})
	require.NoError(t, err)
	key := f.objectKey(t, "A/a.pdf")

	_, err = f.mutations.Rename(ctx, &resourceSvc.RenameRequest{CourseID: testCourse, Path: "A/a.pdf", Name: "b.pdf"})
	require.NoError(t, err)

	preview, err := f.previews.ResolvePreview(ctx, testCourse, "A/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, f.blobs.PublicURL(key), preview.URL, "renamed file keeps its object")

	result, err := f.mutations.Delete(ctx, &resourceSvc.DeleteRequest{CourseID: testCourse, Path: "A/b.pdf"})
	require.NoError(t, err)
	assert.True(t, result.OK())

	_, ok := f.blobs.Object(key)
	assert.False(t, ok)
	assert.Equal(t, []string{"A"}, f.paths(t))
}

func TestRename_VacatedPathIsIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	upload := func(content string) {
		t.Helper()
		result, err := f.uploads.Upload(ctx, &resourceSvc.UploadRequest{
			CourseID:  testCourse,
			Files:     []resourceSvc.UploadedFile{relFile("W1/L1.pdf", content)},
			Overwrite: true,
		})
		require.NoError(t, err)
		require.Empty(t, result.Errors)
	}

	upload("original")
	_, err := f.mutations.Rename(ctx, &resourceSvc.RenameRequest{CourseID: testCourse, Path: "W1", Name: "W-One"})
	require.NoError(t, err)

	upload("NEW")
	assert.Equal(t, "original", f.content(t, "W-One/L1.pdf"))
	assert.Equal(t, "NEW", f.content(t, "W1/L1.pdf"))
	assert.NotEqual(t, f.objectKey(t, "W-One/L1.pdf"), f.objectKey(t, "W1/L1.pdf"))

	result, err := f.mutations.Delete(ctx, &resourceSvc.DeleteRequest{CourseID: testCourse, Path: "W1/L1.pdf"})
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, "original", f.content(t, "W-One/L1.pdf"))

	t.Run("without overwrite the vacated path is free", func(t *testing.T) {
		result, err := f.uploads.Upload(ctx, &resourceSvc.UploadRequest{
			CourseID: testCourse,
			Files:    []resourceSvc.UploadedFile{relFile("W1/L1.pdf", "again")},
		})
		require.NoError(t, err)
		assert.Empty(t, result.Errors)
		assert.Equal(t, "original", f.content(t, "W-One/L1.pdf"))
	})
}

func TestDelete_BlobFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.seed(t, fileRec("a.pdf"))
	f.blobs.FailRemove = func(key string) error { return errors.New("denied") }

	result, err := f.mutations.Delete(context.Background(), &resourceSvc.DeleteRequest{CourseID: testCourse, Path: "a.pdf"})
	require.NoError(t, err)
	assert.False(t, result.OK())
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "a.pdf", result.Failed[0].Path)
	assert.Empty(t, f.paths(t))
}

func TestDelete_DryRun(t *testing.T) {
	f := newFixture(t)
	f.seed(t, folderRec("A"), fileRec("A/x"), fileRec("AB"))

	result, err := f.mutations.Delete(context.Background(), &resourceSvc.DeleteRequest{CourseID: testCourse, Path: "A", DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []models.PathChange{{From: "A"}, {From: "A/x"}}, result.Planned)
	assert.ElementsMatch(t, []string{"A", "A/x", "AB"}, f.paths(t))
}
