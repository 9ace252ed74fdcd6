package resource

import (
	"archive/zip"
	"context"
	"fmt"
	"io"

	"lectern/internal/domain"
	resourceSvc "lectern/internal/domain/services/resource"
)

// archiveJunk are top-level archive entries never uploaded
var archiveJunk = map[string]bool{
	"__MACOSX":  true,
	".DS_Store": true,
}

// ZipEntries opens a zip archive as drop entries, one per top-level item, so
// its tree lands under the upload folder like a dropped directory.
func ZipEntries(ctx context.Context, r io.ReaderAt, size int64) ([]resourceSvc.Entry, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid zip archive: %v", err)}
	}

	root, err := FSEntry(archive, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}

	top, err := drain(ctx, root.(resourceSvc.DirectoryEntry).Reader())
	if err != nil {
		return nil, fmt.Errorf("failed to read zip archive: %w", err)
	}

	entries := make([]resourceSvc.Entry, 0, len(top))
	for _, e := range top {
		if !archiveJunk[e.Name()] {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
