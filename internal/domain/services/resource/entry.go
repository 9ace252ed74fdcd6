package resource

import "context"

// Entry is one item of a drag-and-drop payload: a file or a directory handle
type Entry interface {
	Name() string
	IsDir() bool
}

// FileEntry resolves to file contents
type FileEntry interface {
	Entry
	// Resolve returns the file; RelativePath is filled in by the walker
	Resolve(ctx context.Context) (UploadedFile, error)
}

// DirectoryEntry lists its immediate children through a paginated reader
type DirectoryEntry interface {
	Entry
	Reader() DirectoryReader
}

// DirectoryReader returns successive pages of children and an empty page once drained
type DirectoryReader interface {
	ReadEntries(ctx context.Context) ([]Entry, error)
}
