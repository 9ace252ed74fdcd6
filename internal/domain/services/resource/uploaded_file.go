package resource

import "io"

// FileSource re-opens a file's bytes; uploads may read it more than once on retry
type FileSource interface {
	Open() (io.ReadCloser, error)
}

// FileSourceFunc adapts a function to FileSource
type FileSourceFunc func() (io.ReadCloser, error)

func (f FileSourceFunc) Open() (io.ReadCloser, error) { return f() }

// UploadedFile is one file handed to the upload pipeline.
// RelativePath is empty for picker uploads (target = folder/Name) and
// carries the browser-supplied "subdir/file.ext" for directory uploads.
type UploadedFile struct {
	Name         string
	RelativePath string
	Size         int64
	MimeType     string
	Source       FileSource
}
