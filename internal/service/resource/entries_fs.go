package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"lectern/internal/config"
	resourceSvc "lectern/internal/domain/services/resource"
)

// FSEntry exposes a file or directory of fsys as a drop entry. name "." is the
// root of fsys; its children land directly under the upload folder. The same
// adapter serves local directories (os.DirFS) and archives (*zip.Reader).
func FSEntry(fsys fs.FS, name string) (resourceSvc.Entry, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, err
	}
	return newFSEntry(fsys, name, info.IsDir()), nil
}

func newFSEntry(fsys fs.FS, name string, dir bool) resourceSvc.Entry {
	if dir {
		return &fsDirEntry{fsys: fsys, name: name}
	}
	return &fsFileEntry{fsys: fsys, name: name}
}

func displayName(name string) string {
	if name == "." {
		return ""
	}
	return path.Base(name)
}

type fsFileEntry struct {
	fsys fs.FS
	name string
}

func (e *fsFileEntry) Name() string { return displayName(e.name) }
func (e *fsFileEntry) IsDir() bool  { return false }

func (e *fsFileEntry) Resolve(ctx context.Context) (resourceSvc.UploadedFile, error) {
	info, err := fs.Stat(e.fsys, e.name)
	if err != nil {
		return resourceSvc.UploadedFile{}, err
	}
	fsys, name := e.fsys, e.name
	return resourceSvc.UploadedFile{
		Name: info.Name(),
		Size: info.Size(),
		Source: resourceSvc.FileSourceFunc(func() (io.ReadCloser, error) {
			return fsys.Open(name)
		}),
	}, nil
}

type fsDirEntry struct {
	fsys fs.FS
	name string
}

func (e *fsDirEntry) Name() string { return displayName(e.name) }
func (e *fsDirEntry) IsDir() bool  { return true }

func (e *fsDirEntry) Reader() resourceSvc.DirectoryReader {
	return &fsDirReader{fsys: e.fsys, name: e.name}
}

// fsDirReader pages through a directory with fs.ReadDirFile
type fsDirReader struct {
	fsys fs.FS
	name string
	dir  fs.ReadDirFile
	done bool
}

func (r *fsDirReader) ReadEntries(ctx context.Context) ([]resourceSvc.Entry, error) {
	if r.done {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.dir == nil {
		f, err := r.fsys.Open(r.name)
		if err != nil {
			return nil, err
		}
		dir, ok := f.(fs.ReadDirFile)
		if !ok {
			f.Close()
			return r.readAll()
		}
		r.dir = dir
	}

	for !r.done {
		page, err := r.dir.ReadDir(config.DirectoryPageSize)
		if err != nil && !errors.Is(err, io.EOF) {
			r.finish()
			return nil, fmt.Errorf("read directory %s: %w", r.name, err)
		}
		if errors.Is(err, io.EOF) || len(page) == 0 {
			r.finish()
		}
		// A page of only skipped entries must not look like the end
		if entries := r.convert(page); len(entries) > 0 {
			return entries, nil
		}
	}
	return nil, nil
}

// readAll is the single-page fallback for file systems without ReadDirFile
func (r *fsDirReader) readAll() ([]resourceSvc.Entry, error) {
	r.done = true
	all, err := fs.ReadDir(r.fsys, r.name)
	if err != nil {
		return nil, err
	}
	return r.convert(all), nil
}

func (r *fsDirReader) finish() {
	r.done = true
	if r.dir != nil {
		r.dir.Close()
		r.dir = nil
	}
}

// convert keeps directories and regular files; symlinks and devices are skipped
func (r *fsDirReader) convert(page []fs.DirEntry) []resourceSvc.Entry {
	entries := make([]resourceSvc.Entry, 0, len(page))
	for _, d := range page {
		if !d.IsDir() && !d.Type().IsRegular() {
			continue
		}
		entries = append(entries, newFSEntry(r.fsys, path.Join(r.name, d.Name()), d.IsDir()))
	}
	return entries
}
