package resource

import (
	"context"
	"fmt"
	"iter"

	"lectern/internal/domain"
	resourceSvc "lectern/internal/domain/services/resource"
)

// WalkOptions configures a directory walk
type WalkOptions struct {
	// IncludeEmptyDirs also yields directories that turned out to have no children
	IncludeEmptyDirs bool
}

// WalkedEntry is one item produced by Walk: a resolved file, or an empty
// directory when IncludeEmptyDirs is set.
type WalkedEntry struct {
	RelativePath string
	IsDir        bool
	File         resourceSvc.UploadedFile
}

// WalkError locates a failure inside a walk
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e *WalkError) Unwrap() error { return e.Err }

type queuedEntry struct {
	entry resourceSvc.Entry
	path  string
}

// Walk expands dropped entries into a flat, single-pass sequence of leaf files.
// Traversal is breadth-first over an explicit queue, so nesting depth does not
// grow the stack. Directory reads are drained page by page until an empty page.
//
// A failure to resolve a file or read a directory, or an entry that is
// neither a file nor a directory, is yielded as a *WalkError and the walk
// moves on to the next queued entry. Stopping iteration early
// stops the walk.
func Walk(ctx context.Context, roots []resourceSvc.Entry, opts WalkOptions) iter.Seq2[WalkedEntry, error] {
	return func(yield func(WalkedEntry, error) bool) {
		queue := make([]queuedEntry, 0, len(roots))
		for _, root := range roots {
			queue = append(queue, queuedEntry{entry: root, path: Normalize(root.Name())})
		}

		for len(queue) > 0 {
			if err := ctx.Err(); err != nil {
				yield(WalkedEntry{}, err)
				return
			}

			item := queue[0]
			queue[0] = queuedEntry{}
			queue = queue[1:]

			switch e := item.entry.(type) {
			case resourceSvc.DirectoryEntry:
				children, err := drain(ctx, e.Reader())
				if err != nil {
					if !yield(WalkedEntry{RelativePath: item.path, IsDir: true}, &WalkError{Path: item.path, Err: err}) {
						return
					}
					continue
				}
				if len(children) == 0 && opts.IncludeEmptyDirs && item.path != "" {
					if !yield(WalkedEntry{RelativePath: item.path, IsDir: true}, nil) {
						return
					}
				}
				for _, child := range children {
					queue = append(queue, queuedEntry{entry: child, path: Join(item.path, Normalize(child.Name()))})
				}

			case resourceSvc.FileEntry:
				file, err := e.Resolve(ctx)
				if err != nil {
					if !yield(WalkedEntry{RelativePath: item.path}, &WalkError{Path: item.path, Err: err}) {
						return
					}
					continue
				}
				file.RelativePath = item.path
				if file.Name == "" {
					file.Name = BaseName(item.path)
				}
				if !yield(WalkedEntry{RelativePath: item.path, File: file}, nil) {
					return
				}

			default:
				err := &domain.ValidationError{Message: fmt.Sprintf("unsupported entry type %T", item.entry)}
				if !yield(WalkedEntry{RelativePath: item.path}, &WalkError{Path: item.path, Err: err}) {
					return
				}
			}
		}
	}
}

// drain reads every page of a directory
func drain(ctx context.Context, reader resourceSvc.DirectoryReader) ([]resourceSvc.Entry, error) {
	var all []resourceSvc.Entry
	for {
		page, err := reader.ReadEntries(ctx)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
	}
}
