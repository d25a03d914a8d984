// Package filesystem aggregates a local directory tree.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/taigrr/contextgen/internal/pathfilter"
	"github.com/taigrr/contextgen/internal/types"
)

// Fetcher walks a local directory and aggregates the regular files that
// pass a filter.
type Fetcher struct {
	filter *pathfilter.PathFilter
	fs     billy.Filesystem
	strict bool
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFilesystem reads from fsys instead of the host filesystem. Roots
// passed to Fetch are then paths inside fsys.
func WithFilesystem(fsys billy.Filesystem) Option {
	return func(f *Fetcher) {
		f.fs = fsys
	}
}

// WithStrict makes a file read failure abort the fetch instead of being
// logged and skipped.
func WithStrict(strict bool) Option {
	return func(f *Fetcher) {
		f.strict = strict
	}
}

// WithLogger sets the logger used for skipped files.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a new Fetcher. A nil filter selects every file.
func New(filter *pathfilter.PathFilter, opts ...Option) *Fetcher {
	if filter == nil {
		filter = pathfilter.MustNew(types.FilterConfig{})
	}
	f := &Fetcher{
		filter: filter,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch aggregates every regular file under root, including links to
// regular files. Directory descent is unconditional; the filter decides
// only which files are emitted.
func (f *Fetcher) Fetch(ctx context.Context, root string) (types.Document, error) {
	fsys, base, err := f.open(root)
	if err != nil {
		return types.Document{}, err
	}

	blocks, err := f.walk(ctx, fsys, base, "")
	if err != nil {
		return types.Document{}, err
	}

	f.logger.Debug("fetched directory", "path", root, "blocks", len(blocks))
	return types.Document{Blocks: blocks}, nil
}

// Files lists the files under root that Fetch would read, without reading them.
func (f *Fetcher) Files(ctx context.Context, root string) ([]types.TreeEntry, error) {
	fsys, base, err := f.open(root)
	if err != nil {
		return nil, err
	}
	return f.entries(ctx, fsys, base, "")
}

func (f *Fetcher) open(root string) (billy.Filesystem, string, error) {
	if root == "" {
		return nil, "", &types.InvalidPathError{Path: root, Err: fmt.Errorf("empty path")}
	}

	fsys, base := f.fs, root
	if fsys == nil {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, "", &types.InvalidPathError{Path: root, Err: err}
		}
		fsys, base = osfs.New(abs), "."
	}

	info, err := fsys.Stat(base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", &types.InvalidPathError{Path: root, Err: fs.ErrNotExist}
		}
		return nil, "", &types.InvalidPathError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, "", &types.InvalidPathError{Path: root, Err: fmt.Errorf("not a directory")}
	}
	return fsys, base, nil
}

// entries lists the included regular files under rel in pre-order.
func (f *Fetcher) entries(ctx context.Context, fsys billy.Filesystem, base, rel string) ([]types.TreeEntry, error) {
	infos, err := fsys.ReadDir(fsys.Join(base, filepath.FromSlash(rel)))
	if err != nil {
		return nil, &types.FileReadError{Path: rel, Err: err}
	}

	var out []types.TreeEntry
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		childRel := path.Join(rel, info.Name())
		switch {
		case info.IsDir():
			children, err := f.entries(ctx, fsys, base, childRel)
			if err != nil {
				if f.strict || ctx.Err() != nil {
					return nil, err
				}
				f.logger.Warn("skipping unreadable directory", "path", childRel, "error", err)
				continue
			}
			out = append(out, children...)
		case info.Mode()&fs.ModeSymlink != 0:
			// Links to regular files are read through; linked directories are not walked.
			target, err := fsys.Stat(fsys.Join(base, filepath.FromSlash(childRel)))
			if err != nil || !target.Mode().IsRegular() {
				f.logger.Debug("skipping symlink", "path", childRel)
				continue
			}
			if !f.filter.IncludeFile(childRel) {
				continue
			}
			out = append(out, types.TreeEntry{Path: childRel, Kind: types.EntryFile, Size: target.Size()})
		case info.Mode().IsRegular():
			if !f.filter.IncludeFile(childRel) {
				continue
			}
			out = append(out, types.TreeEntry{Path: childRel, Kind: types.EntryFile, Size: info.Size()})
		}
	}
	return out, nil
}

// walk returns the blocks for the files under rel in pre-order.
func (f *Fetcher) walk(ctx context.Context, fsys billy.Filesystem, base, rel string) ([]types.ContentBlock, error) {
	files, err := f.entries(ctx, fsys, base, rel)
	if err != nil {
		return nil, err
	}

	blocks := make([]types.ContentBlock, 0, len(files))
	for _, entry := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := util.ReadFile(fsys, fsys.Join(base, filepath.FromSlash(entry.Path)))
		if err != nil {
			readErr := &types.FileReadError{Path: entry.Path, Err: err}
			if f.strict {
				return nil, readErr
			}
			f.logger.Warn("skipping unreadable file", "path", entry.Path, "error", err)
			continue
		}
		blocks = append(blocks, types.ContentBlock{Path: entry.Path, Body: string(data)})
	}
	return blocks, nil
}
