package github

import (
	"context"
	"log/slog"
	"path"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/taigrr/contextgen/internal/pathfilter"
	"github.com/taigrr/contextgen/internal/types"
)

// DefaultConcurrency bounds the number of API requests in flight.
const DefaultConcurrency = 8

// API is the subset of Client used by Fetcher.
type API interface {
	ListContents(ctx context.Context, repo types.RemoteSource, path string) ([]Content, error)
	GetFile(ctx context.Context, repo types.RemoteSource, path string) (Content, error)
	DownloadRaw(ctx context.Context, downloadURL, path string) ([]byte, error)
}

// Fetcher walks a repository and aggregates the files that pass a filter.
type Fetcher struct {
	api         API
	filter      *pathfilter.PathFilter
	concurrency int
	logger      *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithConcurrency sets the maximum number of concurrent API requests.
func WithConcurrency(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithLogger sets the logger used for skipped entries and progress.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher creates a Fetcher over api. A nil filter selects every file.
func NewFetcher(api API, filter *pathfilter.PathFilter, opts ...FetcherOption) *Fetcher {
	if filter == nil {
		filter = pathfilter.MustNew(types.FilterConfig{})
	}
	f := &Fetcher{
		api:         api,
		filter:      filter,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch aggregates the repository described by repo. Blocks are ordered
// depth-first in listing order regardless of how requests interleave.
// Any listing, fetch or decode failure aborts the whole fetch.
func (f *Fetcher) Fetch(ctx context.Context, repo types.RemoteSource) (types.Document, error) {
	w := &walker{
		Fetcher: f,
		repo:    repo,
		sem:     semaphore.NewWeighted(int64(f.concurrency)),
	}

	blocks, err := w.walk(ctx, "")
	if err != nil {
		return types.Document{}, err
	}

	f.logger.Debug("fetched repository", "owner", repo.Owner, "repo", repo.Repo, "blocks", len(blocks))
	return types.Document{Blocks: blocks}, nil
}

type walker struct {
	*Fetcher
	repo types.RemoteSource
	sem  *semaphore.Weighted
}

// walk returns the blocks under dir. Each entry writes into its own slot
// so children are concatenated in listing order once all have finished.
func (w *walker) walk(ctx context.Context, dir string) ([]types.ContentBlock, error) {
	listing, err := w.list(ctx, dir)
	if err != nil {
		return nil, err
	}

	results := make([][]types.ContentBlock, len(listing))
	g, gctx := errgroup.WithContext(ctx)

	for i, c := range listing {
		entry := c.Entry()
		if entry.Path == "" {
			entry.Path = path.Join(dir, c.Name)
		}
		entry.Path = pathfilter.Normalize(entry.Path)

		switch {
		case entry.IsFile():
			if !w.filter.IncludeFile(entry.Path) {
				w.logger.Debug("file filtered", "path", entry.Path)
				continue
			}
			g.Go(func() error {
				block, err := w.file(gctx, entry)
				if err != nil {
					return err
				}
				results[i] = []types.ContentBlock{block}
				return nil
			})
		case entry.IsDir():
			if w.filter.ExcludeDir(entry.Path) {
				w.logger.Debug("directory excluded", "path", entry.Path)
				continue
			}
			g.Go(func() error {
				blocks, err := w.walk(gctx, entry.Path)
				if err != nil {
					return err
				}
				results[i] = blocks
				return nil
			})
		default:
			w.logger.Debug("skipping content", "path", entry.Path, "type", c.Type)
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var blocks []types.ContentBlock
	for _, r := range results {
		blocks = append(blocks, r...)
	}
	return blocks, nil
}

func (w *walker) list(ctx context.Context, dir string) ([]Content, error) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return nil, &types.RemoteAccessError{Op: "listing", Path: dir, Err: err}
	}
	defer w.sem.Release(1)
	return w.api.ListContents(ctx, w.repo, dir)
}

func (w *walker) file(ctx context.Context, entry types.TreeEntry) (types.ContentBlock, error) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return types.ContentBlock{}, &types.RemoteAccessError{Op: "fetching", Path: entry.Path, Err: err}
	}
	defer w.sem.Release(1)

	c, err := w.api.GetFile(ctx, w.repo, entry.Path)
	if err != nil {
		return types.ContentBlock{}, err
	}

	if c.Encoding == "none" {
		ref := c.DownloadURL
		if ref == "" {
			ref = entry.Ref
		}
		if ref != "" {
			raw, err := w.api.DownloadRaw(ctx, ref, entry.Path)
			if err != nil {
				return types.ContentBlock{}, err
			}
			return types.ContentBlock{Path: entry.Path, Body: string(raw)}, nil
		}
	}

	if c.Path == "" {
		c.Path = entry.Path
	}
	body, err := decodeFile(c)
	if err != nil {
		return types.ContentBlock{}, err
	}
	return types.ContentBlock{Path: entry.Path, Body: body}, nil
}
