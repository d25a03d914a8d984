// Package aggregator turns a source tree into a single Markdown artifact.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/taigrr/contextgen/internal/document"
	"github.com/taigrr/contextgen/internal/types"
	"github.com/taigrr/contextgen/internal/uri"
)

// ArtifactExt is appended to the logical name of every artifact.
const ArtifactExt = ".md"

type (
	// RemoteFetcher aggregates a remote repository.
	RemoteFetcher interface {
		Fetch(ctx context.Context, repo types.RemoteSource) (types.Document, error)
	}

	// LocalFetcher aggregates a local directory.
	LocalFetcher interface {
		Fetch(ctx context.Context, root string) (types.Document, error)
	}
)

// Aggregator dispatches a source to its fetcher and writes the result.
type Aggregator struct {
	remote RemoteFetcher
	local  LocalFetcher
	logger *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Aggregator. Either fetcher may be nil, in which case
// sources of that kind fail with a configuration error.
func New(remote RemoteFetcher, local LocalFetcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		remote: remote,
		local:  local,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fetch runs the traversal for source and returns the document without
// writing anything.
func (a *Aggregator) Fetch(ctx context.Context, source types.Source) (types.Document, error) {
	switch src := source.(type) {
	case types.RemoteSource:
		if a.remote == nil {
			return types.Document{}, &types.ConfigurationError{
				Field: "github.token",
				Err:   fmt.Errorf("remote sources are not configured"),
			}
		}
		a.logger.Info("processing GitHub repository", "owner", src.Owner, "repo", src.Repo, "ref", src.Ref)
		return a.remote.Fetch(ctx, src)
	case types.LocalSource:
		if a.local == nil {
			return types.Document{}, &types.ConfigurationError{
				Field: "local",
				Err:   fmt.Errorf("local sources are not configured"),
			}
		}
		a.logger.Info("processing local path", "path", src.Path)
		return a.local.Fetch(ctx, src.Path)
	default:
		return types.Document{}, &types.ConfigurationError{
			Field: "source",
			Err:   fmt.Errorf("unsupported source %T", source),
		}
	}
}

// Generate aggregates source and writes it to outputDir/<name>.md,
// replacing any previous artifact of the same name. It returns the
// artifact metadata and the rendered content.
func (a *Aggregator) Generate(ctx context.Context, source types.Source, outputDir string) (types.Artifact, string, error) {
	name, err := LogicalName(source)
	if err != nil {
		return types.Artifact{}, "", err
	}

	doc, err := a.Fetch(ctx, source)
	if err != nil {
		return types.Artifact{}, "", err
	}

	content := document.Render(doc)
	artifactPath, err := WriteArtifact(outputDir, name, content)
	if err != nil {
		return types.Artifact{}, "", err
	}

	artifact := types.Artifact{
		Name:   name,
		Path:   artifactPath,
		Blocks: doc.Len(),
		Bytes:  len(content),
	}
	a.logger.Info("contents written", "artifact", artifactPath, "blocks", artifact.Blocks, "bytes", artifact.Bytes)
	return artifact, content, nil
}

// LogicalName derives the artifact name: the repository name for remote
// sources, the directory's final segment for local ones.
func LogicalName(source types.Source) (string, error) {
	switch src := source.(type) {
	case types.RemoteSource:
		if src.Repo == "" {
			return "", &types.ConfigurationError{Field: "repo", Err: fmt.Errorf("repository name is empty")}
		}
		return src.Repo, nil
	case types.LocalSource:
		if strings.TrimSpace(src.Path) == "" {
			return "", &types.InvalidPathError{Path: src.Path, Err: fmt.Errorf("empty path")}
		}
		abs, err := filepath.Abs(src.Path)
		if err != nil {
			return "", &types.InvalidPathError{Path: src.Path, Err: err}
		}
		name := filepath.Base(abs)
		if name == string(filepath.Separator) || name == "." {
			return "", &types.InvalidPathError{Path: src.Path, Err: fmt.Errorf("cannot derive a name from the filesystem root")}
		}
		return name, nil
	default:
		return "", &types.ConfigurationError{Field: "source", Err: fmt.Errorf("unsupported source %T", source)}
	}
}

// WriteArtifact writes content to outputDir/name.md through a temporary
// file in the same directory, so readers see either the old or the new
// artifact. The output directory is created if needed.
func WriteArtifact(outputDir, name, content string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	target := filepath.Join(outputDir, name+ArtifactExt)
	tmp, err := os.CreateTemp(outputDir, "."+name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to write artifact: %s - %w", target, err)
	}
	return target, nil
}

// ParseSource builds a source from a GitHub reference or a local path.
// Exactly one must be set.
func ParseSource(githubURL, localPath string) (types.Source, error) {
	githubURL = strings.TrimSpace(githubURL)
	localPath = strings.TrimSpace(localPath)

	switch {
	case githubURL != "" && localPath != "":
		return nil, &types.ConfigurationError{Field: "source", Err: fmt.Errorf("provide either a GitHub URL or a local path, not both")}
	case githubURL != "":
		src, err := uri.ParseRepository(githubURL)
		if err != nil {
			return nil, &types.ConfigurationError{Field: "githubUrl", Err: err}
		}
		return src, nil
	case localPath != "":
		return types.LocalSource{Path: localPath}, nil
	default:
		return nil, &types.ConfigurationError{Field: "source", Err: fmt.Errorf("either a GitHub URL or a local path must be provided")}
	}
}
