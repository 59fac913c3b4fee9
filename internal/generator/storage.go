package generator

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/thelyad/postpress/pkg/storage"
)

const (
	storageOpEnsureDir = "generator.ensure_dir"
	storageOpWrite     = "generator.write"
	storageOpRead      = "generator.read"
	storageOpRemove    = "generator.remove"
)

type writeCategory string

const (
	categoryPage     writeCategory = "page"
	categoryIndex    writeCategory = "index"
	categoryFeed     writeCategory = "feed"
	categorySitemap  writeCategory = "sitemap"
	categoryRobots   writeCategory = "robots"
	categoryAsset    writeCategory = "asset"
	categoryManifest writeCategory = "manifest"
)

// writeFileRequest describes a file write routed through the artifact writer.
type writeFileRequest struct {
	Path        string
	Content     io.Reader
	Size        int64
	Category    writeCategory
	ContentType string
	Checksum    string
	Metadata    map[string]string
}

// artifactWriter abstracts storage provider specifics for generator outputs.
type artifactWriter interface {
	EnsureDir(ctx context.Context, path string) error
	WriteFile(ctx context.Context, req writeFileRequest) error
	Remove(ctx context.Context, path string) error
}

func newArtifactWriter(provider storage.Provider) artifactWriter {
	if provider == nil {
		return noopWriter{}
	}
	return &storageWriter{provider: provider}
}

type storageWriter struct {
	provider storage.Provider
}

func (w *storageWriter) EnsureDir(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" || path == "." {
		return nil
	}
	_, err := w.provider.Exec(ctx, storageOpEnsureDir, path)
	return err
}

func (w *storageWriter) WriteFile(ctx context.Context, req writeFileRequest) error {
	if req.Content == nil {
		return errors.New("generator: write requires content reader")
	}
	if strings.TrimSpace(req.Path) == "" {
		return errors.New("generator: write requires path")
	}
	if req.Metadata == nil {
		req.Metadata = map[string]string{}
	}
	args := []any{
		req.Path,
		req.Content,
		req.Size,
		string(req.Category),
		req.ContentType,
		req.Checksum,
		req.Metadata,
	}
	_, err := w.provider.Exec(ctx, storageOpWrite, args...)
	return err
}

func (w *storageWriter) Remove(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	_, err := w.provider.Exec(ctx, storageOpRemove, path)
	return err
}

type noopWriter struct{}

func (noopWriter) EnsureDir(context.Context, string) error          { return nil }
func (noopWriter) WriteFile(context.Context, writeFileRequest) error { return nil }
func (noopWriter) Remove(context.Context, string) error             { return nil }
