package markdown

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-slug"

	"github.com/thelyad/postpress/pkg/interfaces"
)

// Config controls how the post service discovers and parses files.
type Config struct {
	BasePath  string
	Pattern   string
	Recursive bool
	Parser    interfaces.ParseOptions
	// SchemaPath optionally points at a JSON schema applied to every post's
	// frontmatter after loading.
	SchemaPath string
}

// Service implements interfaces.PostService for filesystem-backed posts.
type Service struct {
	cfg    Config
	parser interfaces.PostParser
	loader *Loader
	schema *SchemaValidator
}

// NewService constructs a post service using an underlying loader. When parser
// is nil, a Goldmark parser with the provided default options is created.
func NewService(cfg Config, parser interfaces.PostParser) (*Service, error) {
	filesystem, err := prepareFilesystem(cfg.BasePath)
	if err != nil {
		return nil, err
	}

	if parser == nil {
		parser = NewGoldmarkParser(cfg.Parser)
	}

	validator, err := LoadSchemaFile(cfg.SchemaPath)
	if err != nil {
		return nil, err
	}

	loader := NewLoader(filesystem, LoaderConfig{
		BasePath:  cfg.BasePath,
		Pattern:   cfg.Pattern,
		Recursive: cfg.Recursive,
	})

	return &Service{
		cfg:    cfg,
		parser: parser,
		loader: loader,
		schema: validator,
	}, nil
}

// Load reads a single Markdown post relative to the configured base path.
func (s *Service) Load(ctx context.Context, path string, opts interfaces.LoadOptions) (*interfaces.Post, error) {
	result, err := s.loader.LoadFile(ctx, s.normalisePath(path), toLoaderParams(opts))
	if err != nil {
		return nil, err
	}
	if err := s.finalisePost(ctx, result.Post, opts.Parser); err != nil {
		return nil, err
	}
	return result.Post, nil
}

// LoadDirectory reads every Markdown post within the supplied directory.
func (s *Service) LoadDirectory(ctx context.Context, dir string, opts interfaces.LoadOptions) ([]*interfaces.Post, error) {
	results, err := s.loader.LoadDirectory(ctx, s.normalisePath(dir), toLoaderParams(opts))
	if err != nil {
		return nil, err
	}

	posts := make([]*interfaces.Post, 0, len(results))
	for _, result := range results {
		if err := s.finalisePost(ctx, result.Post, opts.Parser); err != nil {
			return nil, err
		}
		posts = append(posts, result.Post)
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].FilePath < posts[j].FilePath
	})
	return posts, nil
}

// Render parses Markdown bytes into HTML using the configured parser.
func (s *Service) Render(ctx context.Context, markdown []byte, opts interfaces.ParseOptions) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return s.parser.ParseWithOptions(markdown, mergeParseOptions(s.cfg.Parser, opts))
}

// RenderPost converts the post's Markdown body into HTML using the configured parser.
func (s *Service) RenderPost(ctx context.Context, post *interfaces.Post, opts interfaces.ParseOptions) ([]byte, error) {
	if post == nil {
		return nil, errors.New("post service: post is nil")
	}
	html, err := s.Render(ctx, post.Body, opts)
	if err != nil {
		return nil, err
	}
	post.BodyHTML = html
	return html, nil
}

func (s *Service) finalisePost(ctx context.Context, post *interfaces.Post, overrides interfaces.ParseOptions) error {
	if post == nil {
		return nil
	}

	if err := s.schema.Validate(post); err != nil {
		return err
	}

	derived, err := DeriveSlug(post)
	if err != nil {
		return err
	}
	post.Slug = derived

	html, err := s.Render(ctx, post.Body, overrides)
	if err != nil {
		return fmt.Errorf("markdown render post %s: %w", post.FilePath, err)
	}
	post.BodyHTML = html
	return nil
}

// DeriveSlug resolves a post's canonical slug: the frontmatter slug wins,
// then the title, then the file name. The winner is normalised so URLs stay
// filesystem and link safe.
func DeriveSlug(post *interfaces.Post) (string, error) {
	if post == nil {
		return "", errors.New("post service: post is nil")
	}

	candidates := []string{
		post.FrontMatter.Slug,
		post.FrontMatter.Title,
		baseName(post.FilePath),
	}

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		normalized, err := slug.Normalize(candidate)
		if err != nil || normalized == "" {
			continue
		}
		return normalized, nil
	}

	return "", fmt.Errorf("post service: cannot derive slug for %s", post.FilePath)
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *Service) normalisePath(path string) string {
	if strings.TrimSpace(path) == "" {
		return "."
	}
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) && strings.TrimSpace(s.cfg.BasePath) != "" {
		if rel, err := filepath.Rel(s.cfg.BasePath, clean); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(clean)
}

func mergeParseOptions(base, override interfaces.ParseOptions) interfaces.ParseOptions {
	result := base
	if len(override.Extensions) > 0 {
		result.Extensions = append([]string(nil), override.Extensions...)
	}
	if override.Sanitize {
		result.Sanitize = true
	}
	if override.HardWraps {
		result.HardWraps = true
	}
	if override.SafeMode {
		result.SafeMode = true
	}
	return result
}

func toLoaderParams(opts interfaces.LoadOptions) LoadParams {
	return LoadParams{
		Pattern:   opts.Pattern,
		Recursive: opts.Recursive,
	}
}

func prepareFilesystem(basePath string) (fs.FS, error) {
	if strings.TrimSpace(basePath) == "" {
		basePath = "."
	}
	if _, err := os.Stat(basePath); err != nil {
		return nil, fmt.Errorf("post service: stat base path %s: %w", basePath, err)
	}
	return os.DirFS(basePath), nil
}
