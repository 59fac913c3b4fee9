package interfaces

import (
	"context"
	"time"
)

// PostParser defines how raw Markdown bytes are converted into HTML.
// Implementations should be safe for reuse across calls so a single instance
// can serve an entire build.
type PostParser interface {
	// Parse converts Markdown into HTML using the parser's default settings.
	Parse(markdown []byte) ([]byte, error)
	// ParseWithOptions converts Markdown into HTML using the supplied overrides.
	ParseWithOptions(markdown []byte, opts ParseOptions) ([]byte, error)
}

// ParseOptions customises Markdown parsing behaviour, keeping option names
// readable for configuration unmarshalling and CLI flags.
type ParseOptions struct {
	Extensions []string
	Sanitize   bool
	HardWraps  bool
	SafeMode   bool
}

// PostService exposes the file workflows the generator depends on: loading
// Markdown posts from disk and converting their bodies into HTML.
type PostService interface {
	Load(ctx context.Context, path string, opts LoadOptions) (*Post, error)
	LoadDirectory(ctx context.Context, dir string, opts LoadOptions) ([]*Post, error)
	Render(ctx context.Context, markdown []byte, opts ParseOptions) ([]byte, error)
	RenderPost(ctx context.Context, post *Post, opts ParseOptions) ([]byte, error)
}

// Post represents a Markdown file with parsed metadata and content. The struct
// is shared between the interfaces package and internal implementations so
// consumers can depend on a stable contract.
type Post struct {
	FilePath    string
	Slug        string
	FrontMatter FrontMatter
	Body        []byte
	BodyHTML    []byte
	// LastModified mirrors the source file's mtime and feeds incremental builds.
	LastModified time.Time
	// Checksum stores a digest of the original file content (SHA-256) so sync
	// workflows can detect changes without re-reading unchanged files.
	Checksum []byte
}

// FrontMatter models metadata extracted from post files. Fields stay flexible
// thanks to the Custom map for template- or site-specific values.
type FrontMatter struct {
	Title    string         `yaml:"title" json:"title"`
	Slug     string         `yaml:"slug" json:"slug"`
	Summary  string         `yaml:"summary" json:"summary"`
	Template string         `yaml:"template" json:"template"`
	Tags     []string       `yaml:"tags" json:"tags"`
	Author   string         `yaml:"author" json:"author"`
	Date     time.Time      `yaml:"date" json:"date"`
	Draft    bool           `yaml:"draft" json:"draft"`
	Custom   map[string]any `yaml:",inline" json:"custom"`
	Raw      map[string]any `yaml:"-" json:"raw"`
}

// LoadOptions fine-tunes how posts are discovered and parsed from disk.
type LoadOptions struct {
	Recursive *bool
	Pattern   string
	Parser    ParseOptions
}
