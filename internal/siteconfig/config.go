// Package siteconfig loads and validates the YAML site configuration consumed
// by the postgen binary. Defaults mirror the published site layout: Markdown
// sources under posts/md, artifacts under posts/ with pages in posts/html and
// the listing at posts/index.html.
package siteconfig

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultContentDir is where Markdown posts are discovered.
	DefaultContentDir = "posts/md"
	// DefaultOutputDir is the root for generated artifacts.
	DefaultOutputDir = "posts"
	// DefaultPattern limits discovery to Markdown files.
	DefaultPattern = "*.md"
)

// Config aggregates every knob the build pipeline reads. Fields use simple
// types so host applications can construct one programmatically as well.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Content  ContentConfig  `yaml:"content"`
	Output   OutputConfig   `yaml:"output"`
	Theme    ThemeConfig    `yaml:"theme"`
	Routes   RoutesConfig   `yaml:"routes"`
	Parser   ParserConfig   `yaml:"parser"`
	Feeds    FeedsConfig    `yaml:"feeds"`
	Registry RegistryConfig `yaml:"registry"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SiteConfig describes the published site.
type SiteConfig struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Author      string         `yaml:"author"`
	BaseURL     string         `yaml:"base_url"`
	Metadata    map[string]any `yaml:"metadata"`
}

// ContentConfig captures filesystem discovery behaviour for Markdown posts.
type ContentConfig struct {
	Dir           string `yaml:"dir"`
	Pattern       string `yaml:"pattern"`
	Recursive     bool   `yaml:"recursive"`
	IncludeDrafts bool   `yaml:"include_drafts"`
	// FrontMatterSchema optionally points at a JSON schema applied to every
	// post's frontmatter before rendering.
	FrontMatterSchema string `yaml:"frontmatter_schema"`
}

// OutputConfig controls where and how artifacts are written.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	CleanBuild  bool   `yaml:"clean"`
	Incremental bool   `yaml:"incremental"`
	Workers     int    `yaml:"workers"`
}

// ThemeConfig selects an optional go-theme directory for templates and assets.
type ThemeConfig struct {
	Path              string            `yaml:"path"`
	Name              string            `yaml:"name"`
	Variant           string            `yaml:"variant"`
	CSSVariablePrefix string            `yaml:"css_variable_prefix"`
	PartialFallbacks  map[string]string `yaml:"partial_fallbacks"`
}

// RoutesConfig overrides the site's URL layout. Paths use go-urlkit syntax.
type RoutesConfig struct {
	Post  string `yaml:"post"`
	Index string `yaml:"index"`
	Feed  string `yaml:"feed"`
}

// ParserConfig customises the goldmark pipeline.
type ParserConfig struct {
	Extensions []string `yaml:"extensions"`
	HardWraps  bool     `yaml:"hard_wraps"`
	SafeMode   bool     `yaml:"safe_mode"`
	Sanitize   bool     `yaml:"sanitize"`
}

// FeedsConfig toggles auxiliary artifacts next to the post pages.
type FeedsConfig struct {
	RSS     bool `yaml:"rss"`
	Atom    bool `yaml:"atom"`
	Sitemap bool `yaml:"sitemap"`
	Robots  bool `yaml:"robots"`
}

// RegistryConfig wires the optional SQLite post registry.
type RegistryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig captures go-logger options for the CLI run.
type LoggingConfig struct {
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// Default returns the configuration matching the original site layout.
func Default() Config {
	return Config{
		Site: SiteConfig{
			Title: "Posts",
		},
		Content: ContentConfig{
			Dir:     DefaultContentDir,
			Pattern: DefaultPattern,
		},
		Output: OutputConfig{
			Dir: DefaultOutputDir,
		},
		Routes: RoutesConfig{
			Post:  "/html/:slug.html",
			Index: "/index.html",
			Feed:  "/feed.xml",
		},
		Feeds: FeedsConfig{
			RSS:     true,
			Sitemap: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path on top of the defaults. A missing path
// returns the defaults untouched so the binary works without a config file.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("siteconfig: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("siteconfig: parse %s: %w", path, err)
	}

	cfg.applyFallbacks()
	return cfg, nil
}

func (c *Config) applyFallbacks() {
	if strings.TrimSpace(c.Content.Dir) == "" {
		c.Content.Dir = DefaultContentDir
	}
	if strings.TrimSpace(c.Content.Pattern) == "" {
		c.Content.Pattern = DefaultPattern
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if strings.TrimSpace(c.Routes.Post) == "" {
		c.Routes.Post = "/html/:slug.html"
	}
	if strings.TrimSpace(c.Routes.Index) == "" {
		c.Routes.Index = "/index.html"
	}
	if strings.TrimSpace(c.Routes.Feed) == "" {
		c.Routes.Feed = "/feed.xml"
	}
}

// Validate rejects configurations the pipeline cannot honour.
func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c.Output,
		validation.Field(&c.Output.Workers, validation.Min(0)),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.Logging,
		validation.Field(&c.Logging.Level, validation.In("", "trace", "debug", "info", "warn", "warning", "error", "fatal")),
		validation.Field(&c.Logging.Format, validation.In("", "console", "json", "pretty")),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.Registry,
		validation.Field(&c.Registry.Path, validation.Required.When(c.Registry.Enabled).Error("registry path is required when the registry is enabled")),
	); err != nil {
		return err
	}

	if base := strings.TrimSpace(c.Site.BaseURL); base != "" {
		parsed, err := url.Parse(base)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("siteconfig: base_url %q must be an absolute URL", base)
		}
	}
	return nil
}
