// Package bootstrap wires the site configuration into the service graph the
// postgen binary drives: the Markdown loader, the template renderer, the
// artifact storage, the generator, and the optional post registry.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thelyad/postpress/internal/generator"
	"github.com/thelyad/postpress/internal/logging/gologger"
	"github.com/thelyad/postpress/internal/markdown"
	"github.com/thelyad/postpress/internal/registry"
	"github.com/thelyad/postpress/internal/render"
	"github.com/thelyad/postpress/internal/siteconfig"
	storagefs "github.com/thelyad/postpress/internal/storage"
	"github.com/thelyad/postpress/pkg/interfaces"
)

// Options captures CLI overrides layered on top of the YAML configuration.
type Options struct {
	ConfigPath string
	// WorkDir anchors every relative path in the configuration. Defaults to
	// the current directory.
	WorkDir string

	ContentDir string
	OutputDir  string
	BaseURL    string
	LogLevel   string
	LogFormat  string

	Incremental   *bool
	CleanBuild    *bool
	IncludeDrafts *bool

	// LoggerProvider overrides the go-logger provider, mainly for tests.
	LoggerProvider interfaces.LoggerProvider
}

// Module bundles the configured services for the CLI entry points.
type Module struct {
	Config    siteconfig.Config
	Provider  interfaces.LoggerProvider
	Posts     interfaces.PostService
	Generator generator.Service
	Registry  registry.Service
	// IndexPath is where the listing page lands, relative to WorkDir.
	IndexPath string
}

// BuildModule loads configuration, applies overrides, and constructs the
// service graph.
func BuildModule(opts Options) (*Module, error) {
	workDir := strings.TrimSpace(opts.WorkDir)
	if workDir == "" {
		workDir = "."
	}

	// The config file lives in the work dir unless an absolute path is given,
	// so builds behave the same from any working directory.
	cfg, err := siteconfig.Load(resolvePath(workDir, opts.ConfigPath))
	if err != nil {
		return nil, err
	}

	applyStringOverride(&cfg.Content.Dir, opts.ContentDir)
	applyStringOverride(&cfg.Output.Dir, opts.OutputDir)
	applyStringOverride(&cfg.Site.BaseURL, opts.BaseURL)
	applyStringOverride(&cfg.Logging.Level, opts.LogLevel)
	applyStringOverride(&cfg.Logging.Format, opts.LogFormat)
	applyBoolOverride(&cfg.Output.Incremental, opts.Incremental)
	applyBoolOverride(&cfg.Output.CleanBuild, opts.CleanBuild)
	applyBoolOverride(&cfg.Content.IncludeDrafts, opts.IncludeDrafts)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bootstrap: validate config: %w", err)
	}

	provider := opts.LoggerProvider
	if provider == nil {
		logProvider, err := gologger.NewProvider(gologger.Config{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			AddSource: cfg.Logging.AddSource,
			Focus:     cfg.Logging.Focus,
		})
		if err != nil {
			return nil, err
		}
		provider = logProvider
	}

	posts, err := markdown.NewService(markdown.Config{
		BasePath:  resolvePath(workDir, cfg.Content.Dir),
		Pattern:   cfg.Content.Pattern,
		Recursive: cfg.Content.Recursive,
		Parser: interfaces.ParseOptions{
			Extensions: cfg.Parser.Extensions,
			HardWraps:  cfg.Parser.HardWraps,
			SafeMode:   cfg.Parser.SafeMode,
			Sanitize:   cfg.Parser.Sanitize,
		},
		SchemaPath: resolveOptionalPath(workDir, cfg.Content.FrontMatterSchema),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: post service: %w", err)
	}

	themePath := resolveOptionalPath(workDir, cfg.Theme.Path)

	renderer, err := newRenderer(themePath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: renderer: %w", err)
	}

	permalinks, err := generator.NewPermalinks(cfg.Site.BaseURL, generator.PermalinkRoutes{
		Post:  cfg.Routes.Post,
		Index: cfg.Routes.Index,
		Feed:  cfg.Routes.Feed,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: permalinks: %w", err)
	}

	store := storagefs.NewFilesystem(resolvePath(workDir, cfg.Output.Dir), cfg.Output.Dir)

	gen := generator.NewService(generator.Config{
		OutputDir:       cfg.Output.Dir,
		BaseURL:         cfg.Site.BaseURL,
		Pattern:         cfg.Content.Pattern,
		Recursive:       cfg.Content.Recursive,
		IncludeDrafts:   cfg.Content.IncludeDrafts,
		CleanBuild:      cfg.Output.CleanBuild,
		Incremental:     cfg.Output.Incremental,
		GenerateRSS:     cfg.Feeds.RSS,
		GenerateAtom:    cfg.Feeds.Atom,
		GenerateSitemap: cfg.Feeds.Sitemap,
		GenerateRobots:  cfg.Feeds.Robots,
		Workers:         cfg.Output.Workers,
		SiteTitle:       cfg.Site.Title,
		SiteDescription: cfg.Site.Description,
		SiteAuthor:      cfg.Site.Author,
		Metadata:        cfg.Site.Metadata,
		Theming: generator.ThemingConfig{
			Path:              themePath,
			Name:              cfg.Theme.Name,
			Variant:           cfg.Theme.Variant,
			CSSVariablePrefix: cfg.Theme.CSSVariablePrefix,
			PartialFallbacks:  cfg.Theme.PartialFallbacks,
		},
	}, generator.Dependencies{
		Posts:      posts,
		Renderer:   renderer,
		Storage:    store,
		Permalinks: permalinks,
		Logger:     provider,
	})

	reg := registry.NewDisabledService()
	if cfg.Registry.Enabled {
		reg, err = registry.NewService(registry.Config{
			Path: resolvePath(workDir, cfg.Registry.Path),
		}, registry.Dependencies{Logger: provider})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: registry: %w", err)
		}
	}

	return &Module{
		Config:    cfg,
		Provider:  provider,
		Posts:     posts,
		Generator: gen,
		Registry:  reg,
		IndexPath: gen.IndexTargetPath(),
	}, nil
}

// newRenderer prefers the theme's template directory when one exists and
// falls back to the embedded defaults otherwise.
func newRenderer(themePath string) (interfaces.TemplateRenderer, error) {
	if themePath != "" {
		templatesDir := filepath.Join(themePath, "templates")
		if info, err := os.Stat(templatesDir); err == nil && info.IsDir() {
			return render.NewDirRenderer(templatesDir)
		}
	}
	return render.NewDefaultRenderer()
}

func applyStringOverride(target *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*target = trimmed
	}
}

func applyBoolOverride(target *bool, value *bool) {
	if value != nil {
		*target = *value
	}
}

func resolvePath(workDir, value string) string {
	value = strings.TrimSpace(value)
	if value == "" || filepath.IsAbs(value) || workDir == "." {
		return value
	}
	return filepath.Join(workDir, value)
}

func resolveOptionalPath(workDir, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return resolvePath(workDir, value)
}
