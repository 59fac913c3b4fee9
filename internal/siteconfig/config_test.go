package siteconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesSiteLayout(t *testing.T) {
	cfg := Default()

	if cfg.Content.Dir != "posts/md" {
		t.Fatalf("unexpected content dir %q", cfg.Content.Dir)
	}
	if cfg.Output.Dir != "posts" {
		t.Fatalf("unexpected output dir %q", cfg.Output.Dir)
	}
	if cfg.Content.Pattern != "*.md" {
		t.Fatalf("unexpected pattern %q", cfg.Content.Pattern)
	}
	if cfg.Routes.Post != "/html/:slug.html" || cfg.Routes.Index != "/index.html" {
		t.Fatalf("unexpected routes %+v", cfg.Routes)
	}
	if !cfg.Feeds.RSS || !cfg.Feeds.Sitemap {
		t.Fatalf("expected rss and sitemap enabled by default, got %+v", cfg.Feeds)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Content.Dir != DefaultContentDir || cfg.Output.Dir != DefaultOutputDir {
		t.Fatalf("expected defaults for missing file, got %+v", cfg)
	}
}

func TestLoadLayersYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postpress.yaml")
	content := `site:
  title: My Blog
  base_url: https://example.com
output:
  dir: public
  incremental: true
feeds:
  atom: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Site.Title != "My Blog" {
		t.Fatalf("expected yaml title, got %q", cfg.Site.Title)
	}
	if cfg.Output.Dir != "public" || !cfg.Output.Incremental {
		t.Fatalf("expected yaml output settings, got %+v", cfg.Output)
	}
	if !cfg.Feeds.Atom {
		t.Fatalf("expected atom enabled from yaml")
	}
	// Keys the file does not mention keep their defaults.
	if cfg.Content.Dir != DefaultContentDir {
		t.Fatalf("expected default content dir, got %q", cfg.Content.Dir)
	}
	if cfg.Routes.Post != "/html/:slug.html" {
		t.Fatalf("expected default post route, got %q", cfg.Routes.Post)
	}
}

func TestLoadAppliesFallbacksForBlankValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postpress.yaml")
	content := `content:
  dir: ""
output:
  dir: ""
routes:
  post: ""
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Content.Dir != DefaultContentDir {
		t.Fatalf("expected content dir fallback, got %q", cfg.Content.Dir)
	}
	if cfg.Output.Dir != DefaultOutputDir {
		t.Fatalf("expected output dir fallback, got %q", cfg.Output.Dir)
	}
	if cfg.Routes.Post != "/html/:slug.html" {
		t.Fatalf("expected post route fallback, got %q", cfg.Routes.Post)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults pass",
			mutate: func(*Config) {},
		},
		{
			name:   "absolute base url passes",
			mutate: func(c *Config) { c.Site.BaseURL = "https://example.com" },
		},
		{
			name:    "relative base url fails",
			mutate:  func(c *Config) { c.Site.BaseURL = "example.com/blog" },
			wantErr: true,
		},
		{
			name:    "negative workers fail",
			mutate:  func(c *Config) { c.Output.Workers = -1 },
			wantErr: true,
		},
		{
			name:    "unknown log level fails",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "unknown log format fails",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "registry enabled without path fails",
			mutate:  func(c *Config) { c.Registry.Enabled = true },
			wantErr: true,
		},
		{
			name: "registry enabled with path passes",
			mutate: func(c *Config) {
				c.Registry.Enabled = true
				c.Registry.Path = "posts/.registry.db"
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
