package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newSiteDir(tb testing.TB) string {
	tb.Helper()
	workDir := tb.TempDir()
	if err := os.MkdirAll(filepath.Join(workDir, "posts", "md"), 0o755); err != nil {
		tb.Fatalf("mkdir content: %v", err)
	}
	return workDir
}

func TestBuildModuleResolvesConfigAgainstWorkDir(t *testing.T) {
	workDir := newSiteDir(t)
	config := "output:\n  dir: public\n"
	if err := os.WriteFile(filepath.Join(workDir, "postpress.yaml"), []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	module, err := BuildModule(Options{
		ConfigPath: "postpress.yaml",
		WorkDir:    workDir,
		LogLevel:   "error",
	})
	if err != nil {
		t.Fatalf("build module: %v", err)
	}

	if module.Config.Output.Dir != "public" {
		t.Fatalf("expected config from work dir, got output dir %q", module.Config.Output.Dir)
	}
	if module.IndexPath != "public/index.html" {
		t.Fatalf("expected index path under configured output dir, got %q", module.IndexPath)
	}
}

func TestBuildModuleAbsoluteConfigPath(t *testing.T) {
	workDir := newSiteDir(t)
	configDir := t.TempDir()
	configPath := filepath.Join(configDir, "site.yaml")
	if err := os.WriteFile(configPath, []byte("site:\n  title: Elsewhere\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	module, err := BuildModule(Options{
		ConfigPath: configPath,
		WorkDir:    workDir,
		LogLevel:   "error",
	})
	if err != nil {
		t.Fatalf("build module: %v", err)
	}
	if module.Config.Site.Title != "Elsewhere" {
		t.Fatalf("expected absolute config path honoured, got title %q", module.Config.Site.Title)
	}
}

func TestNewRendererPrefersThemeTemplates(t *testing.T) {
	theme := t.TempDir()
	templates := filepath.Join(theme, "templates")
	if err := os.MkdirAll(templates, 0o755); err != nil {
		t.Fatalf("mkdir templates: %v", err)
	}
	custom := `{{define "index"}}custom index{{end}}`
	if err := os.WriteFile(filepath.Join(templates, "site.tmpl"), []byte(custom), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	renderer, err := newRenderer(theme)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	page, err := renderer.RenderTemplate("index", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if page != "custom index" {
		t.Fatalf("expected theme template output, got %q", page)
	}
}

func TestNewRendererFallsBackToEmbedded(t *testing.T) {
	renderer, err := newRenderer(t.TempDir())
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	data := map[string]any{
		"Site": map[string]any{"Title": "Posts", "LastUpdate": "Aug 2025"},
	}
	page, err := renderer.RenderTemplate("index", data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(page, "typora-export") {
		t.Fatalf("expected embedded template chrome:\n%s", page)
	}
}
