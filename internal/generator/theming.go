package generator

import (
	"fmt"
	"html/template"
	"os"
	"sort"
	"strings"
	"sync"

	gotheme "github.com/goliatone/go-theme"
)

// ThemingConfig selects an optional go-theme directory used to style the
// generated pages and contribute assets.
type ThemingConfig struct {
	Path              string
	Name              string
	Variant           string
	CSSVariablePrefix string
	PartialFallbacks  map[string]string
}

type themeSelector struct {
	cfg      ThemingConfig
	registry *gotheme.MemoryRegistry

	mu       sync.Mutex
	manifest *gotheme.Manifest
	loadErr  error
	loaded   bool
}

func newThemeSelector(cfg ThemingConfig) *themeSelector {
	return &themeSelector{
		cfg:      cfg,
		registry: gotheme.NewRegistry(),
	}
}

// Selection resolves the configured theme, loading and registering its
// manifest on first use. Returns (nil, nil) when no theme is configured.
func (s *themeSelector) Selection() (*gotheme.Selection, error) {
	if s == nil || strings.TrimSpace(s.cfg.Path) == "" {
		return nil, nil
	}

	manifest, err := s.ensureManifest()
	if err != nil {
		return nil, err
	}

	selector := gotheme.Selector{
		Registry:       s.registry,
		DefaultTheme:   manifest.Name,
		DefaultVariant: strings.TrimSpace(s.cfg.Variant),
	}

	name := strings.TrimSpace(s.cfg.Name)
	if name == "" {
		name = manifest.Name
	}

	selection, err := selector.Select(name, strings.TrimSpace(s.cfg.Variant))
	if err != nil {
		return nil, fmt.Errorf("generator: select theme %s: %w", name, err)
	}
	return selection, nil
}

func (s *themeSelector) ensureManifest() (*gotheme.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.manifest, s.loadErr
	}
	s.loaded = true

	manifest, err := gotheme.LoadDir(os.DirFS(s.cfg.Path), ".")
	if err != nil {
		s.loadErr = fmt.Errorf("generator: load theme manifest from %s: %w", s.cfg.Path, err)
		return nil, s.loadErr
	}
	if strings.TrimSpace(manifest.Name) == "" {
		s.loadErr = fmt.Errorf("generator: theme at %s has no name", s.cfg.Path)
		return nil, s.loadErr
	}
	if err := s.registry.Register(manifest); err != nil {
		s.loadErr = fmt.Errorf("generator: register theme manifest: %w", err)
		return nil, s.loadErr
	}
	s.manifest = manifest
	return manifest, nil
}

// themeContext turns a selection into template-facing data. The CSS custom
// properties render as a :root block injected into page heads.
func buildThemeContext(selection *gotheme.Selection, cfg ThemingConfig) ThemeContext {
	if selection == nil {
		return ThemeContext{}
	}

	cssVars := selection.CSSVariables(cfg.CSSVariablePrefix)
	return ThemeContext{
		Name:           selection.Theme,
		Variant:        selection.Variant,
		StyleVariables: cssVariableBlock(cssVars),
	}
}

func cssVariableBlock(vars map[string]string) template.HTML {
	if len(vars) == 0 {
		return ""
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var builder strings.Builder
	builder.WriteString(":root {\n")
	for _, name := range names {
		builder.WriteString(fmt.Sprintf("  %s: %s;\n", name, vars[name]))
	}
	builder.WriteString("}")
	return template.HTML(builder.String())
}
