package generator

import (
	"fmt"
	"net/url"
	"strings"

	urlkit "github.com/goliatone/go-urlkit"
)

const routeGroupSite = "site"

// Route names registered with the permalink manager.
const (
	RoutePost  = "post"
	RouteIndex = "index"
	RouteFeed  = "feed"
)

// Permalinks resolves site URLs through a go-urlkit route manager so the URL
// layout stays configurable without touching the build pipeline.
type Permalinks struct {
	manager *urlkit.RouteManager
	group   *urlkit.Group
}

// PermalinkRoutes captures the configurable path templates.
type PermalinkRoutes struct {
	Post  string
	Index string
	Feed  string
}

// NewPermalinks builds a permalink resolver for the provided base URL and
// route templates. Empty templates fall back to the published site layout.
func NewPermalinks(baseURL string, routes PermalinkRoutes) (*Permalinks, error) {
	if strings.TrimSpace(routes.Post) == "" {
		routes.Post = "/html/:slug.html"
	}
	if strings.TrimSpace(routes.Index) == "" {
		routes.Index = "/index.html"
	}
	if strings.TrimSpace(routes.Feed) == "" {
		routes.Feed = "/feed.xml"
	}

	manager := urlkit.NewRouteManager(&urlkit.Config{
		Groups: []urlkit.GroupConfig{
			{
				Name:    routeGroupSite,
				BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
				Paths: map[string]string{
					RoutePost:  routes.Post,
					RouteIndex: routes.Index,
					RouteFeed:  routes.Feed,
				},
			},
		},
	})

	group, err := lookupGroup(manager, routeGroupSite)
	if err != nil {
		return nil, err
	}
	return &Permalinks{manager: manager, group: group}, nil
}

// PostURL returns the full URL for a post slug.
func (p *Permalinks) PostURL(slug string) (string, error) {
	return p.build(RoutePost, map[string]any{"slug": slug})
}

// PostPath returns the site-relative path for a post slug.
func (p *Permalinks) PostPath(slug string) (string, error) {
	full, err := p.PostURL(slug)
	if err != nil {
		return "", err
	}
	return relativePath(full), nil
}

// IndexPath returns the site-relative path of the listing page.
func (p *Permalinks) IndexPath() (string, error) {
	full, err := p.build(RouteIndex, nil)
	if err != nil {
		return "", err
	}
	return relativePath(full), nil
}

// FeedPath returns the site-relative path of the RSS feed.
func (p *Permalinks) FeedPath() (string, error) {
	full, err := p.build(RouteFeed, nil)
	if err != nil {
		return "", err
	}
	return relativePath(full), nil
}

func (p *Permalinks) build(route string, params map[string]any) (string, error) {
	if p == nil || p.group == nil {
		return "", fmt.Errorf("generator: permalinks not configured")
	}
	builder, err := safeBuilder(p.group, route)
	if err != nil {
		return "", err
	}
	for key, value := range params {
		builder.WithParam(key, value)
	}
	built, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("generator: build %s url: %w", route, err)
	}
	return built, nil
}

func relativePath(full string) string {
	if parsed, err := url.Parse(full); err == nil && parsed.Path != "" {
		return parsed.Path
	}
	return full
}

// go-urlkit panics on unknown groups and routes, so lookups are fenced the
// same way the rest of the codebase fences builder access.
func lookupGroup(manager *urlkit.RouteManager, name string) (group *urlkit.Group, err error) {
	if manager == nil {
		return nil, fmt.Errorf("generator: route manager not configured")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("generator: route group %q not found", name)
		}
	}()
	group = manager.Group(name)
	return group, err
}

func safeBuilder(group *urlkit.Group, route string) (builder *urlkit.Builder, err error) {
	if group == nil {
		return nil, fmt.Errorf("generator: urlkit group is nil")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("generator: urlkit builder panic: %v", rec)
		}
	}()
	builder = group.Builder(route)
	return builder, err
}
