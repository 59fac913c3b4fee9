package generator

import (
	"context"
	"encoding/hex"
	"fmt"
	"html/template"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/thelyad/postpress/pkg/interfaces"
)

// BuildContext aggregates everything a build pass needs: the loaded posts in
// render order plus run metadata.
type BuildContext struct {
	Posts       []*PostData
	GeneratedAt time.Time
	Options     BuildOptions
}

// PostData couples a loaded post with its computed routing information.
type PostData struct {
	Post *interfaces.Post
	// Route is the site-relative URL path, e.g. /html/my-post.html.
	Route string
	// Output is the output-dir-relative artifact path, e.g. html/my-post.html.
	Output string
	// Hash fingerprints the source content for incremental builds.
	Hash string
}

// SiteMetadata describes the site for templates, feeds, and the sitemap.
type SiteMetadata struct {
	Title       string
	Description string
	Author      string
	BaseURL     string
	LastUpdate  string
	Metadata    map[string]any
}

// BuildMetadata records run information surfaced to templates.
type BuildMetadata struct {
	GeneratedAt time.Time
	Options     BuildOptions
}

// PostRenderingContext is the per-page payload handed to the post template.
type PostRenderingContext struct {
	Title     string
	Slug      string
	Summary   string
	Author    string
	Tags      []string
	Date      time.Time
	Content   template.HTML
	Permalink string
	Custom    map[string]any
}

// ThemeContext carries optional theme styling into templates. StyleVariables
// holds a CSS custom-property block derived from the active theme's tokens.
type ThemeContext struct {
	Name           string
	Variant        string
	StyleVariables template.HTML
}

// TemplateContext is the root payload for post page rendering.
type TemplateContext struct {
	Site  SiteMetadata
	Post  PostRenderingContext
	Theme ThemeContext
	Build BuildMetadata
}

// IndexEntry is one listing row on the generated index page.
type IndexEntry struct {
	HRef     string
	LinkText string
	Title    string
	Slug     string
	Summary  string
	Date     time.Time
}

// IndexContext is the root payload for index page rendering.
type IndexContext struct {
	Site  SiteMetadata
	Posts []IndexEntry
	Theme ThemeContext
	Build BuildMetadata
}

// loadContext discovers posts, derives routes and output paths, and rejects
// slug collisions before any artifact is written.
func (s *service) loadContext(ctx context.Context, opts BuildOptions) (*BuildContext, error) {
	if s.deps.Posts == nil {
		return nil, errPostServiceRequired
	}

	posts, err := s.deps.Posts.LoadDirectory(ctx, ".", interfaces.LoadOptions{
		Pattern:   s.cfg.Pattern,
		Recursive: boolPtr(s.cfg.Recursive),
	})
	if err != nil {
		return nil, fmt.Errorf("generator: load posts: %w", err)
	}

	buildCtx := &BuildContext{
		Posts:       make([]*PostData, 0, len(posts)),
		GeneratedAt: s.now().UTC(),
		Options:     opts,
	}

	slugOwners := map[string]string{}
	for _, post := range posts {
		if post == nil {
			continue
		}
		if post.FrontMatter.Draft && !s.cfg.IncludeDrafts {
			continue
		}
		if owner, ok := slugOwners[post.Slug]; ok {
			return nil, fmt.Errorf("generator: duplicate slug %q (%s and %s)", post.Slug, owner, post.FilePath)
		}
		slugOwners[post.Slug] = post.FilePath

		route := s.routeForPost(post)
		buildCtx.Posts = append(buildCtx.Posts, &PostData{
			Post:   post,
			Route:  route,
			Output: postOutputPath(route),
			Hash:   hex.EncodeToString(post.Checksum),
		})
	}

	sort.Slice(buildCtx.Posts, func(i, j int) bool {
		return buildCtx.Posts[i].Post.FilePath < buildCtx.Posts[j].Post.FilePath
	})
	return buildCtx, nil
}

func (s *service) routeForPost(post *interfaces.Post) string {
	if s.deps.Permalinks != nil {
		if route, err := s.deps.Permalinks.PostPath(post.Slug); err == nil && route != "" {
			return route
		}
	}
	return "/html/" + post.Slug + ".html"
}

func (s *service) siteMetadata(buildCtx *BuildContext) SiteMetadata {
	meta := SiteMetadata{
		Title:       strings.TrimSpace(s.cfg.SiteTitle),
		Description: strings.TrimSpace(s.cfg.SiteDescription),
		Author:      strings.TrimSpace(s.cfg.SiteAuthor),
		BaseURL:     strings.TrimRight(strings.TrimSpace(s.cfg.BaseURL), "/"),
		LastUpdate:  buildCtx.GeneratedAt.Format("Jan 2006"),
		Metadata:    map[string]any{},
	}
	if meta.Title == "" {
		meta.Title = "Posts"
	}
	for key, value := range s.cfg.Metadata {
		meta.Metadata[key] = value
	}
	return meta
}

func (s *service) postContext(siteMeta SiteMetadata, buildCtx *BuildContext, data *PostData, theme ThemeContext) TemplateContext {
	post := data.Post
	return TemplateContext{
		Site: siteMeta,
		Post: PostRenderingContext{
			Title:     postTitle(post),
			Slug:      post.Slug,
			Summary:   post.FrontMatter.Summary,
			Author:    post.FrontMatter.Author,
			Tags:      append([]string(nil), post.FrontMatter.Tags...),
			Date:      post.FrontMatter.Date,
			Content:   template.HTML(post.BodyHTML),
			Permalink: absoluteURL(siteMeta.BaseURL, data.Route),
			Custom:    post.FrontMatter.Custom,
		},
		Theme: theme,
		Build: BuildMetadata{
			GeneratedAt: buildCtx.GeneratedAt,
			Options:     buildCtx.Options,
		},
	}
}

// indexContext lists posts newest first so recent writing surfaces at the top.
// Undated posts fall back to file order at the end of the listing.
func (s *service) indexContext(siteMeta SiteMetadata, buildCtx *BuildContext, theme ThemeContext) IndexContext {
	entries := make([]IndexEntry, 0, len(buildCtx.Posts))
	for _, data := range buildCtx.Posts {
		post := data.Post
		entries = append(entries, IndexEntry{
			HRef:     "./" + strings.TrimLeft(data.Output, "/"),
			LinkText: path.Base(data.Output),
			Title:    postTitle(post),
			Slug:     post.Slug,
			Summary:  post.FrontMatter.Summary,
			Date:     post.FrontMatter.Date,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		left, right := entries[i].Date, entries[j].Date
		if left.IsZero() || right.IsZero() {
			if left.IsZero() != right.IsZero() {
				return !left.IsZero()
			}
			return entries[i].LinkText < entries[j].LinkText
		}
		if !left.Equal(right) {
			return left.After(right)
		}
		return entries[i].LinkText < entries[j].LinkText
	})

	return IndexContext{
		Site:  siteMeta,
		Posts: entries,
		Theme: theme,
		Build: BuildMetadata{
			GeneratedAt: buildCtx.GeneratedAt,
			Options:     buildCtx.Options,
		},
	}
}

func postTitle(post *interfaces.Post) string {
	if title := strings.TrimSpace(post.FrontMatter.Title); title != "" {
		return title
	}
	return post.Slug
}

func boolPtr(v bool) *bool {
	return &v
}
