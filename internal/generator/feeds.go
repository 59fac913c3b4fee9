package generator

import (
	"context"
	"fmt"
	"html"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/thelyad/postpress/internal/identity"
)

const maxFeedItems = 100

type feedItem struct {
	Title       string
	Summary     string
	Link        string
	GUID        string
	PublishedAt time.Time
	UpdatedAt   time.Time
}

// buildFeedItems flattens the build context into feed entries sorted newest
// first. GUIDs derive from the deterministic post UUID so feed readers treat
// republished posts as the same entry.
func (s *service) buildFeedItems(buildCtx *BuildContext) []feedItem {
	if buildCtx == nil || len(buildCtx.Posts) == 0 {
		return nil
	}

	items := make([]feedItem, 0, len(buildCtx.Posts))
	for _, data := range buildCtx.Posts {
		post := data.Post
		publishedAt := post.FrontMatter.Date
		if publishedAt.IsZero() {
			publishedAt = post.LastModified
		}
		if publishedAt.IsZero() {
			publishedAt = buildCtx.GeneratedAt
		}
		updatedAt := post.LastModified
		if updatedAt.IsZero() {
			updatedAt = publishedAt
		}

		items = append(items, feedItem{
			Title:       postTitle(post),
			Summary:     normalizeWhitespace(post.FrontMatter.Summary),
			Link:        absoluteURL(s.cfg.BaseURL, data.Route),
			GUID:        identity.PostUUID(post.FilePath).String(),
			PublishedAt: publishedAt,
			UpdatedAt:   updatedAt,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		left, right := items[i].PublishedAt, items[j].PublishedAt
		if left.Equal(right) {
			return items[i].GUID < items[j].GUID
		}
		return left.After(right)
	})
	if len(items) > maxFeedItems {
		items = append([]feedItem(nil), items[:maxFeedItems]...)
	}
	return items
}

func (s *service) writeFeeds(
	ctx context.Context,
	writer artifactWriter,
	siteMeta SiteMetadata,
	buildCtx *BuildContext,
	items []feedItem,
) (int, error) {
	if len(items) == 0 || (!s.cfg.GenerateRSS && !s.cfg.GenerateAtom) {
		return 0, nil
	}

	baseDir := strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")
	dirCache := map[string]struct{}{}
	total := 0

	if s.cfg.GenerateRSS {
		content := buildRSSFeed(siteMeta, items, buildCtx.GeneratedAt)
		target := joinOutputPath(baseDir, s.feedRelPath())
		if err := ensureDir(ctx, writer, dirCache, path.Dir(target)); err != nil {
			return total, err
		}
		if err := writer.WriteFile(ctx, writeFileRequest{
			Path:        target,
			Content:     strings.NewReader(content),
			Size:        int64(len(content)),
			Category:    categoryFeed,
			ContentType: "application/rss+xml",
			Checksum:    computeHashFromString(content),
			Metadata:    feedMetadata("rss", buildCtx.GeneratedAt),
		}); err != nil {
			return total, err
		}
		total++
	}

	if s.cfg.GenerateAtom {
		content := buildAtomFeed(siteMeta, items, buildCtx.GeneratedAt)
		target := joinOutputPath(baseDir, "feed.atom.xml")
		if err := ensureDir(ctx, writer, dirCache, path.Dir(target)); err != nil {
			return total, err
		}
		if err := writer.WriteFile(ctx, writeFileRequest{
			Path:        target,
			Content:     strings.NewReader(content),
			Size:        int64(len(content)),
			Category:    categoryFeed,
			ContentType: "application/atom+xml",
			Checksum:    computeHashFromString(content),
			Metadata:    feedMetadata("atom", buildCtx.GeneratedAt),
		}); err != nil {
			return total, err
		}
		total++
	}

	return total, nil
}

func (s *service) feedRelPath() string {
	if s.deps.Permalinks != nil {
		if rel, err := s.deps.Permalinks.FeedPath(); err == nil && strings.TrimSpace(rel) != "" {
			return strings.TrimLeft(rel, "/")
		}
	}
	return "feed.xml"
}

func buildRSSFeed(site SiteMetadata, items []feedItem, generatedAt time.Time) string {
	baseLink := baseURLWithFallback(site.BaseURL)

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(`<rss version="2.0">` + "\n")
	builder.WriteString("  <channel>\n")
	builder.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(feedTitle(site))))
	builder.WriteString(fmt.Sprintf("    <link>%s</link>\n", escapeXML(baseLink)))
	builder.WriteString(fmt.Sprintf("    <description>%s</description>\n", escapeXML(feedDescription(site))))
	builder.WriteString(fmt.Sprintf("    <lastBuildDate>%s</lastBuildDate>\n", generatedAt.UTC().Format(time.RFC1123Z)))
	for _, item := range items {
		pub := item.PublishedAt
		if pub.IsZero() {
			pub = generatedAt
		}
		builder.WriteString("    <item>\n")
		builder.WriteString(fmt.Sprintf("      <title>%s</title>\n", escapeXML(item.Title)))
		builder.WriteString(fmt.Sprintf("      <link>%s</link>\n", escapeXML(item.Link)))
		builder.WriteString(fmt.Sprintf("      <guid isPermaLink=\"false\">%s</guid>\n", escapeXML(item.GUID)))
		builder.WriteString(fmt.Sprintf("      <pubDate>%s</pubDate>\n", pub.UTC().Format(time.RFC1123Z)))
		if item.Summary != "" {
			builder.WriteString(fmt.Sprintf("      <description>%s</description>\n", escapeXML(item.Summary)))
		}
		builder.WriteString("    </item>\n")
	}
	builder.WriteString("  </channel>\n")
	builder.WriteString(`</rss>` + "\n")
	return builder.String()
}

func buildAtomFeed(site SiteMetadata, items []feedItem, generatedAt time.Time) string {
	baseLink := baseURLWithFallback(site.BaseURL)
	feedID := baseLink + "/feed.atom.xml"

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom">` + "\n")
	builder.WriteString(fmt.Sprintf("  <id>%s</id>\n", escapeXML(feedID)))
	builder.WriteString(fmt.Sprintf("  <title>%s</title>\n", escapeXML(feedTitle(site))))
	builder.WriteString(fmt.Sprintf("  <updated>%s</updated>\n", generatedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf(`  <link rel="alternate" href="%s" />`+"\n", escapeXML(baseLink)))
	builder.WriteString(fmt.Sprintf(`  <link rel="self" href="%s" />`+"\n", escapeXML(feedID)))
	for _, item := range items {
		updated := item.UpdatedAt
		if updated.IsZero() {
			updated = generatedAt
		}
		builder.WriteString("  <entry>\n")
		builder.WriteString(fmt.Sprintf("    <id>urn:uuid:%s</id>\n", escapeXML(item.GUID)))
		builder.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(item.Title)))
		builder.WriteString(fmt.Sprintf(`    <link href="%s" />`+"\n", escapeXML(item.Link)))
		builder.WriteString(fmt.Sprintf("    <updated>%s</updated>\n", updated.UTC().Format(time.RFC3339)))
		if !item.PublishedAt.IsZero() {
			builder.WriteString(fmt.Sprintf("    <published>%s</published>\n", item.PublishedAt.UTC().Format(time.RFC3339)))
		}
		if item.Summary != "" {
			builder.WriteString(fmt.Sprintf("    <summary>%s</summary>\n", escapeXML(item.Summary)))
		}
		builder.WriteString("  </entry>\n")
	}
	builder.WriteString(`</feed>` + "\n")
	return builder.String()
}

func feedMetadata(feedType string, generatedAt time.Time) map[string]string {
	return map[string]string{
		"generated_at": generatedAt.UTC().Format(time.RFC3339),
		"feed_type":    feedType,
	}
}

func feedTitle(site SiteMetadata) string {
	if title := strings.TrimSpace(site.Title); title != "" {
		return title
	}
	if base := strings.TrimSpace(site.BaseURL); base != "" {
		return base
	}
	return "Posts"
}

func feedDescription(site SiteMetadata) string {
	if desc := strings.TrimSpace(site.Description); desc != "" {
		return desc
	}
	return "Latest posts"
}

func baseURLWithFallback(base string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	if trimmed == "" {
		return "http://localhost"
	}
	return trimmed
}

func absoluteURL(base, route string) string {
	targetBase := baseURLWithFallback(base)
	normalized := strings.TrimSpace(route)
	if normalized == "" {
		return targetBase
	}
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	return targetBase + normalized
}

func normalizeWhitespace(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	return strings.Join(strings.Fields(input), " ")
}

func escapeXML(value string) string {
	return html.EscapeString(value)
}
