package generator

import (
	"strings"
	"testing"
	"time"

	gotheme "github.com/goliatone/go-theme"
)

func TestPostOutputPath(t *testing.T) {
	cases := []struct {
		route    string
		expected string
	}{
		{route: "/html/my-post.html", expected: "html/my-post.html"},
		{route: "/posts/my-post/", expected: "posts/my-post/index.html"},
		{route: "", expected: "index.html"},
		{route: "/", expected: "index.html"},
	}
	for _, tc := range cases {
		if got := postOutputPath(tc.route); got != tc.expected {
			t.Fatalf("postOutputPath(%q) = %q, expected %q", tc.route, got, tc.expected)
		}
	}
}

func TestIndexContextOrdersNewestFirst(t *testing.T) {
	svc := &service{cfg: Config{}, now: time.Now}

	buildCtx := &BuildContext{
		GeneratedAt: time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		Posts: []*PostData{
			{
				Post:   makePost(t, "a.md", "alpha", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), "a"),
				Route:  "/html/alpha.html",
				Output: "html/alpha.html",
			},
			{
				Post:   makePost(t, "b.md", "beta", time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), "b"),
				Route:  "/html/beta.html",
				Output: "html/beta.html",
			},
			{
				Post:   makePost(t, "c.md", "gamma", time.Time{}, "c"),
				Route:  "/html/gamma.html",
				Output: "html/gamma.html",
			},
		},
	}

	indexCtx := svc.indexContext(svc.siteMetadata(buildCtx), buildCtx, ThemeContext{})
	if len(indexCtx.Posts) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(indexCtx.Posts))
	}
	if indexCtx.Posts[0].Slug != "beta" || indexCtx.Posts[1].Slug != "alpha" {
		t.Fatalf("expected newest first, got %q then %q", indexCtx.Posts[0].Slug, indexCtx.Posts[1].Slug)
	}
	if indexCtx.Posts[2].Slug != "gamma" {
		t.Fatalf("expected undated post last, got %q", indexCtx.Posts[2].Slug)
	}
	if indexCtx.Posts[0].HRef != "./html/beta.html" {
		t.Fatalf("unexpected href %q", indexCtx.Posts[0].HRef)
	}
	if indexCtx.Posts[0].LinkText != "beta.html" {
		t.Fatalf("unexpected link text %q", indexCtx.Posts[0].LinkText)
	}
}

func TestSiteMetadataDefaults(t *testing.T) {
	svc := &service{cfg: Config{BaseURL: "https://example.com/"}, now: time.Now}
	buildCtx := &BuildContext{GeneratedAt: time.Date(2025, time.August, 23, 10, 0, 0, 0, time.UTC)}

	meta := svc.siteMetadata(buildCtx)
	if meta.Title != "Posts" {
		t.Fatalf("expected default title, got %q", meta.Title)
	}
	if meta.BaseURL != "https://example.com" {
		t.Fatalf("expected trimmed base url, got %q", meta.BaseURL)
	}
	if meta.LastUpdate != "Aug 2025" {
		t.Fatalf("expected month-year stamp, got %q", meta.LastUpdate)
	}
}

func TestManifestSkipLogic(t *testing.T) {
	manifest := newBuildManifest()
	manifest.setPost(manifestPost{
		Path:     "a.md",
		Checksum: "abc",
		Output:   "posts/html/a.html",
	})

	if !manifest.shouldSkipPost("a.md", "abc", "posts/html/a.html") {
		t.Fatalf("expected unchanged post to skip")
	}
	if manifest.shouldSkipPost("a.md", "def", "posts/html/a.html") {
		t.Fatalf("changed checksum must rebuild")
	}
	if manifest.shouldSkipPost("a.md", "abc", "other/html/a.html") {
		t.Fatalf("moved output must rebuild")
	}

	manifest.prunePosts(map[string]struct{}{})
	if _, ok := manifest.lookupPost("a.md"); ok {
		t.Fatalf("expected pruned entry to disappear")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	manifest := newBuildManifest()
	manifest.GeneratedAt = time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC)
	manifest.setPost(manifestPost{Path: "b.md", Slug: "b", Checksum: "123", Output: "posts/html/b.html"})
	manifest.setAsset(manifestAsset{Source: "styles.css", Output: "posts/assets/styles.css", Checksum: "456"})

	data, err := manifest.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if !strings.Contains(string(data), `"posts": [`) {
		t.Fatalf("expected entries serialised as sorted arrays:\n%s", data)
	}

	parsed, err := parseManifest(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := parsed.lookupPost("b.md"); !ok {
		t.Fatalf("expected post entry to survive round trip")
	}
	if !parsed.shouldSkipPost("b.md", "123", "posts/html/b.html") {
		t.Fatalf("expected post entry keyed by path after parse")
	}
	if !parsed.shouldSkipAsset("styles.css", "456", "posts/assets/styles.css") {
		t.Fatalf("expected asset entry to survive round trip")
	}
	if !parsed.GeneratedAt.Equal(manifest.GeneratedAt) {
		t.Fatalf("expected generated_at to survive round trip, got %v", parsed.GeneratedAt)
	}
}

func TestCollectManifestAssets(t *testing.T) {
	var manifest gotheme.Manifest
	manifest.Assets.Files = map[string]string{
		"styles": "css/styles.css",
		"logo":   "/img/logo.svg",
	}
	selection := &gotheme.Selection{Manifest: &manifest}

	assets := collectManifestAssets(selection)
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %v", assets)
	}
	if assets[0] != "css/styles.css" || assets[1] != "img/logo.svg" {
		t.Fatalf("unexpected asset list: %v", assets)
	}

	if got := collectManifestAssets(nil); got != nil {
		t.Fatalf("expected nil for missing selection, got %v", got)
	}
}

func TestCSSVariableBlock(t *testing.T) {
	block := string(cssVariableBlock(map[string]string{
		"--pp-bg": "#fff",
		"--pp-fg": "#111",
	}))
	expected := ":root {\n  --pp-bg: #fff;\n  --pp-fg: #111;\n}"
	if block != expected {
		t.Fatalf("unexpected block:\n%s", block)
	}
	if cssVariableBlock(nil) != "" {
		t.Fatalf("expected empty block for no variables")
	}
}

func TestDetectAssetContentType(t *testing.T) {
	cases := map[string]string{
		"css/styles.css":  "text/css",
		"js/app.js":       "application/javascript",
		"img/logo.svg":    "image/svg+xml",
		"font/main.woff2": "font/woff2",
		"data.bin":        "application/octet-stream",
	}
	for asset, expected := range cases {
		if got := detectAssetContentType(asset); got != expected {
			t.Fatalf("detectAssetContentType(%q) = %q, expected %q", asset, got, expected)
		}
	}
}
