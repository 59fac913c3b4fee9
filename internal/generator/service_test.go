package generator

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thelyad/postpress/internal/render"
	"github.com/thelyad/postpress/pkg/interfaces"
	"github.com/thelyad/postpress/pkg/storage"
)

type stubPostService struct {
	posts []*interfaces.Post
	err   error
}

func (s *stubPostService) Load(context.Context, string, interfaces.LoadOptions) (*interfaces.Post, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.posts) == 0 {
		return nil, fmt.Errorf("no posts configured")
	}
	return s.posts[0], nil
}

func (s *stubPostService) LoadDirectory(context.Context, string, interfaces.LoadOptions) ([]*interfaces.Post, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.posts, nil
}

func (s *stubPostService) Render(_ context.Context, markdown []byte, _ interfaces.ParseOptions) ([]byte, error) {
	return markdown, nil
}

func (s *stubPostService) RenderPost(_ context.Context, post *interfaces.Post, _ interfaces.ParseOptions) ([]byte, error) {
	return post.BodyHTML, nil
}

type memoryProvider struct {
	mu      sync.Mutex
	files   map[string][]byte
	dirs    map[string]struct{}
	removed []string
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{
		files: map[string][]byte{},
		dirs:  map[string]struct{}{},
	}
}

func (p *memoryProvider) Exec(_ context.Context, op string, args ...any) (storage.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch op {
	case storageOpEnsureDir:
		p.dirs[args[0].(string)] = struct{}{}
	case storageOpWrite:
		path := args[0].(string)
		reader := args[1].(io.Reader)
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, err
		}
		p.files[path] = data
	case storageOpRemove:
		target := args[0].(string)
		p.removed = append(p.removed, target)
		for name := range p.files {
			if name == target || strings.HasPrefix(name, target+"/") {
				delete(p.files, name)
			}
		}
	default:
		return nil, fmt.Errorf("unexpected op %q", op)
	}
	return memoryResult{}, nil
}

func (p *memoryProvider) Query(_ context.Context, op string, args ...any) (storage.Rows, error) {
	if op != storageOpRead {
		return nil, fmt.Errorf("unexpected query op %q", op)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.files[args[0].(string)]
	if !ok {
		return nil, nil
	}
	return &memoryRows{data: data}, nil
}

func (p *memoryProvider) file(path string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.files[path]
	return string(data), ok
}

func (p *memoryProvider) fileCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.files)
}

type memoryResult struct{}

func (memoryResult) RowsAffected() (int64, error) { return 1, nil }

type memoryRows struct {
	data []byte
	done bool
}

func (r *memoryRows) Next() bool {
	if r.done {
		return false
	}
	r.done = true
	return true
}

func (r *memoryRows) Scan(dest ...any) error {
	if len(dest) != 1 {
		return fmt.Errorf("expected single destination")
	}
	target, ok := dest[0].(*[]byte)
	if !ok {
		return fmt.Errorf("expected *[]byte destination")
	}
	*target = append([]byte(nil), r.data...)
	return nil
}

func (r *memoryRows) Close() error { return nil }

func makePost(tb testing.TB, filePath, slug string, date time.Time, body string) *interfaces.Post {
	tb.Helper()
	sum := sha256.Sum256([]byte(body))
	html := "<p>" + body + "</p>"
	return &interfaces.Post{
		FilePath: filePath,
		Slug:     slug,
		FrontMatter: interfaces.FrontMatter{
			Title: strings.ReplaceAll(slug, "-", " "),
			Date:  date,
		},
		Body:         []byte(body),
		BodyHTML:     []byte(html),
		LastModified: date,
		Checksum:     sum[:],
	}
}

func newBuildService(tb testing.TB, cfg Config, posts []*interfaces.Post, provider storage.Provider) Service {
	tb.Helper()
	renderer, err := render.NewDefaultRenderer()
	if err != nil {
		tb.Fatalf("new renderer: %v", err)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "posts"
	}
	return NewService(cfg, Dependencies{
		Posts:    &stubPostService{posts: posts},
		Renderer: renderer,
		Storage:  provider,
	})
}

func testPosts(tb testing.TB) []*interfaces.Post {
	tb.Helper()
	return []*interfaces.Post{
		makePost(tb, "older-post.md", "older-post", time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC), "older body"),
		makePost(tb, "newer-post.md", "newer-post", time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC), "newer body"),
	}
}

func TestBuildWritesPostsIndexAndManifest(t *testing.T) {
	provider := newMemoryProvider()
	svc := newBuildService(t, Config{}, testPosts(t), provider)

	result, err := svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if result.PostsBuilt != 2 {
		t.Fatalf("expected 2 posts built, got %d", result.PostsBuilt)
	}
	if result.PostsSkipped != 0 {
		t.Fatalf("expected no skipped posts, got %d", result.PostsSkipped)
	}
	if result.IndexEntries != 2 {
		t.Fatalf("expected 2 index entries, got %d", result.IndexEntries)
	}

	page, ok := provider.file("posts/html/newer-post.html")
	if !ok {
		t.Fatalf("expected post page at posts/html/newer-post.html; files: %v", provider.files)
	}
	if !strings.Contains(page, "<p>newer body</p>") {
		t.Fatalf("post page missing rendered body:\n%s", page)
	}
	if !strings.Contains(page, "typora-export") {
		t.Fatalf("post page missing chrome:\n%s", page)
	}

	index, ok := provider.file("posts/index.html")
	if !ok {
		t.Fatalf("expected index at posts/index.html")
	}
	newer := `<li><a href="./html/newer-post.html">newer-post.html</a></li>`
	older := `<li><a href="./html/older-post.html">older-post.html</a></li>`
	newerAt := strings.Index(index, newer)
	olderAt := strings.Index(index, older)
	if newerAt < 0 || olderAt < 0 {
		t.Fatalf("index missing entries:\n%s", index)
	}
	if newerAt > olderAt {
		t.Fatalf("expected newest post listed first:\n%s", index)
	}

	if _, ok := provider.file("posts/" + manifestFileName); !ok {
		t.Fatalf("expected build manifest at posts/%s", manifestFileName)
	}
}

func TestBuildEmptyContentWritesPlaceholderIndex(t *testing.T) {
	provider := newMemoryProvider()
	svc := newBuildService(t, Config{}, nil, provider)

	result, err := svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if result.PostsBuilt != 0 || result.IndexEntries != 0 {
		t.Fatalf("expected empty build, got %d posts and %d entries", result.PostsBuilt, result.IndexEntries)
	}

	index, ok := provider.file("posts/index.html")
	if !ok {
		t.Fatalf("expected index even with no posts")
	}
	if !strings.Contains(index, "<!-- No posts found in posts/html -->") {
		t.Fatalf("index missing empty-list placeholder:\n%s", index)
	}
	if strings.Contains(index, "<li>") {
		t.Fatalf("index must not list entries when no posts exist:\n%s", index)
	}
}

func TestBuildIncrementalSkipsUnchanged(t *testing.T) {
	provider := newMemoryProvider()
	cfg := Config{Incremental: true}
	posts := testPosts(t)

	first := newBuildService(t, cfg, posts, provider)
	if _, err := first.Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatalf("first build: %v", err)
	}

	second := newBuildService(t, cfg, posts, provider)
	result, err := second.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if result.PostsBuilt != 0 {
		t.Fatalf("expected no rebuilds, got %d", result.PostsBuilt)
	}
	if result.PostsSkipped != 2 {
		t.Fatalf("expected 2 skipped posts, got %d", result.PostsSkipped)
	}

	forced, err := second.Build(context.Background(), BuildOptions{Force: true})
	if err != nil {
		t.Fatalf("forced build: %v", err)
	}
	if forced.PostsBuilt != 2 {
		t.Fatalf("expected forced rebuild of 2 posts, got %d", forced.PostsBuilt)
	}
}

func TestBuildIncrementalRebuildsChangedPost(t *testing.T) {
	provider := newMemoryProvider()
	cfg := Config{Incremental: true}
	posts := testPosts(t)

	first := newBuildService(t, cfg, posts, provider)
	if _, err := first.Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatalf("first build: %v", err)
	}

	changed := []*interfaces.Post{
		posts[0],
		makePost(t, "newer-post.md", "newer-post", posts[1].FrontMatter.Date, "edited body"),
	}
	second := newBuildService(t, cfg, changed, provider)
	result, err := second.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if result.PostsBuilt != 1 || result.PostsSkipped != 1 {
		t.Fatalf("expected 1 rebuilt and 1 skipped, got built=%d skipped=%d", result.PostsBuilt, result.PostsSkipped)
	}

	page, _ := provider.file("posts/html/newer-post.html")
	if !strings.Contains(page, "<p>edited body</p>") {
		t.Fatalf("expected rebuilt page content:\n%s", page)
	}
}

func TestBuildDryRunWritesNothing(t *testing.T) {
	provider := newMemoryProvider()
	svc := newBuildService(t, Config{}, testPosts(t), provider)

	result, err := svc.Build(context.Background(), BuildOptions{DryRun: true})
	if err != nil {
		t.Fatalf("dry-run build: %v", err)
	}
	if !result.DryRun {
		t.Fatalf("expected dry-run result")
	}
	if result.PostsBuilt != 2 {
		t.Fatalf("expected 2 posts rendered, got %d", result.PostsBuilt)
	}
	if len(result.Rendered) != 2 {
		t.Fatalf("expected rendered payloads in dry-run, got %d", len(result.Rendered))
	}
	if provider.fileCount() != 0 {
		t.Fatalf("expected no writes in dry-run, got %d files", provider.fileCount())
	}
}

func TestBuildRejectsDuplicateSlugs(t *testing.T) {
	posts := []*interfaces.Post{
		makePost(t, "a/hello.md", "hello", time.Time{}, "a"),
		makePost(t, "b/hello.md", "hello", time.Time{}, "b"),
	}
	svc := newBuildService(t, Config{}, posts, newMemoryProvider())

	_, err := svc.Build(context.Background(), BuildOptions{})
	if err == nil {
		t.Fatalf("expected duplicate slug error")
	}
	if !strings.Contains(err.Error(), "duplicate slug") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildSkipsDraftsByDefault(t *testing.T) {
	draft := makePost(t, "wip.md", "wip", time.Time{}, "draft body")
	draft.FrontMatter.Draft = true
	posts := append(testPosts(t), draft)

	provider := newMemoryProvider()
	svc := newBuildService(t, Config{}, posts, provider)
	result, err := svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if result.PostsBuilt != 2 {
		t.Fatalf("expected drafts skipped, got %d built", result.PostsBuilt)
	}
	if _, ok := provider.file("posts/html/wip.html"); ok {
		t.Fatalf("draft page should not be written")
	}

	svc = newBuildService(t, Config{IncludeDrafts: true}, posts, provider)
	result, err = svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("build with drafts: %v", err)
	}
	if result.PostsBuilt != 3 {
		t.Fatalf("expected drafts included, got %d built", result.PostsBuilt)
	}
}

func TestBuildWritesFeedsSitemapRobots(t *testing.T) {
	provider := newMemoryProvider()
	cfg := Config{
		BaseURL:         "https://example.com",
		SiteTitle:       "Example Posts",
		GenerateRSS:     true,
		GenerateAtom:    true,
		GenerateSitemap: true,
		GenerateRobots:  true,
	}
	svc := newBuildService(t, cfg, testPosts(t), provider)

	result, err := svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if result.FeedsBuilt != 2 {
		t.Fatalf("expected 2 feeds, got %d", result.FeedsBuilt)
	}

	rss, ok := provider.file("posts/feed.xml")
	if !ok {
		t.Fatalf("expected RSS feed at posts/feed.xml")
	}
	if !strings.Contains(rss, "<title>Example Posts</title>") {
		t.Fatalf("rss missing channel title:\n%s", rss)
	}
	if !strings.Contains(rss, "https://example.com/html/newer-post.html") {
		t.Fatalf("rss missing post link:\n%s", rss)
	}

	if _, ok := provider.file("posts/feed.atom.xml"); !ok {
		t.Fatalf("expected Atom feed at posts/feed.atom.xml")
	}

	sitemap, ok := provider.file("posts/sitemap.xml")
	if !ok {
		t.Fatalf("expected sitemap at posts/sitemap.xml")
	}
	if !strings.Contains(sitemap, "<loc>https://example.com/index.html</loc>") {
		t.Fatalf("sitemap missing index entry:\n%s", sitemap)
	}

	robots, ok := provider.file("posts/robots.txt")
	if !ok {
		t.Fatalf("expected robots.txt at posts/robots.txt")
	}
	if !strings.Contains(robots, "Sitemap: https://example.com/sitemap.xml") {
		t.Fatalf("robots missing sitemap reference:\n%s", robots)
	}
}

func TestCleanRemovesOutputDir(t *testing.T) {
	provider := newMemoryProvider()
	svc := newBuildService(t, Config{}, testPosts(t), provider)
	if _, err := svc.Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatalf("build: %v", err)
	}
	if provider.fileCount() == 0 {
		t.Fatalf("expected build output before clean")
	}

	if err := svc.Clean(context.Background()); err != nil {
		t.Fatalf("clean: %v", err)
	}
	if provider.fileCount() != 0 {
		t.Fatalf("expected output removed, %d files remain", provider.fileCount())
	}

	empty := NewService(Config{}, Dependencies{Storage: provider})
	if err := empty.Clean(context.Background()); err == nil {
		t.Fatalf("expected clean of empty output dir to fail")
	}
}

func TestBuildRequiresRenderer(t *testing.T) {
	svc := NewService(Config{OutputDir: "posts"}, Dependencies{
		Posts: &stubPostService{},
	})
	if _, err := svc.Build(context.Background(), BuildOptions{}); err != errRendererRequired {
		t.Fatalf("expected renderer requirement error, got %v", err)
	}
}

func TestDisabledService(t *testing.T) {
	svc := NewDisabledService()
	if _, err := svc.Build(context.Background(), BuildOptions{}); err != ErrServiceDisabled {
		t.Fatalf("expected ErrServiceDisabled, got %v", err)
	}
	if err := svc.Clean(context.Background()); err != ErrServiceDisabled {
		t.Fatalf("expected ErrServiceDisabled, got %v", err)
	}
}

func TestIndexTargetPath(t *testing.T) {
	svc := newBuildService(t, Config{OutputDir: "posts"}, nil, nil)
	if got := svc.IndexTargetPath(); got != "posts/index.html" {
		t.Fatalf("expected posts/index.html, got %q", got)
	}
}
