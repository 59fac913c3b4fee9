package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/thelyad/postpress/internal/logging"
	"github.com/thelyad/postpress/internal/render"
	"github.com/thelyad/postpress/pkg/interfaces"
	"github.com/thelyad/postpress/pkg/storage"
)

var (
	// ErrServiceDisabled indicates the generator feature is disabled.
	ErrServiceDisabled     = errors.New("generator: service disabled")
	errPostServiceRequired = errors.New("generator: post service is required")
	errRendererRequired    = errors.New("generator: template renderer is required")
)

// Service describes the static site generator contract.
type Service interface {
	Build(ctx context.Context, opts BuildOptions) (*BuildResult, error)
	Clean(ctx context.Context) error
	// IndexTargetPath reports where the index page lands relative to the
	// working directory so callers can surface it in completion output.
	IndexTargetPath() string
}

// Config captures runtime behaviour toggles for the generator.
type Config struct {
	OutputDir       string
	BaseURL         string
	Pattern         string
	Recursive       bool
	IncludeDrafts   bool
	CleanBuild      bool
	Incremental     bool
	GenerateRSS     bool
	GenerateAtom    bool
	GenerateSitemap bool
	GenerateRobots  bool
	Workers         int
	SiteTitle       string
	SiteDescription string
	SiteAuthor      string
	Metadata        map[string]any
	Theming         ThemingConfig
}

// BuildOptions narrows the scope of a generator run.
type BuildOptions struct {
	// DryRun renders everything but writes no artifacts.
	DryRun bool
	// Force re-renders posts even when the build manifest marks them current.
	Force bool
}

// BuildResult reports aggregated build metadata.
type BuildResult struct {
	PostsBuilt    int
	PostsSkipped  int
	IndexEntries  int
	FeedsBuilt    int
	AssetsBuilt   int
	AssetsSkipped int
	Rendered      []RenderedPost
	Duration      time.Duration
	Errors        []error
	DryRun        bool
}

// RenderedPost captures one rendered page and where it landed.
type RenderedPost struct {
	Path     string
	Slug     string
	Route    string
	Output   string
	HTML     string
	Hash     string
	Checksum string
	Duration time.Duration
}

type renderOutcome struct {
	post    RenderedPost
	skipped bool
	err     error
}

// Dependencies lists the services required by the generator.
type Dependencies struct {
	Posts      interfaces.PostService
	Renderer   interfaces.TemplateRenderer
	Storage    storage.Provider
	Permalinks *Permalinks
	Logger     interfaces.LoggerProvider
}

// NewService wires a generator implementation with the provided configuration
// and dependencies.
func NewService(cfg Config, deps Dependencies) Service {
	return &service{
		cfg:   cfg,
		deps:  deps,
		theme: newThemeSelector(cfg.Theming),
		log:   logging.GeneratorLogger(deps.Logger),
		now:   time.Now,
	}
}

// NewDisabledService returns a Service that fails all operations with
// ErrServiceDisabled.
func NewDisabledService() Service {
	return disabledService{}
}

type service struct {
	cfg   Config
	deps  Dependencies
	theme *themeSelector
	log   interfaces.Logger
	now   func() time.Time
}

type disabledService struct{}

func (s *service) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.deps.Renderer == nil {
		return nil, errRendererRequired
	}

	start := time.Now()
	buildCtx, err := s.loadContext(ctx, opts)
	if err != nil {
		return nil, err
	}

	selection, err := s.theme.Selection()
	if err != nil {
		return nil, err
	}
	themeCtx := buildThemeContext(selection, s.cfg.Theming)
	siteMeta := s.siteMetadata(buildCtx)

	result := &BuildResult{DryRun: opts.DryRun}

	var (
		mu          sync.Mutex
		rendered    = make([]RenderedPost, 0, len(buildCtx.Posts))
		errorsSlice []error
		baseDir     = strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")
		postKeys    = map[string]struct{}{}
	)

	manifest, manifestErr := s.loadManifest(ctx)
	if manifestErr != nil {
		errorsSlice = append(errorsSlice, manifestErr)
	}
	if manifest == nil || (s.cfg.CleanBuild && !opts.DryRun) {
		manifest = newBuildManifest()
	}

	for _, data := range buildCtx.Posts {
		postKeys[manifest.postKey(data.Post.FilePath)] = struct{}{}
	}

	collect := func(outcome renderOutcome) {
		mu.Lock()
		defer mu.Unlock()
		if outcome.err != nil {
			errorsSlice = append(errorsSlice, outcome.err)
			return
		}
		if outcome.skipped {
			result.PostsSkipped++
			return
		}
		result.PostsBuilt++
		rendered = append(rendered, outcome.post)
	}

	workerCount := s.effectiveWorkerCount(len(buildCtx.Posts))
	if workerCount <= 1 || len(buildCtx.Posts) <= 1 {
		for _, data := range buildCtx.Posts {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			default:
				collect(s.renderPost(siteMeta, buildCtx, data, themeCtx, manifest, baseDir))
			}
		}
	} else if err := s.renderConcurrently(ctx, siteMeta, buildCtx, themeCtx, workerCount, manifest, baseDir, collect); err != nil {
		errorsSlice = append(errorsSlice, err)
	}

	// Rendered order follows worker completion; restore source order so
	// persisted writes and manifest updates stay deterministic.
	sortRenderedByPath(rendered)

	indexCtx := s.indexContext(siteMeta, buildCtx, themeCtx)
	result.IndexEntries = len(indexCtx.Posts)

	if opts.DryRun {
		result.Rendered = rendered
		result.Duration = time.Since(start)
		return s.finishBuild(result, errorsSlice)
	}

	writer := newArtifactWriter(s.deps.Storage)
	dirCache := map[string]struct{}{}

	if s.cfg.CleanBuild && baseDir != "" {
		if err := writer.Remove(ctx, baseDir); err != nil {
			errorsSlice = append(errorsSlice, fmt.Errorf("generator: clean output dir: %w", err))
		}
	}
	if baseDir != "" {
		if err := ensureDir(ctx, writer, dirCache, baseDir); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	if err := s.persistPosts(ctx, writer, dirCache, rendered); err != nil {
		errorsSlice = append(errorsSlice, err)
	}

	if err := s.writeIndex(ctx, writer, dirCache, baseDir, buildCtx, indexCtx); err != nil {
		errorsSlice = append(errorsSlice, err)
	}

	assets, err := s.copyThemeAssets(ctx, writer, manifest, selection, dirCache)
	if err != nil {
		errorsSlice = append(errorsSlice, err)
	} else {
		result.AssetsBuilt += assets.copied
		result.AssetsSkipped += assets.skipped
	}

	feedItems := s.buildFeedItems(buildCtx)
	feedsWritten, err := s.writeFeeds(ctx, writer, siteMeta, buildCtx, feedItems)
	result.FeedsBuilt = feedsWritten
	if err != nil {
		errorsSlice = append(errorsSlice, err)
	}

	if s.cfg.GenerateSitemap {
		if err := s.writeSitemap(ctx, writer, dirCache, baseDir, buildCtx); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}
	if s.cfg.GenerateRobots {
		if err := s.writeRobots(ctx, writer, dirCache, baseDir, buildCtx); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	if len(errorsSlice) == 0 {
		manifest.GeneratedAt = buildCtx.GeneratedAt
		for _, post := range rendered {
			manifest.setPost(manifestPost{
				Path:         post.Path,
				Slug:         post.Slug,
				Route:        post.Route,
				Output:       post.Output,
				Checksum:     post.Hash,
				LastModified: lastModifiedFor(buildCtx, post.Path),
				RenderedAt:   buildCtx.GeneratedAt,
			})
		}
		manifest.prunePosts(postKeys)
		if err := s.persistManifest(ctx, writer, manifest); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	result.Rendered = rendered
	result.Duration = time.Since(start)

	s.log.Info("build finished: %d post(s) built, %d skipped, %d index entr(ies), %d asset(s)",
		result.PostsBuilt, result.PostsSkipped, result.IndexEntries, result.AssetsBuilt)

	return s.finishBuild(result, errorsSlice)
}

func (s *service) finishBuild(result *BuildResult, errorsSlice []error) (*BuildResult, error) {
	if len(errorsSlice) > 0 {
		result.Errors = append(result.Errors, errorsSlice...)
		return result, errors.Join(errorsSlice...)
	}
	return result, nil
}

func (s *service) renderConcurrently(
	ctx context.Context,
	siteMeta SiteMetadata,
	buildCtx *BuildContext,
	themeCtx ThemeContext,
	workers int,
	manifest *buildManifest,
	baseDir string,
	collect func(renderOutcome),
) error {
	jobs := make(chan *PostData)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for data := range jobs {
				select {
				case <-ctx.Done():
					collect(renderOutcome{err: ctx.Err()})
					return
				default:
					collect(s.renderPost(siteMeta, buildCtx, data, themeCtx, manifest, baseDir))
				}
			}
		}()
	}

	for _, data := range buildCtx.Posts {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- data:
		}
	}
	close(jobs)
	wg.Wait()
	return nil
}

func (s *service) renderPost(
	siteMeta SiteMetadata,
	buildCtx *BuildContext,
	data *PostData,
	themeCtx ThemeContext,
	manifest *buildManifest,
	baseDir string,
) renderOutcome {
	expectedOutput := joinOutputPath(baseDir, data.Output)
	if s.cfg.Incremental && !buildCtx.Options.Force && manifest != nil {
		if manifest.shouldSkipPost(data.Post.FilePath, data.Hash, expectedOutput) {
			return renderOutcome{skipped: true}
		}
	}

	templateCtx := s.postContext(siteMeta, buildCtx, data, themeCtx)

	start := time.Now()
	html, err := s.deps.Renderer.RenderTemplate(render.PostTemplate, templateCtx)
	duration := time.Since(start)
	if err != nil {
		return renderOutcome{err: fmt.Errorf("generator: render post %s: %w", data.Post.FilePath, err)}
	}

	return renderOutcome{post: RenderedPost{
		Path:     data.Post.FilePath,
		Slug:     data.Post.Slug,
		Route:    data.Route,
		Output:   expectedOutput,
		HTML:     html,
		Hash:     data.Hash,
		Checksum: computeHashFromString(html),
		Duration: duration,
	}}
}

func (s *service) persistPosts(
	ctx context.Context,
	writer artifactWriter,
	dirCache map[string]struct{},
	posts []RenderedPost,
) error {
	for i := range posts {
		if err := ensureDir(ctx, writer, dirCache, path.Dir(posts[i].Output)); err != nil {
			return err
		}
		metadata := map[string]string{
			"post_path": posts[i].Path,
			"slug":      posts[i].Slug,
			"route":     posts[i].Route,
		}
		if s.cfg.Incremental {
			metadata["incremental"] = "true"
		}
		if err := writer.WriteFile(ctx, writeFileRequest{
			Path:        posts[i].Output,
			Content:     strings.NewReader(posts[i].HTML),
			Size:        int64(len(posts[i].HTML)),
			Category:    categoryPage,
			ContentType: "text/html; charset=utf-8",
			Checksum:    posts[i].Checksum,
			Metadata:    metadata,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) writeIndex(
	ctx context.Context,
	writer artifactWriter,
	dirCache map[string]struct{},
	baseDir string,
	buildCtx *BuildContext,
	indexCtx IndexContext,
) error {
	html, err := s.deps.Renderer.RenderTemplate(render.IndexTemplate, indexCtx)
	if err != nil {
		return fmt.Errorf("generator: render index: %w", err)
	}

	target := joinOutputPath(baseDir, s.indexRelPath())
	if err := ensureDir(ctx, writer, dirCache, path.Dir(target)); err != nil {
		return err
	}
	return writer.WriteFile(ctx, writeFileRequest{
		Path:        target,
		Content:     strings.NewReader(html),
		Size:        int64(len(html)),
		Category:    categoryIndex,
		ContentType: "text/html; charset=utf-8",
		Checksum:    computeHashFromString(html),
		Metadata: map[string]string{
			"entries":      strconv.Itoa(len(indexCtx.Posts)),
			"generated_at": buildCtx.GeneratedAt.UTC().Format(time.RFC3339),
		},
	})
}

func (s *service) indexRelPath() string {
	if s.deps.Permalinks != nil {
		if rel, err := s.deps.Permalinks.IndexPath(); err == nil && strings.TrimSpace(rel) != "" {
			return strings.TrimLeft(rel, "/")
		}
	}
	return "index.html"
}

func (s *service) IndexTargetPath() string {
	baseDir := strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")
	return joinOutputPath(baseDir, s.indexRelPath())
}

func (s *service) writeSitemap(
	ctx context.Context,
	writer artifactWriter,
	dirCache map[string]struct{},
	baseDir string,
	buildCtx *BuildContext,
) error {
	content := buildSitemap(s.cfg.BaseURL, buildCtx)
	target := joinOutputPath(baseDir, "sitemap.xml")
	if err := ensureDir(ctx, writer, dirCache, path.Dir(target)); err != nil {
		return err
	}
	return writer.WriteFile(ctx, writeFileRequest{
		Path:        target,
		Content:     strings.NewReader(content),
		Size:        int64(len(content)),
		Category:    categorySitemap,
		ContentType: "application/xml",
		Checksum:    computeHashFromString(content),
		Metadata: map[string]string{
			"generated_at": buildCtx.GeneratedAt.UTC().Format(time.RFC3339),
		},
	})
}

func (s *service) writeRobots(
	ctx context.Context,
	writer artifactWriter,
	dirCache map[string]struct{},
	baseDir string,
	buildCtx *BuildContext,
) error {
	content := buildRobots(s.cfg.BaseURL, s.cfg.GenerateSitemap)
	target := joinOutputPath(baseDir, "robots.txt")
	if err := ensureDir(ctx, writer, dirCache, path.Dir(target)); err != nil {
		return err
	}
	return writer.WriteFile(ctx, writeFileRequest{
		Path:        target,
		Content:     strings.NewReader(content),
		Size:        int64(len(content)),
		Category:    categoryRobots,
		ContentType: "text/plain; charset=utf-8",
		Checksum:    computeHashFromString(content),
		Metadata: map[string]string{
			"generated_at": buildCtx.GeneratedAt.UTC().Format(time.RFC3339),
		},
	})
}

func (s *service) loadManifest(ctx context.Context) (*buildManifest, error) {
	if s.deps.Storage == nil {
		return newBuildManifest(), nil
	}
	target := s.manifestTargetPath()
	rows, err := s.deps.Storage.Query(ctx, storageOpRead, target)
	if err != nil {
		return nil, fmt.Errorf("generator: read manifest: %w", err)
	}
	if rows == nil {
		return newBuildManifest(), nil
	}
	defer rows.Close()
	if !rows.Next() {
		return newBuildManifest(), nil
	}
	var data []byte
	if err := rows.Scan(&data); err != nil {
		return nil, fmt.Errorf("generator: scan manifest: %w", err)
	}
	return parseManifest(data)
}

func (s *service) manifestTargetPath() string {
	base := strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")
	return joinOutputPath(base, manifestFileName)
}

func (s *service) persistManifest(ctx context.Context, writer artifactWriter, manifest *buildManifest) error {
	if manifest == nil {
		return nil
	}
	data, err := manifest.marshal()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	target := s.manifestTargetPath()
	if err := ensureDir(ctx, writer, map[string]struct{}{}, path.Dir(target)); err != nil {
		return err
	}
	metadata := map[string]string{
		"version": strconv.Itoa(manifest.Version),
	}
	if !manifest.GeneratedAt.IsZero() {
		metadata["generated_at"] = manifest.GeneratedAt.UTC().Format(time.RFC3339)
	}
	return writer.WriteFile(ctx, writeFileRequest{
		Path:        target,
		Content:     bytes.NewReader(data),
		Size:        int64(len(data)),
		Category:    categoryManifest,
		ContentType: "application/json",
		Checksum:    computeHash(data),
		Metadata:    metadata,
	})
}

func (s *service) Clean(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	writer := newArtifactWriter(s.deps.Storage)
	baseDir := strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")
	if baseDir == "" {
		return errors.New("generator: refusing to clean empty output dir")
	}
	return writer.Remove(ctx, baseDir)
}

func (s *service) effectiveWorkerCount(postCount int) int {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	if postCount > 0 && workers > postCount {
		return postCount
	}
	return workers
}

func lastModifiedFor(buildCtx *BuildContext, postPath string) time.Time {
	for _, data := range buildCtx.Posts {
		if data.Post.FilePath == postPath {
			return data.Post.LastModified
		}
	}
	return time.Time{}
}

func sortRenderedByPath(posts []RenderedPost) {
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].Path < posts[j].Path
	})
}

func ensureDir(ctx context.Context, writer artifactWriter, cache map[string]struct{}, dir string) error {
	dir = strings.Trim(dir, " ")
	if dir == "" || dir == "." {
		return nil
	}
	if cache != nil {
		if _, ok := cache[dir]; ok {
			return nil
		}
		cache[dir] = struct{}{}
	}
	return writer.EnsureDir(ctx, dir)
}

func computeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func computeHashFromString(content string) string {
	return computeHash([]byte(content))
}

func (disabledService) Build(context.Context, BuildOptions) (*BuildResult, error) {
	return nil, ErrServiceDisabled
}

func (disabledService) Clean(context.Context) error {
	return ErrServiceDisabled
}

func (disabledService) IndexTargetPath() string {
	return ""
}
