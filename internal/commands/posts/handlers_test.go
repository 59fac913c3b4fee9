package postscmd

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/thelyad/postpress/internal/generator"
	"github.com/thelyad/postpress/internal/registry"
	"github.com/thelyad/postpress/pkg/interfaces"
)

type stubGeneratorService struct {
	buildCalls  []generator.BuildOptions
	cleanCalls  int
	buildResult *generator.BuildResult
	buildErr    error
	cleanErr    error
}

func (s *stubGeneratorService) Build(_ context.Context, opts generator.BuildOptions) (*generator.BuildResult, error) {
	s.buildCalls = append(s.buildCalls, opts)
	if s.buildErr != nil {
		return nil, s.buildErr
	}
	return s.buildResult, nil
}

func (s *stubGeneratorService) Clean(context.Context) error {
	s.cleanCalls++
	return s.cleanErr
}

func (s *stubGeneratorService) IndexTargetPath() string {
	return "posts/index.html"
}

type stubRegistryService struct {
	syncCalls  [][]*interfaces.Post
	syncResult *registry.SyncResult
	syncErr    error
}

func (s *stubRegistryService) Sync(_ context.Context, posts []*interfaces.Post) (*registry.SyncResult, error) {
	s.syncCalls = append(s.syncCalls, posts)
	if s.syncErr != nil {
		return nil, s.syncErr
	}
	return s.syncResult, nil
}

func (s *stubRegistryService) Get(context.Context, string) (*registry.PostRecord, error) {
	return nil, nil
}

func (s *stubRegistryService) List(context.Context) ([]*registry.PostRecord, error) {
	return nil, nil
}

func (s *stubRegistryService) Close() error { return nil }

type stubLoaderService struct {
	posts   []*interfaces.Post
	loadErr error
	dirs    []string
}

func (s *stubLoaderService) Load(context.Context, string, interfaces.LoadOptions) (*interfaces.Post, error) {
	return nil, nil
}

func (s *stubLoaderService) LoadDirectory(_ context.Context, dir string, _ interfaces.LoadOptions) ([]*interfaces.Post, error) {
	s.dirs = append(s.dirs, dir)
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.posts, nil
}

func (s *stubLoaderService) Render(_ context.Context, markdown []byte, _ interfaces.ParseOptions) ([]byte, error) {
	return markdown, nil
}

func (s *stubLoaderService) RenderPost(_ context.Context, post *interfaces.Post, _ interfaces.ParseOptions) ([]byte, error) {
	return post.BodyHTML, nil
}

func TestBuildSiteHandlerInvokesService(t *testing.T) {
	service := &stubGeneratorService{
		buildResult: &generator.BuildResult{PostsBuilt: 3, IndexEntries: 3},
	}

	var sunk *generator.BuildResult
	handler := NewBuildSiteHandler(service, nil, func(result *generator.BuildResult) {
		sunk = result
	})

	if err := handler.Execute(context.Background(), BuildSiteCommand{Force: true}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(service.buildCalls) != 1 {
		t.Fatalf("expected one build call, got %d", len(service.buildCalls))
	}
	if !service.buildCalls[0].Force {
		t.Fatalf("expected force flag forwarded")
	}
	if sunk == nil || sunk.PostsBuilt != 3 {
		t.Fatalf("expected sink to receive result, got %+v", sunk)
	}
}

func TestBuildSiteHandlerWrapsFailures(t *testing.T) {
	service := &stubGeneratorService{buildErr: errors.New("boom")}
	handler := NewBuildSiteHandler(service, nil, nil)

	err := handler.Execute(context.Background(), BuildSiteCommand{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category error, got %v", err)
	}
}

func TestSyncPostsHandlerLoadsAndSyncs(t *testing.T) {
	loader := &stubLoaderService{
		posts: []*interfaces.Post{{FilePath: "a.md", Slug: "a"}},
	}
	reg := &stubRegistryService{
		syncResult: &registry.SyncResult{Created: []string{"a.md"}},
	}

	var sunk *registry.SyncResult
	handler := NewSyncPostsHandler(loader, reg, nil, func(result *registry.SyncResult) {
		sunk = result
	})

	if err := handler.Execute(context.Background(), SyncPostsCommand{Directory: "."}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(loader.dirs) != 1 || loader.dirs[0] != "." {
		t.Fatalf("expected load from %q, got %v", ".", loader.dirs)
	}
	if len(reg.syncCalls) != 1 || len(reg.syncCalls[0]) != 1 {
		t.Fatalf("expected one sync call with one post, got %v", reg.syncCalls)
	}
	if sunk == nil || len(sunk.Created) != 1 {
		t.Fatalf("expected sink to receive sync result, got %+v", sunk)
	}
}

func TestSyncPostsHandlerRequiresDirectory(t *testing.T) {
	handler := NewSyncPostsHandler(&stubLoaderService{}, &stubRegistryService{}, nil, nil)

	err := handler.Execute(context.Background(), SyncPostsCommand{})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
}

func TestCleanSiteHandlerInvokesService(t *testing.T) {
	service := &stubGeneratorService{}
	handler := NewCleanSiteHandler(service, nil)

	if err := handler.Execute(context.Background(), CleanSiteCommand{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if service.cleanCalls != 1 {
		t.Fatalf("expected one clean call, got %d", service.cleanCalls)
	}
}
