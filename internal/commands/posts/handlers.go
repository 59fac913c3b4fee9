package postscmd

import (
	"context"

	command "github.com/goliatone/go-command"
	"github.com/thelyad/postpress/internal/commands"
	"github.com/thelyad/postpress/internal/generator"
	"github.com/thelyad/postpress/internal/logging"
	"github.com/thelyad/postpress/internal/registry"
	"github.com/thelyad/postpress/pkg/interfaces"
)

const (
	buildOperation = "posts.build_site"
	syncOperation  = "posts.sync_registry"
	cleanOperation = "posts.clean_site"
)

var (
	_ command.Commander[BuildSiteCommand] = (*BuildSiteHandler)(nil)
	_ command.Commander[SyncPostsCommand] = (*SyncPostsHandler)(nil)
	_ command.Commander[CleanSiteCommand] = (*CleanSiteHandler)(nil)
)

// BuildResultSink receives the build summary so callers can surface it, e.g.
// in CLI completion output.
type BuildResultSink func(*generator.BuildResult)

// SyncResultSink receives the registry reconciliation summary.
type SyncResultSink func(*registry.SyncResult)

// BuildSiteHandler orchestrates static builds via the shared command handler
// foundation.
type BuildSiteHandler struct {
	inner *commands.Handler[BuildSiteCommand]
}

// NewBuildSiteHandler creates a handler bound to the supplied generator service.
func NewBuildSiteHandler(service generator.Service, logger interfaces.Logger, sink BuildResultSink, opts ...commands.HandlerOption[BuildSiteCommand]) *BuildSiteHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, msg BuildSiteCommand) error {
		result, err := service.Build(ctx, generator.BuildOptions{
			DryRun: msg.DryRun,
			Force:  msg.Force,
		})
		if err != nil {
			return err
		}
		if result != nil {
			logging.WithFields(baseLogger, map[string]any{
				"posts_built":   result.PostsBuilt,
				"posts_skipped": result.PostsSkipped,
				"index_entries": result.IndexEntries,
				"feeds_built":   result.FeedsBuilt,
				"assets_built":  result.AssetsBuilt,
				"dry_run":       msg.DryRun,
			}).Info("posts.command.build_site.completed")
			if sink != nil {
				sink(result)
			}
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[BuildSiteCommand]{
		commands.WithLogger[BuildSiteCommand](baseLogger),
		commands.WithOperation[BuildSiteCommand](buildOperation),
		commands.WithMessageFields(func(msg BuildSiteCommand) map[string]any {
			fields := map[string]any{}
			if msg.DryRun {
				fields["dry_run"] = true
			}
			if msg.Force {
				fields["force"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[BuildSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &BuildSiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[BuildSiteCommand].
func (h *BuildSiteHandler) Execute(ctx context.Context, msg BuildSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// SyncPostsHandler loads posts from disk and reconciles the registry database.
type SyncPostsHandler struct {
	inner *commands.Handler[SyncPostsCommand]
}

// NewSyncPostsHandler creates a handler bound to the supplied post and
// registry services.
func NewSyncPostsHandler(posts interfaces.PostService, reg registry.Service, logger interfaces.Logger, sink SyncResultSink, opts ...commands.HandlerOption[SyncPostsCommand]) *SyncPostsHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, msg SyncPostsCommand) error {
		loaded, err := posts.LoadDirectory(ctx, msg.Directory, interfaces.LoadOptions{})
		if err != nil {
			return err
		}
		result, err := reg.Sync(ctx, loaded)
		if err != nil {
			return err
		}
		if result != nil {
			logging.WithFields(baseLogger, map[string]any{
				"created_count": len(result.Created),
				"updated_count": len(result.Updated),
				"deleted_count": len(result.Deleted),
				"skipped_count": len(result.Skipped),
			}).Info("posts.command.sync_registry.completed")
			if sink != nil {
				sink(result)
			}
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[SyncPostsCommand]{
		commands.WithLogger[SyncPostsCommand](baseLogger),
		commands.WithOperation[SyncPostsCommand](syncOperation),
		commands.WithMessageFields(func(msg SyncPostsCommand) map[string]any {
			return map[string]any{
				"directory": msg.Directory,
			}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[SyncPostsCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &SyncPostsHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[SyncPostsCommand].
func (h *SyncPostsHandler) Execute(ctx context.Context, msg SyncPostsCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CleanSiteHandler removes generated output through the generator service.
type CleanSiteHandler struct {
	inner *commands.Handler[CleanSiteCommand]
}

// NewCleanSiteHandler creates a handler bound to the supplied generator service.
func NewCleanSiteHandler(service generator.Service, logger interfaces.Logger, opts ...commands.HandlerOption[CleanSiteCommand]) *CleanSiteHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, _ CleanSiteCommand) error {
		return service.Clean(ctx)
	}

	handlerOpts := []commands.HandlerOption[CleanSiteCommand]{
		commands.WithLogger[CleanSiteCommand](baseLogger),
		commands.WithOperation[CleanSiteCommand](cleanOperation),
		commands.WithTelemetry(commands.DefaultTelemetry[CleanSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &CleanSiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[CleanSiteCommand].
func (h *CleanSiteHandler) Execute(ctx context.Context, msg CleanSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}
