// Command postgen compiles Markdown posts into standalone HTML pages and
// regenerates the listing index, feeds, and theme assets.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/thelyad/postpress/cmd/postgen/internal/bootstrap"
	"github.com/thelyad/postpress/internal/commands"
	postscmd "github.com/thelyad/postpress/internal/commands/posts"
	"github.com/thelyad/postpress/internal/generator"
	"github.com/thelyad/postpress/internal/registry"
)

var (
	moduleBuilder  = bootstrap.BuildModule
	executablePath = os.Executable
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("postgen: %v", err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("postgen", flag.ContinueOnError)
	configPath := fs.String("config", "postpress.yaml", "Path to the site configuration file")
	workDir := fs.String("work-dir", "", "Directory every relative path resolves against (defaults to the current directory)")
	contentDir := fs.String("content-dir", "", "Override the Markdown content directory")
	outputDir := fs.String("output-dir", "", "Override the artifact output directory")
	baseURL := fs.String("base-url", "", "Override the site base URL")
	logLevel := fs.String("log-level", "", "Override the log level (trace, debug, info, warn, error, fatal)")
	logFormat := fs.String("log-format", "", "Override the log format (console, json, pretty)")
	dryRun := fs.Bool("dry-run", false, "Render everything without writing artifacts")
	force := fs.Bool("force", false, "Re-render posts the build manifest marks as current")
	incremental := fs.Bool("incremental", false, "Skip posts whose sources are unchanged since the last build")
	clean := fs.Bool("clean", false, "Remove previous output before building")
	cleanOnly := fs.Bool("clean-only", false, "Remove generated output and exit")
	includeDrafts := fs.Bool("include-drafts", false, "Publish posts marked draft in their frontmatter")

	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := bootstrap.Options{
		ConfigPath: *configPath,
		WorkDir:    resolveWorkDir(*workDir),
		ContentDir: *contentDir,
		OutputDir:  *outputDir,
		BaseURL:    *baseURL,
		LogLevel:   *logLevel,
		LogFormat:  *logFormat,
	}
	// Boolean flags only override the config when set on the command line.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "incremental":
			opts.Incremental = incremental
		case "clean":
			opts.CleanBuild = clean
		case "include-drafts":
			opts.IncludeDrafts = includeDrafts
		}
	})

	module, err := moduleBuilder(opts)
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	defer module.Registry.Close()

	ctx := context.Background()
	logger := commands.CommandLogger(module.Provider, "posts")

	if *cleanOnly {
		handler := postscmd.NewCleanSiteHandler(module.Generator, logger)
		if err := handler.Execute(ctx, postscmd.CleanSiteCommand{}); err != nil {
			return fmt.Errorf("execute clean command: %w", err)
		}
		fmt.Fprintf(stdout, "Removed %s\n", module.Config.Output.Dir)
		return nil
	}

	var buildResult *generator.BuildResult
	buildHandler := postscmd.NewBuildSiteHandler(module.Generator, logger, func(result *generator.BuildResult) {
		buildResult = result
	}, commands.WithTimeout[postscmd.BuildSiteCommand](0))

	cmd := postscmd.BuildSiteCommand{
		DryRun: *dryRun,
		Force:  *force,
	}
	if err := buildHandler.Execute(ctx, cmd); err != nil {
		return fmt.Errorf("execute build command: %w", err)
	}

	if module.Config.Registry.Enabled && !*dryRun {
		var syncResult *registry.SyncResult
		syncHandler := postscmd.NewSyncPostsHandler(module.Posts, module.Registry, logger, func(result *registry.SyncResult) {
			syncResult = result
		})
		if err := syncHandler.Execute(ctx, postscmd.SyncPostsCommand{Directory: "."}); err != nil {
			return fmt.Errorf("execute registry sync command: %w", err)
		}
		if syncResult != nil {
			fmt.Fprintf(stdout, "Registry sync: %d created, %d updated, %d deleted, %d unchanged\n",
				len(syncResult.Created), len(syncResult.Updated), len(syncResult.Deleted), len(syncResult.Skipped))
		}
	}

	compiled := 0
	entries := 0
	if buildResult != nil {
		compiled = buildResult.PostsBuilt + buildResult.PostsSkipped
		entries = buildResult.IndexEntries
	}
	fmt.Fprintf(stdout, "Compiled %d markdown file(s). Wrote %s with %d entr(ies)\n", compiled, module.IndexPath, entries)

	return nil
}

// resolveWorkDir defaults the work directory to the parent of the directory
// holding the postgen binary, so a helper installed under <site>/scripts runs
// against <site> no matter where it is invoked from. An explicit -work-dir
// wins.
func resolveWorkDir(flagValue string) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}

	exe, err := executablePath()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(filepath.Dir(exe))
}
