package postscmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	buildSiteMessageType = "postpress.posts.build_site"
	syncPostsMessageType = "postpress.posts.sync_registry"
	cleanSiteMessageType = "postpress.posts.clean_site"
)

// BuildSiteCommand triggers a full static build: posts, index, feeds, and
// theme assets.
type BuildSiteCommand struct {
	// DryRun renders everything without writing artifacts.
	DryRun bool `json:"dry_run,omitempty"`
	// Force re-renders posts the build manifest marks as current.
	Force bool `json:"force,omitempty"`
}

// Type implements command.Message.
func (BuildSiteCommand) Type() string { return buildSiteMessageType }

// Validate implements command.Message validation; the build command carries
// only optional toggles.
func (cmd BuildSiteCommand) Validate() error {
	return validation.ValidateStruct(&cmd)
}

// SyncPostsCommand reconciles the post registry database with the Markdown
// files under Directory.
type SyncPostsCommand struct {
	// Directory selects the content path (relative to the configured base) to load posts from.
	Directory string `json:"directory"`
}

// Type implements command.Message.
func (SyncPostsCommand) Type() string { return syncPostsMessageType }

// Validate ensures directory input is present before handlers execute.
func (cmd SyncPostsCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Directory, validation.Required, validation.By(func(value any) error {
			if strings.TrimSpace(value.(string)) == "" {
				return validation.NewError("postpress.posts.sync_registry.directory_required", "directory is required")
			}
			return nil
		})),
	)
}

// CleanSiteCommand removes the generated output directory.
type CleanSiteCommand struct{}

// Type implements command.Message.
func (CleanSiteCommand) Type() string { return cleanSiteMessageType }

// Validate implements command.Message validation.
func (cmd CleanSiteCommand) Validate() error {
	return validation.ValidateStruct(&cmd)
}
