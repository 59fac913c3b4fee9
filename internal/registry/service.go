// Package registry maintains the SQLite catalogue of published posts. Each
// sync reconciles the loaded posts against stored records so the database
// reflects exactly what the generator last published.
package registry

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/thelyad/postpress/internal/identity"
	"github.com/thelyad/postpress/internal/logging"
	"github.com/thelyad/postpress/pkg/interfaces"
)

// Service reconciles loaded posts with the registry database.
type Service interface {
	Sync(ctx context.Context, posts []*interfaces.Post) (*SyncResult, error)
	Get(ctx context.Context, path string) (*PostRecord, error)
	List(ctx context.Context) ([]*PostRecord, error)
	Close() error
}

// SyncResult summarises one reconciliation pass. Paths are sorted so output
// and logs stay deterministic.
type SyncResult struct {
	Created []string
	Updated []string
	Deleted []string
	Skipped []string
}

// Total returns the number of posts considered during the sync.
func (r *SyncResult) Total() int {
	if r == nil {
		return 0
	}
	return len(r.Created) + len(r.Updated) + len(r.Deleted) + len(r.Skipped)
}

// Config wires the registry service.
type Config struct {
	// Path is the SQLite database location. Required unless a DB is injected.
	Path string
}

// Dependencies carries optional collaborators for the registry service.
type Dependencies struct {
	// DB lets callers supply an existing bun.DB (tests, shared connections).
	// When nil the service opens its own connection from Config.Path.
	DB     *bun.DB
	Logger interfaces.LoggerProvider
}

type service struct {
	db     *bun.DB
	repo   repository.Repository[*PostRecord]
	logger interfaces.Logger
	ownsDB bool
}

// NewService opens (or adopts) the registry database and prepares the schema.
func NewService(cfg Config, deps Dependencies) (Service, error) {
	logger := logging.RegistryLogger(deps.Logger)

	db := deps.DB
	ownsDB := false
	if db == nil {
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("registry: database path is required")
		}
		sqldb, err := sql.Open("sqlite3", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("registry: open %s: %w", cfg.Path, err)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
		ownsDB = true
	}

	svc := &service{
		db:     db,
		repo:   NewPostRepository(db),
		logger: logger,
		ownsDB: ownsDB,
	}

	if err := svc.ensureSchema(context.Background()); err != nil {
		if ownsDB {
			db.Close()
		}
		return nil, err
	}
	return svc, nil
}

// NewDisabledService returns a registry that records nothing. Callers can wire
// it unconditionally and let configuration decide whether syncs persist.
func NewDisabledService() Service {
	return disabledService{}
}

func (s *service) ensureSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*PostRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("registry: create schema: %w", err)
	}
	return nil
}

func (s *service) Sync(ctx context.Context, posts []*interfaces.Post) (*SyncResult, error) {
	existing, _, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: list records: %w", err)
	}

	byPath := make(map[string]*PostRecord, len(existing))
	for _, record := range existing {
		byPath[record.Path] = record
	}

	result := &SyncResult{}
	now := time.Now().UTC()

	for _, post := range posts {
		if post == nil {
			continue
		}
		checksum := hex.EncodeToString(post.Checksum)
		record, ok := byPath[post.FilePath]
		if !ok {
			created := recordFromPost(post, checksum, now)
			if _, err := s.repo.Create(ctx, created); err != nil {
				return nil, fmt.Errorf("registry: create %s: %w", post.FilePath, err)
			}
			result.Created = append(result.Created, post.FilePath)
			logging.WithPostContext(s.logger, post.FilePath, post.Slug, "created").Debug("registry record created")
			continue
		}

		delete(byPath, post.FilePath)

		if record.Checksum == checksum && record.Slug == post.Slug {
			result.Skipped = append(result.Skipped, post.FilePath)
			continue
		}

		record.Slug = post.Slug
		record.Title = post.FrontMatter.Title
		record.Author = post.FrontMatter.Author
		record.Checksum = checksum
		record.PublishedAt = publishedAt(post)
		record.UpdatedAt = now
		if _, err := s.repo.Update(ctx, record); err != nil {
			return nil, fmt.Errorf("registry: update %s: %w", post.FilePath, err)
		}
		result.Updated = append(result.Updated, post.FilePath)
		logging.WithPostContext(s.logger, post.FilePath, post.Slug, "updated").Debug("registry record updated")
	}

	// Whatever is left in the map no longer exists on disk.
	for path, record := range byPath {
		if err := s.repo.Delete(ctx, record); err != nil {
			return nil, fmt.Errorf("registry: delete %s: %w", path, err)
		}
		result.Deleted = append(result.Deleted, path)
		logging.WithPostContext(s.logger, path, record.Slug, "deleted").Debug("registry record deleted")
	}

	sort.Strings(result.Created)
	sort.Strings(result.Updated)
	sort.Strings(result.Deleted)
	sort.Strings(result.Skipped)

	s.logger.Info("registry sync complete",
		"created", len(result.Created),
		"updated", len(result.Updated),
		"deleted", len(result.Deleted),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

func (s *service) Get(ctx context.Context, path string) (*PostRecord, error) {
	record, err := s.repo.GetByIdentifier(ctx, path)
	if err != nil {
		return nil, mapRepositoryError(err, "post", path)
	}
	return record, nil
}

func (s *service) List(ctx context.Context) ([]*PostRecord, error) {
	records, _, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: list records: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Path < records[j].Path
	})
	return records, nil
}

func (s *service) Close() error {
	if !s.ownsDB || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func recordFromPost(post *interfaces.Post, checksum string, now time.Time) *PostRecord {
	return &PostRecord{
		ID:          identity.PostUUID(post.FilePath),
		Path:        post.FilePath,
		Slug:        post.Slug,
		Title:       post.FrontMatter.Title,
		Author:      post.FrontMatter.Author,
		Checksum:    checksum,
		PublishedAt: publishedAt(post),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func publishedAt(post *interfaces.Post) *time.Time {
	if post.FrontMatter.Date.IsZero() {
		return nil
	}
	date := post.FrontMatter.Date
	return &date
}

type disabledService struct{}

func (disabledService) Sync(context.Context, []*interfaces.Post) (*SyncResult, error) {
	return &SyncResult{}, nil
}

func (disabledService) Get(_ context.Context, path string) (*PostRecord, error) {
	return nil, &NotFoundError{Resource: "post", Key: path}
}

func (disabledService) List(context.Context) ([]*PostRecord, error) {
	return nil, nil
}

func (disabledService) Close() error { return nil }
