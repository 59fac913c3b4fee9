package registry

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewPostRepository creates a repository for registry post records. The
// secondary identifier is the content-relative path, which is unique per post.
func NewPostRepository(db *bun.DB) repository.Repository[*PostRecord] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*PostRecord]{
		NewRecord: func() *PostRecord { return &PostRecord{} },
		GetID: func(r *PostRecord) uuid.UUID {
			return r.ID
		},
		SetID: func(r *PostRecord, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "path"
		},
		GetIdentifierValue: func(r *PostRecord) string {
			return r.Path
		},
	})
}
