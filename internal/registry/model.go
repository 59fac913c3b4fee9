package registry

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PostRecord tracks a published post in the SQLite registry. Records are keyed
// by the deterministic post UUID so repeated syncs of the same file converge.
type PostRecord struct {
	bun.BaseModel `bun:"table:posts,alias:p"`

	ID          uuid.UUID  `bun:",pk,type:uuid" json:"id"`
	Path        string     `bun:"path,notnull,unique" json:"path"`
	Slug        string     `bun:"slug,notnull" json:"slug"`
	Title       string     `bun:"title" json:"title,omitempty"`
	Author      string     `bun:"author" json:"author,omitempty"`
	Checksum    string     `bun:"checksum,notnull" json:"checksum"`
	PublishedAt *time.Time `bun:"published_at,nullzero" json:"published_at,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}
