// Package storage defines the artifact storage contract the generator writes
// through. Providers receive namespaced operations (ensure_dir, write, read,
// remove) so outputs can target the local filesystem today and object stores
// later without touching the build pipeline.
package storage

import "context"

// Provider executes storage operations on behalf of the generator.
type Provider interface {
	Exec(ctx context.Context, op string, args ...any) (Result, error)
	Query(ctx context.Context, op string, args ...any) (Rows, error)
}

// Rows iterates over the results of a Query operation.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

// Result reports the outcome of an Exec operation.
type Result interface {
	RowsAffected() (int64, error)
}
