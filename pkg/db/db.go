// Package db defines the storage contract of the ensemble database: a
// small document store with typed equality queries, partial updates and
// an atomic counter, implemented over SQLite and PostgreSQL. The
// repositories in pkg/domain speak only this interface; which engine
// backs it is decided by the connection URI at startup.
package db

import "context"

// Collections. Each maps to one table in the engine.
const (
	Ensembles     = "ensembles"
	Operations    = "operations"
	DefaultParams = "default_params"
)

// Query matches documents whose listed top-level fields equal the given
// values. Values must be JSON scalars (string, int64, float64, bool).
// An empty Query matches everything.
type Query map[string]any

// Patch is a partial update of a document: Set merges fields in, Unset
// removes fields. Set wins when a key appears in both.
type Patch struct {
	Set   map[string]any
	Unset []string
}

// FindOptions shape a Find: ordering on one top-level field and an
// optional result cap. Limit <= 0 means no cap.
type FindOptions struct {
	OrderBy string
	Desc    bool
	Limit   int
}

// Backend is a connection to one storage engine. Implementations are
// safe for concurrent use. Every mutation is atomic on its own; the
// repositories compose them so that no multi-step sequence can corrupt
// the record even when it is interrupted midway.
type Backend interface {
	// Insert stores doc in collection and returns its engine-assigned
	// id. It fails with Duplicate when a unique field collides.
	Insert(ctx context.Context, collection string, doc Document) (int64, error)

	// FindOne returns the single document matching q, or Missing.
	// When several match, which one is returned is unspecified; pass
	// a discriminating query or use Find.
	FindOne(ctx context.Context, collection string, q Query) (Document, error)

	// Find returns all documents matching q, shaped by opts.
	Find(ctx context.Context, collection string, q Query, opts FindOptions) ([]Document, error)

	// UpdateOne applies p to the single document matching q. It
	// reports whether a document matched; no match is not an error,
	// so callers can use a value in q as a compare-and-swap guard.
	UpdateOne(ctx context.Context, collection string, q Query, p Patch) (bool, error)

	// DeleteMany removes every document matching q and returns how
	// many went away.
	DeleteMany(ctx context.Context, collection string, q Query) (int64, error)

	// Increment atomically adds 1 to the integer field of the single
	// document matching q and returns the new value. Concurrent calls
	// serialize: each caller observes a distinct value. Missing when
	// nothing matches.
	Increment(ctx context.Context, collection string, q Query, field string) (int64, error)

	Close() error
}
