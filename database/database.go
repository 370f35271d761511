package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNoChangesRequired = errors.New("no changes to the database required")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrMissingDocumentID = errors.New("document has no identity")
	ErrDuplicateDocument = errors.New("document with the same identity already exists")
	ErrNotConnected      = errors.New("database is not connected")
	ErrLocked            = errors.New("migrations are locked by another process")
	ErrLockLost          = errors.New("migrations lock is no longer held")
)

const (
	DefaultVersionsCollection = "migrations"
	DefaultLockKey            = "shift_migrations"
	DefaultLockFor            = 5 * time.Minute

	IDField = "_id"

	OperationMigrate  = "migrate"
	OperationRollback = "rollback"
	OperationRefresh  = "refresh"
)

// Collection is a named set of documents
type Collection interface {
	Name() string

	// Find returns every document matching the filter,
	// nil filter returns the whole collection
	Find(ctx context.Context, f Filter) ([]Document, error)

	// ReplaceOne replaces a stored document that has the same identity
	ReplaceOne(ctx context.Context, doc Document) error

	InsertOne(ctx context.Context, doc Document) error
}

// DB is the database connection migrations are applied to.
// It also keeps the single current schema version marker.
type DB interface {
	Collection(name string) Collection
	ReadCurrentVersion(ctx context.Context) (Version, error)
	WriteCurrentVersion(ctx context.Context, v Version) error
	Locker() Locker
	Close(ctx context.Context) error
}
