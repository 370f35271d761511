// Package memory keeps collections and the schema version in process memory.
// It backs the memory:// url and is meant for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/denismitr/shift/database"
	"github.com/pkg/errors"
)

type DB struct {
	mu          sync.Mutex
	collections map[string]*Collection
	current     database.Version
	closed      bool
}

var _ database.DB = (*DB)(nil)

func New() *DB {
	return &DB{collections: make(map[string]*Collection)}
}

func (db *DB) Collection(name string) database.Collection {
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.collections[name]
	if !ok {
		c = newCollection(name)
		db.collections[name] = c
	}

	return c
}

// CollectionNames lists every collection that has been opened so far
func (db *DB) CollectionNames() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []string
	for name := range db.collections {
		result = append(result, name)
	}
	return result
}

func (db *DB) ReadCurrentVersion(context.Context) (database.Version, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return database.Version{}, database.ErrNotConnected
	}

	return db.current, nil
}

func (db *DB) WriteCurrentVersion(_ context.Context, v database.Version) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return database.ErrNotConnected
	}

	db.current = v
	return nil
}

func (db *DB) Locker() database.Locker {
	return database.NullLocker{}
}

func (db *DB) Close(context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.closed = true
	return nil
}

// Collection keeps documents in insertion order
type Collection struct {
	mu   sync.RWMutex
	name string
	keys []string
	docs map[string]database.Document
}

var _ database.Collection = (*Collection)(nil)

func newCollection(name string) *Collection {
	return &Collection{name: name, docs: make(map[string]database.Document)}
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) Find(_ context.Context, f database.Filter) ([]database.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []database.Document
	for _, key := range c.keys {
		doc := c.docs[key]
		if f.Matches(doc) {
			result = append(result, doc.Clone())
		}
	}

	return result, nil
}

func (c *Collection) ReplaceOne(_ context.Context, doc database.Document) error {
	id, ok := doc.ID()
	if !ok {
		return database.ErrMissingDocumentID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := database.IDKey(id)
	if _, exists := c.docs[key]; !exists {
		return errors.Wrapf(database.ErrDocumentNotFound, "[%v] in [%s]", id, c.name)
	}

	c.docs[key] = doc.Clone()
	return nil
}

func (c *Collection) InsertOne(_ context.Context, doc database.Document) error {
	id, ok := doc.ID()
	if !ok {
		return database.ErrMissingDocumentID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := database.IDKey(id)
	if _, exists := c.docs[key]; exists {
		return errors.Wrapf(database.ErrDuplicateDocument, "[%v] in [%s]", id, c.name)
	}

	c.keys = append(c.keys, key)
	c.docs[key] = doc.Clone()
	return nil
}
