package migration

import (
	"context"

	"github.com/denismitr/shift/database"
	"github.com/pkg/errors"
)

type (
	// DocumentFunc transforms a single document in place
	DocumentFunc func(doc database.Document) error

	// DocumentSelector picks the documents a document migration rewrites
	DocumentSelector func(ctx context.Context, c database.Collection) ([]database.Document, error)

	DocumentOption func(m *DocumentMigration)
)

// DocumentMigration rewrites every selected document of one collection.
// Each document is transformed in memory and then replaced by its identity
// before the next one is touched, so a failure leaves earlier documents
// rewritten and later ones untouched.
type DocumentMigration struct {
	db         database.DB
	collection string
	upgrade    DocumentFunc
	downgrade  DocumentFunc
	selector   DocumentSelector
}

var _ Migration = (*DocumentMigration)(nil)

func NewDocumentMigration(
	db database.DB,
	collection string,
	upgrade, downgrade DocumentFunc,
	opts ...DocumentOption,
) *DocumentMigration {
	m := &DocumentMigration{
		db:         db,
		collection: collection,
		upgrade:    upgrade,
		downgrade:  downgrade,
		selector:   SelectAll,
	}

	for _, o := range opts {
		o(m)
	}

	return m
}

// DocumentFactory is a shortcut to register document migrations in a catalog
func DocumentFactory(collection string, upgrade, downgrade DocumentFunc, opts ...DocumentOption) Factory {
	return func(db database.DB) Migration {
		return NewDocumentMigration(db, collection, upgrade, downgrade, opts...)
	}
}

// SelectAll reads the whole collection
func SelectAll(ctx context.Context, c database.Collection) ([]database.Document, error) {
	return c.Find(ctx, nil)
}

// WithFilter limits the rewrite to documents matching the filter
func WithFilter(f database.Filter) DocumentOption {
	return func(m *DocumentMigration) {
		m.selector = func(ctx context.Context, c database.Collection) ([]database.Document, error) {
			return c.Find(ctx, f)
		}
	}
}

func WithSelector(s DocumentSelector) DocumentOption {
	return func(m *DocumentMigration) {
		if s != nil {
			m.selector = s
		}
	}
}

func (m *DocumentMigration) CollectionName() string {
	return m.collection
}

func (m *DocumentMigration) Up(ctx context.Context) error {
	return m.rewrite(ctx, m.upgrade)
}

func (m *DocumentMigration) Down(ctx context.Context) error {
	return m.rewrite(ctx, m.downgrade)
}

func (m *DocumentMigration) rewrite(ctx context.Context, transform DocumentFunc) error {
	if transform == nil {
		return nil
	}

	c := m.db.Collection(m.collection)

	docs, err := m.selector(ctx, c)
	if err != nil {
		return errors.Wrapf(err, "could not select documents from [%s]", m.collection)
	}

	for _, doc := range docs {
		id, ok := doc.ID()
		if !ok {
			return errors.Wrapf(database.ErrMissingDocumentID, "collection [%s]", m.collection)
		}

		if err := transform(doc); err != nil {
			return errors.Wrapf(err, "could not transform document [%v] of [%s]", id, m.collection)
		}

		doc[database.IDField] = id

		if err := c.ReplaceOne(ctx, doc); err != nil {
			return errors.Wrapf(err, "could not replace document [%v] of [%s]", id, m.collection)
		}
	}

	return nil
}
