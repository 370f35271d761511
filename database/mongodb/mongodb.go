// Package mongodb runs migrations against a MongoDB database.
//
// The current schema version is kept as a single document of the versions
// collection, and the migrations lock is a document of the lock collection
// that expires after a configurable period.
package mongodb

import (
	"context"
	"time"

	"github.com/denismitr/shift/database"
	"github.com/denismitr/shift/internal/retry"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	DefaultLockCollection     = "migrations_lock"
	DefaultConnectAttempts    = 10
	DefaultConnectAttemptStep = 500 * time.Millisecond

	currentVersionID = "current"
)

type Options struct {
	Database           string
	VersionsCollection string
	LockCollection     string
	LockKey            string
	LockFor            time.Duration
	NoLock             bool
	ConnectAttempts    int
	ConnectAttemptStep time.Duration
}

func NewDefaultOptions(databaseName string) *Options {
	return &Options{
		Database:           databaseName,
		VersionsCollection: database.DefaultVersionsCollection,
		LockCollection:     DefaultLockCollection,
		LockKey:            database.DefaultLockKey,
		LockFor:            database.DefaultLockFor,
		ConnectAttempts:    DefaultConnectAttempts,
		ConnectAttemptStep: DefaultConnectAttemptStep,
	}
}

type versionRecord struct {
	ID          string    `bson:"_id"`
	Version     int64     `bson:"version"`
	Description string    `bson:"description"`
	MigratedAt  time.Time `bson:"migrated_at"`
}

func newVersionRecord(v database.Version, now time.Time) versionRecord {
	return versionRecord{
		ID:          currentVersionID,
		Version:     int64(v.Number),
		Description: v.Description,
		MigratedAt:  now,
	}
}

func (r versionRecord) version() database.Version {
	return database.NewVersion(uint64(r.Version), r.Description)
}

type Gateway struct {
	client     *mongo.Client
	db         *mongo.Database
	opts       *Options
	ownsClient bool
}

var _ database.DB = (*Gateway)(nil)

// New wraps an already connected client, closing the gateway
// leaves the client connected
func New(client *mongo.Client, opts *Options) *Gateway {
	return &Gateway{
		client: client,
		db:     client.Database(opts.Database),
		opts:   opts,
	}
}

// Connect dials the uri and pings the primary until it answers
// or connection attempts are exhausted
func Connect(ctx context.Context, uri string, opts *Options) (*Gateway, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "could not create mongodb client")
	}

	err = retry.Incremental(ctx, opts.ConnectAttemptStep, opts.ConnectAttempts, func(attempt int) error {
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return retry.Retryable(errors.Wrap(err, "mongodb ping failed"), attempt)
		}
		return nil
	})

	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "could not connect to mongodb")
	}

	g := New(client, opts)
	g.ownsClient = true

	return g, nil
}

// Database exposes the driver handle for migrations that need more
// than document rewrites
func (g *Gateway) Database() *mongo.Database {
	return g.db
}

func (g *Gateway) Collection(name string) database.Collection {
	return &collection{c: g.db.Collection(name)}
}

func (g *Gateway) ReadCurrentVersion(ctx context.Context) (database.Version, error) {
	var r versionRecord

	err := g.db.Collection(g.opts.VersionsCollection).
		FindOne(ctx, bson.M{database.IDField: currentVersionID}).
		Decode(&r)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return database.Beginning, nil
	}

	if err != nil {
		return database.Version{}, errors.Wrap(err, "could not read current schema version")
	}

	return r.version(), nil
}

func (g *Gateway) WriteCurrentVersion(ctx context.Context, v database.Version) error {
	_, err := g.db.Collection(g.opts.VersionsCollection).ReplaceOne(
		ctx,
		bson.M{database.IDField: currentVersionID},
		newVersionRecord(v, time.Now().UTC()),
		options.Replace().SetUpsert(true),
	)

	if err != nil {
		return errors.Wrapf(err, "could not write current schema version [%s]", v)
	}

	return nil
}

func (g *Gateway) Locker() database.Locker {
	if g.opts.NoLock {
		return database.NullLocker{}
	}

	return NewLocker(g.db.Collection(g.opts.LockCollection), g.opts.LockKey, g.opts.LockFor)
}

func (g *Gateway) Close(ctx context.Context) error {
	if !g.ownsClient {
		return nil
	}

	if err := g.client.Disconnect(ctx); err != nil {
		return errors.Wrap(err, "could not disconnect from mongodb")
	}

	return nil
}

type collection struct {
	c *mongo.Collection
}

var _ database.Collection = (*collection)(nil)

func (c *collection) Name() string {
	return c.c.Name()
}

func (c *collection) Find(ctx context.Context, f database.Filter) ([]database.Document, error) {
	filter := bson.M{}
	for k, v := range f {
		filter[k] = v
	}

	cur, err := c.c.Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "could not query [%s]", c.c.Name())
	}

	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, errors.Wrapf(err, "could not read documents of [%s]", c.c.Name())
	}

	return toDocuments(raw), nil
}

func (c *collection) ReplaceOne(ctx context.Context, doc database.Document) error {
	id, ok := doc.ID()
	if !ok {
		return database.ErrMissingDocumentID
	}

	res, err := c.c.ReplaceOne(ctx, bson.M{database.IDField: id}, bson.M(doc))
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		return errors.Wrapf(database.ErrDocumentNotFound, "[%v] in [%s]", id, c.c.Name())
	}

	return nil
}

func (c *collection) InsertOne(ctx context.Context, doc database.Document) error {
	if _, ok := doc.ID(); !ok {
		return database.ErrMissingDocumentID
	}

	if _, err := c.c.InsertOne(ctx, bson.M(doc)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Wrapf(database.ErrDuplicateDocument, "[%v] in [%s]", doc[database.IDField], c.c.Name())
		}
		return err
	}

	return nil
}

func toDocuments(raw []bson.M) []database.Document {
	result := make([]database.Document, len(raw))
	for i := range raw {
		result[i] = database.Document(raw[i])
	}
	return result
}
