// Package sqldocs keeps documents as JSON bodies in a single SQL table,
// one row per document, and runs migrations over them.
package sqldocs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/denismitr/shift/database"
	"github.com/denismitr/shift/internal/retry"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	DefaultConnectAttempts    = 10
	DefaultConnectAttemptStep = 500 * time.Millisecond
)

type Options struct {
	Tables             Tables
	ConnectAttempts    int
	ConnectAttemptStep time.Duration
}

type MySQLOptions struct {
	Options
	Charset string
	LockKey string
	LockFor int
	NoLock  bool
}

func NewDefaultOptions() *Options {
	return &Options{
		Tables:             DefaultTables(),
		ConnectAttempts:    DefaultConnectAttempts,
		ConnectAttemptStep: DefaultConnectAttemptStep,
	}
}

func NewDefaultMySQLOptions() *MySQLOptions {
	return &MySQLOptions{
		Options: *NewDefaultOptions(),
		Charset: DefaultMySQLCharset,
		LockKey: database.DefaultLockKey,
		LockFor: DefaultMySQLLockSeconds,
	}
}

type Gateway struct {
	db      *sqlx.DB
	dialect Dialect
	locker  database.Locker
}

var _ database.DB = (*Gateway)(nil)

// NewSqliteGateway prepares the tables of a sqlite database
func NewSqliteGateway(ctx context.Context, db *sqlx.DB, opts *Options) (*Gateway, error) {
	g := &Gateway{
		db:      db,
		dialect: NewSqliteDialect(opts.Tables),
		locker:  database.NullLocker{},
	}

	if err := g.init(ctx, opts); err != nil {
		return nil, err
	}

	return g, nil
}

// NewMySQLGateway prepares the tables of a MySQL database, the lock
// is taken with GET_LOCK unless disabled
func NewMySQLGateway(ctx context.Context, db *sqlx.DB, opts *MySQLOptions) (*Gateway, error) {
	g := &Gateway{
		db:      db,
		dialect: NewMySQLDialect(opts.Tables, opts.Charset),
		locker:  database.NullLocker{},
	}

	if !opts.NoLock {
		g.locker = NewMySQLLocker(db.DB, opts.LockKey, opts.LockFor)
	}

	if err := g.init(ctx, &opts.Options); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *Gateway) init(ctx context.Context, opts *Options) error {
	if err := Ping(ctx, g.db, opts.ConnectAttempts, opts.ConnectAttemptStep); err != nil {
		return err
	}

	for _, q := range g.dialect.InitQueries() {
		if _, err := g.db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "could not create documents schema")
		}
	}

	return nil
}

// Ping checks the connection until it answers or attempts are exhausted
func Ping(ctx context.Context, db *sqlx.DB, attempts int, step time.Duration) error {
	err := retry.Incremental(ctx, step, attempts, func(attempt int) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.Retryable(errors.Wrap(err, "db ping failed"), attempt)
		}

		var result int
		if err := db.QueryRowxContext(ctx, "SELECT 1").Scan(&result); err != nil {
			return errors.Wrap(err, "could not ping DB")
		}

		return nil
	})

	if err != nil {
		return errors.Wrap(err, "could not establish DB connection")
	}

	return nil
}

func (g *Gateway) Collection(name string) database.Collection {
	return &collection{name: name, g: g}
}

func (g *Gateway) ReadCurrentVersion(ctx context.Context) (database.Version, error) {
	var rows []struct {
		Version     int64  `db:"version"`
		Description string `db:"description"`
	}

	if err := g.db.SelectContext(ctx, &rows, g.dialect.ReadVersionQuery()); err != nil {
		return database.Version{}, errors.Wrap(err, "could not read current schema version")
	}

	if len(rows) == 0 {
		return database.Beginning, nil
	}

	return database.NewVersion(uint64(rows[0].Version), rows[0].Description), nil
}

func (g *Gateway) WriteCurrentVersion(ctx context.Context, v database.Version) error {
	_, err := g.db.ExecContext(ctx, g.dialect.WriteVersionQuery(), int64(v.Number), v.Description, time.Now().UTC())
	if err != nil {
		return errors.Wrapf(err, "could not write current schema version [%s]", v)
	}

	return nil
}

func (g *Gateway) Locker() database.Locker {
	return g.locker
}

// Drop removes the documents and migrations tables
func (g *Gateway) Drop(ctx context.Context) error {
	for _, q := range g.dialect.DropQueries() {
		if _, err := g.db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "could not drop documents schema")
		}
	}

	return nil
}

func (g *Gateway) Close(context.Context) error {
	if err := g.db.Close(); err != nil {
		return errors.Wrap(err, "could not close sql connection")
	}

	return nil
}

type documentRow struct {
	ID   string `db:"doc_id"`
	Body string `db:"body"`
}

type collection struct {
	name string
	g    *Gateway
}

var _ database.Collection = (*collection)(nil)

func (c *collection) Name() string {
	return c.name
}

func (c *collection) Find(ctx context.Context, f database.Filter) ([]database.Document, error) {
	var rows []documentRow
	if err := c.g.db.SelectContext(ctx, &rows, c.g.dialect.FindQuery(), c.name); err != nil {
		return nil, errors.Wrapf(err, "could not query [%s]", c.name)
	}

	var result []database.Document
	for _, r := range rows {
		var doc database.Document
		if err := json.Unmarshal([]byte(r.Body), &doc); err != nil {
			return nil, errors.Wrapf(err, "could not decode document [%s] of [%s]", r.ID, c.name)
		}

		if f.Matches(doc) {
			result = append(result, doc)
		}
	}

	return result, nil
}

func (c *collection) ReplaceOne(ctx context.Context, doc database.Document) error {
	id, ok := doc.ID()
	if !ok {
		return database.ErrMissingDocumentID
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "could not encode document [%v]", id)
	}

	key := database.IDKey(id)

	res, err := c.g.db.ExecContext(ctx, c.g.dialect.ReplaceQuery(), string(body), c.name, key)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected > 0 {
		return nil
	}

	// MySQL reports zero affected rows when the body did not change
	var count int
	if err := c.g.db.QueryRowxContext(ctx, c.g.dialect.ExistsQuery(), c.name, key).Scan(&count); err != nil {
		return err
	}

	if count == 0 {
		return errors.Wrapf(database.ErrDocumentNotFound, "[%v] in [%s]", id, c.name)
	}

	return nil
}

func (c *collection) InsertOne(ctx context.Context, doc database.Document) error {
	id, ok := doc.ID()
	if !ok {
		return database.ErrMissingDocumentID
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "could not encode document [%v]", id)
	}

	if _, err := c.g.db.ExecContext(ctx, c.g.dialect.InsertQuery(), c.name, database.IDKey(id), string(body)); err != nil {
		if c.g.dialect.IsDuplicate(err) {
			return errors.Wrapf(database.ErrDuplicateDocument, "[%v] in [%s]", id, c.name)
		}
		return err
	}

	return nil
}
