package shift

import (
	"context"
	"time"

	"github.com/denismitr/shift/database"
	"github.com/denismitr/shift/database/memory"
	"github.com/denismitr/shift/database/mongodb"
	"github.com/denismitr/shift/database/redislock"
	"github.com/denismitr/shift/database/sqldocs"
	"github.com/denismitr/shift/internal/metrics"
	"github.com/denismitr/shift/migration"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const DefaultInitTimeout = 60 * time.Second

type (
	OptionFunc func(*Migrator) error

	MongoOptionFunc  func(*mongodb.Options)
	SqliteOptionFunc func(*sqldocs.Options)
	MySQLOptionFunc  func(*sqldocs.MySQLOptions)
	RedisOptionFunc  func(*redislock.Options)
)

// UseDatabase runs migrations against any database implementation,
// the migrator closes it when done
func UseDatabase(db database.DB) OptionFunc {
	return func(m *Migrator) error {
		m.db = db
		m.closerFns = append(m.closerFns, func() error {
			return db.Close(context.Background())
		})
		return nil
	}
}

func UseInMemory() OptionFunc {
	return UseDatabase(memory.New())
}

// UseMongo runs migrations against a database of an already connected client
func UseMongo(client *mongo.Client, databaseName string, options ...MongoOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		opts := mongodb.NewDefaultOptions(databaseName)
		for _, oFunc := range options {
			oFunc(opts)
		}

		m.db = mongodb.New(client, opts)
		return nil
	}
}

// UseMongoURI connects to mongodb, the migrator disconnects when closed
func UseMongoURI(uri, databaseName string, options ...MongoOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		opts := mongodb.NewDefaultOptions(databaseName)
		for _, oFunc := range options {
			oFunc(opts)
		}

		ctx, cancel := context.WithTimeout(context.Background(), DefaultInitTimeout)
		defer cancel()

		g, err := mongodb.Connect(ctx, uri, opts)
		if err != nil {
			return err
		}

		return UseDatabase(g)(m)
	}
}

func WithMongoVersionsCollection(name string) MongoOptionFunc {
	return func(opts *mongodb.Options) {
		opts.VersionsCollection = name
	}
}

func WithMongoLock(collection, key string, lockFor time.Duration) MongoOptionFunc {
	return func(opts *mongodb.Options) {
		opts.LockCollection = collection
		opts.LockKey = key
		opts.LockFor = lockFor
	}
}

func WithMongoMaxConnectionAttempts(attempts int) MongoOptionFunc {
	return func(opts *mongodb.Options) {
		opts.ConnectAttempts = attempts
	}
}

func WithoutMongoLock() MongoOptionFunc {
	return func(opts *mongodb.Options) {
		opts.NoLock = true
	}
}

func UseSqlite(db *sqlx.DB, options ...SqliteOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		opts := sqldocs.NewDefaultOptions()
		for _, oFunc := range options {
			oFunc(opts)
		}

		ctx, cancel := context.WithTimeout(context.Background(), DefaultInitTimeout)
		defer cancel()

		g, err := sqldocs.NewSqliteGateway(ctx, db, opts)
		if err != nil {
			return err
		}

		return UseDatabase(g)(m)
	}
}

func WithSqliteTables(documents, migrations string) SqliteOptionFunc {
	return func(opts *sqldocs.Options) {
		opts.Tables = sqldocs.Tables{Documents: documents, Migrations: migrations}
	}
}

func WithSqliteMaxConnectionAttempts(attempts int) SqliteOptionFunc {
	return func(opts *sqldocs.Options) {
		opts.ConnectAttempts = attempts
	}
}

func UseMySQL(db *sqlx.DB, options ...MySQLOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		opts := sqldocs.NewDefaultMySQLOptions()
		for _, oFunc := range options {
			oFunc(opts)
		}

		ctx, cancel := context.WithTimeout(context.Background(), DefaultInitTimeout)
		defer cancel()

		g, err := sqldocs.NewMySQLGateway(ctx, db, opts)
		if err != nil {
			return err
		}

		return UseDatabase(g)(m)
	}
}

func WithMySQLTables(documents, migrations string) MySQLOptionFunc {
	return func(opts *sqldocs.MySQLOptions) {
		opts.Tables = sqldocs.Tables{Documents: documents, Migrations: migrations}
	}
}

func WithMySQLLockKey(key string) MySQLOptionFunc {
	return func(opts *sqldocs.MySQLOptions) {
		opts.LockKey = key
	}
}

func WithMySQLLockFor(seconds int) MySQLOptionFunc {
	return func(opts *sqldocs.MySQLOptions) {
		opts.LockFor = seconds
	}
}

func WithoutMySQLLock() MySQLOptionFunc {
	return func(opts *sqldocs.MySQLOptions) {
		opts.NoLock = true
	}
}

func WithMySQLMaxConnectionAttempts(attempts int) MySQLOptionFunc {
	return func(opts *sqldocs.MySQLOptions) {
		opts.ConnectAttempts = attempts
	}
}

// UseCatalog sets the migrations the migrator knows about
func UseCatalog(c *migration.Catalog) OptionFunc {
	return func(m *Migrator) error {
		m.catalog = c
		return nil
	}
}

// UseMigrations builds the catalog from definitions,
// duplicate versions fail with a DiscoveryError
func UseMigrations(defs ...migration.Definition) OptionFunc {
	return func(m *Migrator) error {
		c, err := migration.NewCatalog(defs...)
		if err != nil {
			return err
		}

		m.catalog = c
		return nil
	}
}

// UseLocker replaces the lock the database provides
func UseLocker(l database.Locker) OptionFunc {
	return func(m *Migrator) error {
		m.locker = l
		return nil
	}
}

func UseRedisLock(client redis.UniversalClient, options ...RedisOptionFunc) OptionFunc {
	opts := redislock.NewDefaultOptions()
	for _, oFunc := range options {
		oFunc(opts)
	}

	return UseLocker(redislock.New(client, opts))
}

func WithRedisLockKey(key string, ttl time.Duration) RedisOptionFunc {
	return func(opts *redislock.Options) {
		opts.Key = key
		opts.TTL = ttl
	}
}

func WithRedisLockAttempts(attempts int, step time.Duration) RedisOptionFunc {
	return func(opts *redislock.Options) {
		opts.Attempts = attempts
		opts.AttemptStep = step
	}
}

// UsePrometheus registers migration metrics with the registerer
func UsePrometheus(r prometheus.Registerer) OptionFunc {
	return func(m *Migrator) error {
		c := metrics.NewCollector()
		if err := c.Register(r); err != nil {
			return err
		}

		m.recorder = c
		return nil
	}
}
