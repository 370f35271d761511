package cli

import (
	"io"
	"log"
	"net/url"
	"strings"

	"github.com/denismitr/shift"
	"github.com/denismitr/shift/migration"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var ErrDatabaseNameMissing = errors.New("database name was not defined")

type (
	databaseFactory    func(cfg Config) (shift.OptionFunc, error)
	databaseFactoryMap map[string]databaseFactory
)

func defaultFactories() databaseFactoryMap {
	return databaseFactoryMap{
		"mongodb":     createMongoDatabase,
		"mongodb+srv": createMongoDatabase,
		"mysql":       createMySQLDatabase,
		"sqlite":      createSqliteDatabase,
		"memory":      createInMemoryDatabase,
	}
}

func createMongoDatabase(cfg Config) (shift.OptionFunc, error) {
	name := cfg.DatabaseName
	if name == "" {
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid mongodb url")
		}
		name = strings.TrimPrefix(u.Path, "/")
	}

	if name == "" {
		return nil, ErrDatabaseNameMissing
	}

	var opts []shift.MongoOptionFunc
	if cfg.VersionsCollection != "" {
		opts = append(opts, shift.WithMongoVersionsCollection(cfg.VersionsCollection))
	}

	return shift.UseMongoURI(cfg.DatabaseURL, name, opts...), nil
}

func createMySQLDatabase(cfg Config) (shift.OptionFunc, error) {
	db, err := sqlx.Open("mysql", strings.TrimPrefix(cfg.DatabaseURL, "mysql://"))
	if err != nil {
		return nil, err
	}

	var opts []shift.MySQLOptionFunc
	if cfg.VersionsCollection != "" {
		opts = append(opts, shift.WithMySQLTables("documents", cfg.VersionsCollection))
	}

	return closeOnError(db, shift.UseMySQL(db, opts...)), nil
}

func createSqliteDatabase(cfg Config) (shift.OptionFunc, error) {
	db, err := sqlx.Open("sqlite3", strings.TrimPrefix(cfg.DatabaseURL, "sqlite://"))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	var opts []shift.SqliteOptionFunc
	if cfg.VersionsCollection != "" {
		opts = append(opts, shift.WithSqliteTables("documents", cfg.VersionsCollection))
	}

	return closeOnError(db, shift.UseSqlite(db, opts...)), nil
}

func createInMemoryDatabase(Config) (shift.OptionFunc, error) {
	return shift.UseInMemory(), nil
}

func closeOnError(db *sqlx.DB, oFunc shift.OptionFunc) shift.OptionFunc {
	return func(m *shift.Migrator) error {
		if err := oFunc(m); err != nil {
			_ = db.Close()
			return err
		}
		return nil
	}
}

func driverOf(databaseURL string) string {
	i := strings.Index(databaseURL, "://")
	if i < 0 {
		return ""
	}
	return databaseURL[:i]
}

func createMigrator(
	cfg Config,
	defs []migration.Definition,
	out io.Writer,
) (*shift.Migrator, shift.CloserFunc, error) {
	return createMigratorFrom(defaultFactories(), cfg, defs, out)
}

func createMigratorFrom(
	factoryMap databaseFactoryMap,
	cfg Config,
	defs []migration.Definition,
	out io.Writer,
) (*shift.Migrator, shift.CloserFunc, error) {
	driver := driverOf(cfg.DatabaseURL)
	factory, ok := factoryMap[driver]
	if !ok {
		return nil, nil, errors.Errorf("could not find factory for driver [%s]", driver)
	}

	useDatabase, err := factory(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []shift.OptionFunc{
		shift.UseLogger(log.New(out, "", 0), shift.LoggerOptions{
			Colors:      true,
			Transitions: cfg.Verbose,
			Debug:       cfg.Verbose,
		}),
		useDatabase,
		shift.UseMigrations(defs...),
	}

	var client *redis.Client
	if cfg.LockURL != "" {
		redisOpts, err := redis.ParseURL(cfg.LockURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "invalid lock url")
		}

		client = redis.NewClient(redisOpts)
		opts = append(opts, shift.UseRedisLock(client))
	}

	m, closer, err := shift.NewMigrator(opts...)
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, nil, err
	}

	if client == nil {
		return m, closer, nil
	}

	return m, func() error {
		closeErr := closer()
		if err := client.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
		return closeErr
	}, nil
}
