package shift

import (
	"context"

	"github.com/denismitr/shift/database"
	"github.com/denismitr/shift/internal/logger"
	"github.com/denismitr/shift/internal/metrics"
	"github.com/denismitr/shift/migration"
	"github.com/pkg/errors"
)

var (
	ErrDatabaseNotInitialized = errors.New("database has not been initialized")
	ErrCatalogNotInitialized  = errors.New("migrations catalog has not been initialized")
)

type CloserFunc func() error

type Migrator struct {
	lg        logger.Logger
	db        database.DB
	catalog   *migration.Catalog
	locker    database.Locker
	recorder  metrics.Recorder
	closerFns []CloserFunc
}

// Status tells whether a known migration is applied
type Status struct {
	Version database.Version
	Applied bool
}

// NewMigrator creates a migrator using option callbacks, a database and
// a catalog of migrations are required
func NewMigrator(opts ...OptionFunc) (*Migrator, CloserFunc, error) {
	m := new(Migrator)
	m.lg = &logger.NullLogger{}
	m.recorder = metrics.NullRecorder{}

	for _, oFunc := range opts {
		if err := oFunc(m); err != nil {
			_ = m.close()
			return nil, nil, err
		}
	}

	if m.db == nil {
		_ = m.close()
		return nil, nil, ErrDatabaseNotInitialized
	}

	if m.catalog == nil {
		_ = m.close()
		return nil, nil, ErrCatalogNotInitialized
	}

	if m.locker == nil {
		m.locker = m.db.Locker()
	}

	return m, m.close, nil
}

// Up applies every migration above the current version up to the target,
// Latest by default. The current version is persisted after each step.
func (m *Migrator) Up(ctx context.Context, cfs ...ActionConfigurator) (database.Versions, error) {
	act := newAction(cfs)

	var migrated database.Versions
	err := m.execUnderLock(ctx, database.OperationMigrate, func(current database.Version) error {
		var err error
		migrated, err = m.up(ctx, current, act.targetOr(database.Latest), act.steps)
		return err
	})

	return migrated, err
}

// Down reverts applied migrations above the target, Beginning by default,
// from the newest to the oldest
func (m *Migrator) Down(ctx context.Context, cfs ...ActionConfigurator) (database.Versions, error) {
	act := newAction(cfs)

	var rolledBack database.Versions
	err := m.execUnderLock(ctx, database.OperationRollback, func(current database.Version) error {
		var err error
		rolledBack, err = m.down(ctx, current, act.targetOr(database.Beginning), act.steps)
		return err
	})

	return rolledBack, err
}

// Refresh reverts applied migrations, everything or the number of steps,
// and then applies them again
func (m *Migrator) Refresh(ctx context.Context, cfs ...ActionConfigurator) (database.Versions, database.Versions, error) {
	act := newAction(cfs)

	var rolledBack, migrated database.Versions
	err := m.execUnderLock(ctx, database.OperationRefresh, func(current database.Version) error {
		var err error
		rolledBack, err = m.down(ctx, current, database.Beginning, act.steps)
		if err != nil {
			return err
		}

		from, err := m.db.ReadCurrentVersion(ctx)
		if err != nil {
			return errors.Wrap(err, "could not read current version after rollback")
		}

		migrated, err = m.up(ctx, from, current, 0)
		return err
	})

	return rolledBack, migrated, err
}

func (m *Migrator) Current(ctx context.Context) (database.Version, error) {
	v, err := m.db.ReadCurrentVersion(ctx)
	if err != nil {
		m.lg.Error(err)
		return database.Version{}, err
	}

	return v, nil
}

// Status lists every known migration, a migration is applied
// when its version does not exceed the current one
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	current, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}

	var result []Status
	for _, v := range m.catalog.Versions() {
		result = append(result, Status{Version: v, Applied: v.LessOrEqual(current)})
	}

	return result, nil
}

func (m *Migrator) close() error {
	var closeErr error
	for i := len(m.closerFns) - 1; i >= 0; i-- {
		if err := m.closerFns[i](); err != nil {
			m.lg.Error(err)
			closeErr = err
		}
	}

	m.closerFns = nil

	return closeErr
}
