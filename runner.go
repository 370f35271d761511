package shift

import (
	"context"
	"time"

	"github.com/denismitr/shift/database"
	"github.com/denismitr/shift/internal/metrics"
	"github.com/denismitr/shift/migration"
	"github.com/pkg/errors"
)

// DefaultUnlockTimeout bounds releasing the lock after a run
const DefaultUnlockTimeout = 10 * time.Second

func (m *Migrator) execUnderLock(
	ctx context.Context,
	operation string,
	f func(current database.Version) error,
) error {
	if err := m.locker.Lock(ctx); err != nil {
		err = errors.Wrap(err, "database lock failed")
		m.lg.Error(err)
		return err
	}

	current, err := m.db.ReadCurrentVersion(ctx)
	if err != nil {
		err = errors.Wrapf(err, "operation [%s] failed", operation)
		return m.handleError(ctx, err)
	}

	m.lg.Debugf("operation [%s] starts at version [%s]", operation, current)

	if err := f(current); err != nil {
		return m.handleError(ctx, err)
	}

	if err := m.unlock(ctx); err != nil {
		err = errors.Wrap(err, "database unlock failed")
		m.lg.Error(err)
		return err
	}

	return nil
}

func (m *Migrator) handleError(ctx context.Context, err error) error {
	if !errors.Is(err, database.ErrNoChangesRequired) {
		m.lg.Error(err)
	}

	if unlockErr := m.unlock(ctx); unlockErr != nil {
		m.lg.Error(errors.Wrap(unlockErr, "database unlock failed"))
	}

	return err
}

// unlock releases the lock even when the run context is already done
func (m *Migrator) unlock(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultUnlockTimeout)
	defer cancel()

	return m.locker.Unlock(ctx)
}

func (m *Migrator) up(
	ctx context.Context,
	current, target database.Version,
	steps int,
) (database.Versions, error) {
	scheduled, err := m.catalog.Locator(m.db).GetMigrations(current, target)
	if err != nil {
		return nil, err
	}

	if steps > 0 && len(scheduled) > steps {
		scheduled = scheduled[:steps]
	}

	if len(scheduled) == 0 {
		return nil, database.ErrNoChangesRequired
	}

	var migrated database.Versions
	for _, vm := range scheduled {
		if err := ctx.Err(); err != nil {
			return migrated, errors.Wrapf(err, "migration interrupted at version [%s]", current)
		}

		if err := m.step(ctx, migration.DirectionUp, vm, current, vm.Version); err != nil {
			return migrated, err
		}

		current = vm.Version
		migrated = append(migrated, vm.Version)
	}

	return migrated, nil
}

func (m *Migrator) down(
	ctx context.Context,
	current, target database.Version,
	steps int,
) (database.Versions, error) {
	applied, err := m.catalog.Locator(m.db).GetMigrations(target, current)
	if err != nil {
		return nil, err
	}

	scheduled := applied.Reverse()
	if steps > 0 && len(scheduled) > steps {
		scheduled = scheduled[:steps]
	}

	var rolledBack database.Versions
	for _, vm := range scheduled {
		if err := ctx.Err(); err != nil {
			return rolledBack, errors.Wrapf(err, "rollback interrupted at version [%s]", current)
		}

		previous := m.catalog.Previous(vm.Version)
		if err := m.step(ctx, migration.DirectionDown, vm, current, previous); err != nil {
			return rolledBack, err
		}

		current = previous
		rolledBack = append(rolledBack, vm.Version)
	}

	if len(rolledBack) == 0 {
		return nil, database.ErrNoChangesRequired
	}

	return rolledBack, nil
}

// step runs one migration and persists next as the current version,
// on failure the persisted version stays at current
func (m *Migrator) step(
	ctx context.Context,
	d migration.Direction,
	vm migration.VersionedMigration,
	current, next database.Version,
) error {
	m.lg.Debugf("going %s with version [%s]", d, vm.Version)
	started := time.Now()

	fail := func(cause error) error {
		m.recorder.Step(d.String(), vm.Version.Number, metrics.StatusFailure, time.Since(started))
		return &migration.ExecutionError{
			Version:   vm.Version,
			Direction: d,
			Current:   current,
			Cause:     cause,
		}
	}

	if err := vm.Run(ctx, d); err != nil {
		return fail(err)
	}

	m.lg.Transition(d.String(), current, next)
	if err := m.db.WriteCurrentVersion(ctx, next); err != nil {
		return fail(errors.Wrapf(err, "could not persist version [%s]", next))
	}

	m.recorder.Step(d.String(), vm.Version.Number, metrics.StatusSuccess, time.Since(started))
	m.recorder.Current(next.Number)

	if d == migration.DirectionUp {
		m.lg.Successf("migrated: version %d, description %s", vm.Version.Number, vm.Version.Description)
	} else {
		m.lg.Successf("rolled back: version %d, description %s", vm.Version.Number, vm.Version.Description)
	}

	return nil
}
