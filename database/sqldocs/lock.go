package sqldocs

import (
	"context"
	"database/sql"

	"github.com/denismitr/shift/database"
	"github.com/pkg/errors"
)

const DefaultMySQLLockSeconds = 10

// MySQLLocker takes a named lock with GET_LOCK. Named locks belong
// to a session, so the connection is held until Unlock.
type MySQLLocker struct {
	db      *sql.DB
	conn    *sql.Conn
	lockKey string
	lockFor int
}

var _ database.Locker = (*MySQLLocker)(nil)

func NewMySQLLocker(db *sql.DB, lockKey string, lockFor int) *MySQLLocker {
	return &MySQLLocker{db: db, lockKey: lockKey, lockFor: lockFor}
}

func (l *MySQLLocker) Lock(ctx context.Context) error {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "could not obtain a connection for the MySQL lock")
	}

	var acquired sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", l.lockKey, l.lockFor).Scan(&acquired); err != nil {
		_ = conn.Close()
		return errors.Wrapf(err, "could not obtain [%s] exclusive MySQL DB lock for [%d] seconds", l.lockKey, l.lockFor)
	}

	if !acquired.Valid || acquired.Int64 != 1 {
		_ = conn.Close()
		return errors.Wrapf(database.ErrLocked, "[%s] was not released within [%d] seconds", l.lockKey, l.lockFor)
	}

	l.conn = conn
	return nil
}

func (l *MySQLLocker) Unlock(ctx context.Context) error {
	if l.conn == nil {
		return errors.Wrapf(database.ErrLockLost, "[%s]", l.lockKey)
	}

	defer func() {
		_ = l.conn.Close()
		l.conn = nil
	}()

	if _, err := l.conn.ExecContext(ctx, "SELECT RELEASE_LOCK(?)", l.lockKey); err != nil {
		return errors.Wrapf(err, "could not release [%s] exclusive MySQL DB lock", l.lockKey)
	}

	return nil
}
