package sqldocs

import (
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SqliteDialect struct {
	tables Tables
}

var _ Dialect = (*SqliteDialect)(nil)

func NewSqliteDialect(tables Tables) *SqliteDialect {
	return &SqliteDialect{tables: tables}
}

func (d SqliteDialect) InitQueries() []string {
	const createDocumentsSQL = `
		CREATE TABLE IF NOT EXISTS %s (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			collection VARCHAR(120) NOT NULL,
			doc_id VARCHAR(255) NOT NULL,
			body TEXT NOT NULL,
			UNIQUE (collection, doc_id)
		);
	`

	const createMigrationsSQL = `
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			version BIGINT NOT NULL,
			description VARCHAR(255),
			migrated_at TIMESTAMP default CURRENT_TIMESTAMP
		);
	`

	return []string{
		fmt.Sprintf(createDocumentsSQL, d.tables.Documents),
		fmt.Sprintf(createMigrationsSQL, d.tables.Migrations),
	}
}

func (d SqliteDialect) DropQueries() []string {
	return []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.tables.Documents),
		fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.tables.Migrations),
	}
}

func (d SqliteDialect) FindQuery() string {
	return fmt.Sprintf("SELECT doc_id, body FROM %s WHERE collection = ? ORDER BY seq ASC", d.tables.Documents)
}

func (d SqliteDialect) InsertQuery() string {
	return fmt.Sprintf("INSERT INTO %s (collection, doc_id, body) VALUES (?, ?, ?)", d.tables.Documents)
}

func (d SqliteDialect) ReplaceQuery() string {
	return fmt.Sprintf("UPDATE %s SET body = ? WHERE collection = ? AND doc_id = ?", d.tables.Documents)
}

func (d SqliteDialect) ExistsQuery() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE collection = ? AND doc_id = ?", d.tables.Documents)
}

func (d SqliteDialect) ReadVersionQuery() string {
	return fmt.Sprintf("SELECT version, description FROM %s WHERE id = %d", d.tables.Migrations, currentVersionRow)
}

func (d SqliteDialect) WriteVersionQuery() string {
	const upsertSQL = `
		INSERT INTO %s (id, version, description, migrated_at) VALUES (%d, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			description = excluded.description,
			migrated_at = excluded.migrated_at
	`

	return fmt.Sprintf(upsertSQL, d.tables.Migrations, currentVersionRow)
}

func (d SqliteDialect) IsDuplicate(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
