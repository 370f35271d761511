package sqldocs

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

const (
	DefaultMySQLCharset = "utf8mb4"

	mysqlDuplicateEntry = 1062
)

type MySQLDialect struct {
	tables  Tables
	charset string
}

var _ Dialect = (*MySQLDialect)(nil)

func NewMySQLDialect(tables Tables, charset string) *MySQLDialect {
	if charset == "" {
		charset = DefaultMySQLCharset
	}

	return &MySQLDialect{tables: tables, charset: charset}
}

func (d MySQLDialect) InitQueries() []string {
	const createDocumentsSQL = `
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			collection VARCHAR(120) NOT NULL,
			doc_id VARCHAR(255) NOT NULL,
			body LONGTEXT NOT NULL,
			UNIQUE KEY collection_doc_id (collection, doc_id)
		) ENGINE=InnoDB CHARACTER SET=%s
	`

	const createMigrationsSQL = `
		CREATE TABLE IF NOT EXISTS %s (
			id INT PRIMARY KEY,
			version BIGINT NOT NULL,
			description VARCHAR(255),
			migrated_at TIMESTAMP default CURRENT_TIMESTAMP
		) ENGINE=InnoDB CHARACTER SET=%s
	`

	return []string{
		fmt.Sprintf(createDocumentsSQL, d.tables.Documents, d.charset),
		fmt.Sprintf(createMigrationsSQL, d.tables.Migrations, d.charset),
	}
}

func (d MySQLDialect) DropQueries() []string {
	return []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.tables.Documents),
		fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.tables.Migrations),
	}
}

func (d MySQLDialect) FindQuery() string {
	return fmt.Sprintf("SELECT `doc_id`, `body` FROM %s WHERE `collection` = ? ORDER BY `seq` ASC", d.tables.Documents)
}

func (d MySQLDialect) InsertQuery() string {
	return fmt.Sprintf("INSERT INTO %s (`collection`, `doc_id`, `body`) VALUES (?, ?, ?)", d.tables.Documents)
}

func (d MySQLDialect) ReplaceQuery() string {
	return fmt.Sprintf("UPDATE %s SET `body` = ? WHERE `collection` = ? AND `doc_id` = ?", d.tables.Documents)
}

func (d MySQLDialect) ExistsQuery() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE `collection` = ? AND `doc_id` = ?", d.tables.Documents)
}

func (d MySQLDialect) ReadVersionQuery() string {
	return fmt.Sprintf("SELECT `version`, `description` FROM %s WHERE `id` = %d", d.tables.Migrations, currentVersionRow)
}

func (d MySQLDialect) WriteVersionQuery() string {
	const upsertSQL = "INSERT INTO %s (`id`, `version`, `description`, `migrated_at`) VALUES (%d, ?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE `version` = VALUES(`version`), " +
		"`description` = VALUES(`description`), `migrated_at` = VALUES(`migrated_at`)"

	return fmt.Sprintf(upsertSQL, d.tables.Migrations, currentVersionRow)
}

func (d MySQLDialect) IsDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}

	return false
}
