package sqldocs

// Dialect renders the queries of one SQL flavour
type Dialect interface {
	InitQueries() []string
	DropQueries() []string
	FindQuery() string
	InsertQuery() string
	ReplaceQuery() string
	ExistsQuery() string
	ReadVersionQuery() string
	WriteVersionQuery() string
	IsDuplicate(err error) bool
}

const (
	DefaultDocumentsTable  = "documents"
	DefaultMigrationsTable = "migrations"

	currentVersionRow = 1
)

type Tables struct {
	Documents  string
	Migrations string
}

func DefaultTables() Tables {
	return Tables{
		Documents:  DefaultDocumentsTable,
		Migrations: DefaultMigrationsTable,
	}
}
