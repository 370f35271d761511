package migration

import (
	"sort"

	"github.com/denismitr/shift/database"
	"github.com/pkg/errors"
)

// Definition declares a migration under a version. The catalog
// instantiates it through the factory only when it gets selected.
type Definition struct {
	Version database.Version
	Factory Factory
}

// Register creates a definition for the catalog
func Register(number uint64, description string, f Factory) Definition {
	return Definition{
		Version: database.NewVersion(number, description),
		Factory: f,
	}
}

// Locator selects migrations in a version range
type Locator interface {
	GetMigrations(after, before database.Version) (VersionedMigrations, error)
}

// Catalog is the explicit list of every known migration, ordered by version
type Catalog struct {
	definitions []Definition
}

// NewCatalog builds a catalog. Definitions without a version number or a factory
// are skipped, duplicate version numbers are a DiscoveryError.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	byNumber := make(map[uint64][]Definition)
	var definitions []Definition

	for _, d := range defs {
		if d.Version.IsBeginning() || d.Factory == nil {
			continue
		}

		byNumber[d.Version.Number] = append(byNumber[d.Version.Number], d)
		definitions = append(definitions, d)
	}

	var numbers []uint64
	for n, ds := range byNumber {
		if len(ds) > 1 {
			numbers = append(numbers, n)
		}
	}

	if len(numbers) > 0 {
		sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

		dErr := &DiscoveryError{Number: numbers[0]}
		for _, d := range byNumber[numbers[0]] {
			dErr.Descriptions = append(dErr.Descriptions, d.Version.Description)
		}

		return nil, dErr
	}

	sort.SliceStable(definitions, func(i, j int) bool {
		return definitions[i].Version.Less(definitions[j].Version)
	})

	return &Catalog{definitions: definitions}, nil
}

func (c *Catalog) Len() int {
	return len(c.definitions)
}

// Versions lists every known version in ascending order
func (c *Catalog) Versions() database.Versions {
	result := make(database.Versions, len(c.definitions))
	for i := range c.definitions {
		result[i] = c.definitions[i].Version
	}
	return result
}

// Latest is the highest known version or Beginning for an empty catalog
func (c *Catalog) Latest() database.Version {
	if len(c.definitions) == 0 {
		return database.Beginning
	}

	return c.definitions[len(c.definitions)-1].Version
}

// Previous is the highest known version below v or Beginning
func (c *Catalog) Previous(v database.Version) database.Version {
	previous := database.Beginning
	for _, d := range c.definitions {
		if !d.Version.Less(v) {
			break
		}
		previous = d.Version
	}
	return previous
}

// Locator binds the catalog to a database
func (c *Catalog) Locator(db database.DB) Locator {
	return &locator{catalog: c, db: db}
}

type locator struct {
	catalog *Catalog
	db      database.DB
}

// GetMigrations instantiates every migration with after < version <= before
// in ascending order
func (l *locator) GetMigrations(after, before database.Version) (VersionedMigrations, error) {
	var result VersionedMigrations

	for _, d := range l.catalog.definitions {
		if !after.Less(d.Version) || !d.Version.LessOrEqual(before) {
			continue
		}

		m := d.Factory(l.db)
		if m == nil {
			return nil, errors.Wrapf(ErrNilMigration, "version [%s]", d.Version)
		}

		result = append(result, VersionedMigration{Version: d.Version, Migration: m})
	}

	return result, nil
}
