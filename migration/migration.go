package migration

import (
	"context"

	"github.com/denismitr/shift/database"
)

type (
	// Migration is a reversible unit of change applied to a database
	Migration interface {
		Up(ctx context.Context) error
		Down(ctx context.Context) error
	}

	// Factory creates a migration bound to the given database.
	// It must not touch the database, only Up and Down may.
	Factory func(db database.DB) Migration

	Direction int

	VersionedMigration struct {
		Version   database.Version
		Migration Migration
	}

	VersionedMigrations []VersionedMigration
)

const (
	DirectionUp Direction = iota
	DirectionDown
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "unknown"
	}
}

// Funcs adapts plain functions to the Migration interface,
// a nil function is a no-op
type Funcs struct {
	UpFn   func(ctx context.Context) error
	DownFn func(ctx context.Context) error
}

var _ Migration = Funcs{}

func (f Funcs) Up(ctx context.Context) error {
	if f.UpFn == nil {
		return nil
	}
	return f.UpFn(ctx)
}

func (f Funcs) Down(ctx context.Context) error {
	if f.DownFn == nil {
		return nil
	}
	return f.DownFn(ctx)
}

// Run executes the migration in the given direction
func (vm VersionedMigration) Run(ctx context.Context, d Direction) error {
	if d == DirectionDown {
		return vm.Migration.Down(ctx)
	}

	return vm.Migration.Up(ctx)
}

func (vms VersionedMigrations) Versions() database.Versions {
	result := make(database.Versions, len(vms))
	for i := range vms {
		result[i] = vms[i].Version
	}
	return result
}

// Reverse returns a new slice in the opposite order
func (vms VersionedMigrations) Reverse() VersionedMigrations {
	result := make(VersionedMigrations, len(vms))
	for i := range vms {
		result[len(vms)-1-i] = vms[i]
	}
	return result
}
