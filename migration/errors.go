package migration

import (
	"fmt"
	"strings"

	"github.com/denismitr/shift/database"
	"github.com/pkg/errors"
)

var ErrNilMigration = errors.New("migration factory returned nil")

// DiscoveryError is returned when a catalog can not be built
// because several definitions share the same version number
type DiscoveryError struct {
	Number       uint64
	Descriptions []string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf(
		"duplicate migration version %d: [%s]",
		e.Number, strings.Join(e.Descriptions, ", "),
	)
}

// ExecutionError reports a failed migration step. Current holds the
// version that remained persisted after the failure.
type ExecutionError struct {
	Version   database.Version
	Direction Direction
	Current   database.Version
	Cause     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf(
		"migration [%s] failed going %s, current version stays at [%s]: %v",
		e.Version, e.Direction, e.Current, e.Cause,
	)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}
