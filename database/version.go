package database

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidVersion = errors.New("invalid migration version")

type (
	// Version identifies a migration. Versions are ordered and compared
	// by Number only, the description is metadata
	Version struct {
		Number      uint64
		Description string
	}

	Versions []Version
)

var (
	// Beginning selects everything from the very first migration
	Beginning = Version{Number: 0}

	// Latest selects everything up to the newest known migration
	Latest = Version{Number: math.MaxUint64}
)

func NewVersion(number uint64, description string) Version {
	return Version{Number: number, Description: description}
}

// VersionFromString parses a decimal version number, as given on the command line
func VersionFromString(s string) (Version, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return Version{}, errors.Wrapf(ErrInvalidVersion, "[%s]", s)
	}

	return Version{Number: n}, nil
}

func (v Version) Less(other Version) bool {
	return v.Number < other.Number
}

func (v Version) LessOrEqual(other Version) bool {
	return v.Number <= other.Number
}

func (v Version) Equal(other Version) bool {
	return v.Number == other.Number
}

func (v Version) IsBeginning() bool {
	return v.Number == Beginning.Number
}

func (v Version) String() string {
	if v.Description == "" {
		return strconv.FormatUint(v.Number, 10)
	}

	return strconv.FormatUint(v.Number, 10) + " " + v.Description
}

func (vs Versions) Numbers() []uint64 {
	result := make([]uint64, len(vs))
	for i := range vs {
		result[i] = vs[i].Number
	}
	return result
}

func (vs Versions) Len() int {
	return len(vs)
}

func (vs Versions) Less(i, j int) bool {
	return vs[i].Less(vs[j])
}

func (vs Versions) Swap(i, j int) {
	vs[i], vs[j] = vs[j], vs[i]
}
