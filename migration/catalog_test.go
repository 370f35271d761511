package migration

import (
	"context"
	"testing"

	"github.com/denismitr/shift/database"
	"github.com/denismitr/shift/database/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type factoryCounter struct {
	calls map[uint64]int
}

func (fc *factoryCounter) factory(number uint64) Factory {
	return func(db database.DB) Migration {
		fc.calls[number]++
		return Funcs{}
	}
}

func TestNewCatalog(t *testing.T) {
	t.Parallel()

	noop := func(database.DB) Migration { return Funcs{} }

	t.Run("it orders definitions by version", func(t *testing.T) {
		c, err := NewCatalog(
			Register(3, "drop field W", noop),
			Register(1, "add field X", noop),
			Register(2, "rename field Y to Z", noop),
		)
		require.NoError(t, err)

		assert.Equal(t, 3, c.Len())
		assert.Equal(t, []uint64{1, 2, 3}, c.Versions().Numbers())
		assert.Equal(t, database.NewVersion(3, "drop field W"), c.Latest())
	})

	t.Run("it skips definitions without version or factory", func(t *testing.T) {
		c, err := NewCatalog(
			Register(0, "no version", noop),
			Register(5, "no factory", nil),
			Register(7, "valid", noop),
		)
		require.NoError(t, err)

		assert.Equal(t, []uint64{7}, c.Versions().Numbers())
	})

	t.Run("it fails on duplicate versions", func(t *testing.T) {
		_, err := NewCatalog(
			Register(1, "add field X", noop),
			Register(2, "rename field Y to Z", noop),
			Register(2, "rename field Y to Q", noop),
		)
		require.Error(t, err)

		var dErr *DiscoveryError
		require.True(t, errors.As(err, &dErr))
		assert.Equal(t, uint64(2), dErr.Number)
		assert.ElementsMatch(t, []string{"rename field Y to Z", "rename field Y to Q"}, dErr.Descriptions)
		assert.Contains(t, err.Error(), "duplicate migration version 2")
	})

	t.Run("empty catalog starts at the beginning", func(t *testing.T) {
		c, err := NewCatalog()
		require.NoError(t, err)
		assert.Equal(t, database.Beginning, c.Latest())
	})
}

func TestCatalog_Previous(t *testing.T) {
	t.Parallel()

	noop := func(database.DB) Migration { return Funcs{} }
	c, err := NewCatalog(
		Register(10, "ten", noop),
		Register(20, "twenty", noop),
		Register(30, "thirty", noop),
	)
	require.NoError(t, err)

	tt := []struct {
		name     string
		version  uint64
		expected database.Version
	}{
		{name: "first version", version: 10, expected: database.Beginning},
		{name: "known version", version: 30, expected: database.NewVersion(20, "twenty")},
		{name: "unknown version", version: 25, expected: database.NewVersion(20, "twenty")},
		{name: "above every version", version: 99, expected: database.NewVersion(30, "thirty")},
		{name: "beginning", version: 0, expected: database.Beginning},
	}

	for _, tc := range tt {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.Previous(database.NewVersion(tc.version, "")))
		})
	}
}

func TestLocator_GetMigrations(t *testing.T) {
	t.Parallel()

	fc := &factoryCounter{calls: make(map[uint64]int)}
	c, err := NewCatalog(
		Register(1, "add field X", fc.factory(1)),
		Register(2, "rename field Y to Z", fc.factory(2)),
		Register(3, "drop field W", fc.factory(3)),
		Register(10, "add index", fc.factory(10)),
	)
	require.NoError(t, err)

	l := c.Locator(memory.New())

	tt := []struct {
		name     string
		after    database.Version
		before   database.Version
		expected []uint64
	}{
		{name: "everything", after: database.Beginning, before: database.Latest, expected: []uint64{1, 2, 3, 10}},
		{name: "lower bound is strict", after: database.NewVersion(1, ""), before: database.Latest, expected: []uint64{2, 3, 10}},
		{name: "upper bound is inclusive", after: database.Beginning, before: database.NewVersion(3, ""), expected: []uint64{1, 2, 3}},
		{name: "range between known versions", after: database.NewVersion(2, ""), before: database.NewVersion(9, ""), expected: []uint64{3}},
		{name: "same bounds select nothing", after: database.NewVersion(3, ""), before: database.NewVersion(3, ""), expected: nil},
		{name: "inverted bounds select nothing", after: database.NewVersion(10, ""), before: database.NewVersion(1, ""), expected: nil},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			vms, err := l.GetMigrations(tc.after, tc.before)
			require.NoError(t, err)

			if tc.expected == nil {
				assert.Len(t, vms, 0)
				return
			}

			assert.Equal(t, tc.expected, vms.Versions().Numbers())
		})
	}

	t.Run("every call creates fresh instances", func(t *testing.T) {
		before := fc.calls[3]

		_, err := l.GetMigrations(database.NewVersion(2, ""), database.NewVersion(3, ""))
		require.NoError(t, err)
		_, err = l.GetMigrations(database.NewVersion(2, ""), database.NewVersion(3, ""))
		require.NoError(t, err)

		assert.Equal(t, before+2, fc.calls[3])
	})

	t.Run("it fails when a factory returns nil", func(t *testing.T) {
		broken, err := NewCatalog(Register(1, "broken", func(database.DB) Migration { return nil }))
		require.NoError(t, err)

		_, err = broken.Locator(memory.New()).GetMigrations(database.Beginning, database.Latest)
		assert.True(t, errors.Is(err, ErrNilMigration))
	})
}

func TestVersionedMigrations(t *testing.T) {
	t.Parallel()

	var calls []string
	vm := VersionedMigration{
		Version: database.NewVersion(1, "foo"),
		Migration: Funcs{
			UpFn:   func(context.Context) error { calls = append(calls, "up"); return nil },
			DownFn: func(context.Context) error { calls = append(calls, "down"); return nil },
		},
	}

	require.NoError(t, vm.Run(context.Background(), DirectionUp))
	require.NoError(t, vm.Run(context.Background(), DirectionDown))
	assert.Equal(t, []string{"up", "down"}, calls)

	vms := VersionedMigrations{
		{Version: database.NewVersion(1, "")},
		{Version: database.NewVersion(2, "")},
		{Version: database.NewVersion(3, "")},
	}

	assert.Equal(t, []uint64{3, 2, 1}, vms.Reverse().Versions().Numbers())
	assert.Equal(t, []uint64{1, 2, 3}, vms.Versions().Numbers())
	assert.Equal(t, "up", DirectionUp.String())
	assert.Equal(t, "down", DirectionDown.String())
}
