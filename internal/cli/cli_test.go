package cli

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/denismitr/shift/database"
	"github.com/denismitr/shift/examples/users"
	"github.com/denismitr/shift/migration"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseConfig(t *testing.T) {
	t.Run("it will resolve environment variables", func(t *testing.T) {
		t.Setenv("SHIFT_TEST_DATABASE_URL", "mongodb://localhost:27017/app")

		cfg, err := parseConfig([]byte(`
version: "1"
migrations:
  database_url: "%%SHIFT_TEST_DATABASE_URL%%"
  database_name: app
  versions_collection: schema_versions
  timeout: 30s
`))
		require.NoError(t, err)

		assert.Equal(t, "mongodb://localhost:27017/app", cfg.DatabaseURL)
		assert.Equal(t, "app", cfg.DatabaseName)
		assert.Equal(t, "schema_versions", cfg.VersionsCollection)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
	})

	t.Run("it will use the default timeout", func(t *testing.T) {
		cfg, err := parseConfig([]byte("migrations:\n  database_url: memory://\n"))
		require.NoError(t, err)
		assert.Equal(t, DefaultTimeout, cfg.Timeout)
	})

	t.Run("it requires a database url", func(t *testing.T) {
		_, err := parseConfig([]byte("migrations:\n  database_url: \"%%SHIFT_TEST_UNDEFINED%%\"\n"))
		assert.True(t, errors.Is(err, ErrDatabaseURLMissing))
	})

	t.Run("it rejects an invalid timeout", func(t *testing.T) {
		_, err := parseConfig([]byte("migrations:\n  database_url: memory://\n  timeout: soon\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid timeout [soon]")
	})
}

func Test_InitCfg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shift.yaml")

	require.NoError(t, InitCfg(path))
	assert.True(t, FileExists(path))

	t.Setenv("SHIFT_DATABASE_URL", "memory://")
	cfg, err := createConfigFromYaml(path)
	require.NoError(t, err)
	assert.Equal(t, "memory://", cfg.DatabaseURL)
	assert.Equal(t, "migrations", cfg.VersionsCollection)

	err = InitCfg(path)
	assert.True(t, errors.Is(err, ErrConfigAlreadyExists))
}

func Test_createMigratorFrom(t *testing.T) {
	t.Parallel()

	tt := []struct {
		name string
		url  string
		err  string
	}{
		{name: "unknown driver", url: "postgres://localhost/app", err: "could not find factory for driver [postgres]"},
		{name: "no scheme", url: "localhost", err: "could not find factory for driver []"},
		{name: "mongodb without database name", url: "mongodb://localhost:27017", err: ErrDatabaseNameMissing.Error()},
	}

	for _, tc := range tt {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m, closer, err := createMigrator(Config{DatabaseURL: tc.url}, users.Definitions(), &bytes.Buffer{})
			require.Error(t, err)
			assert.EqualError(t, err, tc.err)
			assert.Nil(t, m)
			assert.Nil(t, closer)
		})
	}
}

func Test_RunWithSqlite(t *testing.T) {
	dir := t.TempDir()
	dbURL := "sqlite://" + filepath.Join(dir, "shift.db")
	missingConfig := filepath.Join(dir, "missing.yaml")

	run := func(args ...string) (int, string) {
		var out bytes.Buffer
		args = append([]string{"-config", missingConfig, "-db", dbURL}, args...)
		code := Run(context.Background(), users.Definitions(), args, &out)
		return code, out.String()
	}

	code, out := run("-migrate", "-steps", "2")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "migrated: version 1, description add field status")
	assert.Contains(t, out, "migrated: version 2, description rename field login to username")
	assert.NotContains(t, out, "version 3")
	assert.Contains(t, out, "all done")

	code, out = run("-status")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "current version 2 rename field login to username")
	assert.Contains(t, out, "[x] 1 add field status")
	assert.Contains(t, out, "[x] 2 rename field login to username")
	assert.Contains(t, out, "[ ] 3 drop field legacy_flags")

	code, out = run("-migrate")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "migrated: version 3, description drop field legacy_flags")

	code, out = run("-migrate")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Nothing to migrate")

	code, out = run("-rollback", "-target", "1")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "rolled back: version 3, description drop field legacy_flags")
	assert.Contains(t, out, "rolled back: version 2, description rename field login to username")
	assert.NotContains(t, out, "rolled back: version 1")

	code, out = run("-refresh")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "rolled back: version 1, description add field status")
	assert.Contains(t, out, "migrated: version 1, description add field status")
	assert.Contains(t, out, "all done")
}

func Test_RunReportsFailures(t *testing.T) {
	defs := []migration.Definition{
		migration.Register(1, "create users", func(database.DB) migration.Migration {
			return migration.Funcs{}
		}),
		migration.Register(2, "index users", func(database.DB) migration.Migration {
			return migration.Funcs{UpFn: func(context.Context) error {
				return errors.New("index build failed")
			}}
		}),
	}

	missingConfig := filepath.Join(t.TempDir(), "missing.yaml")

	t.Run("it prints the failed version and exits with 1", func(t *testing.T) {
		var out bytes.Buffer
		code := Run(context.Background(), defs, []string{"-config", missingConfig, "-db", "memory://", "-migrate"}, &out)

		assert.Equal(t, 1, code)
		assert.Contains(t, out.String(), "migration 2 [index users] failed going up")
		assert.Contains(t, out.String(), "cause: index build failed")
		assert.Contains(t, out.String(), "stopped at version 1")
	})

	t.Run("it rejects an unknown command", func(t *testing.T) {
		var out bytes.Buffer
		code := Run(context.Background(), defs, []string{"-db", "memory://"}, &out)

		assert.Equal(t, 1, code)
		assert.Contains(t, out.String(), "Unknown command")
	})

	t.Run("it requires a configuration when no database is given", func(t *testing.T) {
		var out bytes.Buffer
		code := Run(context.Background(), defs, []string{"-config", missingConfig, "-migrate"}, &out)

		assert.Equal(t, 1, code)
		assert.Contains(t, out.String(), "could not open shift configuration file")
	})

	t.Run("it creates a configuration file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "shift.yaml")

		var out bytes.Buffer
		code := Run(context.Background(), defs, []string{"-init", "-config", path}, &out)
		require.Equal(t, 0, code)

		b, err := ioutil.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, configFileStub, string(b))
	})
}
