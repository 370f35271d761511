package cli

import (
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const DefaultTimeout = 120 * time.Second

const configFileStub = `version: "1"
migrations:
  database_url: "%%SHIFT_DATABASE_URL%%"
  database_name: ""
  versions_collection: migrations
  lock_url: ""
  timeout: 120s
`

var ErrDatabaseURLMissing = errors.New("database url was not defined")

type (
	Config struct {
		DatabaseURL        string
		DatabaseName       string
		VersionsCollection string
		LockURL            string
		Timeout            time.Duration
		Verbose            bool
	}

	migrations struct {
		DatabaseURL        string `yaml:"database_url"`
		DatabaseName       string `yaml:"database_name"`
		VersionsCollection string `yaml:"versions_collection"`
		LockURL            string `yaml:"lock_url"`
		Timeout            string `yaml:"timeout"`
	}

	configFile struct {
		Version    string     `yaml:"version"`
		Migrations migrations `yaml:"migrations"`
	}
)

func createConfigFromYaml(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "could not open shift configuration file")
	}

	defer func() {
		_ = f.Close()
	}()

	b, err := ioutil.ReadAll(f)
	if err != nil {
		return cfg, errors.Wrap(err, "could not read shift configuration file")
	}

	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	var cfg Config
	var cfgFile configFile
	if err := yaml.Unmarshal(b, &cfgFile); err != nil {
		return cfg, errors.Wrap(err, "could not parse shift configuration file")
	}

	cfg.DatabaseURL = fromEnv(cfgFile.Migrations.DatabaseURL)
	cfg.DatabaseName = fromEnv(cfgFile.Migrations.DatabaseName)
	cfg.VersionsCollection = fromEnv(cfgFile.Migrations.VersionsCollection)
	cfg.LockURL = fromEnv(cfgFile.Migrations.LockURL)
	cfg.Timeout = DefaultTimeout

	if timeout := fromEnv(cfgFile.Migrations.Timeout); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return cfg, errors.Wrapf(err, "invalid timeout [%s]", timeout)
		}
		cfg.Timeout = d
	}

	if cfg.DatabaseURL == "" {
		return cfg, ErrDatabaseURLMissing
	}

	return cfg, nil
}

// fromEnv resolves values written as %%ENV_VAR%%
func fromEnv(value string) string {
	if strings.HasPrefix(value, "%%") && strings.HasSuffix(value, "%%") && len(value) > 4 {
		return os.Getenv(strings.ReplaceAll(value, "%%", ""))
	}

	return value
}
