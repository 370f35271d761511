package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/denismitr/shift"
	"github.com/denismitr/shift/database"
	"github.com/denismitr/shift/migration"
	"github.com/pkg/errors"
)

var ErrConfigAlreadyExists = errors.New("configuration file already exists")

type (
	CloserFunc func() error

	ActionConfig struct {
		Steps  int
		Target string
	}

	App struct {
		migrator *shift.Migrator
	}
)

func NewFromYaml(path string, defs []migration.Definition, out io.Writer) (*App, CloserFunc, error) {
	cfg, err := createConfigFromYaml(path)
	if err != nil {
		return nil, nil, err
	}

	return New(cfg, defs, out)
}

func New(cfg Config, defs []migration.Definition, out io.Writer) (*App, CloserFunc, error) {
	m, closer, err := createMigrator(cfg, defs, out)
	if err != nil {
		return nil, nil, err
	}

	return &App{migrator: m}, CloserFunc(closer), nil
}

func (app *App) Migrate(ctx context.Context, cfg ActionConfig) (database.Versions, error) {
	configurators, err := shift.CreateConfigurators(cfg.Steps, cfg.Target)
	if err != nil {
		return nil, err
	}

	return app.migrator.Up(ctx, configurators...)
}

func (app *App) Rollback(ctx context.Context, cfg ActionConfig) (database.Versions, error) {
	configurators, err := shift.CreateConfigurators(cfg.Steps, cfg.Target)
	if err != nil {
		return nil, err
	}

	return app.migrator.Down(ctx, configurators...)
}

func (app *App) Refresh(ctx context.Context, cfg ActionConfig) (database.Versions, database.Versions, error) {
	configurators, err := shift.CreateConfigurators(cfg.Steps, "")
	if err != nil {
		return nil, nil, err
	}

	return app.migrator.Refresh(ctx, configurators...)
}

func (app *App) Status(ctx context.Context) (database.Version, []shift.Status, error) {
	current, err := app.migrator.Current(ctx)
	if err != nil {
		return database.Version{}, nil, err
	}

	status, err := app.migrator.Status(ctx)
	if err != nil {
		return database.Version{}, nil, err
	}

	return current, status, nil
}

// InitCfg writes a configuration file stub
func InitCfg(path string) error {
	if FileExists(path) {
		return errors.Wrapf(ErrConfigAlreadyExists, "[%s]", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "could not create config file")
	}

	defer func() {
		_ = f.Close()
	}()

	if _, err := io.Copy(f, strings.NewReader(configFileStub)); err != nil {
		return errors.Wrap(err, "could not write config file")
	}

	return nil
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
