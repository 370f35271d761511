package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/denismitr/shift/database"
	"github.com/denismitr/shift/migration"
	"github.com/logrusorgru/aurora/v3"
	"github.com/pkg/errors"
)

const prefix = "shift-cli: "

// Run executes the command given by args against the migrations and
// returns the process exit code
func Run(ctx context.Context, defs []migration.Definition, args []string, out io.Writer) int {
	fs := flag.NewFlagSet("shift", flag.ContinueOnError)
	fs.SetOutput(out)

	migrateCmd := fs.Bool("migrate", false, "run the migrations")
	rollbackCmd := fs.Bool("rollback", false, "rollback the migrations")
	refreshCmd := fs.Bool("refresh", false, "refresh the migrations (rollback and then migrate)")
	statusCmd := fs.Bool("status", false, "show the current version and every known migration")
	initCmd := fs.Bool("init", false, "create a configuration file")

	configPath := fs.String("config", "shift.yaml", "configuration file")
	databaseURL := fs.String("db", "", "database url, overrides the configuration file")
	target := fs.String("target", "", "version to migrate or rollback to")
	steps := fs.Int("steps", 0, "max number of migrations to run")
	verbose := fs.Bool("verbose", false, "print debug messages and commands")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if *initCmd {
		if err := InitCfg(*configPath); err != nil {
			fail(out, err)
			return 1
		}

		fmt.Fprintln(out, aurora.Green(prefix), "created", *configPath)
		return 0
	}

	if !*migrateCmd && !*rollbackCmd && !*refreshCmd && !*statusCmd {
		fmt.Fprintln(out, aurora.Red(prefix), "Unknown command")
		return 1
	}

	cfg := Config{Timeout: DefaultTimeout}
	if *databaseURL == "" || FileExists(*configPath) {
		var err error
		if cfg, err = createConfigFromYaml(*configPath); err != nil {
			fail(out, err)
			return 1
		}
	}

	if *databaseURL != "" {
		cfg.DatabaseURL = *databaseURL
	}

	cfg.Verbose = *verbose

	app, closer, err := New(cfg, defs, out)
	if err != nil {
		fail(out, err)
		return 1
	}

	defer func() {
		if err := closer(); err != nil {
			fail(out, err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	action := ActionConfig{Steps: *steps, Target: *target}

	switch {
	case *migrateCmd:
		_, err = app.Migrate(ctx, action)
	case *rollbackCmd:
		_, err = app.Rollback(ctx, action)
	case *refreshCmd:
		_, _, err = app.Refresh(ctx, action)
	case *statusCmd:
		err = printStatus(ctx, app, out)
	}

	if err != nil {
		if errors.Is(err, database.ErrNoChangesRequired) {
			fmt.Fprintln(out, aurora.Green(prefix), "Nothing to migrate")
			return 0
		}

		fail(out, err)
		return 1
	}

	fmt.Fprintln(out, aurora.Green(prefix), "all done")
	return 0
}

func printStatus(ctx context.Context, app *App, out io.Writer) error {
	current, status, err := app.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, aurora.Green(prefix), fmt.Sprintf("current version %s", current))
	for _, s := range status {
		mark := "[ ]"
		if s.Applied {
			mark = "[x]"
		}
		fmt.Fprintf(out, "%s %d %s\n", mark, s.Version.Number, s.Version.Description)
	}

	return nil
}

func fail(out io.Writer, err error) {
	var execErr *migration.ExecutionError
	if !errors.As(err, &execErr) {
		fmt.Fprintln(out, aurora.Red(prefix), err.Error())
		return
	}

	fmt.Fprintln(out, aurora.Red(prefix), fmt.Sprintf(
		"migration %d [%s] failed going %s",
		execErr.Version.Number, execErr.Version.Description, execErr.Direction,
	))
	fmt.Fprintln(out, aurora.Red(prefix), "cause:", execErr.Cause)
	fmt.Fprintln(out, aurora.Red(prefix), fmt.Sprintf("stopped at version %d", execErr.Current.Number))
}
