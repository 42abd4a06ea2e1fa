package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"lattes-dw/config"
	"lattes-dw/pipeline"
	"lattes-dw/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var subcommandFns = map[string]func(a *app) *cobra.Command{}

// app carries the state shared by all subcommands.
type app struct {
	stdout, stderr io.Writer

	sqlitePath string
	debug      bool

	cfg    *config.Config
	logger *zap.Logger
	svc    *pipeline.Service
}

// execute runs one command line and releases the database afterwards.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr}
	defer a.close()
	rc := newRootCommand(a)
	rc.SetArgs(args)
	return rc.ExecuteContext(ctx)
}

// newRootCommand builds the lattesdw command with every registered subcommand.
func newRootCommand(a *app) *cobra.Command {
	rc := &cobra.Command{
		Use:   "lattesdw",
		Short: "lattesdw - load Lattes research output into the warehouse",
		Long: `Builds the dimensional warehouse from the Lattes staging tables.
Settings come from the environment (or .env), see config.Config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rc.SetOut(a.stdout)
	rc.SetErr(a.stderr)
	rc.PersistentFlags().StringVar(&a.sqlitePath, "sqlite", "", "use this SQLite file instead of PostgreSQL")
	rc.PersistentFlags().BoolVar(&a.debug, "debug", false, "human readable debug logging")

	names := make([]string, 0, len(subcommandFns))
	for name := range subcommandFns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rc.AddCommand(subcommandFns[name](a))
	}
	return rc
}

func (a *app) init() error {
	if a.logger != nil {
		return nil
	}
	var err error
	if a.debug {
		a.logger, err = zap.NewDevelopment()
	} else {
		a.logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	a.cfg, err = config.Load(func(c *config.Config) {
		if a.sqlitePath != "" {
			c.DBDriver = config.DriverSQLite
			c.SQLitePath = a.sqlitePath
		}
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return nil
}

// open connects to the database and wires the pipeline.
func (a *app) open(ctx context.Context) error {
	if err := a.init(); err != nil {
		return err
	}
	db, err := storage.OpenFromConfig(a.cfg)
	if err != nil {
		return err
	}
	a.svc, err = pipeline.NewService(ctx, a.cfg, db, a.logger, nil)
	return err
}

func (a *app) close() {
	if a.svc != nil {
		if sqlDB, err := a.svc.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
