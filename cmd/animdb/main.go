package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/milk9111/animdb/config"
	"github.com/milk9111/animdb/controller"
	"github.com/milk9111/animdb/database"
	"github.com/milk9111/animdb/table"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type app struct {
	configPath string
	envPath    string
	dbPath     string
	debug      bool
	asJSON     bool

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "animdb",
		Short:        "Bake and query animator controller metadata",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if a.debug {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultFile, "project config file")
	root.PersistentFlags().StringVar(&a.envPath, "env", ".env", "dotenv file with ANIMDB_* overrides")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database file to query (defaults to the configured output)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.bakeCmd(),
		a.listCmd(),
		a.statesCmd(),
		a.parametersCmd(),
		a.layersCmd(),
		a.countCmd(),
		a.hashCmd(),
		a.runCmd(),
	)
	return root
}

// loadConfig layers the project file, dotenv file and environment. The
// project file is optional only when left at its default name.
func (a *app) loadConfig(cmd *cobra.Command) (config.Config, error) {
	optional := !cmd.Flags().Changed("config")
	cfg, err := config.Load(a.configPath, optional)
	if err != nil {
		return config.Config{}, err
	}
	if err := config.LoadEnvFile(a.envPath); err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openTable loads the database and builds its table.
func (a *app) openTable(cmd *cobra.Command) (*table.Table, controller.HashFunc, error) {
	path := a.dbPath
	if path == "" {
		cfg, err := a.loadConfig(cmd)
		if err != nil {
			return nil, nil, err
		}
		path = cfg.Output
	}

	db, err := database.Load(path)
	if err != nil {
		return nil, nil, err
	}
	hash, err := db.HashFunc()
	if err != nil {
		return nil, nil, err
	}
	tbl := db.Table(table.WithLogger(a.logger))
	if err := tbl.Build(); err != nil {
		return nil, nil, err
	}
	a.logger.Debug("database loaded", "path", path, "controllers", len(db.Controllers), "hash", db.Hash)
	return tbl, hash, nil
}
