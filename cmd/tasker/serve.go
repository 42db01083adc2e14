package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/seantiz/tasker/internal/api"
	"github.com/seantiz/tasker/internal/config"
	"github.com/seantiz/tasker/internal/engine"
	"github.com/seantiz/tasker/internal/store"
)

// engineShutdownTimeout bounds the wait for completions already in flight.
const engineShutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the task HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd.Flags())
}

func addServeFlags(f *pflag.FlagSet) {
	f.String("config", "", "path to a TOML config file (default $TASKER_CONFIG)")
	f.String("listen", "", "listen address, e.g. :8080")
	f.String("db", "", "SQLite database path")
	f.String("log-level", "", "log level: debug, info, warn, error")
}

// applyFlags overrides cfg with any flags set on the command line.
func applyFlags(cfg *config.Config, f *pflag.FlagSet) error {
	if f.Changed("listen") {
		v, err := f.GetString("listen")
		if err != nil {
			return err
		}
		cfg.ListenAddr = v
	}
	if f.Changed("db") {
		v, err := f.GetString("db")
		if err != nil {
			return err
		}
		cfg.DBPath = v
	}
	if f.Changed("log-level") {
		v, err := f.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = config.ParseLogLevel(v)
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyFlags(&cfg, cmd.Flags()); err != nil {
		return fmt.Errorf("apply flags: %w", err)
	}

	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("tasker: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	eng := engine.NewEngine(db, logger)
	srv := api.NewServer(cfg.ListenAddr, db, eng, logger)

	runErr := srv.Run()

	ctx, cancel := context.WithTimeout(context.Background(), engineShutdownTimeout)
	defer cancel()
	if err := eng.Shutdown(ctx); err != nil {
		logger.Error("engine shutdown", "error", err)
	}

	return runErr
}
