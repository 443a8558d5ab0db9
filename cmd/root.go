package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pable/pgaweekly/internal/config"
	"github.com/pable/pgaweekly/internal/logging"
	"github.com/pable/pgaweekly/internal/storage"
)

var (
	cfgFile string

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "pgaweekly",
	Short: "Weekly PGA Tour results and skills sync",
	Long: `Refresh tournament results and skill profiles for every player in a
tournament field, writing them idempotently to the local database.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML config file")
	pf.String("db", "", "SQLite path or postgres:// URL (default ~/.pgaweekly/weekly.db)")
	pf.String("log-level", "", "debug, info, warn or error (default info)")

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(registryCmd)
	rootCmd.AddCommand(fieldCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"db":        "db",
	"log-level": "log_level",
	"delay":     "delay",
}

func initConfig(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd); err != nil {
		return err
	}
	if cfg, err = config.Load(v); err != nil {
		return err
	}
	if logger, err = logging.New(cfg.LogLevel, cfg.LogFormat); err != nil {
		return errors.Wrap(err, "build logger")
	}
	return nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "bind --%s", flag)
		}
	}
	return nil
}

// openStore opens the configured database, creating the SQLite directory
// when needed.
func openStore(ctx context.Context) (*storage.DB, error) {
	if storage.DialectFor(cfg.DB) == storage.SQLite && cfg.DB != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB), 0755); err != nil {
			return nil, errors.Wrap(err, "create db dir")
		}
	}
	db, err := storage.Open(ctx, cfg.DB, logger)
	if err != nil {
		return nil, errors.Wrap(err, "open storage")
	}
	return db, nil
}

// printError writes err and any hints attached to it to stderr.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "[error] %v\n", err)
	for _, h := range errors.GetAllHints(err) {
		fmt.Fprintf(os.Stderr, "  hint: %s\n", h)
	}
}
