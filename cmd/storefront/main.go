package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"storefront/internal/config"
	applog "storefront/internal/log"
	"storefront/internal/repos"
)

var (
	configFile string
	v          *viper.Viper
)

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"db-driver": "db_driver",
	"db-dsn":    "db_dsn",
	"log-level": "log_level",
	"port":      "port",
}

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Storefront API server and admin tooling",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if v, err = config.New(configFile); err != nil {
			return err
		}
		// A flag only wins over file and environment values when set.
		for flag, key := range flagKeys {
			if f := cmd.Flags().Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (yaml, json or toml)")
	pf.String("db-driver", "sqlite", "database driver: sqlite or pgx")
	pf.String("db-dsn", "storefront.db", "database DSN")
	pf.String("log-level", "info", "log level")

	rootCmd.AddCommand(serveCmd, initdbCmd, createAdminCmd)
}

// load materializes the config and the process logger. The returned func
// flushes the logger.
func load() (config.Config, func(), error) {
	cfg, err := config.FromViper(v)
	if err != nil {
		return cfg, nil, err
	}
	closeLog, err := applog.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return cfg, nil, fmt.Errorf("log setup: %w", err)
	}
	return cfg, closeLog, nil
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	return repos.Open(ctx, repos.Options{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DBDSN,
		MaxOpenConns:    cfg.MaxOpenConns(),
		MaxIdleConns:    cfg.DBPoolSize,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}
