// Package cli implements the salesbot command line.
package cli

import (
	"github.com/soyeahso/salesbot/internal/config"
	"github.com/soyeahso/salesbot/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "salesbot",
		Short: "salesbot: sales order lookup bot for Telegram",
		Long:  "salesbot lets sales officers log in from a chat and list their most recent orders.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot()
		},
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.salesbot/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, silent)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newHashPasswordCmd())
	cmd.AddCommand(newDBCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig reads the config file and environment, fills the default SQLite
// path and rebuilds the logger from the logging section. An explicit
// --log-level still wins.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config, paths.EnvFile)
	if err != nil {
		return cfg, err
	}
	if cfg.Database.Driver == config.DriverSQLite && cfg.Database.URL == "" {
		cfg.Database.URL = paths.DefaultSQLitePath()
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	log = logging.New(logging.Console(cfg.Logging.ConsoleStyle), cfg.Logging.Level)
	return cfg, nil
}
