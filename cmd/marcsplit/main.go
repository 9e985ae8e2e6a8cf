// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the marcsplit CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time via ldflags.
var version = "dev"

// logger carries per-record diagnostics. It is replaced in
// PersistentPreRunE once the log level is known.
var logger = zap.NewNop()

// rootCmd is the base command for the marcsplit CLI.
var rootCmd = &cobra.Command{
	Use:   "marcsplit",
	Short: "Split MARC catalog exports into destination files and tables",
	Long: `marcsplit reads MARC records (ISO 2709 .mrc or MARCXML .xml), classifies
each record by its 964 $a collection codes, and writes it to every matching
destination. Profiles declare the destinations, an optional prefilter, the
035-based split of CLE into CLE-I and CLE-II, and the columns extracted for
tabular output.

Subcommands: divide writes record files, extract writes CSV or SQLite tables,
census and tally report on a corpus, profile lists and exports profiles.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(setting(cmd.Flags(), "log-level", "log.level"))
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./marcsplit.yaml or ~/.config/marcsplit/marcsplit.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "diagnostic log level (debug, info, warn, error)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("marcsplit")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "marcsplit"))
		}
	}

	viper.SetEnvPrefix("MARCSPLIT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setting returns the flag value when it was given on the command line,
// otherwise the config or environment value for key, otherwise the flag
// default.
func setting(flags *pflag.FlagSet, flag, key string) string {
	f := flags.Lookup(flag)
	if f != nil && f.Changed {
		return f.Value.String()
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	if f != nil {
		return f.Value.String()
	}
	return ""
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
