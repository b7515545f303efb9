package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joeshaw/bods-gtfs/internal/config"
	"github.com/joeshaw/bods-gtfs/internal/region"
)

var (
	envFile string

	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:           "bods-gtfs",
	Short:         "Load Bus Open Data Service GTFS timetables into SQLite",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(viper.GetViper(), envFile)
		if err != nil {
			return err
		}
		logger = cfg.NewLogger()
		return nil
	},
}

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List the region codes ingest accepts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		for _, r := range region.All() {
			fmt.Fprintf(out, "%-10s %-14s %s\n", r.Code, r.Slug, r.Name)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading BODS_* variables")
	flags.String("data-dir", ".bods-data", "directory holding the database")
	flags.String("staging-dir", "", "directory archives are downloaded and extracted to (default <data-dir>/staging)")
	flags.String("database-file", "database.sqlite", "database file name, relative to data-dir unless absolute")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.Int("max-open-conns", 1, "maximum open database connections")
	flags.Duration("busy-timeout", 30*time.Second, "how long a writer waits on a locked database")

	for _, name := range []string{"data-dir", "staging-dir", "database-file", "log-level", "log-format", "max-open-conns", "busy-timeout"} {
		_ = viper.BindPFlag(configKey(name), flags.Lookup(name))
	}

	rootCmd.AddCommand(ingestCmd, serveCmd, regionsCmd)
}

// configKey maps a flag name to its viper key
func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.WithError(err).Error("Command failed")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
