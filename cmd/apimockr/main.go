// Package main provides the apimockr CLI: a configurable fake-data REST
// API server with a relational store behind it.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/apimockr/apimockr/pkg/config"
	"github.com/apimockr/apimockr/pkg/logging"
)

// Build-time variables set via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// configFile is set by the --config flag.
var configFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "apimockr",
	Short: "apimockr is a fake-data REST API server",
	Long: `apimockr serves a JSONPlaceholder-style REST API over a SQLite
store: generic CRUD on users, posts, todos, and comments, with filtering,
sorting, pagination, free-text search, and related-resource lookups.
The dataset resets to its seed state every night at midnight UTC.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: built-in defaults plus APIMOCKR_* environment)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("apimockr %s (commit %s, built %s)\n", version, commit, buildDate)
	},
}

// loadRuntime resolves configuration and builds the logger shared by the
// subcommands.
func loadRuntime() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
	})
	return cfg, log, nil
}
