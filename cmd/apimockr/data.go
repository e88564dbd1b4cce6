package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/apimockr/apimockr/pkg/seed"
	"github.com/apimockr/apimockr/pkg/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the seed dataset into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReseed("seed data loaded")
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe the database and reload the seed dataset",
	Long: `Wipe every record and reload the embedded seed dataset. This is
the same operation the server performs nightly at midnight UTC.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReseed("database reset to seed data")
	},
}

func runReseed(doneMsg string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := seed.Seed(context.Background(), st); err != nil {
		return err
	}
	log.Info(doneMsg, "database", cfg.DatabasePath)
	return nil
}
