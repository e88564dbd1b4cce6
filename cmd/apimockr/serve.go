package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/apimockr/apimockr/internal/scheduler"
	"github.com/apimockr/apimockr/pkg/resource"
	"github.com/apimockr/apimockr/pkg/seed"
	"github.com/apimockr/apimockr/pkg/server"
	"github.com/apimockr/apimockr/pkg/store"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the HTTP server. The store is seeded on first run (empty
database) and, unless disabled, reseeded every night at midnight UTC.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		empty, err := storeIsEmpty(ctx, st)
		if err != nil {
			return err
		}
		if empty {
			log.Info("empty store, loading seed data")
			if err := seed.Seed(ctx, st); err != nil {
				return err
			}
		}

		reset := func(ctx context.Context) error {
			return seed.Seed(ctx, st)
		}

		srv := server.New(cfg, log, st, reset)

		if cfg.Reset.Enabled {
			sched := scheduler.New(reset, log)
			sched.Start()
			defer sched.Stop()
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			log.Info("shutting down", "signal", sig.String())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// storeIsEmpty reports whether the users table has no records, the signal
// that this is a fresh database.
func storeIsEmpty(ctx context.Context, st *store.Store) (bool, error) {
	n, err := st.Count(ctx, "users", resource.Query{})
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
