package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"mldash/adapters/memory"
	"mldash/adapters/postgres"
	"mldash/internal/config"
	"mldash/internal/devbackend"
	"mldash/internal/errors"
	"mldash/internal/logging"
	"mldash/internal/migration"
	"mldash/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "mldash-dev",
		Short: "Development backend for the dataset dashboard",
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var seedFiles []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dataset API from memory, or Postgres when DATABASE_URL is set",
		Long: `Serve the dataset API the dashboard reads from.

Example: mldash-dev serve --seed testdata/people.csv --seed sales.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.NewLogger(cfg.Log.Level)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := openStore(ctx, cfg.DevBackend.DatabaseURL, log)
			if err != nil {
				return err
			}
			defer closeStore()

			for _, path := range seedFiles {
				if err := seed(ctx, store, path, log); err != nil {
					return err
				}
			}

			server := devbackend.NewServer(store, cfg.DevBackend.PreviewLimit, log)
			if err := server.Start(ctx, ":"+cfg.DevBackend.Port); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&seedFiles, "seed", nil, "CSV or Excel file to load before serving (repeatable)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the dataset tables in DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DevBackend.DatabaseURL == "" {
				return errors.ConfigInvalid("DATABASE_URL is required")
			}
			log := logging.NewLogger(cfg.Log.Level)

			db, err := connect(cfg.DevBackend.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			runner := migration.NewRunner()
			if err := runner.Run(cmd.Context(), db); err != nil {
				return err
			}
			log.WithField("version", runner.Version()).Info("migrations applied")
			return nil
		},
	}
}

func connect(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	return db, nil
}

// openStore returns the Postgres store when databaseURL is set, otherwise an
// in-memory store that lives as long as the process.
func openStore(ctx context.Context, databaseURL string, log logrus.FieldLogger) (ports.DatasetStore, func(), error) {
	if databaseURL == "" {
		log.Info("DATABASE_URL not set, keeping datasets in memory")
		return memory.NewDatasetStore(), func() {}, nil
	}

	db, err := connect(databaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("using Postgres dataset store")
	return postgres.NewDatasetStore(db), func() { db.Close() }, nil
}

func seed(ctx context.Context, store ports.DatasetStore, path string, log logrus.FieldLogger) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open seed file %s", path)
	}
	defer f.Close()

	stored, err := devbackend.ImportFile(ctx, store, filepath.Base(path), f, time.Now(), log)
	if err != nil {
		return errors.Wrapf(err, "failed to import %s", path)
	}
	log.WithFields(logrus.Fields{
		"dataset_id": stored.Meta.ID,
		"file":       stored.Meta.FileName,
		"rows":       stored.Meta.Rows,
	}).Info("seeded dataset")
	return nil
}
