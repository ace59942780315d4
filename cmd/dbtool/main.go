package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"
	"visit-route-engine/internal/adapters/repositories"
	"visit-route-engine/internal/platform/config"
	"visit-route-engine/internal/platform/db"
	"visit-route-engine/internal/platform/obs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		cfg        *config.Config
	)

	root := &cobra.Command{
		Use:           "dbtool",
		Short:         "Manage the route engine database",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "no .env file found (using environment variables)")
			}
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if loaded.Database.URL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			obs.InitLogger(loaded.Log)
			cfg = loaded
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("ROUTE_CONFIG"), "path to a YAML config file")

	withDB := func(fn func(ctx context.Context, conn *sql.DB) error) error {
		conn, err := db.Open(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return fn(ctx, conn)
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withDB(func(ctx context.Context, conn *sql.DB) error {
				log := obs.Logger()
				log.Info().Msg("initializing database schema")
				if err := repositories.InitSchema(ctx, conn); err != nil {
					return fmt.Errorf("schema initialization failed: %w", err)
				}
				log.Info().Msg("schema ready")
				return nil
			})
		},
	}

	var seedFile string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Create the schema and upsert points from a JSON file",
		RunE: func(_ *cobra.Command, _ []string) error {
			if seedFile == "" {
				seedFile = cfg.Database.SeedPath
			}
			return withDB(func(ctx context.Context, conn *sql.DB) error {
				log := obs.Logger()
				if err := repositories.InitSchema(ctx, conn); err != nil {
					return fmt.Errorf("schema initialization failed: %w", err)
				}
				n, err := repositories.SeedFromJSON(ctx, conn, seedFile)
				if err != nil {
					return fmt.Errorf("seeding failed: %w", err)
				}
				log.Info().Int("points", n).Str("file", seedFile).Msg("seeding complete")
				return nil
			})
		},
	}
	seed.Flags().StringVarP(&seedFile, "file", "f", "", "seed JSON file (defaults to database.seed_path)")

	root.AddCommand(migrate, seed)
	return root
}
