package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RanitManik/lucide-note/internal/authpw"
	"github.com/RanitManik/lucide-note/internal/config"
	"github.com/RanitManik/lucide-note/internal/maintenance"
	"github.com/RanitManik/lucide-note/internal/store"
)

var (
	databaseURL   string
	migrationsDir string
	seedPassword  string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending SQL migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDB(cmd, func(ctx context.Context, db *sql.DB) error {
			if err := store.ApplyMigrations(ctx, db, migrationsDir); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo tenants, users and notes",
	Long: `Creates the acme and globex tenants with an admin and a member each,
plus a few welcome notes. Existing rows are left alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		hash, err := authpw.HashPassword(seedPassword)
		if err != nil {
			return err
		}
		return withDB(cmd, func(ctx context.Context, db *sql.DB) error {
			if err := store.NewPostgresStore(db).SeedDemoData(ctx, hash); err != nil {
				return err
			}
			cmd.Println("demo data seeded")
			return nil
		})
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete long-expired shares and refresh sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDB(cmd, func(ctx context.Context, db *sql.DB) error {
			s := store.NewPostgresStore(db)
			report, err := maintenance.NewPurger(s, s).RunOnce(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("purged %d shares, %d sessions\n", report.Shares, report.Sessions)
			return nil
		})
	},
}

func init() {
	cfg := config.Load()
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database", cfg.DatabaseURL, "Postgres connection URL")
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", cfg.MigrationsDir, "migrations directory")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "password for every demo account")
	rootCmd.AddCommand(migrateCmd, seedCmd, purgeCmd)
}

func withDB(cmd *cobra.Command, fn func(context.Context, *sql.DB) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := store.Open(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()
	return fn(ctx, db)
}
