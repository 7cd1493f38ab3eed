package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/interview-engine/internal/config"
	"github.com/terra-clan/interview-engine/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long:  "Apply pending database migrations from --dir, or from the migrations built into the binary when the directory does not exist.",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().String("dir", "", "Migrations directory (overrides MIGRATIONS_DIR)")
	migrateCmd.Flags().Bool("status", false, "List pending migrations without applying them")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logLevel.Set(cfg.Log.Level)

	dir := cfg.Database.MigrationsDir
	if d, _ := cmd.Flags().GetString("dir"); d != "" {
		dir = d
	}
	source := storage.MigrationSource(dir)

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	if status, _ := cmd.Flags().GetBool("status"); status {
		repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{DSN: cfg.Database.DSN, MaxOpenConns: 2})
		if err != nil {
			return err
		}
		defer repo.Close()

		pending, err := storage.PendingMigrations(ctx, repo.Pool(), source)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
			return nil
		}
		for _, name := range pending {
			fmt.Fprintln(cmd.OutOrStdout(), "pending:", name)
		}
		return nil
	}

	return storage.MigrateFromDSN(ctx, cfg.Database.DSN, source)
}
