package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/infra/postgres"
	pgmigrations "quiz-attempt-service/internal/infra/postgres/migrations"
	"quiz-attempt-service/internal/infra/sqlite"
	"quiz-attempt-service/internal/logger"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	switch driver := cfg.StorageDriver(); driver {
	case config.DriverPostgres:
		return runMigrationsWithConfig(ctx, cfg, log)
	case config.DriverSQLite:
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = defaultSQLitePath
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := sqlite.Migrate(db); err != nil {
			return err
		}
		log.Info("migrations applied", "driver", driver, "path", path)
		return nil
	default:
		return fmt.Errorf("storage driver %q has no migrations", driver)
	}
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := postgres.Open(cfg.Postgres.URL)
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Info("no new migrations")
		return nil
	}
	log.Info("migrations applied", "driver", config.DriverPostgres, "group", group.String())
	return nil
}
