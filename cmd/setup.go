package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a config file when none exists, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			r.configPath = configPath
			if config, err := r.loadConfig(); err == nil {
				r.config = config
			} else {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
			}
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	db, err := r.openDatabase()
	if err != nil {
		return err
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)

	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Add your Last.fm and OpenAI keys to %s (or LAST_FM_API_KEY / OPENAI_API_KEY)\n", configPath)
	r.writePlain("2. Run 'beatbuddy user create <name> --password <pw>'\n")
	r.writePlain("3. Run 'beatbuddy serve --open' or 'beatbuddy chat --user <name>'\n")
	return nil
}

// Migrate applies pending migrations.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return r.writePlain("✓ Migrations applied to %s\n", r.config.Database.Path)
}

// Rollback reverts the most recently applied migration.
func (r *Runner) Rollback(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back: %w", err)
	}
	return r.writePlain("✓ Rolled back the latest migration\n")
}

type migrationView struct {
	Version   int        `json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"appliedAt,omitempty"`
}

// MigrationStatus lists every migration and when it was applied.
func (r *Runner) MigrationStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	statuses, err := shared.MigrationStatuses(db)
	if err != nil {
		return err
	}

	views := make([]migrationView, len(statuses))
	for i, s := range statuses {
		views[i] = migrationView{Version: s.Version, Name: s.Name, Applied: s.Applied}
		if s.Applied {
			at := s.AppliedAt
			views[i].AppliedAt = &at
		}
	}

	return r.emit(views, func() error {
		r.writePlainHeader("Migrations: " + r.config.Database.Path)
		for _, v := range views {
			mark := "✗ pending"
			if v.Applied {
				mark = "✓ " + v.AppliedAt.Local().Format(time.DateTime)
			}
			r.writePlain("%03d %-32s %s\n", v.Version, v.Name, mark)
		}
		return nil
	})
}
