package shared

import (
	"testing"
	"time"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		for _, m := range migrations {
			if m.Name == "" {
				t.Errorf("migration version %d has no name", m.Version)
			}
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration version %d missing up or down SQL", m.Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		for _, table := range []string{"users", "user_genres", "sessions", "conversations", "messages", "playlist_entries", "track_matches"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}
		if _, err := db.Exec("SELECT 1 FROM track_matches LIMIT 1"); err == nil {
			t.Error("track_matches should be dropped by rollback")
		}
		if _, err := db.Exec("SELECT 1 FROM playlist_entries LIMIT 1"); err != nil {
			t.Errorf("playlist_entries should survive a single rollback: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed second rollback: %v", err)
		}
		if _, err := db.Exec("SELECT 1 FROM playlist_entries LIMIT 1"); err == nil {
			t.Error("playlist_entries should be dropped by the second rollback")
		}
		if _, err := db.Exec("SELECT 1 FROM users LIMIT 1"); err != nil {
			t.Errorf("users should survive two rollbacks: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed third rollback: %v", err)
		}
		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when nothing is left to roll back")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})

	t.Run("MigrationStatuses", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		statuses, err := MigrationStatuses(db)
		if err != nil {
			t.Fatalf("failed to get statuses: %v", err)
		}
		for _, s := range statuses {
			if s.Applied {
				t.Errorf("migration %d should be pending on a fresh database", s.Version)
			}
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		statuses, err = MigrationStatuses(db)
		if err != nil {
			t.Fatalf("failed to get statuses: %v", err)
		}
		for _, s := range statuses {
			if !s.Applied {
				t.Errorf("migration %d should be applied", s.Version)
			}
			if time.Since(s.AppliedAt) > time.Hour {
				t.Errorf("migration %d has unexpected applied_at %v", s.Version, s.AppliedAt)
			}
		}
	})

	t.Run("Foreign Keys Cascade", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		now := time.Now().UTC()
		if _, err := db.Exec("INSERT INTO users (id, username, password_hash) VALUES (1, 'alice', 'x')"); err != nil {
			t.Fatalf("insert user: %v", err)
		}
		if _, err := db.Exec("INSERT INTO conversations (id, user_id, started_at) VALUES (1, 1, ?)", now); err != nil {
			t.Fatalf("insert conversation: %v", err)
		}
		if _, err := db.Exec("INSERT INTO messages (conversation_id, sender, content, created_at) VALUES (1, 'user', 'hi', ?)", now); err != nil {
			t.Fatalf("insert message: %v", err)
		}
		if _, err := db.Exec("DELETE FROM conversations WHERE id = 1"); err != nil {
			t.Fatalf("delete conversation: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count); err != nil {
			t.Fatalf("count messages: %v", err)
		}
		if count != 0 {
			t.Errorf("expected messages to cascade, %d remain", count)
		}
	})
}
