package store

import (
	"fmt"
)

// migrate runs all pending migrations
func (s *Store) migrate() error {
	createMigrationsTableSQL := `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			version INTEGER NOT NULL UNIQUE,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := s.db.Exec(createMigrationsTableSQL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	s.logger.Debug("current schema version", "version", currentVersion)

	migrations := []struct {
		version int
		sql     string
	}{
		{
			version: 1,
			sql: `
				CREATE TABLE publish_runs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL UNIQUE,
					target TEXT NOT NULL,
					start_time DATETIME NOT NULL,
					end_time DATETIME,
					artifact_count INTEGER DEFAULT 0,
					files_uploaded INTEGER DEFAULT 0,
					bytes_uploaded INTEGER DEFAULT 0,
					backups_taken INTEGER DEFAULT 0,
					restarted BOOLEAN DEFAULT 0,
					status TEXT DEFAULT 'running',
					error_message TEXT
				);

				CREATE TABLE upload_records (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					artifact TEXT NOT NULL,
					path TEXT NOT NULL,
					size INTEGER DEFAULT 0,
					sha256 TEXT,
					uploaded_at DATETIME,
					publish_run_id INTEGER,
					FOREIGN KEY(publish_run_id) REFERENCES publish_runs(id)
				);

				CREATE TABLE backup_records (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					artifact TEXT NOT NULL,
					remote_path TEXT NOT NULL,
					snapshot_path TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					publish_run_id INTEGER,
					FOREIGN KEY(publish_run_id) REFERENCES publish_runs(id)
				);
			`,
		},
	}

	for _, mig := range migrations {
		if mig.version > currentVersion {
			s.logger.Info("running migration", "version", mig.version)

			if err := s.runMigration(mig.version, mig.sql); err != nil {
				return fmt.Errorf("failed to run migration %d: %w", mig.version, err)
			}
		}
	}

	return nil
}

// runMigration executes a migration and records it
func (s *Store) runMigration(version int, sql string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sql); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	insertSQL := "INSERT INTO migrations (version) VALUES (?)"
	if _, err := tx.Exec(insertSQL, version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	return nil
}
