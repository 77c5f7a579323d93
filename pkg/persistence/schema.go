package persistence

import (
	"database/sql"
	"errors"
	"fmt"
)

// CurrentSchemaVersion defines the current schema version for migration
// support.
const CurrentSchemaVersion = 1

// initializeSchemaWithMigrations ensures the database schema is at the
// current version.
func initializeSchemaWithMigrations(db *sql.DB) error {
	currentVersion, err := getSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	if currentVersion == 0 {
		return createSchema(db)
	}
	if currentVersion == CurrentSchemaVersion {
		return nil
	}
	return runMigrations(db, currentVersion, CurrentSchemaVersion)
}

func runMigrations(db *sql.DB, fromVersion, toVersion int) error {
	for version := fromVersion + 1; version <= toVersion; version++ {
		if err := runMigration(db, version); err != nil {
			return fmt.Errorf("migration to version %d failed: %w", version, err)
		}
		if err := setSchemaVersion(db, version); err != nil {
			return fmt.Errorf("failed to update schema version to %d: %w", version, err)
		}
	}
	return nil
}

func runMigration(_ *sql.DB, version int) error {
	// Version 1 is the base schema created by createSchema.
	return fmt.Errorf("unknown migration version: %d", version)
}

// createSchema creates all required tables and indices.
func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			token      TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,

		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id         TEXT PRIMARY KEY,
			stuck_input     TEXT NOT NULL DEFAULT '',
			friction_input  TEXT NOT NULL DEFAULT '',
			block_pattern   TEXT NOT NULL DEFAULT '',
			reasoning       TEXT NOT NULL DEFAULT '',
			activation_move TEXT NOT NULL DEFAULT '',
			momentum_move   TEXT NOT NULL DEFAULT '',
			systems_move    TEXT NOT NULL DEFAULT '',
			updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS playbooks (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			focus_area    TEXT NOT NULL DEFAULT '',
			analysis      TEXT NOT NULL DEFAULT '',
			opp_internal  TEXT NOT NULL DEFAULT '',
			opp_external  TEXT NOT NULL DEFAULT '',
			opp_hidden    TEXT NOT NULL DEFAULT '',
			pitfalls_json TEXT NOT NULL DEFAULT '[]',
			journal_entry TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMP NOT NULL,
			archived_at   TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_playbooks_user ON playbooks(user_id, archived_at)`,

		`CREATE TABLE IF NOT EXISTS actions (
			id           TEXT NOT NULL,
			playbook_id  TEXT NOT NULL REFERENCES playbooks(id) ON DELETE CASCADE,
			position     INTEGER NOT NULL,
			title        TEXT NOT NULL DEFAULT '',
			description  TEXT NOT NULL DEFAULT '',
			horizon      TEXT NOT NULL DEFAULT 'immediate',
			rationale    TEXT NOT NULL DEFAULT '',
			is_completed INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (playbook_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_playbook ON actions(playbook_id, position)`,

		`CREATE TABLE IF NOT EXISTS sub_actions (
			id           TEXT NOT NULL,
			playbook_id  TEXT NOT NULL,
			action_id    TEXT NOT NULL,
			position     INTEGER NOT NULL,
			title        TEXT NOT NULL DEFAULT '',
			is_completed INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (playbook_id, action_id, id),
			FOREIGN KEY (playbook_id, action_id)
				REFERENCES actions(playbook_id, id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sub_actions_action ON sub_actions(playbook_id, action_id, position)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return setSchemaVersion(db, CurrentSchemaVersion)
}

func getSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		// Table missing means a fresh database.
		return 0, nil //nolint:nilerr // absence of the version table is version 0
	}
	return version, nil
}

func setSchemaVersion(db *sql.DB, version int) error {
	if _, err := db.Exec("DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("failed to clear schema version: %w", err)
	}
	if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}
