package storage

import (
	"database/sql"
)

// Version 1 held runs and alias origins; version 2 added artifact blobs.
const currentSchemaVersion = 2

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createRunsTable(tx); err != nil {
			return err
		}
		if err := createAliasOriginsTable(tx); err != nil {
			return err
		}
		if err := createArtifactsTable(tx); err != nil {
			return err
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

// runMigrations brings an existing database up to currentSchemaVersion
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Run ledger schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}

	db.logger.Info("Migrating run ledger", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	return db.WithTx(func(tx *sql.Tx) error {
		if version < 1 {
			if err := createSchemaVersionTable(tx); err != nil {
				return err
			}
			if err := createRunsTable(tx); err != nil {
				return err
			}
			if err := createAliasOriginsTable(tx); err != nil {
				return err
			}
		}
		if version < 2 {
			if err := createArtifactsTable(tx); err != nil {
				return err
			}
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createRunsTable creates the runs table, one row per generation run
func createRunsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			commit_id TEXT NOT NULL,
			placeholder INTEGER NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL,
			added INTEGER NOT NULL DEFAULT 0,
			removed INTEGER NOT NULL DEFAULT 0,
			modified INTEGER NOT NULL DEFAULT 0,
			revision_changed INTEGER NOT NULL DEFAULT 0,
			entry_count INTEGER NOT NULL DEFAULT 0,
			output_path TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`)
	return err
}

// createAliasOriginsTable records which source decided each alias in a run
func createAliasOriginsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS alias_origins (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			canonical TEXT NOT NULL,
			underlying TEXT NOT NULL DEFAULT '',
			dispatch_key TEXT NOT NULL DEFAULT '',
			origin TEXT NOT NULL,
			file TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			PRIMARY KEY (run_id, canonical)
		)
	`)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_alias_origins_canonical ON alias_origins(canonical)`)
	return err
}

// createArtifactsTable stores the written artifact bytes, zstd-compressed
func createArtifactsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS artifacts (
			run_id TEXT PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			encoding TEXT NOT NULL,
			size INTEGER NOT NULL,
			data BLOB NOT NULL
		)
	`)
	return err
}
