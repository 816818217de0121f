package sqlite3

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 2

// GetSchemaVersion returns the schema version recorded in the database.
// Returns 1 when the schema_version table doesn't exist yet, which covers
// databases created before versioning was introduced.
func GetSchemaVersion(db *sql.DB) (int, error) {
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// SetSchemaVersion records a new schema version.
func SetSchemaVersion(db *sql.DB, version int) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version    INTEGER NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	_, err = db.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, strftime('%s', 'now'))", version)
	if err != nil {
		return fmt.Errorf("failed to insert schema version: %w", err)
	}
	return nil
}

// migrateV1toV2 rebuilds the processed table with a monotonic seq column,
// which the pruner needs to order entries by insertion.
func migrateV1toV2(db *sql.DB) error {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='processed'").Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("failed to check for processed table: %w", err)
	}
	if tableExists == 0 {
		// Fresh database, table will be created with the current schema.
		return nil
	}

	var columnExists int
	err = db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('processed') WHERE name='seq'").Scan(&columnExists)
	if err != nil {
		return fmt.Errorf("failed to check for seq column: %w", err)
	}
	if columnExists > 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	_, err = tx.Exec(`
		CREATE TABLE processed_new (
			seq			 INTEGER PRIMARY KEY AUTOINCREMENT,
			id			 TEXT NOT NULL UNIQUE,
			processed_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create new table: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO processed_new (id, processed_at)
		SELECT id, processed_at FROM processed ORDER BY processed_at
	`)
	if err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}
	if _, err = tx.Exec("DROP TABLE processed"); err != nil {
		return fmt.Errorf("failed to drop old table: %w", err)
	}
	if _, err = tx.Exec("ALTER TABLE processed_new RENAME TO processed"); err != nil {
		return fmt.Errorf("failed to rename table: %w", err)
	}
	return tx.Commit()
}

// RunMigrations brings the database up to the current schema version.
func RunMigrations(db *sql.DB) error {
	version, err := GetSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}

	for v := version; v < currentSchemaVersion; v++ {
		switch v {
		case 1:
			if err := migrateV1toV2(db); err != nil {
				return fmt.Errorf("migration v1->v2 failed: %w", err)
			}
			if err := SetSchemaVersion(db, 2); err != nil {
				return fmt.Errorf("failed to set schema version to 2: %w", err)
			}
		default:
			return fmt.Errorf("unknown migration version: %d", v)
		}
	}
	return nil
}
