// Package db is the SQLite result store: one append-only captures table
// behind a small set of query functions.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the database file inside the base directory.
const FileName = "grabtext.db"

// pragmas are applied to every pooled connection through the DSN.
const pragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// migration moves the schema from version-1 to version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations are applied in order. Append only; never edit a shipped entry.
var migrations = []migration{
	{
		version: 1,
		name:    "captures table",
		// AUTOINCREMENT keeps ids monotonic: a rowid is never handed out twice.
		stmt: `
		CREATE TABLE IF NOT EXISTS captures (
		  id             INTEGER PRIMARY KEY AUTOINCREMENT,
		  created_at     INTEGER NOT NULL,
		  image_path     TEXT NOT NULL,
		  extracted_text TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_captures_created_at
		ON captures(created_at);
		`,
	},
}

// CurrentSchemaVersion is the version Init leaves the database at.
var CurrentSchemaVersion = migrations[len(migrations)-1].version

// Init opens baseDir/grabtext.db, creating the directory and file owner-only
// if needed, and brings the schema up to CurrentSchemaVersion. A database
// written by a newer build is refused rather than guessed at.
func Init(baseDir string) (*sql.DB, error) {
	if err := ensurePrivateDir(baseDir); err != nil {
		return nil, err
	}

	path := filepath.Join(baseDir, FileName)
	handle, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := prepare(handle); err != nil {
		handle.Close()
		return nil, err
	}

	// The file only exists once the first statement has run.
	_ = os.Chmod(path, 0600)
	return handle, nil
}

func ensurePrivateDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create base directory: %w", err)
	}
	// MkdirAll leaves an existing directory's mode alone.
	_ = os.Chmod(dir, 0700)
	return nil
}

func prepare(handle *sql.DB) error {
	var journal string
	if err := handle.QueryRow("PRAGMA journal_mode;").Scan(&journal); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journal != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journal)
	}

	version, err := SchemaVersion(handle)
	if err != nil {
		return err
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("database schema v%d is newer than this build (v%d)", version, CurrentSchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := apply(handle, m); err != nil {
			return err
		}
	}
	return nil
}

// apply runs one migration and records its version in the same transaction.
func apply(handle *sql.DB, m migration) error {
	tx, err := handle.Begin()
	if err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(m.stmt); err != nil {
		return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d", m.version)); err != nil {
		return fmt.Errorf("failed to record schema v%d: %w", m.version, err)
	}
	return tx.Commit()
}

// SchemaVersion reports the schema version stored in the user_version pragma.
func SchemaVersion(handle *sql.DB) (int, error) {
	var version int
	if err := handle.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}
