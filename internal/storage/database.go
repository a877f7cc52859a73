// internal/storage/database.go
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Driver registration

	"github.com/Annany2002/nebula-uploads/config"
	"github.com/Annany2002/nebula-uploads/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

var metadataSchema = []struct {
	name string
	ddl  string
}{
	{"users", `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT UNIQUE NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT 0,
		all_datasource_access BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`},
	{"databases", `
	CREATE TABLE IF NOT EXISTS databases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		database_name TEXT UNIQUE NOT NULL,
		engine TEXT NOT NULL,
		allow_file_upload BOOLEAN NOT NULL DEFAULT 0,
		schemas_allowed_for_file_upload TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`},
	{"database_access", `
	CREATE TABLE IF NOT EXISTS database_access (
		user_id INTEGER NOT NULL,
		database_id INTEGER NOT NULL,
		PRIMARY KEY (user_id, database_id),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (database_id) REFERENCES databases(id) ON DELETE CASCADE
	);`},
	{"schema_access", `
	CREATE TABLE IF NOT EXISTS schema_access (
		user_id INTEGER NOT NULL,
		database_id INTEGER NOT NULL,
		schema_name TEXT NOT NULL,
		PRIMARY KEY (user_id, database_id, schema_name),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (database_id) REFERENCES databases(id) ON DELETE CASCADE
	);`},
}

// ConnectMetadataDB initializes the connection pool for the metadata SQLite database
// and ensures the registry and grant tables exist.
func ConnectMetadataDB(cfg *config.Config) (*sql.DB, error) {
	dbPath := filepath.Join(cfg.MetadataDbDir, cfg.MetadataDbFile)
	customLog.Printf("Storage: Initializing metadata database: %s", dbPath)

	if err := os.MkdirAll(cfg.MetadataDbDir, 0o750); err != nil {
		customLog.Warnf("Storage: Error creating data directory '%s': %v", cfg.MetadataDbDir, err)
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Foreign keys for grant cleanup, WAL and a busy timeout for concurrent readers.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		customLog.Warnf("Storage: Failed to open metadata db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to open metadata db: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		customLog.Warnf("Storage: Failed to ping metadata db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to connect to metadata db: %w", err)
	}
	customLog.Println("Storage: Metadata database connection successful.")

	for _, table := range metadataSchema {
		if _, err = db.Exec(table.ddl); err != nil {
			db.Close()
			customLog.Warnf("Storage: Failed to create %s table: %v", table.name, err)
			return nil, fmt.Errorf("failed to ensure %s table: %w", table.name, err)
		}
		customLog.Debugf("Storage: %s table ensured.", table.name)
	}

	return db, nil
}
