// internal/storage/registry.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/Annany2002/nebula-uploads/internal/core"
	"github.com/Annany2002/nebula-uploads/internal/domain"
)

var (
	ErrDatabaseExists   = errors.New("database name already exists")
	ErrDatabaseNotFound = errors.New("database not found")
)

const databaseColumns = `id, database_name, engine, allow_file_upload, schemas_allowed_for_file_upload, created_at`

// DatabaseRegistration is the input for registering a database connection.
type DatabaseRegistration struct {
	Name                        string
	Engine                      string
	AllowFileUpload             bool
	SchemasAllowedForFileUpload []string
}

// RegisterDatabase inserts a database connection into the registry.
func RegisterDatabase(ctx context.Context, db *sql.DB, reg DatabaseRegistration) (int64, error) {
	schemas := reg.SchemasAllowedForFileUpload
	if schemas == nil {
		schemas = []string{}
	}
	schemasJSON, err := json.Marshal(schemas)
	if err != nil {
		return 0, fmt.Errorf("failed to encode schema allow-list: %w", err)
	}

	sqlStatement := `INSERT INTO databases (database_name, engine, allow_file_upload, schemas_allowed_for_file_upload) VALUES (?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, sqlStatement, reg.Name, reg.Engine, reg.AllowFileUpload, string(schemasJSON))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			customLog.Warnf("Storage: Constraint violation registering database '%s': %v", reg.Name, err)
			return 0, ErrDatabaseExists
		}
		customLog.Warnf("Storage: Failed to insert database '%s': %v", reg.Name, err)
		return 0, fmt.Errorf("database error registering database: %w", err)
	}
	return result.LastInsertId()
}

// FindDatabaseByID retrieves one registered database.
func FindDatabaseByID(ctx context.Context, db *sql.DB, databaseID int64) (*domain.DatabaseTarget, error) {
	row := db.QueryRowContext(ctx, `SELECT `+databaseColumns+` FROM databases WHERE id = ? LIMIT 1`, databaseID)
	target, err := scanDatabase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDatabaseNotFound
		}
		customLog.Warnf("Storage: Failed to find database %d: %v", databaseID, err)
		return nil, fmt.Errorf("database error finding database: %w", err)
	}
	return target, nil
}

// ListUploadEnabledDatabases returns the databases flagged allow_file_upload, ordered by id.
func ListUploadEnabledDatabases(ctx context.Context, db *sql.DB) ([]domain.DatabaseTarget, error) {
	query := `SELECT ` + databaseColumns + ` FROM databases WHERE allow_file_upload = 1 ORDER BY id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		customLog.Warnf("Storage: Error listing upload-enabled databases: %v", err)
		return nil, fmt.Errorf("database error listing databases: %w", err)
	}
	defer rows.Close()

	targets := make([]domain.DatabaseTarget, 0)
	for rows.Next() {
		target, err := scanDatabase(rows)
		if err != nil {
			customLog.Warnf("Storage: Error scanning database row: %v", err)
			return nil, fmt.Errorf("failed processing database list: %w", err)
		}
		targets = append(targets, *target)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading database list: %w", err)
	}
	return targets, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDatabase(row rowScanner) (*domain.DatabaseTarget, error) {
	var (
		target      domain.DatabaseTarget
		engine      string
		schemasJSON string
	)
	if err := row.Scan(&target.ID, &target.Name, &engine, &target.AllowFileUpload, &schemasJSON, &target.CreatedAt); err != nil {
		return nil, err
	}
	target.Engine = core.LookupEngine(engine)

	// A malformed allow-list is read as empty so the database simply fails the schema path.
	if err := json.Unmarshal([]byte(schemasJSON), &target.SchemasAllowedForFileUpload); err != nil {
		customLog.Warnf("Storage: Database %d has an unreadable schema allow-list: %v", target.ID, err)
		target.SchemasAllowedForFileUpload = nil
	}
	return &target, nil
}
