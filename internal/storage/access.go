// internal/storage/access.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Annany2002/nebula-uploads/internal/domain"
)

// GrantDatabaseAccess gives a user full access to one database.
func GrantDatabaseAccess(ctx context.Context, db *sql.DB, userID, databaseID int64) error {
	_, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO database_access (user_id, database_id) VALUES (?, ?)`, userID, databaseID)
	if err != nil {
		customLog.Warnf("Storage: Failed to grant database %d to user %d: %v", databaseID, userID, err)
		return fmt.Errorf("database error granting database access: %w", err)
	}
	return nil
}

// GrantSchemaAccess gives a user access to one schema of a database.
func GrantSchemaAccess(ctx context.Context, db *sql.DB, userID, databaseID int64, schema string) error {
	_, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO schema_access (user_id, database_id, schema_name) VALUES (?, ?, ?)`, userID, databaseID, schema)
	if err != nil {
		customLog.Warnf("Storage: Failed to grant schema %q of database %d to user %d: %v", schema, databaseID, userID, err)
		return fmt.Errorf("database error granting schema access: %w", err)
	}
	return nil
}

// CanAccessDatabase is true for admins, users with all-datasource access,
// and users holding a grant on the database.
func CanAccessDatabase(ctx context.Context, db *sql.DB, user *domain.User, databaseID int64) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.IsAdmin || user.AllDatasourceAccess {
		return true, nil
	}

	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM database_access WHERE user_id = ? AND database_id = ?`, user.ID, databaseID).Scan(&n)
	if err != nil {
		customLog.Warnf("Storage: Failed checking database access for user %d on %d: %v", user.ID, databaseID, err)
		return false, fmt.Errorf("database error checking database access: %w", err)
	}
	return n > 0, nil
}

// SchemasAccessibleByUser returns the candidate schemas the user holds grants on, in
// candidate order. With hierarchical set, database-level access returns every candidate.
func SchemasAccessibleByUser(ctx context.Context, db *sql.DB, user *domain.User, databaseID int64, schemas []string, hierarchical bool) ([]string, error) {
	if user == nil || len(schemas) == 0 {
		return nil, nil
	}
	if hierarchical {
		ok, err := CanAccessDatabase(ctx, db, user, databaseID)
		if err != nil {
			return nil, err
		}
		if ok {
			return append([]string(nil), schemas...), nil
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(schemas)), ",")
	args := make([]any, 0, len(schemas)+2)
	args = append(args, user.ID, databaseID)
	for _, s := range schemas {
		args = append(args, s)
	}

	// nolint:gosec // placeholders only contains "?" markers
	query := fmt.Sprintf(`SELECT schema_name FROM schema_access WHERE user_id = ? AND database_id = ? AND schema_name IN (%s)`, placeholders)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		customLog.Warnf("Storage: Failed listing schema access for user %d on %d: %v", user.ID, databaseID, err)
		return nil, fmt.Errorf("database error checking schema access: %w", err)
	}
	defer rows.Close()

	granted := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed processing schema access: %w", err)
		}
		granted[name] = true
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading schema access: %w", err)
	}

	var accessible []string
	for _, s := range schemas {
		if granted[s] {
			accessible = append(accessible, s)
		}
	}
	return accessible, nil
}

// UploadCatalog serves the eligibility filter from the metadata database.
type UploadCatalog struct {
	DB *sql.DB
}

// NewUploadCatalog wraps a metadata connection pool.
func NewUploadCatalog(db *sql.DB) *UploadCatalog {
	return &UploadCatalog{DB: db}
}

func (c *UploadCatalog) ListUploadEnabledDatabases(ctx context.Context) ([]domain.DatabaseTarget, error) {
	return ListUploadEnabledDatabases(ctx, c.DB)
}

func (c *UploadCatalog) CanAccessDatabase(ctx context.Context, user *domain.User, target domain.DatabaseTarget) (bool, error) {
	return CanAccessDatabase(ctx, c.DB, user, target.ID)
}

func (c *UploadCatalog) SchemasAccessibleByUser(ctx context.Context, user *domain.User, target domain.DatabaseTarget, schemas []string, hierarchical bool) ([]string, error) {
	return SchemasAccessibleByUser(ctx, c.DB, user, target.ID, schemas, hierarchical)
}
