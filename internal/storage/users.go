// internal/storage/users.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/Annany2002/nebula-uploads/internal/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

// CreateUser inserts a user with its datasource-wide rights.
func CreateUser(ctx context.Context, db *sql.DB, email string, isAdmin, allDatasourceAccess bool) (int64, error) {
	sqlStatement := `INSERT INTO users (email, is_admin, all_datasource_access) VALUES (?, ?, ?)`
	result, err := db.ExecContext(ctx, sqlStatement, email, isAdmin, allDatasourceAccess)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, ErrEmailExists
		}
		customLog.Warnf("Storage: Failed to insert user %s: %v", email, err)
		return 0, fmt.Errorf("database error during user creation: %w", err)
	}

	userID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve user ID after creation: %w", err)
	}
	return userID, nil
}

// FindUserByID retrieves a user by id.
func FindUserByID(ctx context.Context, db *sql.DB, userID int64) (*domain.User, error) {
	sqlStatement := `SELECT id, email, is_admin, all_datasource_access, created_at FROM users WHERE id = ? LIMIT 1`

	var user domain.User
	err := db.QueryRowContext(ctx, sqlStatement, userID).
		Scan(&user.ID, &user.Email, &user.IsAdmin, &user.AllDatasourceAccess, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		customLog.Warnf("Storage: Failed to find user %d: %v", userID, err)
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	return &user, nil
}

// EnsureAdminUser creates the user if missing and marks it as admin. It returns the user id.
func EnsureAdminUser(ctx context.Context, db *sql.DB, email string) (int64, error) {
	upsert := `INSERT INTO users (email, is_admin) VALUES (?, 1) ON CONFLICT(email) DO UPDATE SET is_admin = 1`
	if _, err := db.ExecContext(ctx, upsert, email); err != nil {
		customLog.Warnf("Storage: Failed to ensure admin user %s: %v", email, err)
		return 0, fmt.Errorf("database error ensuring admin user: %w", err)
	}

	var userID int64
	if err := db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&userID); err != nil {
		return 0, fmt.Errorf("database error reading admin user: %w", err)
	}
	return userID, nil
}
