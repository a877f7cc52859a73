// api/models/admin_models.go
package models

import "github.com/Annany2002/nebula-uploads/internal/domain"

// CreateUserRequest registers a user and its datasource-wide rights.
type CreateUserRequest struct {
	Email               string `json:"email" binding:"required,email"`
	IsAdmin             bool   `json:"is_admin"`
	AllDatasourceAccess bool   `json:"all_datasource_access"`
}

// CreateUserResponse echoes the new user.
type CreateUserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// RegisterDatabaseRequest registers a database connection for uploads.
type RegisterDatabaseRequest struct {
	DatabaseName                string   `json:"database_name" binding:"required,max=250"`
	Engine                      string   `json:"engine" binding:"required"`
	AllowFileUpload             bool     `json:"allow_file_upload"`
	SchemasAllowedForFileUpload []string `json:"schemas_allowed_for_file_upload" binding:"omitempty,dive,required"`
}

// DatabaseResponse wraps one registered database.
type DatabaseResponse struct {
	Database *domain.DatabaseTarget `json:"database"`
}

// GrantAccessRequest grants a user the whole database, or one schema when Schema is set.
type GrantAccessRequest struct {
	UserID int64  `json:"user_id" binding:"required,gt=0"`
	Schema string `json:"schema"`
}

// GrantAccessResponse echoes the stored grant.
type GrantAccessResponse struct {
	UserID     int64  `json:"user_id"`
	DatabaseID int64  `json:"database_id"`
	Schema     string `json:"schema,omitempty"`
}
