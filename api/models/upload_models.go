// api/models/upload_models.go
package models

import "github.com/Annany2002/nebula-uploads/internal/domain"

// DatabaseOption is one entry of the database selector.
type DatabaseOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DatabaseOptionsFrom keeps registry order.
func DatabaseOptionsFrom(targets []domain.DatabaseTarget) []DatabaseOption {
	options := make([]DatabaseOption, 0, len(targets))
	for _, t := range targets {
		options = append(options, DatabaseOption{ID: t.ID, Name: t.Name})
	}
	return options
}

// ListDatabasesResponse is returned by GET /uploads/databases.
type ListDatabasesResponse struct {
	Databases []DatabaseOption `json:"databases"`
}

// SubmitUploadResponse is returned when a submission passes validation.
type SubmitUploadResponse struct {
	Message string                `json:"message"`
	Request *domain.UploadRequest `json:"request"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}
