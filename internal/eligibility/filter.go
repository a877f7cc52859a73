// Package eligibility decides which configured databases a user may upload files into.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Annany2002/nebula-uploads/internal/domain"
	"github.com/Annany2002/nebula-uploads/internal/logger"
)

var (
	customLog = logger.NewLogger()

	// ErrEligibilityComputation wraps failures of the registry or authorization collaborators.
	ErrEligibilityComputation = errors.New("could not compute upload-eligible databases")
)

// Registry lists the database connections flagged for file upload.
type Registry interface {
	ListUploadEnabledDatabases(ctx context.Context) ([]domain.DatabaseTarget, error)
}

// Authorizer answers access questions about a user and a database.
type Authorizer interface {
	CanAccessDatabase(ctx context.Context, user *domain.User, target domain.DatabaseTarget) (bool, error)
	// SchemasAccessibleByUser returns the subset of schemas the user may use. With hierarchical
	// set, database-level access grants every candidate schema.
	SchemasAccessibleByUser(ctx context.Context, user *domain.User, target domain.DatabaseTarget, schemas []string, hierarchical bool) ([]string, error)
}

// Filter computes the databases a user may upload into.
type Filter struct {
	registry   Registry
	authorizer Authorizer
}

// NewFilter creates a Filter over the given collaborators.
func NewFilter(registry Registry, authorizer Authorizer) *Filter {
	return &Filter{registry: registry, authorizer: authorizer}
}

// ListEligibleDatabases returns the upload-enabled databases the user may upload into,
// in registry order. Any collaborator failure aborts the whole listing.
func (f *Filter) ListEligibleDatabases(ctx context.Context, user *domain.User) ([]domain.DatabaseTarget, error) {
	eligible := make([]domain.DatabaseTarget, 0)
	if user == nil {
		return eligible, nil
	}

	targets, err := f.registry.ListUploadEnabledDatabases(ctx)
	if err != nil {
		customLog.Warnf("Eligibility: listing upload-enabled databases failed: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrEligibilityComputation, err)
	}

	for _, target := range targets {
		if !target.AllowFileUpload {
			continue
		}

		allowed, err := f.IsSchemaUploadAllowed(ctx, user, target)
		if err != nil {
			customLog.Warnf("Eligibility: access check for database %d failed: %v", target.ID, err)
			return nil, fmt.Errorf("%w: %w", ErrEligibilityComputation, err)
		}
		if !allowed {
			customLog.Debugf("Eligibility: database %d excluded for user %d: no database or schema access", target.ID, user.ID)
			continue
		}
		if !IsEngineUploadCapable(target) {
			customLog.Debugf("Eligibility: database %d excluded: engine %q does not support file upload", target.ID, target.Engine.Name)
			continue
		}
		eligible = append(eligible, target)
	}

	return eligible, nil
}

// IsSchemaUploadAllowed reports whether the user may upload into the target.
//
// Users with access to the database (or to all datasources) may always upload, with or
// without a schema allow-list. Everyone else needs a non-empty allow-list on a
// schema-capable engine and access to at least one listed schema. An allow-list on an
// engine without schemas is not an error; only general access counts there.
func (f *Filter) IsSchemaUploadAllowed(ctx context.Context, user *domain.User, target domain.DatabaseTarget) (bool, error) {
	canAccess, err := f.authorizer.CanAccessDatabase(ctx, user, target)
	if err != nil {
		return false, err
	}
	if canAccess {
		return true, nil
	}

	schemas := AllowedSchemas(target)
	if len(schemas) == 0 {
		return false, nil
	}
	if !target.Engine.SupportsSchema {
		customLog.Debugf("Eligibility: database %d lists upload schemas but engine %q has no schemas", target.ID, target.Engine.Name)
		return false, nil
	}

	accessible, err := f.authorizer.SchemasAccessibleByUser(ctx, user, target, schemas, false)
	if err != nil {
		return false, err
	}
	return len(accessible) > 0, nil
}

// IsEngineUploadCapable guards against connections whose allow_file_upload flag was set
// before their engine stopped supporting uploads.
func IsEngineUploadCapable(target domain.DatabaseTarget) bool {
	return target.Engine.SupportsFileUpload
}

// AllowedSchemas returns the target's schema allow-list without blank or duplicate entries.
func AllowedSchemas(target domain.DatabaseTarget) []string {
	seen := make(map[string]bool, len(target.SchemasAllowedForFileUpload))
	var out []string
	for _, s := range target.SchemasAllowedForFileUpload {
		name := strings.TrimSpace(s)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
