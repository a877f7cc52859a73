// api/handlers/database_handler.go
package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-uploads/api/middleware"
	"github.com/Annany2002/nebula-uploads/api/models"
	"github.com/Annany2002/nebula-uploads/config"
	"github.com/Annany2002/nebula-uploads/internal/core"
	"github.com/Annany2002/nebula-uploads/internal/storage"
)

// DatabaseHandler holds dependencies for the admin registry handlers.
type DatabaseHandler struct {
	MetaDB *sql.DB
	Cfg    *config.Config
}

// NewDatabaseHandler creates a new DatabaseHandler.
func NewDatabaseHandler(metaDB *sql.DB, cfg *config.Config) *DatabaseHandler {
	return &DatabaseHandler{
		MetaDB: metaDB,
		Cfg:    cfg,
	}
}

// CreateUser registers a user.
func (h *DatabaseHandler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindingError(err))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	userID, err := storage.CreateUser(c.Request.Context(), h.MetaDB, email, req.IsAdmin, req.AllDatasourceAccess)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Handler: registered user %d (%s)", userID, email)
	c.JSON(http.StatusCreated, models.CreateUserResponse{ID: userID, Email: email})
}

// CreateDatabase registers a database connection.
func (h *DatabaseHandler) CreateDatabase(c *gin.Context) {
	var req models.RegisterDatabaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindingError(err))
		return
	}

	if !core.IsKnownEngine(req.Engine) {
		_ = c.Error(fmt.Errorf("%w: unknown engine %q", middleware.ErrBadRequest, req.Engine))
		return
	}

	ctx := c.Request.Context()
	databaseID, err := storage.RegisterDatabase(ctx, h.MetaDB, storage.DatabaseRegistration{
		Name:                        strings.TrimSpace(req.DatabaseName),
		Engine:                      strings.ToLower(strings.TrimSpace(req.Engine)),
		AllowFileUpload:             req.AllowFileUpload,
		SchemasAllowedForFileUpload: req.SchemasAllowedForFileUpload,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	target, err := storage.FindDatabaseByID(ctx, h.MetaDB, databaseID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Handler: registered database %d (%s, engine %s)", target.ID, target.Name, target.Engine.Name)
	c.JSON(http.StatusCreated, models.DatabaseResponse{Database: target})
}

// GetDatabase returns one registered database.
func (h *DatabaseHandler) GetDatabase(c *gin.Context) {
	databaseID, err := databaseIDParam(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	target, err := storage.FindDatabaseByID(c.Request.Context(), h.MetaDB, databaseID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.DatabaseResponse{Database: target})
}

// GrantAccess grants a user the database, or one of its schemas.
func (h *DatabaseHandler) GrantAccess(c *gin.Context) {
	databaseID, err := databaseIDParam(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req models.GrantAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindingError(err))
		return
	}

	ctx := c.Request.Context()
	if _, err := storage.FindDatabaseByID(ctx, h.MetaDB, databaseID); err != nil {
		_ = c.Error(err)
		return
	}
	if _, err := storage.FindUserByID(ctx, h.MetaDB, req.UserID); err != nil {
		_ = c.Error(err)
		return
	}

	schema := strings.TrimSpace(req.Schema)
	if schema == "" {
		err = storage.GrantDatabaseAccess(ctx, h.MetaDB, req.UserID, databaseID)
	} else {
		err = storage.GrantSchemaAccess(ctx, h.MetaDB, req.UserID, databaseID, schema)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Handler: granted user %d access to database %d schema %q", req.UserID, databaseID, schema)
	c.JSON(http.StatusCreated, models.GrantAccessResponse{UserID: req.UserID, DatabaseID: databaseID, Schema: schema})
}

func databaseIDParam(c *gin.Context) (int64, error) {
	raw := c.Param("database_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid database id %q", middleware.ErrBadRequest, raw)
	}
	return id, nil
}

// bindingError marks a JSON binding failure as client input. Validator errors stay reachable
// through the wrap and keep their own response.
func bindingError(err error) error {
	return fmt.Errorf("%w: %w", middleware.ErrBadRequest, err)
}
