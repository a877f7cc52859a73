// api/router.go
package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-uploads/api/handlers"
	"github.com/Annany2002/nebula-uploads/api/middleware"
	"github.com/Annany2002/nebula-uploads/config"
	"github.com/Annany2002/nebula-uploads/internal/eligibility"
	"github.com/Annany2002/nebula-uploads/internal/storage"
	"github.com/Annany2002/nebula-uploads/internal/upload"
)

// SetupRouter initializes the Gin router and sets up all routes.
// Accepted upload requests are handed to pipeline.
func SetupRouter(metaDB *sql.DB, cfg *config.Config, pipeline upload.Pipeline) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(corsConfig(cfg)))
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)))
	// Runs after Logger/Recovery and wraps every handler below.
	router.Use(middleware.ErrorHandler())

	catalog := storage.NewUploadCatalog(metaDB)
	filter := eligibility.NewFilter(catalog, catalog)
	uploadHandler := handlers.NewUploadHandler(upload.NewService(filter, cfg.Upload, pipeline), cfg)
	dbHandler := handlers.NewDatabaseHandler(metaDB, cfg)

	// --- Public Routes ---
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	// --- Protected Routes ---
	apiRoutes := router.Group("/api/v1")
	apiRoutes.Use(middleware.AuthMiddleware(metaDB, cfg))
	{
		apiRoutes.GET("/uploads/databases", uploadHandler.ListDatabases)
		apiRoutes.GET("/uploads/:format/form", uploadHandler.DescribeForm)
		apiRoutes.POST("/uploads/:format", uploadHandler.Submit)

		adminRoutes := apiRoutes.Group("/admin")
		adminRoutes.Use(middleware.RequireAdmin())
		adminRoutes.POST("/users", dbHandler.CreateUser)
		adminRoutes.POST("/databases", dbHandler.CreateDatabase)
		adminRoutes.GET("/databases/:database_id", dbHandler.GetDatabase)
		adminRoutes.POST("/databases/:database_id/grants", dbHandler.GrantAccess)
	}

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	c.ExposeHeaders = []string{middleware.RequestIDHeader}
	c.MaxAge = 12 * time.Hour
	if len(cfg.CORSAllowedOrigins) == 0 || (len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSAllowedOrigins
	}
	return c
}
