// cmd/server/main.go
package main

import (
	"context"
	"fmt"

	"github.com/Annany2002/nebula-uploads/api"
	"github.com/Annany2002/nebula-uploads/config"
	"github.com/Annany2002/nebula-uploads/internal/logger"
	"github.com/Annany2002/nebula-uploads/internal/storage"
	"github.com/Annany2002/nebula-uploads/internal/upload"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	customLog.Println("Starting Nebula upload server...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		customLog.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize Metadata Database Connection
	metaDB, err := storage.ConnectMetadataDB(cfg)
	if err != nil {
		customLog.Fatalf("Failed to initialize metadata database: %v", err)
	}
	defer func() {
		customLog.Println("Closing metadata database connection...")
		if err := metaDB.Close(); err != nil {
			customLog.Printf("Error closing metadata database: %v", err)
		}
	}()

	// 3. Bootstrap the first admin, who registers databases and grants through /api/v1/admin
	if cfg.AdminEmail != "" {
		adminID, err := storage.EnsureAdminUser(context.Background(), metaDB, cfg.AdminEmail)
		if err != nil {
			customLog.Fatalf("Failed to ensure admin user: %v", err)
		}
		customLog.Printf("Admin user %s has UserID %d", cfg.AdminEmail, adminID)
	}

	// 4. Setup Router; accepted uploads are logged until an ingestion worker is attached
	router := api.SetupRouter(metaDB, cfg, upload.NewLogPipeline())

	// 5. Start Server
	customLog.Printf("Server listening on port %s", cfg.ServerPort)
	if err := router.Run(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
		customLog.Fatalf("Failed to start server: %v", err)
	}
}
