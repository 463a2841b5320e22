package routes

import (
	"net/http"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	handler "patrimonio-inventory-backend/internal/handlers"
	"patrimonio-inventory-backend/internal/repository"
	"patrimonio-inventory-backend/internal/services/inventory"
	service "patrimonio-inventory-backend/internal/services/reconciliation"
	"patrimonio-inventory-backend/internal/services/reporting"
)

// Dependencies are the long-lived objects built in main. Feed and Locker are nil
// when Redis is not configured; Metrics defaults to the global Prometheus handler.
type Dependencies struct {
	DB           *gorm.DB
	Engine       *inventory.Engine
	Feed         handler.ScanFeed
	Locker       *redislock.Client
	Depreciation reporting.DepreciationPolicy
	Alerts       reporting.AlertPolicy
	Metrics      http.Handler
}

func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	assetRepo := repository.NewAssetRepository(deps.DB)
	sectorRepo := repository.NewSectorRepository(deps.DB)

	reconService := service.NewReconciliationService(assetRepo, sectorRepo, deps.Locker)
	dashboard := reporting.NewDashboard(assetRepo, deps.Engine, deps.Depreciation, deps.Alerts)

	inventoryHandler := handler.NewInventoryHandler(deps.Engine, assetRepo, deps.Feed)
	assetHandler := handler.NewAssetHandler(assetRepo, sectorRepo, reconService)
	dashboardHandler := handler.NewDashboardHandler(dashboard)
	reconHandler := handler.NewReconciliationHandler(reconService)

	metrics := deps.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metrics))

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Inventory sessions
	sessions := api.Group("/sessions")
	sessions.POST("", inventoryHandler.CreateSession)
	sessions.GET("", inventoryHandler.ListSessions)
	sessions.GET("/:id", inventoryHandler.GetSession)
	sessions.POST("/:id/codes", inventoryHandler.AddCodes)
	sessions.POST("/:id/close", inventoryHandler.CloseSession)
	sessions.POST("/:id/scans", inventoryHandler.RecordScan)
	sessions.GET("/:id/outcome", inventoryHandler.GetOutcome)
	sessions.GET("/:id/export", inventoryHandler.ExportSession)
	sessions.GET("/:id/events", inventoryHandler.SessionEvents)

	// Asset registry
	assets := api.Group("/assets")
	{
		assets.GET("", assetHandler.ListAssets)
		assets.POST("", assetHandler.CreateAsset)
		assets.POST("/upload", assetHandler.UploadAssets)
	}
	api.GET("/sectors", assetHandler.ListSectors)
	api.POST("/sectors", assetHandler.CreateSector)

	api.GET("/dashboard", dashboardHandler.GetDashboard)

	recon := api.Group("/reconciliation")
	recon.POST("/upload", reconHandler.Upload)
}
