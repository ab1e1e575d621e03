package router

import (
	"github.com/gin-gonic/gin"

	"driftbox/internal/config"
	"driftbox/internal/domain"
	"driftbox/internal/handler"
	"driftbox/internal/middleware"
	"driftbox/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	authSvc service.AuthService,
	uploadH *handler.UploadHandler,
	copyH *handler.CopyHandler,
	fileH *handler.FileHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Protected routes - require a bearer token or API key
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authSvc))

	// Upload orchestration
	uploads := protected.Group("/uploads")
	uploads.POST("/init", uploadH.Init)
	uploads.PUT("/part", uploadH.Part)
	uploads.GET("/parts", uploadH.Parts)
	uploads.POST("/complete", uploadH.Complete)
	uploads.POST("/abort", uploadH.Abort)
	uploads.POST("/presign", uploadH.Presign)
	uploads.POST("/commit", uploadH.Commit)
	uploads.PUT("/direct", uploadH.Direct)

	// Batch copy
	copies := protected.Group("/copy")
	copies.POST("/batch", copyH.BatchCopy)
	copies.POST("/batch/commit", copyH.BatchCopyCommit)

	// File metadata
	files := protected.Group("/files")
	files.GET("", fileH.List)
	files.GET("/:id", fileH.GetByID)
	files.DELETE("/:id", middleware.RequireRole(domain.RoleAdmin), fileH.Delete)

	return r
}
