package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"driftbox/internal/config"
	"driftbox/internal/domain"
	"driftbox/internal/handler"
	"driftbox/internal/port"
	"driftbox/internal/repository/postgres"
	"driftbox/internal/router"
	"driftbox/internal/service"
	s3storage "driftbox/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	sessionRepo := postgres.NewUploadSessionRepo(db)
	fileRepo := postgres.NewFileMetaRepo(db)
	mountRepo := postgres.NewStorageMountRepo(db)
	apiKeyRepo := postgres.NewAPIKeyRepo(db)

	// Ensure at least one storage mount exists before serving traffic
	if err := bootstrapMount(cfg, mountRepo); err != nil {
		return fmt.Errorf("failed to bootstrap storage mount: %w", err)
	}

	// Initialize storage
	stores := s3storage.NewMountCache(mountRepo)

	// Initialize services
	authSvc := service.NewAuthService(apiKeyRepo, cfg.JWT)
	uploadSvc := service.NewUploadService(sessionRepo, fileRepo, mountRepo, stores, &cfg.Transfer)
	copySvc := service.NewCopyService(fileRepo, mountRepo, stores, &cfg.Transfer)
	fileSvc := service.NewFileService(fileRepo, stores, &cfg.Transfer)

	// Initialize handlers
	uploadH := handler.NewUploadHandler(uploadSvc)
	copyH := handler.NewCopyHandler(copySvc)
	fileH := handler.NewFileHandler(fileSvc)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(cfg, authSvc, uploadH, copyH, fileH, healthH)

	// Read and write timeouts are large: part uploads stream multi-megabyte
	// bodies through single requests in both directions, and ReadTimeout
	// covers the entire inbound body. The header timeout bounds idle
	// connections instead.
	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// bootstrapMount creates the default storage mount from the S3 config when
// the storage_mounts table is empty. Additional mounts are managed in the
// database directly.
func bootstrapMount(cfg *config.Config, mounts port.StorageMountRepository) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := mounts.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	mount := &domain.StorageMount{
		ID:        uuid.New(),
		Name:      "default",
		MountPath: cfg.S3.MountPath,
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	}
	if err := mounts.Create(ctx, mount); err != nil {
		return err
	}

	log.Printf("bootstrapMount: created default mount %s on bucket %s", mount.MountPath, mount.Bucket)
	return nil
}
