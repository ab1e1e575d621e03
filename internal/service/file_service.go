package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"driftbox/internal/config"
	"driftbox/internal/domain"
	"driftbox/internal/port"
)

// FileService is the thin metadata surface over stored files: the records the
// transfer orchestrator creates on complete/commit.
type FileService interface {
	GetByID(ctx context.Context, principal domain.Principal, fileID uuid.UUID) (*domain.FileMeta, error)
	List(ctx context.Context, principal domain.Principal, prefix string, offset, limit int) ([]domain.FileMeta, int, error)
	GetDownloadURL(ctx context.Context, principal domain.Principal, fileID uuid.UUID) (string, error)
	Delete(ctx context.Context, principal domain.Principal, fileID uuid.UUID) error
}

type fileService struct {
	files  port.FileMetaRepository
	stores port.ObjectStoreResolver
	cfg    *config.TransferConfig
}

// NewFileService creates a new FileService implementation.
func NewFileService(files port.FileMetaRepository, stores port.ObjectStoreResolver, cfg *config.TransferConfig) FileService {
	return &fileService{files: files, stores: stores, cfg: cfg}
}

func (s *fileService) GetByID(ctx context.Context, principal domain.Principal, fileID uuid.UUID) (*domain.FileMeta, error) {
	meta, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(meta.Path) {
		return nil, domain.ErrPermissionDenied
	}
	return meta, nil
}

func (s *fileService) List(ctx context.Context, principal domain.Principal, prefix string, offset, limit int) ([]domain.FileMeta, int, error) {
	if prefix == "" {
		prefix = "/"
	}
	if !principal.CanAccess(prefix) {
		return nil, 0, domain.ErrPermissionDenied
	}
	return s.files.ListByPrefix(ctx, prefix, offset, limit)
}

func (s *fileService) GetDownloadURL(ctx context.Context, principal domain.Principal, fileID uuid.UUID) (string, error) {
	meta, err := s.GetByID(ctx, principal, fileID)
	if err != nil {
		return "", err
	}
	store, err := s.stores.ForMount(ctx, meta.MountID)
	if err != nil {
		return "", err
	}
	return store.PresignGetObject(ctx, meta.StorageKey, s.cfg.PresignExpiry)
}

func (s *fileService) Delete(ctx context.Context, principal domain.Principal, fileID uuid.UUID) error {
	meta, err := s.GetByID(ctx, principal, fileID)
	if err != nil {
		return err
	}

	store, err := s.stores.ForMount(ctx, meta.MountID)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, meta.StorageKey); err != nil {
		log.Printf("fileService.Delete: failed to delete %s from store: %v", meta.StorageKey, err)
		return fmt.Errorf("deleting from storage: %w", err)
	}

	return s.files.Delete(ctx, fileID)
}
