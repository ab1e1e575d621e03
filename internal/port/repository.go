package port

import (
	"context"

	"github.com/google/uuid"

	"driftbox/internal/domain"
)

// UploadSessionRepository persists one row per in-flight upload session.
// Sessions are looked up by (target path, upload id) on every part, complete,
// and abort call since the server holds no in-memory state between requests.
type UploadSessionRepository interface {
	Create(ctx context.Context, session *domain.UploadSession) error
	GetByPathAndUploadID(ctx context.Context, targetPath, uploadID string) (*domain.UploadSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUploadID(ctx context.Context, targetPath, uploadID string) error
}

// FileMetaRepository persists stored-file records.
type FileMetaRepository interface {
	Create(ctx context.Context, meta *domain.FileMeta) error
	CreateBatch(ctx context.Context, files []domain.FileMeta) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FileMeta, error)
	GetByPath(ctx context.Context, path string) (*domain.FileMeta, error)
	ExistsByPath(ctx context.Context, path string) (bool, error)
	ListByPrefix(ctx context.Context, prefix string, offset, limit int) ([]domain.FileMeta, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// StorageMountRepository persists storage mount configuration records.
type StorageMountRepository interface {
	Create(ctx context.Context, mount *domain.StorageMount) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StorageMount, error)
	List(ctx context.Context) ([]domain.StorageMount, error)
}

// APIKeyRepository looks up stored API key credentials.
type APIKeyRepository interface {
	GetByPrefix(ctx context.Context, prefix string) (*domain.APIKey, error)
}
