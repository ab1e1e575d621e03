package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"driftbox/internal/domain"
	"driftbox/internal/port"
)

type storageMountRepo struct {
	db *sqlx.DB
}

// NewStorageMountRepo creates a new PostgreSQL-backed StorageMountRepository.
func NewStorageMountRepo(db *sqlx.DB) port.StorageMountRepository {
	return &storageMountRepo{db: db}
}

func (r *storageMountRepo) Create(ctx context.Context, mount *domain.StorageMount) error {
	now := time.Now().UTC()
	mount.CreatedAt = now
	mount.UpdatedAt = now

	query := `INSERT INTO storage_mounts
		(id, name, mount_path, bucket, region, endpoint, access_key, secret_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		mount.ID, mount.Name, mount.MountPath, mount.Bucket, mount.Region,
		mount.Endpoint, mount.AccessKey, mount.SecretKey, mount.CreatedAt, mount.UpdatedAt)
	if err != nil {
		return fmt.Errorf("storageMountRepo.Create: %w", err)
	}
	return nil
}

func (r *storageMountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.StorageMount, error) {
	var mount domain.StorageMount
	err := r.db.GetContext(ctx, &mount, "SELECT * FROM storage_mounts WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("storageMountRepo.GetByID: %w", err)
	}
	return &mount, nil
}

func (r *storageMountRepo) List(ctx context.Context) ([]domain.StorageMount, error) {
	var mounts []domain.StorageMount
	err := r.db.SelectContext(ctx, &mounts, "SELECT * FROM storage_mounts ORDER BY mount_path")
	if err != nil {
		return nil, fmt.Errorf("storageMountRepo.List: %w", err)
	}
	return mounts, nil
}
