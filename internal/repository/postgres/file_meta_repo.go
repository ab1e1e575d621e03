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

type fileMetaRepo struct {
	db *sqlx.DB
}

// NewFileMetaRepo creates a new PostgreSQL-backed FileMetaRepository.
func NewFileMetaRepo(db *sqlx.DB) port.FileMetaRepository {
	return &fileMetaRepo{db: db}
}

const insertFileQuery = `INSERT INTO file_metadata
	(id, path, name, mount_id, storage_key, content_type, size, etag,
	 owner_id, owner_kind, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (path) DO UPDATE SET
		mount_id = EXCLUDED.mount_id, storage_key = EXCLUDED.storage_key,
		content_type = EXCLUDED.content_type, size = EXCLUDED.size,
		etag = EXCLUDED.etag, owner_id = EXCLUDED.owner_id,
		owner_kind = EXCLUDED.owner_kind, status = EXCLUDED.status,
		updated_at = EXCLUDED.updated_at`

func (r *fileMetaRepo) Create(ctx context.Context, meta *domain.FileMeta) error {
	now := time.Now().UTC()
	meta.CreatedAt = now
	meta.UpdatedAt = now

	// Last writer wins on path conflicts at the metadata layer.
	_, err := r.db.ExecContext(ctx, insertFileQuery,
		meta.ID, meta.Path, meta.Name, meta.MountID, meta.StorageKey,
		meta.ContentType, meta.Size, meta.ETag, meta.OwnerID, meta.OwnerKind,
		meta.Status, meta.CreatedAt, meta.UpdatedAt)
	if err != nil {
		return fmt.Errorf("fileMetaRepo.Create: %w", err)
	}
	return nil
}

// CreateBatch inserts all records in one transaction so directory copies are
// committed per batch rather than once per file.
func (r *fileMetaRepo) CreateBatch(ctx context.Context, files []domain.FileMeta) error {
	if len(files) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("fileMetaRepo.CreateBatch begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i := range files {
		f := &files[i]
		f.CreatedAt = now
		f.UpdatedAt = now
		_, err := tx.ExecContext(ctx, insertFileQuery,
			f.ID, f.Path, f.Name, f.MountID, f.StorageKey,
			f.ContentType, f.Size, f.ETag, f.OwnerID, f.OwnerKind,
			f.Status, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("fileMetaRepo.CreateBatch insert %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("fileMetaRepo.CreateBatch commit: %w", err)
	}
	return nil
}

func (r *fileMetaRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FileMeta, error) {
	var meta domain.FileMeta
	err := r.db.GetContext(ctx, &meta,
		"SELECT * FROM file_metadata WHERE id = $1 AND status != $2",
		id, domain.FileStatusDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fileMetaRepo.GetByID: %w", err)
	}
	return &meta, nil
}

func (r *fileMetaRepo) GetByPath(ctx context.Context, path string) (*domain.FileMeta, error) {
	var meta domain.FileMeta
	err := r.db.GetContext(ctx, &meta,
		"SELECT * FROM file_metadata WHERE path = $1 AND status != $2",
		path, domain.FileStatusDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fileMetaRepo.GetByPath: %w", err)
	}
	return &meta, nil
}

func (r *fileMetaRepo) ExistsByPath(ctx context.Context, path string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM file_metadata WHERE path = $1 AND status != $2",
		path, domain.FileStatusDeleted)
	if err != nil {
		return false, fmt.Errorf("fileMetaRepo.ExistsByPath: %w", err)
	}
	return count > 0, nil
}

func (r *fileMetaRepo) ListByPrefix(ctx context.Context, prefix string, offset, limit int) ([]domain.FileMeta, int, error) {
	like := prefix + "%"

	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM file_metadata WHERE path LIKE $1 AND status != $2",
		like, domain.FileStatusDeleted)
	if err != nil {
		return nil, 0, fmt.Errorf("fileMetaRepo.ListByPrefix count: %w", err)
	}

	var files []domain.FileMeta
	err = r.db.SelectContext(ctx, &files,
		`SELECT * FROM file_metadata
		 WHERE path LIKE $1 AND status != $2
		 ORDER BY path LIMIT $3 OFFSET $4`,
		like, domain.FileStatusDeleted, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("fileMetaRepo.ListByPrefix: %w", err)
	}
	return files, total, nil
}

func (r *fileMetaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE file_metadata SET status = $1, updated_at = $2 WHERE id = $3",
		domain.FileStatusDeleted, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("fileMetaRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
