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

type uploadSessionRepo struct {
	db *sqlx.DB
}

// NewUploadSessionRepo creates a new PostgreSQL-backed UploadSessionRepository.
func NewUploadSessionRepo(db *sqlx.DB) port.UploadSessionRepository {
	return &uploadSessionRepo{db: db}
}

func (r *uploadSessionRepo) Create(ctx context.Context, session *domain.UploadSession) error {
	session.CreatedAt = time.Now().UTC()

	query := `INSERT INTO upload_sessions
		(id, upload_id, storage_key, target_path, mount_id, kind, declared_size,
		 content_type, owner_id, owner_kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UploadID, session.StorageKey, session.TargetPath,
		session.MountID, session.Kind, session.DeclaredSize, session.ContentType,
		session.OwnerID, session.OwnerKind, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("uploadSessionRepo.Create: %w", err)
	}
	return nil
}

func (r *uploadSessionRepo) GetByPathAndUploadID(ctx context.Context, targetPath, uploadID string) (*domain.UploadSession, error) {
	var session domain.UploadSession
	err := r.db.GetContext(ctx, &session,
		"SELECT * FROM upload_sessions WHERE target_path = $1 AND upload_id = $2",
		targetPath, uploadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("uploadSessionRepo.GetByPathAndUploadID: %w", err)
	}
	return &session, nil
}

func (r *uploadSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM upload_sessions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("uploadSessionRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *uploadSessionRepo) DeleteByUploadID(ctx context.Context, targetPath, uploadID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM upload_sessions WHERE target_path = $1 AND upload_id = $2",
		targetPath, uploadID)
	if err != nil {
		return fmt.Errorf("uploadSessionRepo.DeleteByUploadID: %w", err)
	}
	return nil
}
