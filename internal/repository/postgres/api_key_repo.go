package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"driftbox/internal/domain"
	"driftbox/internal/port"
)

type apiKeyRepo struct {
	db *sqlx.DB
}

// NewAPIKeyRepo creates a new PostgreSQL-backed APIKeyRepository.
func NewAPIKeyRepo(db *sqlx.DB) port.APIKeyRepository {
	return &apiKeyRepo{db: db}
}

func (r *apiKeyRepo) GetByPrefix(ctx context.Context, prefix string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := r.db.GetContext(ctx, &key,
		"SELECT * FROM api_keys WHERE prefix = $1 AND is_active = TRUE", prefix)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("apiKeyRepo.GetByPrefix: %w", err)
	}
	return &key, nil
}
