package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/domain"
)

type ShareRepository struct {
	db *sqlx.DB
}

func NewShareRepository(db *sqlx.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

func (r *ShareRepository) Create(ctx context.Context, share *domain.Share) error {
	query := `
        INSERT INTO shares (id, resource_id, resource_type, grantee_id, permission)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		share.ID,
		share.ResourceID,
		share.ResourceType,
		share.GranteeID,
		share.Permission,
	).Scan(&share.CreatedAt, &share.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create share: %w", err)
	}

	return nil
}

func (r *ShareRepository) UpdatePermission(ctx context.Context, id uuid.UUID, permission domain.SharePermission) error {
	query := `
        UPDATE shares
        SET permission = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, permission, id)
	if err != nil {
		return fmt.Errorf("failed to update share permission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.New(apperror.KindNotFound, "share not found")
	}

	return nil
}

// Find ищет share для пары (ресурс, grantee). Отсутствие записи не
// является ошибкой.
func (r *ShareRepository) Find(ctx context.Context, resourceID string, resourceType domain.ResourceType, granteeID string) (*domain.Share, error) {
	query := `
        SELECT id, resource_id, resource_type, grantee_id, permission, created_at, updated_at
        FROM shares
        WHERE resource_id = $1 AND resource_type = $2 AND grantee_id = $3`

	var share domain.Share
	err := r.db.GetContext(ctx, &share, query, resourceID, resourceType, granteeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find share: %w", err)
	}

	return &share, nil
}

func (r *ShareRepository) ListByResource(ctx context.Context, resourceID string, resourceType domain.ResourceType) ([]domain.Share, error) {
	query := `
        SELECT id, resource_id, resource_type, grantee_id, permission, created_at, updated_at
        FROM shares
        WHERE resource_id = $1 AND resource_type = $2
        ORDER BY created_at`

	var shares []domain.Share
	err := r.db.SelectContext(ctx, &shares, query, resourceID, resourceType)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}

	return shares, nil
}

func (r *ShareRepository) DeleteByResource(ctx context.Context, resourceID string, resourceType domain.ResourceType) error {
	query := `DELETE FROM shares WHERE resource_id = $1 AND resource_type = $2`

	if _, err := r.db.ExecContext(ctx, query, resourceID, resourceType); err != nil {
		return fmt.Errorf("failed to delete shares: %w", err)
	}

	return nil
}
