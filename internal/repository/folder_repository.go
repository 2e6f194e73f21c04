package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/domain"
)

type FolderRepository struct {
	db *sqlx.DB
}

func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	query := `
        INSERT INTO folders (name, owner_id, parent_id, access_level)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		folder.Name,
		folder.OwnerID,
		folder.ParentID,
		folder.AccessLevel,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	return nil
}

func (r *FolderRepository) GetByID(ctx context.Context, id int64) (*domain.Folder, error) {
	query := `
        SELECT id, name, owner_id, parent_id, access_level, created_at, updated_at
        FROM folders
        WHERE id = $1`

	var folder domain.Folder
	err := r.db.GetContext(ctx, &folder, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.KindNotFound, "folder not found")
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	return &folder, nil
}

// FindByName ищет папку по имени среди детей parentID (nil = корень).
// Отсутствие совпадения не является ошибкой.
func (r *FolderRepository) FindByName(ctx context.Context, ownerID string, parentID *int64, name string) (*domain.Folder, error) {
	query := `
        SELECT id, name, owner_id, parent_id, access_level, created_at, updated_at
        FROM folders
        WHERE owner_id = $1
          AND name = $2
          AND ($3::bigint IS NULL AND parent_id IS NULL OR parent_id = $3)`

	var folder domain.Folder
	err := r.db.GetContext(ctx, &folder, query, ownerID, name, parentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find folder by name: %w", err)
	}

	return &folder, nil
}

func (r *FolderRepository) ListByParent(ctx context.Context, ownerID string, parentID *int64) ([]domain.Folder, error) {
	query := `
        SELECT id, name, owner_id, parent_id, access_level, created_at, updated_at
        FROM folders
        WHERE owner_id = $1
          AND ($2::bigint IS NULL AND parent_id IS NULL OR parent_id = $2)
        ORDER BY name`

	var folders []domain.Folder
	err := r.db.SelectContext(ctx, &folders, query, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

// SearchVisible ищет папки по подстроке имени среди видимых пользователю.
// Share-записи для папок не персистятся, поэтому видимость — владение
// либо публичный уровень.
func (r *FolderRepository) SearchVisible(ctx context.Context, userID, query string, limit, offset int) ([]domain.Folder, int64, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"

	visible := `
        name ILIKE $2 ESCAPE '\'
        AND (owner_id = $1 OR access_level = $3)`

	var total int64
	countQuery := `SELECT COUNT(*) FROM folders WHERE ` + visible
	if err := r.db.GetContext(ctx, &total, countQuery, userID, pattern, domain.AccessPublic); err != nil {
		return nil, 0, fmt.Errorf("failed to count matching folders: %w", err)
	}

	listQuery := `
        SELECT id, name, owner_id, parent_id, access_level, created_at, updated_at
        FROM folders
        WHERE ` + visible + `
        ORDER BY updated_at DESC
        LIMIT $4 OFFSET $5`

	var folders []domain.Folder
	if err := r.db.SelectContext(ctx, &folders, listQuery, userID, pattern, domain.AccessPublic, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to search folders: %w", err)
	}

	return folders, total, nil
}

func (r *FolderRepository) UpdateName(ctx context.Context, id int64, name string) error {
	query := `
        UPDATE folders
        SET name = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, name, id)
	if err != nil {
		return fmt.Errorf("failed to update folder name: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.New(apperror.KindNotFound, "folder not found")
	}

	return nil
}

func (r *FolderRepository) UpdateAccessLevel(ctx context.Context, id int64, level domain.AccessLevel) error {
	query := `
        UPDATE folders
        SET access_level = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, level, id)
	if err != nil {
		return fmt.Errorf("failed to update folder access level: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.New(apperror.KindNotFound, "folder not found")
	}

	return nil
}

// Delete удаляет одну папку. Обход поддерева и порядок удаления (дети
// раньше родителей) — ответственность сервисного слоя.
func (r *FolderRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.New(apperror.KindNotFound, "folder not found")
	}

	return nil
}
