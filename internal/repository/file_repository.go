package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/domain"
)

const fileColumns = `
    uuid, name, mime_type, size_bytes, storage_path, owner_id, folder_id,
    access_level, public_token, content_text, created_at, updated_at`

// likeEscaper экранирует метасимволы LIKE, чтобы пользовательский ввод
// матчился буквально: поиск "100%" не должен находить "100x"
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	query := `
        INSERT INTO files (uuid, name, mime_type, size_bytes, storage_path,
                           owner_id, folder_id, access_level, content_text)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		file.UUID,
		file.Name,
		file.MIMEType,
		file.SizeBytes,
		file.StoragePath,
		file.OwnerID,
		file.FolderID,
		file.AccessLevel,
		file.ContentText,
	).Scan(&file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

func (r *FileRepository) GetByUUID(ctx context.Context, fileUUID uuid.UUID) (*domain.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE uuid = $1`

	var file domain.File
	err := r.db.GetContext(ctx, &file, query, fileUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.KindNotFound, "file not found")
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

func (r *FileRepository) GetByPublicToken(ctx context.Context, token string) (*domain.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE public_token = $1`

	var file domain.File
	err := r.db.GetContext(ctx, &file, query, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.KindNotFound, "file not found")
		}
		return nil, fmt.Errorf("failed to get file by public token: %w", err)
	}

	return &file, nil
}

// FindByName ищет файл по имени внутри папки (nil = корень). Отсутствие
// совпадения не является ошибкой.
func (r *FileRepository) FindByName(ctx context.Context, ownerID string, folderID *int64, name string) (*domain.File, error) {
	query := `
        SELECT ` + fileColumns + `
        FROM files
        WHERE owner_id = $1
          AND name = $2
          AND ($3::bigint IS NULL AND folder_id IS NULL OR folder_id = $3)`

	var file domain.File
	err := r.db.GetContext(ctx, &file, query, ownerID, name, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find file by name: %w", err)
	}

	return &file, nil
}

func (r *FileRepository) ListByFolder(ctx context.Context, ownerID string, folderID *int64) ([]domain.File, error) {
	query := `
        SELECT ` + fileColumns + `
        FROM files
        WHERE owner_id = $1
          AND ($2::bigint IS NULL AND folder_id IS NULL OR folder_id = $2)
        ORDER BY name`

	var files []domain.File
	err := r.db.SelectContext(ctx, &files, query, ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// List возвращает страницу файлов пользователя с фильтрами и сортировкой.
// Поле и направление сортировки к этому моменту уже провалидированы
// сервисом, но whitelist продублирован здесь — repository не доверяет
// вызывающему коду в том, что попадет в ORDER BY.
func (r *FileRepository) List(ctx context.Context, ownerID string, opts domain.FileListOptions) ([]domain.File, int64, error) {
	where := []string{"owner_id = $1"}
	args := []interface{}{ownerID}

	if opts.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(opts.Search)+"%")
		where = append(where, fmt.Sprintf(`name ILIKE $%d ESCAPE '\'`, len(args)))
	}
	if opts.MIMETypePrefix != "" {
		args = append(args, likeEscaper.Replace(opts.MIMETypePrefix)+"%")
		where = append(where, fmt.Sprintf(`mime_type ILIKE $%d ESCAPE '\'`, len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM files WHERE ` + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count files: %w", err)
	}

	sortBy := opts.SortBy
	switch sortBy {
	case "name", "size", "created_at", "updated_at":
	default:
		sortBy = "created_at"
	}
	if sortBy == "size" {
		sortBy = "size_bytes"
	}

	sortOrder := "DESC"
	if strings.EqualFold(opts.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	args = append(args, opts.Limit)
	limitPos := len(args)
	args = append(args, (opts.Page-1)*opts.Limit)
	offsetPos := len(args)

	query := fmt.Sprintf(`
        SELECT %s
        FROM files
        WHERE %s
        ORDER BY %s %s
        LIMIT $%d OFFSET $%d`,
		fileColumns, whereClause, sortBy, sortOrder, limitPos, offsetPos)

	var files []domain.File
	if err := r.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list files: %w", err)
	}

	return files, total, nil
}

// SearchVisible ищет файлы по подстроке имени среди видимых пользователю:
// собственные, публичные и расшаренные лично ему.
func (r *FileRepository) SearchVisible(ctx context.Context, userID, query string, limit, offset int) ([]domain.File, int64, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"

	visible := `
        name ILIKE $2 ESCAPE '\'
        AND (owner_id = $1
             OR access_level = $3
             OR (access_level = $4 AND EXISTS (
                   SELECT 1 FROM shares s
                   WHERE s.resource_id = files.uuid::text
                     AND s.resource_type = $5
                     AND s.grantee_id = $1)))`

	baseArgs := []interface{}{
		userID, pattern,
		domain.AccessPublic, domain.AccessShared, domain.ResourceTypeFile,
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM files WHERE ` + visible
	if err := r.db.GetContext(ctx, &total, countQuery, baseArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count matching files: %w", err)
	}

	listQuery := `
        SELECT ` + fileColumns + `
        FROM files
        WHERE ` + visible + `
        ORDER BY updated_at DESC
        LIMIT $6 OFFSET $7`

	var files []domain.File
	if err := r.db.SelectContext(ctx, &files, listQuery, append(baseArgs, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to search files: %w", err)
	}

	return files, total, nil
}

func (r *FileRepository) UpdateName(ctx context.Context, fileUUID uuid.UUID, name string) error {
	query := `
        UPDATE files
        SET name = $1, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $2`

	result, err := r.db.ExecContext(ctx, query, name, fileUUID)
	if err != nil {
		return fmt.Errorf("failed to update file name: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.New(apperror.KindNotFound, "file not found")
	}

	return nil
}

func (r *FileRepository) UpdateAccessLevel(ctx context.Context, fileUUID uuid.UUID, level domain.AccessLevel) error {
	query := `
        UPDATE files
        SET access_level = $1, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $2`

	result, err := r.db.ExecContext(ctx, query, level, fileUUID)
	if err != nil {
		return fmt.Errorf("failed to update file access level: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.New(apperror.KindNotFound, "file not found")
	}

	return nil
}

func (r *FileRepository) SetPublicToken(ctx context.Context, fileUUID uuid.UUID, token string) error {
	query := `
        UPDATE files
        SET public_token = $1, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $2`

	result, err := r.db.ExecContext(ctx, query, token, fileUUID)
	if err != nil {
		return fmt.Errorf("failed to set public token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.New(apperror.KindNotFound, "file not found")
	}

	return nil
}

// Delete удаляет файл вместе с его share-записями в одной транзакции
func (r *FileRepository) Delete(ctx context.Context, fileUUID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM shares WHERE resource_id = $1 AND resource_type = $2`,
		fileUUID.String(), domain.ResourceTypeFile,
	)
	if err != nil {
		return fmt.Errorf("failed to delete file shares: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM files WHERE uuid = $1`, fileUUID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.New(apperror.KindNotFound, "file not found")
	}

	return tx.Commit()
}
