package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/service/blob"
	"vaultdrive/internal/service/extract"
)

const (
	maxFileSize = 100 * 1024 * 1024 // 100MB максимальный размер файла

	defaultListLimit = 20
	maxListLimit     = 100
)

// FileService оркестрирует загрузку, скачивание и удаление файлов: квота,
// права, байтовое хранилище и метаданные.
type FileService struct {
	fileRepo   FileRepository
	folderRepo FolderRepository
	storage    blob.Storage
	quota      *QuotaService
	access     *AccessService
	extractor  extract.Extractor
}

func NewFileService(
	fileRepo FileRepository,
	folderRepo FolderRepository,
	storage blob.Storage,
	quota *QuotaService,
	access *AccessService,
	extractor extract.Extractor,
) *FileService {
	return &FileService{
		fileRepo:   fileRepo,
		folderRepo: folderRepo,
		storage:    storage,
		quota:      quota,
		access:     access,
		extractor:  extractor,
	}
}

// Upload загружает файл. Порядок шагов фиксированный: проверка квоты, затем
// запись байтов, затем метаданные, затем фиксация квоты. Неудавшаяся
// загрузка оставляет storage_used без изменений.
func (s *FileService) Upload(ctx context.Context, userID string, in domain.FileUpload) (*domain.File, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.New(apperror.KindInvalidArgument, "file name is required")
	}
	if in.Data == nil {
		return nil, apperror.New(apperror.KindInvalidArgument, "file data is required")
	}
	if in.Size < 0 {
		return nil, apperror.New(apperror.KindInvalidArgument, "file size cannot be negative")
	}
	if in.Size > maxFileSize {
		return nil, apperror.Newf(apperror.KindInvalidArgument, "file size exceeds maximum allowed size of %d bytes", maxFileSize)
	}

	level := in.AccessLevel
	if level == "" {
		level = domain.AccessPrivate
	}
	if !level.Valid() {
		return nil, apperror.Newf(apperror.KindInvalidArgument, "invalid access level: %s", level)
	}

	// Проверяем наличие свободного места
	if err := s.quota.CheckAndReserve(ctx, userID, in.Size); err != nil {
		return nil, err
	}

	// Проверяем права на целевую папку
	if in.FolderID != nil {
		folder, err := s.folderRepo.GetByID(ctx, *in.FolderID)
		if err != nil {
			return nil, fmt.Errorf("failed to get folder: %w", err)
		}
		if folder.OwnerID != userID {
			return nil, apperror.New(apperror.KindForbidden, "you do not have permission to upload to this folder")
		}
	}

	// Проверяем, нет ли файла с таким именем в той же папке
	existing, err := s.fileRepo.FindByName(ctx, userID, in.FolderID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check file existence: %w", err)
	}
	if existing != nil {
		return nil, apperror.Newf(apperror.KindConflict, "file named %q already exists in this location", name)
	}

	// Читаем содержимое в буфер
	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, io.LimitReader(in.Data, maxFileSize+1)); err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	if int64(buf.Len()) != in.Size {
		log.Printf("[FileService] warning: size mismatch for %q: reported %d bytes, got %d", name, in.Size, buf.Len())
	}

	fileUUID := uuid.New()
	mimeType := in.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	// Ключ генерируется один раз на файл и не переиспользуется, поэтому
	// конкурентные загрузки не конфликтуют по ключам
	storagePath := fmt.Sprintf("uploads/%s_%d_%s", userID, time.Now().UnixMilli(), fileUUID)

	if err := s.storage.Upload(ctx, storagePath, bytes.NewReader(buf.Bytes()), in.Size); err != nil {
		return nil, fmt.Errorf("failed to write file data: %w", err)
	}

	// Извлекаем текст best-effort: ошибка дает null и никогда не ломает
	// загрузку
	var contentText *string
	if s.extractor != nil {
		text, err := s.extractor.ExtractText(ctx, buf.Bytes(), mimeType)
		if err != nil {
			log.Printf("[FileService] warning: text extraction failed for %q: %v", name, err)
		} else if text != "" {
			contentText = &text
		}
	}

	file := &domain.File{
		UUID:        fileUUID,
		Name:        name,
		MIMEType:    mimeType,
		SizeBytes:   in.Size,
		StoragePath: storagePath,
		OwnerID:     userID,
		FolderID:    in.FolderID,
		AccessLevel: level,
		ContentText: contentText,
	}

	if err := s.fileRepo.Create(ctx, file); err != nil {
		// При ошибке подчищаем уже записанные байты
		if deleteErr := s.storage.Delete(ctx, storagePath); deleteErr != nil {
			log.Printf("[FileService] warning: failed to delete object after db error: %v", deleteErr)
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	// Публичный файл сразу получает токен
	if level == domain.AccessPublic && file.PublicToken == nil {
		token, err := generatePublicToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate public token: %w", err)
		}
		if err := s.fileRepo.SetPublicToken(ctx, fileUUID, token); err != nil {
			return nil, fmt.Errorf("failed to set public token: %w", err)
		}
		file.PublicToken = &token
	}

	if err := s.quota.Commit(ctx, userID, in.Size); err != nil {
		return nil, err
	}

	return file, nil
}

// Download читает файл. Скачивание доступно владельцу, по публичному уровню
// и по share — решает AccessService.
func (s *FileService) Download(ctx context.Context, userID string, fileUUID uuid.UUID) (*domain.FileDownload, error) {
	file, err := s.fileRepo.GetByUUID(ctx, fileUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	allowed, err := s.access.CanAccessFile(ctx, file, userID, domain.CapabilityRead)
	if err != nil {
		return nil, fmt.Errorf("failed to check access: %w", err)
	}
	if !allowed {
		return nil, apperror.New(apperror.KindForbidden, "you do not have permission to download this file")
	}

	data, err := s.readObject(ctx, file)
	if err != nil {
		return nil, err
	}

	return &domain.FileDownload{File: file, Data: data}, nil
}

// Delete удаляет файл. Сначала метаданные (источник истины), затем квота,
// затем best-effort удаление байтов: его неудача логируется и не
// откатывает уже зафиксированное удаление.
func (s *FileService) Delete(ctx context.Context, userID string, fileUUID uuid.UUID) error {
	file, err := s.fileRepo.GetByUUID(ctx, fileUUID)
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}

	allowed, err := s.access.CanAccessFile(ctx, file, userID, domain.CapabilityDelete)
	if err != nil {
		return fmt.Errorf("failed to check access: %w", err)
	}
	if !allowed {
		return apperror.New(apperror.KindForbidden, "you do not have permission to delete this file")
	}

	if err := s.fileRepo.Delete(ctx, fileUUID); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	if err := s.quota.Release(ctx, userID, file.SizeBytes); err != nil {
		return fmt.Errorf("failed to release quota: %w", err)
	}

	if err := s.storage.Delete(ctx, file.StoragePath); err != nil {
		log.Printf("[FileService] warning: failed to delete object %s: %v", file.StoragePath, err)
	}

	return nil
}

func (s *FileService) Rename(ctx context.Context, userID string, fileUUID uuid.UUID, newName string) (*domain.File, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, apperror.New(apperror.KindInvalidArgument, "file name is required")
	}

	file, err := s.fileRepo.GetByUUID(ctx, fileUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if file.OwnerID != userID {
		return nil, apperror.New(apperror.KindForbidden, "you do not have permission to rename this file")
	}

	existing, err := s.fileRepo.FindByName(ctx, userID, file.FolderID, newName)
	if err != nil {
		return nil, fmt.Errorf("failed to check file existence: %w", err)
	}
	if existing != nil && existing.UUID != fileUUID {
		return nil, apperror.Newf(apperror.KindConflict, "file named %q already exists in this location", newName)
	}

	if err := s.fileRepo.UpdateName(ctx, fileUUID, newName); err != nil {
		return nil, fmt.Errorf("failed to update file name: %w", err)
	}

	file.Name = newName
	return file, nil
}

// List возвращает файлы пользователя с фильтрацией и пагинацией
func (s *FileService) List(ctx context.Context, userID string, opts domain.FileListOptions) (*domain.FileList, error) {
	opts = normalizeListOptions(opts)

	files, total, err := s.fileRepo.List(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(opts.Limit) - 1) / int64(opts.Limit))
	}

	if files == nil {
		files = []domain.File{}
	}

	return &domain.FileList{
		Files: files,
		Meta: domain.ListMeta{
			Total:      total,
			Page:       opts.Page,
			Limit:      opts.Limit,
			TotalPages: totalPages,
		},
	}, nil
}

// SetAccessLevel меняет уровень доступа файла. При переводе в PUBLIC файл
// получает токен, если его еще нет. Понижение уровня токен НЕ очищает:
// запись может держать неиспользуемый токен, публичный доступ при этом
// закрыт (resolve проверяет уровень на момент запроса).
func (s *FileService) SetAccessLevel(ctx context.Context, userID string, fileUUID uuid.UUID, level domain.AccessLevel) (*domain.File, error) {
	if !level.Valid() {
		return nil, apperror.Newf(apperror.KindInvalidArgument, "invalid access level: %s", level)
	}

	file, err := s.fileRepo.GetByUUID(ctx, fileUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if file.OwnerID != userID {
		return nil, apperror.New(apperror.KindForbidden, "you do not have permission to update this file")
	}

	if level == domain.AccessPublic && file.PublicToken == nil {
		token, err := generatePublicToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate public token: %w", err)
		}
		if err := s.fileRepo.SetPublicToken(ctx, fileUUID, token); err != nil {
			return nil, fmt.Errorf("failed to set public token: %w", err)
		}
		file.PublicToken = &token
	}

	if err := s.fileRepo.UpdateAccessLevel(ctx, fileUUID, level); err != nil {
		return nil, fmt.Errorf("failed to update access level: %w", err)
	}

	file.AccessLevel = level
	return file, nil
}

func (s *FileService) readObject(ctx context.Context, file *domain.File) ([]byte, error) {
	body, err := s.storage.Download(ctx, file.StoragePath)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindNotFound, "file content not found", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}

	if int64(len(data)) != file.SizeBytes {
		log.Printf("[FileService] warning: size mismatch for file %s: db has %d bytes, object is %d", file.UUID, file.SizeBytes, len(data))
	}

	return data, nil
}

func normalizeListOptions(opts domain.FileListOptions) domain.FileListOptions {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}

	switch opts.SortBy {
	case "name", "size", "created_at", "updated_at":
	default:
		opts.SortBy = "created_at"
	}

	switch strings.ToLower(opts.SortOrder) {
	case "asc":
		opts.SortOrder = "asc"
	case "desc":
		opts.SortOrder = "desc"
	default:
		opts.SortOrder = "desc"
	}

	return opts
}
