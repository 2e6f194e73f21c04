package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/service/blob"
)

// FolderService владеет операциями над деревом папок: создание, просмотр,
// хлебные крошки, переименование и рекурсивное удаление. parent_id = nil
// означает корень диска пользователя.
type FolderService struct {
	folderRepo FolderRepository
	fileRepo   FileRepository
	storage    blob.Storage
	quota      *QuotaService
}

func NewFolderService(
	folderRepo FolderRepository,
	fileRepo FileRepository,
	storage blob.Storage,
	quota *QuotaService,
) *FolderService {
	return &FolderService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		storage:    storage,
		quota:      quota,
	}
}

func (s *FolderService) CreateFolder(ctx context.Context, userID string, name string, parentID *int64) (*domain.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.New(apperror.KindInvalidArgument, "folder name is required")
	}

	// Проверяем родительскую папку
	if parentID != nil {
		parent, err := s.folderRepo.GetByID(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get parent folder: %w", err)
		}
		if parent.OwnerID != userID {
			return nil, apperror.New(apperror.KindForbidden, "you do not have permission to create folders here")
		}
	}

	// Проверяем, нет ли папки с таким именем на том же уровне
	existing, err := s.folderRepo.FindByName(ctx, userID, parentID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check folder existence: %w", err)
	}
	if existing != nil {
		return nil, apperror.Newf(apperror.KindConflict, "folder named %q already exists", name)
	}

	folder := &domain.Folder{
		Name:        name,
		OwnerID:     userID,
		ParentID:    parentID,
		AccessLevel: domain.AccessPrivate,
	}

	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	return folder, nil
}

func (s *FolderService) GetFolder(ctx context.Context, userID string, folderID int64) (*domain.Folder, error) {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	if folder.OwnerID != userID {
		return nil, apperror.New(apperror.KindForbidden, "you do not have permission to access this folder")
	}

	return folder, nil
}

// GetContents возвращает папки и файлы непосредственно под folderID,
// отсортированные по имени. folderID = nil означает корень. Просмотр
// содержимого доступен только владельцу: чужие папки через share в этой
// версии не просматриваются, доступны только отдельные расшаренные файлы.
func (s *FolderService) GetContents(ctx context.Context, userID string, folderID *int64) (*domain.FolderContent, error) {
	if folderID != nil {
		if _, err := s.GetFolder(ctx, userID, *folderID); err != nil {
			return nil, err
		}
	}

	folders, err := s.folderRepo.ListByParent(ctx, userID, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	files, err := s.fileRepo.ListByFolder(ctx, userID, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return &domain.FolderContent{
		Folders: folders,
		Files:   files,
	}, nil
}

// GetPath строит хлебные крошки от синтетического корня {id: null, "Root"}
// до папки включительно. Каждый переход вверх заново проверяет владение,
// так что разрешение пути — это и повторная проверка прав на каждом уровне.
func (s *FolderService) GetPath(ctx context.Context, userID string, folderID int64) ([]domain.PathEntry, error) {
	folder, err := s.GetFolder(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}

	var chain []domain.PathEntry
	current := folder
	for {
		id := current.ID
		chain = append(chain, domain.PathEntry{ID: &id, Name: current.Name})

		if current.ParentID == nil {
			break
		}

		parent, err := s.folderRepo.GetByID(ctx, *current.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get parent folder: %w", err)
		}
		if parent.OwnerID != userID {
			return nil, apperror.New(apperror.KindForbidden, "you do not have permission to access this folder path")
		}
		current = parent
	}

	// Разворачиваем: корень первым
	path := make([]domain.PathEntry, 0, len(chain)+1)
	path = append(path, domain.PathEntry{ID: nil, Name: "Root"})
	for i := len(chain) - 1; i >= 0; i-- {
		path = append(path, chain[i])
	}

	return path, nil
}

func (s *FolderService) RenameFolder(ctx context.Context, userID string, folderID int64, newName string) (*domain.Folder, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, apperror.New(apperror.KindInvalidArgument, "folder name is required")
	}

	folder, err := s.GetFolder(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}

	// Ищем тезку на том же уровне, исключая саму папку
	existing, err := s.folderRepo.FindByName(ctx, userID, folder.ParentID, newName)
	if err != nil {
		return nil, fmt.Errorf("failed to check folder existence: %w", err)
	}
	if existing != nil && existing.ID != folderID {
		return nil, apperror.Newf(apperror.KindConflict, "folder named %q already exists in this location", newName)
	}

	if err := s.folderRepo.UpdateName(ctx, folderID, newName); err != nil {
		return nil, fmt.Errorf("failed to update folder name: %w", err)
	}

	folder.Name = newName
	return folder, nil
}

// SetAccessLevel меняет уровень доступа папки. Понижение уровня каскадно не
// трогает вложенные файлы: их видимость определяется их собственным уровнем.
func (s *FolderService) SetAccessLevel(ctx context.Context, userID string, folderID int64, level domain.AccessLevel) (*domain.Folder, error) {
	if !level.Valid() {
		return nil, apperror.Newf(apperror.KindInvalidArgument, "invalid access level: %s", level)
	}

	folder, err := s.GetFolder(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}

	if err := s.folderRepo.UpdateAccessLevel(ctx, folderID, level); err != nil {
		return nil, fmt.Errorf("failed to update access level: %w", err)
	}

	folder.AccessLevel = level
	return folder, nil
}

// DeleteFolder удаляет папку со всем содержимым. Поддерево обходится явным
// стеком в post-order, так что дочерние папки удаляются раньше родителя.
// Метаданные — источник истины: запись удаляется первой, байты в хранилище
// подчищаются best-effort, их отсутствие не фатально. Квота освобождается
// одним декрементом на сумму размеров всех удаленных файлов.
func (s *FolderService) DeleteFolder(ctx context.Context, userID string, folderID int64) error {
	root, err := s.GetFolder(ctx, userID, folderID)
	if err != nil {
		return err
	}

	// Собираем post-order: кладем папки в stack, результат разворачивается
	// в порядке "дети раньше родителей"
	stack := []*domain.Folder{root}
	var postOrder []*domain.Folder
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		postOrder = append(postOrder, current)

		id := current.ID
		children, err := s.folderRepo.ListByParent(ctx, userID, &id)
		if err != nil {
			return fmt.Errorf("failed to list subfolders: %w", err)
		}
		for i := range children {
			stack = append(stack, &children[i])
		}
	}

	var freedBytes int64
	for i := len(postOrder) - 1; i >= 0; i-- {
		folder := postOrder[i]
		id := folder.ID

		files, err := s.fileRepo.ListByFolder(ctx, userID, &id)
		if err != nil {
			return fmt.Errorf("failed to list folder files: %w", err)
		}

		for j := range files {
			file := &files[j]
			if err := s.fileRepo.Delete(ctx, file.UUID); err != nil {
				return fmt.Errorf("failed to delete file %s: %w", file.UUID, err)
			}
			freedBytes += file.SizeBytes

			if err := s.storage.Delete(ctx, file.StoragePath); err != nil {
				log.Printf("[FolderService] warning: failed to delete object %s: %v", file.StoragePath, err)
			}
		}

		if err := s.folderRepo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete folder %d: %w", id, err)
		}
	}

	if freedBytes > 0 {
		if err := s.quota.Release(ctx, userID, freedBytes); err != nil {
			return fmt.Errorf("failed to release quota: %w", err)
		}
	}

	return nil
}
