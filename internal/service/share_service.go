package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/service/blob"
)

// ShareService управляет share-записями и публичными ссылками, включая
// связанные с ними переходы access_level.
type ShareService struct {
	shareRepo  ShareRepository
	fileRepo   FileRepository
	folderRepo FolderRepository
	userRepo   UserRepository
	storage    blob.Storage
}

func NewShareService(
	shareRepo ShareRepository,
	fileRepo FileRepository,
	folderRepo FolderRepository,
	userRepo UserRepository,
	storage blob.Storage,
) *ShareService {
	return &ShareService{
		shareRepo:  shareRepo,
		fileRepo:   fileRepo,
		folderRepo: folderRepo,
		userRepo:   userRepo,
		storage:    storage,
	}
}

// generatePublicToken возвращает криптослучайный hex-токен фиксированной
// длины (64 символа). Глобальную уникальность страхует ограничение в БД,
// вероятность коллизии считается пренебрежимой.
func generatePublicToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ShareFile выдает grantee доступ к файлу. Повторная выдача той же паре
// (файл, grantee) идемпотентно обновляет permission. Первый share переводит
// PRIVATE-файл в SHARED; обратного перехода нет.
func (s *ShareService) ShareFile(ctx context.Context, ownerID string, fileUUID uuid.UUID, granteeEmail string, permission domain.SharePermission) (*domain.Share, error) {
	if permission == "" {
		permission = domain.PermissionView
	}
	if !permission.Valid() {
		return nil, apperror.Newf(apperror.KindInvalidArgument, "invalid permission: %s", permission)
	}

	file, err := s.fileRepo.GetByUUID(ctx, fileUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if file.OwnerID != ownerID {
		return nil, apperror.New(apperror.KindForbidden, "you do not have permission to share this file")
	}

	grantee, err := s.userRepo.GetByEmail(ctx, granteeEmail)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, apperror.New(apperror.KindNotFound, "user to share with not found")
		}
		return nil, fmt.Errorf("failed to find grantee: %w", err)
	}

	if grantee.ID == ownerID {
		return nil, apperror.New(apperror.KindInvalidArgument, "cannot share file with yourself")
	}

	// Идемпотентный upsert: существующий share меняет только permission
	existing, err := s.shareRepo.Find(ctx, fileUUID.String(), domain.ResourceTypeFile, grantee.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing share: %w", err)
	}
	if existing != nil {
		if err := s.shareRepo.UpdatePermission(ctx, existing.ID, permission); err != nil {
			return nil, fmt.Errorf("failed to update share: %w", err)
		}
		existing.Permission = permission
		return existing, nil
	}

	// Сначала переход PRIVATE -> SHARED, потом share-запись: при сбое
	// перехода на приватном файле не остается висячей share-строки
	if file.AccessLevel == domain.AccessPrivate {
		if err := s.fileRepo.UpdateAccessLevel(ctx, fileUUID, domain.AccessShared); err != nil {
			return nil, fmt.Errorf("failed to update access level: %w", err)
		}
	}

	share := &domain.Share{
		ID:           uuid.New(),
		ResourceID:   fileUUID.String(),
		ResourceType: domain.ResourceTypeFile,
		GranteeID:    grantee.ID,
		Permission:   permission,
	}

	if err := s.shareRepo.Create(ctx, share); err != nil {
		return nil, fmt.Errorf("failed to create share: %w", err)
	}

	return share, nil
}

// ShareFolder повторяет файловое поведение на уровне метаданных: папка
// переводится в SHARED, но отдельная share-запись для папок в этой версии
// не персистится — каскадного доступа к содержимому она все равно не дает.
func (s *ShareService) ShareFolder(ctx context.Context, ownerID string, folderID int64, granteeEmail string, permission domain.SharePermission) (*domain.Share, error) {
	if permission == "" {
		permission = domain.PermissionView
	}
	if !permission.Valid() {
		return nil, apperror.Newf(apperror.KindInvalidArgument, "invalid permission: %s", permission)
	}

	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	if folder.OwnerID != ownerID {
		return nil, apperror.New(apperror.KindForbidden, "you do not have permission to share this folder")
	}

	grantee, err := s.userRepo.GetByEmail(ctx, granteeEmail)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, apperror.New(apperror.KindNotFound, "user to share with not found")
		}
		return nil, fmt.Errorf("failed to find grantee: %w", err)
	}

	if grantee.ID == ownerID {
		return nil, apperror.New(apperror.KindInvalidArgument, "cannot share folder with yourself")
	}

	if folder.AccessLevel == domain.AccessPrivate {
		if err := s.folderRepo.UpdateAccessLevel(ctx, folderID, domain.AccessShared); err != nil {
			return nil, fmt.Errorf("failed to update access level: %w", err)
		}
	}

	return &domain.Share{
		ID:           uuid.New(),
		ResourceID:   fmt.Sprintf("%d", folderID),
		ResourceType: domain.ResourceTypeFolder,
		GranteeID:    grantee.ID,
		Permission:   permission,
	}, nil
}

// CreatePublicLink выдает файлу публичный токен и переводит его в PUBLIC.
// Повторный вызов идемпотентен: существующий токен возвращается как есть.
// Если уровень был понижен после выдачи токена, повторный вызов уровень НЕ
// восстанавливает — файл держит токен, который ничего не открывает.
func (s *ShareService) CreatePublicLink(ctx context.Context, ownerID string, fileUUID uuid.UUID) (*domain.PublicLink, error) {
	file, err := s.fileRepo.GetByUUID(ctx, fileUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if file.OwnerID != ownerID {
		return nil, apperror.New(apperror.KindForbidden, "you do not have permission to create a public link")
	}

	if file.PublicToken != nil {
		return &domain.PublicLink{
			PublicToken: *file.PublicToken,
			URL:         publicURL(*file.PublicToken),
		}, nil
	}

	token, err := generatePublicToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.fileRepo.SetPublicToken(ctx, fileUUID, token); err != nil {
		return nil, fmt.Errorf("failed to set public token: %w", err)
	}
	if err := s.fileRepo.UpdateAccessLevel(ctx, fileUUID, domain.AccessPublic); err != nil {
		return nil, fmt.Errorf("failed to update access level: %w", err)
	}

	return &domain.PublicLink{
		PublicToken: token,
		URL:         publicURL(token),
	}, nil
}

// CreateFolderPublicLink переводит папку в PUBLIC. Токен для папок не
// персистится (известный пробел, зеркалит файловое поведение только на
// уровне метаданных).
func (s *ShareService) CreateFolderPublicLink(ctx context.Context, ownerID string, folderID int64) (*domain.PublicLink, error) {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	if folder.OwnerID != ownerID {
		return nil, apperror.New(apperror.KindForbidden, "you do not have permission to create a public link")
	}

	if err := s.folderRepo.UpdateAccessLevel(ctx, folderID, domain.AccessPublic); err != nil {
		return nil, fmt.Errorf("failed to update access level: %w", err)
	}

	token, err := generatePublicToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &domain.PublicLink{
		PublicToken: token,
		URL:         fmt.Sprintf("/v1/folders/%d/public", folderID),
	}, nil
}

// ResolvePublicToken возвращает файл с содержимым по публичному токену.
// Токен работает только пока access_level = PUBLIC: понижение уровня
// фактически отзывает ссылку, хотя строка токена сохраняется.
func (s *ShareService) ResolvePublicToken(ctx context.Context, token string) (*domain.FileDownload, error) {
	file, err := s.resolvePublicFile(ctx, token)
	if err != nil {
		return nil, err
	}

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
		log.Printf("[ShareService] warning: size mismatch for public file %s: db has %d bytes, object is %d", file.UUID, file.SizeBytes, len(data))
	}

	return &domain.FileDownload{File: file, Data: data}, nil
}

// ResolvePublicInfo возвращает только метаданные публичного файла
func (s *ShareService) ResolvePublicInfo(ctx context.Context, token string) (*domain.File, error) {
	return s.resolvePublicFile(ctx, token)
}

func (s *ShareService) resolvePublicFile(ctx context.Context, token string) (*domain.File, error) {
	if token == "" {
		return nil, apperror.New(apperror.KindNotFound, "file not found or not public")
	}

	file, err := s.fileRepo.GetByPublicToken(ctx, token)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, apperror.New(apperror.KindNotFound, "file not found or not public")
		}
		return nil, fmt.Errorf("failed to resolve public token: %w", err)
	}

	if file.AccessLevel != domain.AccessPublic {
		return nil, apperror.New(apperror.KindNotFound, "file not found or not public")
	}

	return file, nil
}

func publicURL(token string) string {
	return fmt.Sprintf("/v1/public/%s", token)
}
