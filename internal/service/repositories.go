package service

import (
	"context"

	"github.com/google/uuid"

	"vaultdrive/internal/domain"
)

// Интерфейсы хранилища метаданных, которые потребляют сервисы. Реализация
// на sqlx живет в internal/repository; тесты используют in-memory двойники.
//
// Контракт ошибок: методы Get* возвращают apperror.KindNotFound для
// отсутствующей записи, методы Find* возвращают (nil, nil).

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// AddUsedBytes атомарно сдвигает storage_used на delta; отрицательный
	// delta никогда не уводит значение ниже нуля.
	AddUsedBytes(ctx context.Context, ownerID string, delta int64) error
}

type FolderRepository interface {
	Create(ctx context.Context, folder *domain.Folder) error
	GetByID(ctx context.Context, id int64) (*domain.Folder, error)
	FindByName(ctx context.Context, ownerID string, parentID *int64, name string) (*domain.Folder, error)
	ListByParent(ctx context.Context, ownerID string, parentID *int64) ([]domain.Folder, error)
	// SearchVisible матчит подстроку имени без учета регистра среди папок,
	// видимых пользователю (собственные и публичные).
	SearchVisible(ctx context.Context, userID, query string, limit, offset int) ([]domain.Folder, int64, error)
	UpdateName(ctx context.Context, id int64, name string) error
	UpdateAccessLevel(ctx context.Context, id int64, level domain.AccessLevel) error
	Delete(ctx context.Context, id int64) error
}

type FileRepository interface {
	Create(ctx context.Context, file *domain.File) error
	GetByUUID(ctx context.Context, fileUUID uuid.UUID) (*domain.File, error)
	GetByPublicToken(ctx context.Context, token string) (*domain.File, error)
	FindByName(ctx context.Context, ownerID string, folderID *int64, name string) (*domain.File, error)
	ListByFolder(ctx context.Context, ownerID string, folderID *int64) ([]domain.File, error)
	List(ctx context.Context, ownerID string, opts domain.FileListOptions) ([]domain.File, int64, error)
	// SearchVisible матчит подстроку имени без учета регистра среди файлов,
	// видимых пользователю (собственные, публичные, расшаренные ему).
	SearchVisible(ctx context.Context, userID, query string, limit, offset int) ([]domain.File, int64, error)
	UpdateName(ctx context.Context, fileUUID uuid.UUID, name string) error
	UpdateAccessLevel(ctx context.Context, fileUUID uuid.UUID, level domain.AccessLevel) error
	SetPublicToken(ctx context.Context, fileUUID uuid.UUID, token string) error
	// Delete удаляет запись о файле вместе с его share-записями.
	Delete(ctx context.Context, fileUUID uuid.UUID) error
}

type ShareRepository interface {
	Create(ctx context.Context, share *domain.Share) error
	UpdatePermission(ctx context.Context, id uuid.UUID, permission domain.SharePermission) error
	Find(ctx context.Context, resourceID string, resourceType domain.ResourceType, granteeID string) (*domain.Share, error)
	ListByResource(ctx context.Context, resourceID string, resourceType domain.ResourceType) ([]domain.Share, error)
	DeleteByResource(ctx context.Context, resourceID string, resourceType domain.ResourceType) error
}
