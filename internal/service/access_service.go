package service

import (
	"context"
	"fmt"

	"vaultdrive/internal/domain"
)

// AccessService решает, разрешена ли операция над ресурсом. Чистая проверка,
// ничего не мутирует.
//
// Правила:
//   - владелец имеет все capabilities;
//   - READ дополнительно дается при access_level = PUBLIC, либо при SHARED
//     и наличии share-записи для пользователя (любой permission);
//   - WRITE/DELETE/SHARE не-владельцу не даются никогда. Записанные в share
//     уровни EDIT/MANAGE пока ни к какой write-операции не подключены.
//
// SHARED/PUBLIC на папке НЕ каскадирует на вложенные файлы: видимость файла
// определяется только его собственным access_level.
type AccessService struct {
	shareRepo ShareRepository
}

func NewAccessService(shareRepo ShareRepository) *AccessService {
	return &AccessService{shareRepo: shareRepo}
}

// CanAccessFile проверяет capability пользователя на файл
func (s *AccessService) CanAccessFile(ctx context.Context, file *domain.File, userID string, capability domain.Capability) (bool, error) {
	if file.OwnerID == userID {
		return true, nil
	}

	switch capability {
	case domain.CapabilityRead:
		switch file.AccessLevel {
		case domain.AccessPublic:
			return true, nil
		case domain.AccessShared:
			share, err := s.shareRepo.Find(ctx, file.UUID.String(), domain.ResourceTypeFile, userID)
			if err != nil {
				return false, fmt.Errorf("failed to check share: %w", err)
			}
			return share != nil, nil
		case domain.AccessPrivate:
			return false, nil
		default:
			return false, fmt.Errorf("unknown access level: %s", file.AccessLevel)
		}

	case domain.CapabilityWrite, domain.CapabilityDelete, domain.CapabilityShare:
		return false, nil

	default:
		return false, fmt.Errorf("unknown capability: %s", capability)
	}
}

// CanAccessFolder проверяет capability пользователя на папку. Просмотр чужих
// папок через share в этой версии не реализован, поэтому не-владелец не
// получает ни одной операции.
func (s *AccessService) CanAccessFolder(ctx context.Context, folder *domain.Folder, userID string, capability domain.Capability) (bool, error) {
	switch capability {
	case domain.CapabilityRead, domain.CapabilityWrite, domain.CapabilityDelete, domain.CapabilityShare:
		return folder.OwnerID == userID, nil
	default:
		return false, fmt.Errorf("unknown capability: %s", capability)
	}
}
