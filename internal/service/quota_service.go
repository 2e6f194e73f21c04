package service

import (
	"context"
	"fmt"
	"math"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/domain"
)

// QuotaService ведет учет занятого места против квоты пользователя.
//
// Резервирование двухфазное: CheckAndReserve только читает счетчики, после
// успешной записи байтов вызывающий фиксирует инкремент через Commit. Между
// двумя конкурентными загрузками одного пользователя атомарности нет — обе
// могут пройти проверку до фиксации первой. Это задокументированное
// поведение, не дефект (см. DESIGN.md).
type QuotaService struct {
	userRepo UserRepository
}

func NewQuotaService(userRepo UserRepository) *QuotaService {
	return &QuotaService{userRepo: userRepo}
}

// CheckAndReserve проверяет, что incoming байт помещаются в квоту
func (s *QuotaService) CheckAndReserve(ctx context.Context, ownerID string, incoming int64) error {
	if incoming < 0 {
		return apperror.New(apperror.KindInvalidArgument, "incoming size cannot be negative")
	}

	user, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.StorageUsed+incoming > user.StorageQuota {
		return apperror.New(apperror.KindQuotaExceeded, "storage quota exceeded")
	}

	return nil
}

// Commit фиксирует занятые байты после успешной записи
func (s *QuotaService) Commit(ctx context.Context, ownerID string, bytes int64) error {
	if bytes < 0 {
		return apperror.New(apperror.KindInternal, "commit size cannot be negative")
	}
	if bytes == 0 {
		return nil
	}

	if err := s.userRepo.AddUsedBytes(ctx, ownerID, bytes); err != nil {
		return fmt.Errorf("failed to commit used space: %w", err)
	}

	return nil
}

// Release возвращает байты после удаления. Счетчик никогда не уходит ниже
// нуля: репозиторий ограничивает декремент на уровне SQL.
func (s *QuotaService) Release(ctx context.Context, ownerID string, bytes int64) error {
	if bytes < 0 {
		return apperror.New(apperror.KindInternal, "release size cannot be negative")
	}
	if bytes == 0 {
		return nil
	}

	if err := s.userRepo.AddUsedBytes(ctx, ownerID, -bytes); err != nil {
		return fmt.Errorf("failed to release used space: %w", err)
	}

	return nil
}

// StorageInfo возвращает состояние квоты пользователя
func (s *QuotaService) StorageInfo(ctx context.Context, ownerID string) (*domain.StorageInfo, error) {
	user, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	percent := 0
	if user.StorageUsed > 0 && user.StorageQuota > 0 {
		percent = int(math.Round(float64(user.StorageUsed) * 100 / float64(user.StorageQuota)))
	}

	return &domain.StorageInfo{
		StorageQuota:     user.StorageQuota,
		StorageUsed:      user.StorageUsed,
		StorageAvailable: user.StorageQuota - user.StorageUsed,
		UsagePercent:     percent,
	}, nil
}
