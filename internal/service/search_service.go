package service

import (
	"context"
	"fmt"
	"strings"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/domain"
)

// SearchService ищет файлы и папки по подстроке имени среди видимого
// пользователю: его собственных объектов, публичных объектов и файлов,
// расшаренных лично ему. Какие именно строки видимы — решают репозитории.
type SearchService struct {
	fileRepo   FileRepository
	folderRepo FolderRepository
}

func NewSearchService(fileRepo FileRepository, folderRepo FolderRepository) *SearchService {
	return &SearchService{fileRepo: fileRepo, folderRepo: folderRepo}
}

// Search выполняет комбинированный поиск. Страницы файлов и папок листаются
// независимо с одними page/limit; total в мете — сумма обоих счетчиков.
func (s *SearchService) Search(ctx context.Context, userID, query string, page, limit int) (*domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.New(apperror.KindInvalidArgument, "search query is required")
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := (page - 1) * limit

	files, totalFiles, err := s.fileRepo.SearchVisible(ctx, userID, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}

	folders, totalFolders, err := s.folderRepo.SearchVisible(ctx, userID, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search folders: %w", err)
	}

	if files == nil {
		files = []domain.File{}
	}
	if folders == nil {
		folders = []domain.Folder{}
	}

	total := totalFiles + totalFolders
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	return &domain.SearchResult{
		Files:   files,
		Folders: folders,
		Meta: domain.SearchMeta{
			Total:        total,
			TotalFiles:   totalFiles,
			TotalFolders: totalFolders,
			Page:         page,
			Limit:        limit,
			TotalPages:   totalPages,
		},
	}, nil
}
