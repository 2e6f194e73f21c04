package domain

// SearchMeta — сводка по результату поиска. Пагинация применяется к файлам
// и папкам независимо, с одними и теми же page/limit.
type SearchMeta struct {
	Total        int64 `json:"total"`
	TotalFiles   int64 `json:"total_files"`
	TotalFolders int64 `json:"total_folders"`
	Page         int   `json:"page"`
	Limit        int   `json:"limit"`
	TotalPages   int   `json:"total_pages"`
}

type SearchResult struct {
	Files   []File     `json:"files"`
	Folders []Folder   `json:"folders"`
	Meta    SearchMeta `json:"meta"`
}
