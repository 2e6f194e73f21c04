package domain

import (
	"io"
	"time"

	"github.com/google/uuid"
)

type File struct {
	UUID        uuid.UUID   `json:"uuid" db:"uuid"`
	Name        string      `json:"name" db:"name"`
	MIMEType    string      `json:"mime_type" db:"mime_type"`
	SizeBytes   int64       `json:"size_bytes" db:"size_bytes"`
	StoragePath string      `json:"-" db:"storage_path"`
	OwnerID     string      `json:"owner_id" db:"owner_id"`
	FolderID    *int64      `json:"folder_id,omitempty" db:"folder_id"`
	AccessLevel AccessLevel `json:"access_level" db:"access_level"`
	PublicToken *string     `json:"public_token,omitempty" db:"public_token"`
	ContentText *string     `json:"-" db:"content_text"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

type FileUpload struct {
	Name        string
	MIMEType    string
	Size        int64
	FolderID    *int64
	AccessLevel AccessLevel
	Data        io.Reader
}

type FileDownload struct {
	File *File
	Data []byte
}

// FileListOptions — параметры фильтрации и пагинации для списка файлов.
// Search — подстрока имени без учета регистра, MIMETypePrefix — префикс
// MIME-типа без учета регистра.
type FileListOptions struct {
	Search         string
	MIMETypePrefix string
	SortBy         string
	SortOrder      string
	Page           int
	Limit          int
}

type ListMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type FileList struct {
	Files []File   `json:"files"`
	Meta  ListMeta `json:"meta"`
}
