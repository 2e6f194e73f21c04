package domain

import "time"

type Folder struct {
	ID          int64       `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	OwnerID     string      `json:"owner_id" db:"owner_id"`
	ParentID    *int64      `json:"parent_id,omitempty" db:"parent_id"`
	AccessLevel AccessLevel `json:"access_level" db:"access_level"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

type FolderContent struct {
	Folders []Folder `json:"folders"`
	Files   []File   `json:"files"`
}

// PathEntry — один элемент хлебных крошек. Корень дерева синтетический:
// {id: null, name: "Root"}.
type PathEntry struct {
	ID   *int64 `json:"id"`
	Name string `json:"name"`
}
