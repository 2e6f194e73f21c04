package domain

import (
	"time"

	"github.com/google/uuid"
)

// Share — запись о предоставленном доступе. На пару (resource, grantee)
// существует не более одной записи; повторная выдача обновляет permission.
type Share struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	ResourceID   string          `json:"resource_id" db:"resource_id"`
	ResourceType ResourceType    `json:"resource_type" db:"resource_type"`
	GranteeID    string          `json:"grantee_id" db:"grantee_id"`
	Permission   SharePermission `json:"permission" db:"permission"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

type PublicLink struct {
	PublicToken string `json:"public_token"`
	URL         string `json:"url"`
}
