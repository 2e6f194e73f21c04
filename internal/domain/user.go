package domain

import "time"

type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	StorageQuota int64     `json:"storage_quota" db:"storage_quota"`
	StorageUsed  int64     `json:"storage_used" db:"storage_used"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type StorageInfo struct {
	StorageQuota     int64 `json:"storage_quota"`
	StorageUsed      int64 `json:"storage_used"`
	StorageAvailable int64 `json:"storage_available"`
	UsagePercent     int   `json:"usage_percent"`
}
