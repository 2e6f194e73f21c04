package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/domain"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
        SELECT id, email, name, storage_quota, storage_used, created_at, updated_at
        FROM users
        WHERE id = $1`

	var user domain.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.KindNotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
        SELECT id, email, name, storage_quota, storage_used, created_at, updated_at
        FROM users
        WHERE email = $1`

	var user domain.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.KindNotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

// AddUsedBytes атомарно сдвигает счетчик занятого места. Отрицательная
// дельта не может увести счетчик ниже нуля: GREATEST зажимает значение.
func (r *UserRepository) AddUsedBytes(ctx context.Context, id string, delta int64) error {
	query := `
        UPDATE users
        SET storage_used = GREATEST(0, storage_used + $1),
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("failed to update storage used: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.New(apperror.KindNotFound, "user not found")
	}

	return nil
}
