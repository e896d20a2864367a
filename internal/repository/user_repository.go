package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"warehouse-service/internal/models"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)
	UpdateRole(ctx context.Context, id, role string) (*models.UserProfile, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var user models.UserProfile
	err := r.db.GetContext(ctx, &user, `SELECT id, email, role, updated_at FROM user_profiles WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return &user, nil
}

// UpdateRole devuelve nil, nil si el usuario no existe
func (r *userRepository) UpdateRole(ctx context.Context, id, role string) (*models.UserProfile, error) {
	var user models.UserProfile
	err := r.db.GetContext(ctx, &user, `
		UPDATE user_profiles
		SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, role, updated_at
	`, id, role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}
	return &user, nil
}
