package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"warehouse-service/internal/fulfillment"
	"warehouse-service/internal/models"
	"warehouse-service/internal/repository"
)

type UserService interface {
	UpdateRole(ctx context.Context, actorID, userID, role string) (*models.UserProfile, error)
}

type userService struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

func NewUserService(repo repository.UserRepository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

func (s *userService) UpdateRole(ctx context.Context, actorID, userID, role string) (*models.UserProfile, error) {
	switch role {
	case models.RoleAdmin, models.RoleManager, models.RoleOperator, models.RoleViewer:
	default:
		return nil, fmt.Errorf("unknown role %q: %w", role, fulfillment.ErrInvalidInput)
	}

	user, err := s.repo.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID, fulfillment.ErrNotFound)
	}

	s.logger.Info("Rol de usuario actualizado",
		zap.String("operation", "update_user_role"),
		zap.String("actor_id", actorID),
		zap.String("user_id", userID),
		zap.String("role", role))

	return user, nil
}
