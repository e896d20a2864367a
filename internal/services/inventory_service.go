package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"warehouse-service/internal/fulfillment"
	"warehouse-service/internal/models"
	"warehouse-service/internal/repository"
)

// TransferService aprobación de traspasos entre bodegas
type TransferService interface {
	Approve(ctx context.Context, transferID, approver string) error
}

type transferService struct {
	repo   repository.TransferRepository
	logger *zap.Logger
}

func NewTransferService(repo repository.TransferRepository, logger *zap.Logger) TransferService {
	return &transferService{repo: repo, logger: logger}
}

func (s *transferService) Approve(ctx context.Context, transferID, approver string) error {
	ok, err := s.repo.Approve(ctx, transferID, approver)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("transfer %s is not pending: %w", transferID, fulfillment.ErrInvalidTransition)
	}

	s.logger.Info("Traspaso aprobado",
		zap.String("operation", "approve_transfer"),
		zap.String("transfer_id", transferID),
		zap.String("approver", approver))
	return nil
}

// BatchItemService ajustes manuales de cantidad
type BatchItemService interface {
	Adjust(ctx context.Context, batchItemID string, change int) (*models.BatchItem, error)
}

type batchItemService struct {
	repo   repository.BatchItemRepository
	logger *zap.Logger
}

func NewBatchItemService(repo repository.BatchItemRepository, logger *zap.Logger) BatchItemService {
	return &batchItemService{repo: repo, logger: logger}
}

// Adjust aplica el cambio; el repositorio rechaza con ErrInsufficientQuantity
// uno que dejaría la cantidad negativa.
func (s *batchItemService) Adjust(ctx context.Context, batchItemID string, change int) (*models.BatchItem, error) {
	if err := s.repo.AdjustQuantity(ctx, batchItemID, change); err != nil {
		return nil, err
	}

	s.logger.Info("Cantidad de batch item ajustada",
		zap.String("operation", "adjust_batch_item"),
		zap.String("batch_item_id", batchItemID),
		zap.Int("change", change))

	updated, err := s.repo.GetByID(ctx, batchItemID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("batch item %s: %w", batchItemID, fulfillment.ErrNotFound)
	}
	return updated, nil
}
