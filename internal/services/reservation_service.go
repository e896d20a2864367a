package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"warehouse-service/internal/fulfillment"
	"warehouse-service/internal/models"
	"warehouse-service/internal/repository"
)

type ReservationService interface {
	Create(ctx context.Context, in *models.CreateReservationRequest) (*models.CustomReservation, error)
	Get(ctx context.Context, id string) (*models.CustomReservation, error)
	Activate(ctx context.Context, id string) (*models.CustomReservation, error)
	Cancel(ctx context.Context, id string) (*models.CustomReservation, error)
	Complete(ctx context.Context, id string) (*models.CustomReservation, error)
	ConvertToStockOut(ctx context.Context, id, actor string) (*models.StockOutRequest, error)
	ResetExpired(ctx context.Context) (int, error)
}

type reservationService struct {
	repo   repository.ReservationRepository
	logger *zap.Logger
}

func NewReservationService(repo repository.ReservationRepository, logger *zap.Logger) ReservationService {
	return &reservationService{repo: repo, logger: logger}
}

func (s *reservationService) Create(ctx context.Context, in *models.CreateReservationRequest) (*models.CustomReservation, error) {
	seen := make(map[string]struct{}, len(in.Boxes))
	boxes := make([]models.ReservationBox, 0, len(in.Boxes))
	for _, b := range in.Boxes {
		if _, dup := seen[b.BatchItemID]; dup {
			return nil, fmt.Errorf("batch item %s listed twice: %w", b.BatchItemID, fulfillment.ErrInvalidInput)
		}
		seen[b.BatchItemID] = struct{}{}
		boxes = append(boxes, models.ReservationBox{
			ID:               uuid.New().String(),
			BatchItemID:      b.BatchItemID,
			ReservedQuantity: b.Quantity,
		})
	}

	res := &models.CustomReservation{
		ID:           uuid.New().String(),
		ProductID:    in.ProductID,
		CustomerName: in.CustomerName,
		Status:       models.ReservationPending,
		ExpiresAt:    in.ExpiresAt,
		CreatedBy:    in.CreatedBy,
		Boxes:        boxes,
	}

	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}

	s.logger.Info("Reserva creada",
		zap.String("operation", "create_reservation"),
		zap.String("reservation_id", res.ID),
		zap.Int("boxes", len(res.Boxes)),
		zap.Int("total_quantity", res.TotalQuantity))

	return res, nil
}

func (s *reservationService) Get(ctx context.Context, id string) (*models.CustomReservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("reservation %s: %w", id, fulfillment.ErrNotFound)
	}
	return res, nil
}

func (s *reservationService) Activate(ctx context.Context, id string) (*models.CustomReservation, error) {
	ok, err := s.repo.Transition(ctx, id, []string{models.ReservationPending}, models.ReservationActive)
	return s.afterTransition(ctx, id, models.ReservationActive, ok, err)
}

// Cancel libera las cajas reservadas
func (s *reservationService) Cancel(ctx context.Context, id string) (*models.CustomReservation, error) {
	ok, err := s.repo.Release(ctx, id,
		[]string{models.ReservationPending, models.ReservationActive}, models.ReservationCancelled)
	return s.afterTransition(ctx, id, models.ReservationCancelled, ok, err)
}

func (s *reservationService) Complete(ctx context.Context, id string) (*models.CustomReservation, error) {
	ok, err := s.repo.Transition(ctx, id, []string{models.ReservationActive}, models.ReservationCompleted)
	return s.afterTransition(ctx, id, models.ReservationCompleted, ok, err)
}

// ConvertToStockOut crea una solicitud pendiente por el total reservado
func (s *reservationService) ConvertToStockOut(ctx context.Context, id, actor string) (*models.StockOutRequest, error) {
	res, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req := &models.StockOutRequest{
		ID:            uuid.New().String(),
		ProductID:     res.ProductID,
		Quantity:      res.TotalQuantity,
		Status:        models.StockOutPending,
		RequestedBy:   actor,
		CustomerName:  res.CustomerName,
		ReservationID: &res.ID,
	}

	ok, err := s.repo.ConvertToStockOut(ctx, id,
		[]string{models.ReservationPending, models.ReservationActive}, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("reservation %s is %s: %w", id, res.Status, fulfillment.ErrInvalidTransition)
	}

	s.logger.Info("Reserva convertida en salida de stock",
		zap.String("operation", "convert_reservation"),
		zap.String("reservation_id", id),
		zap.String("stock_out_id", req.ID),
		zap.Int("quantity", req.Quantity))

	return req, nil
}

func (s *reservationService) ResetExpired(ctx context.Context) (int, error) {
	count, err := s.repo.ResetExpired(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("Reservas vencidas liberadas", zap.Int("count", count))
	}
	return count, nil
}

func (s *reservationService) afterTransition(ctx context.Context, id, to string, ok bool, err error) (*models.CustomReservation, error) {
	if err != nil {
		return nil, err
	}
	res, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("cannot move reservation from %s to %s: %w", res.Status, to, fulfillment.ErrInvalidTransition)
	}
	return res, nil
}
