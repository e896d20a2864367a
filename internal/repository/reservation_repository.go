package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"warehouse-service/internal/fulfillment"
	"warehouse-service/internal/models"
)

// ReservationRepository persiste reservas y sus cajas
type ReservationRepository interface {
	Create(ctx context.Context, res *models.CustomReservation) error
	GetByID(ctx context.Context, id string) (*models.CustomReservation, error)

	// Transition cambia el estado solo si el actual está en from
	Transition(ctx context.Context, id string, from []string, to string) (bool, error)
	// Release hace la transición y devuelve las cajas reservadas a disponibles
	Release(ctx context.Context, id string, from []string, to string) (bool, error)
	ConvertToStockOut(ctx context.Context, id string, from []string, req *models.StockOutRequest) (bool, error)

	ResetExpired(ctx context.Context) (int, error)
}

type reservationRepository struct {
	db *sqlx.DB
}

func NewReservationRepository(db *sqlx.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

// Create valida cada caja contra el batch item bloqueado y lo marca como reservado
func (r *reservationRepository) Create(ctx context.Context, res *models.CustomReservation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	total := 0
	for i := range res.Boxes {
		box := &res.Boxes[i]

		var item struct {
			Barcode  string `db:"barcode"`
			Quantity int    `db:"quantity"`
			Status   string `db:"status"`
		}
		err := tx.GetContext(ctx, &item, `
			SELECT barcode, quantity, status
			FROM batch_items
			WHERE id = $1 AND product_id = $2
			FOR UPDATE
		`, box.BatchItemID, res.ProductID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("batch item %s: %w", box.BatchItemID, fulfillment.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to lock batch item: %w", err)
		}
		if item.Status == models.BatchStatusReserved || item.Quantity < box.ReservedQuantity {
			return fmt.Errorf("batch item %s: %w", box.BatchItemID, fulfillment.ErrInsufficientQuantity)
		}

		box.ReservationID = res.ID
		box.Barcode = item.Barcode
		box.TotalQuantity = item.Quantity
		total += box.ReservedQuantity
	}
	res.TotalQuantity = total

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO custom_reservations
		(id, product_id, customer_name, status, total_quantity, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, res.ID, res.ProductID, res.CustomerName, res.Status, res.TotalQuantity, res.ExpiresAt, res.CreatedBy,
	).Scan(&res.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	for _, box := range res.Boxes {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO custom_reservation_boxes
			(id, reservation_id, batch_item_id, barcode, reserved_quantity, total_quantity)
			VALUES (:id, :reservation_id, :batch_item_id, :barcode, :reserved_quantity, :total_quantity)
		`, box)
		if err != nil {
			return fmt.Errorf("failed to insert reservation box: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE batch_items SET status = $2, updated_at = NOW() WHERE id = $1
		`, box.BatchItemID, models.BatchStatusReserved)
		if err != nil {
			return fmt.Errorf("failed to reserve batch item: %w", err)
		}
	}

	return tx.Commit()
}

func (r *reservationRepository) GetByID(ctx context.Context, id string) (*models.CustomReservation, error) {
	var res models.CustomReservation
	err := r.db.GetContext(ctx, &res, `
		SELECT id, product_id, customer_name, status, total_quantity, expires_at,
			   created_by, created_at, stock_out_id
		FROM custom_reservations
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	res.Boxes = []models.ReservationBox{}
	err = r.db.SelectContext(ctx, &res.Boxes, `
		SELECT id, reservation_id, batch_item_id, barcode, reserved_quantity, total_quantity
		FROM custom_reservation_boxes
		WHERE reservation_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation boxes: %w", err)
	}

	return &res, nil
}

func (r *reservationRepository) Transition(ctx context.Context, id string, from []string, to string) (bool, error) {
	return transitionReservation(ctx, r.db, id, from, to)
}

func (r *reservationRepository) Release(ctx context.Context, id string, from []string, to string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := transitionReservation(ctx, tx, id, from, to)
	if err != nil || !ok {
		return ok, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE batch_items
		SET status = CASE WHEN quantity > 0 THEN $2 ELSE $3 END, updated_at = NOW()
		WHERE status = $4
		  AND id IN (SELECT batch_item_id FROM custom_reservation_boxes WHERE reservation_id = $1)
	`, id, models.BatchStatusAvailable, models.BatchStatusOut, models.BatchStatusReserved)
	if err != nil {
		return false, fmt.Errorf("failed to release reserved batch items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// ConvertToStockOut crea la solicitud de salida y la enlaza con la reserva
func (r *reservationRepository) ConvertToStockOut(ctx context.Context, id string, from []string, req *models.StockOutRequest) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// la reserva no guarda el nombre: se toma de los batch items de sus cajas
	if req.ProductName == "" {
		err = tx.GetContext(ctx, &req.ProductName, `
			SELECT COALESCE(MAX(bi.product_name), '')
			FROM custom_reservation_boxes b
			JOIN batch_items bi ON bi.id = b.batch_item_id
			WHERE b.reservation_id = $1
		`, id)
		if err != nil {
			return false, fmt.Errorf("failed to read product name: %w", err)
		}
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO stock_out_requests
		(id, product_id, product_name, quantity, processed_quantity, remaining_quantity,
		 status, requested_by, customer_name, destination, notes, reservation_id)
		VALUES ($1, $2, $3, $4, 0, $4, $5, $6, $7, $8, $9, $10)
		RETURNING requested_at, updated_at, version
	`, req.ID, req.ProductID, req.ProductName, req.Quantity, req.Status, req.RequestedBy,
		req.CustomerName, req.Destination, req.Notes, req.ReservationID,
	).Scan(&req.RequestedAt, &req.UpdatedAt, &req.Version)
	if err != nil {
		return false, fmt.Errorf("failed to create stock out request: %w", err)
	}
	req.RemainingQuantity = req.Quantity

	result, err := tx.ExecContext(ctx, `
		UPDATE custom_reservations
		SET status = $2, stock_out_id = $3
		WHERE id = $1 AND status = ANY($4)
	`, id, models.ReservationConvertedToStockOut, req.ID, pq.Array(from))
	if err != nil {
		return false, fmt.Errorf("failed to convert reservation: %w", err)
	}
	ok, err := affectedOne(result)
	if err != nil || !ok {
		return ok, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// ResetExpired devuelve cuántas reservas vencidas liberó el procedimiento
func (r *reservationRepository) ResetExpired(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT reset_expired_reservations()`); err != nil {
		return 0, fmt.Errorf("failed to reset expired reservations: %w", err)
	}
	return count, nil
}

func transitionReservation(ctx context.Context, db sqlx.ExecerContext, id string, from []string, to string) (bool, error) {
	result, err := db.ExecContext(ctx, `
		UPDATE custom_reservations SET status = $2 WHERE id = $1 AND status = ANY($3)
	`, id, to, pq.Array(from))
	if err != nil {
		return false, fmt.Errorf("failed to update reservation status: %w", err)
	}
	return affectedOne(result)
}
