package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"warehouse-service/internal/fulfillment"
	"warehouse-service/internal/models"
)

// pqUniqueViolation es el SQLSTATE de una clave única repetida
const pqUniqueViolation = "23505"

// FulfillmentStore ejecuta la confirmación de una sesión de escaneo como una
// sola unidad: todo lo que hace fn se confirma junto o se revierte junto.
type FulfillmentStore interface {
	RunInTx(ctx context.Context, fn func(tx FulfillmentTx) error) error
}

// FulfillmentTx son las lecturas y escrituras disponibles dentro de la transacción
type FulfillmentTx interface {
	GetRequest(ctx context.Context, id string) (*models.StockOutRequest, error)
	GetBatchItem(ctx context.Context, id string) (*models.BatchItem, error)
	WarehouseExists(ctx context.Context, id string) (bool, error)
	LocationExists(ctx context.Context, id string) (bool, error)

	// SessionCommitted indica si la sesión ya dejó ítems procesados
	SessionCommitted(ctx context.Context, sessionID string) (bool, error)

	// InsertProcessedItem devuelve fulfillment.ErrSessionClaimed si el código ya
	// quedó registrado para la misma sesión (UNIQUE (session_id, barcode)).
	InsertProcessedItem(ctx context.Context, item *models.ProcessedItem) error

	// DeductBatchItem descuenta qty solo si la cantidad sigue siendo expected
	// y alcanza; false significa que la fila cambió desde la lectura.
	DeductBatchItem(ctx context.Context, id string, qty, expected int, status string) (bool, error)

	// ApplyProgress escribe el avance de la solicitud si la versión no cambió
	ApplyProgress(ctx context.Context, req *models.StockOutRequest, expectedVersion int) (bool, error)
}

type fulfillmentStore struct {
	db *sql.DB
}

func NewFulfillmentStore(db *sql.DB) FulfillmentStore {
	return &fulfillmentStore{db: db}
}

func (s *fulfillmentStore) RunInTx(ctx context.Context, fn func(tx FulfillmentTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&fulfillmentTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type fulfillmentTx struct {
	tx *sql.Tx
}

func (t *fulfillmentTx) GetRequest(ctx context.Context, id string) (*models.StockOutRequest, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+stockOutColumns+`
		FROM stock_out_requests
		WHERE id = $1
	`, id)

	req, err := scanStockOut(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stock out request: %w", err)
	}
	return req, nil
}

func (t *fulfillmentTx) GetBatchItem(ctx context.Context, id string) (*models.BatchItem, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+batchItemColumns+`
		FROM batch_items
		WHERE id = $1
	`, id)

	item, err := scanBatchItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read batch item: %w", err)
	}
	return item, nil
}

func (t *fulfillmentTx) WarehouseExists(ctx context.Context, id string) (bool, error) {
	return t.exists(ctx, `SELECT EXISTS (SELECT 1 FROM warehouses WHERE id = $1)`, id)
}

func (t *fulfillmentTx) LocationExists(ctx context.Context, id string) (bool, error) {
	return t.exists(ctx, `SELECT EXISTS (SELECT 1 FROM warehouse_locations WHERE id = $1)`, id)
}

func (t *fulfillmentTx) SessionCommitted(ctx context.Context, sessionID string) (bool, error) {
	return t.exists(ctx, `SELECT EXISTS (SELECT 1 FROM stock_out_processed_items WHERE session_id = $1)`, sessionID)
}

func (t *fulfillmentTx) exists(ctx context.Context, query, id string) (bool, error) {
	var ok bool
	if err := t.tx.QueryRowContext(ctx, query, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check reference %s: %w", id, err)
	}
	return ok, nil
}

func (t *fulfillmentTx) InsertProcessedItem(ctx context.Context, item *models.ProcessedItem) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO stock_out_processed_items
		(id, stock_out_id, session_id, stock_out_detail_id, batch_item_id, product_id, barcode,
		 quantity, processed_by, processed_at, warehouse_id, location_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		item.ID, item.StockOutID, item.SessionID, item.StockOutDetailID, item.BatchItemID, item.ProductID,
		item.Barcode, item.Quantity, item.ProcessedBy, item.ProcessedAt,
		item.WarehouseID, item.LocationID, item.Notes,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("barcode %s already processed in session %s: %w", item.Barcode, item.SessionID, fulfillment.ErrSessionClaimed)
	}
	if err != nil {
		return fmt.Errorf("failed to insert processed item: %w", err)
	}
	return nil
}

func (t *fulfillmentTx) DeductBatchItem(ctx context.Context, id string, qty, expected int, status string) (bool, error) {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE batch_items
		SET quantity = quantity - $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND quantity = $4 AND quantity >= $2
	`, id, qty, status, expected)
	if err != nil {
		return false, fmt.Errorf("failed to deduct batch item: %w", err)
	}
	return affectedOne(result)
}

func (t *fulfillmentTx) ApplyProgress(ctx context.Context, req *models.StockOutRequest, expectedVersion int) (bool, error) {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE stock_out_requests
		SET processed_quantity = $2, remaining_quantity = $3, status = $4,
			processed_by = $5, processed_at = $6,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $7
	`,
		req.ID, req.ProcessedQuantity, req.RemainingQuantity, req.Status,
		req.ProcessedBy, req.ProcessedAt, expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update stock out progress: %w", err)
	}
	return affectedOne(result)
}
