package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"warehouse-service/internal/fulfillment"
	"warehouse-service/internal/models"
)

const batchItemColumns = `id, batch_id, product_id, product_name, barcode, quantity, batch_number,
		warehouse_id, warehouse_name, location_id, location_name, floor, zone, color, size,
		status, created_at, updated_at`

// BatchItemRepository lecturas de batch_items y los procedimientos de ajuste
type BatchItemRepository interface {
	GetByBarcode(ctx context.Context, barcode string) (*models.BatchItem, error)
	GetByID(ctx context.Context, id string) (*models.BatchItem, error)
	AvailableForProduct(ctx context.Context, productID string) ([]*models.BatchItem, error)
	AdjustQuantity(ctx context.Context, id string, change int) error
}

type batchItemRepository struct {
	db     *sql.DB
	stmts  map[string]*sql.Stmt
	logger *zap.Logger
}

func NewBatchItemRepository(db *sql.DB, logger *zap.Logger) (BatchItemRepository, error) {
	repo := &batchItemRepository{
		db:     db,
		stmts:  make(map[string]*sql.Stmt),
		logger: logger,
	}

	if err := repo.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return repo, nil
}

func (r *batchItemRepository) prepareStatements() error {
	statements := map[string]string{
		"get_batch_item_by_barcode": `
			SELECT ` + batchItemColumns + `
			FROM batch_items
			WHERE barcode = $1
		`,
		"get_batch_item_by_id": `
			SELECT ` + batchItemColumns + `
			FROM batch_items
			WHERE id = $1
		`,
		// el procedimiento devuelve las filas con cantidad > 0 ordenadas por antigüedad
		"available_batch_items": `
			SELECT ` + batchItemColumns + `
			FROM get_available_batch_items_for_product($1)
		`,
	}

	for name, query := range statements {
		stmt, err := r.db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare %s: %w", name, err)
		}
		r.stmts[name] = stmt
	}

	return nil
}

func scanBatchItem(row rowScanner) (*models.BatchItem, error) {
	var item models.BatchItem
	err := row.Scan(
		&item.ID, &item.BatchID, &item.ProductID, &item.ProductName, &item.Barcode,
		&item.Quantity, &item.BatchNumber, &item.WarehouseID, &item.WarehouseName,
		&item.LocationID, &item.LocationName, &item.Floor, &item.Zone, &item.Color,
		&item.Size, &item.Status, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetByBarcode devuelve nil, nil si el código no existe
func (r *batchItemRepository) GetByBarcode(ctx context.Context, barcode string) (*models.BatchItem, error) {
	item, err := scanBatchItem(r.stmts["get_batch_item_by_barcode"].QueryRowContext(ctx, barcode))
	if err == sql.ErrNoRows {
		r.logger.Debug("Batch item no encontrado", zap.String("barcode", barcode))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch item by barcode: %w", err)
	}
	return item, nil
}

func (r *batchItemRepository) GetByID(ctx context.Context, id string) (*models.BatchItem, error) {
	item, err := scanBatchItem(r.stmts["get_batch_item_by_id"].QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch item: %w", err)
	}
	return item, nil
}

func (r *batchItemRepository) AvailableForProduct(ctx context.Context, productID string) ([]*models.BatchItem, error) {
	rows, err := r.stmts["available_batch_items"].QueryContext(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get available batch items: %w", err)
	}
	defer rows.Close()

	items := []*models.BatchItem{}
	for rows.Next() {
		item, err := scanBatchItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// AdjustQuantity bloquea la fila, rechaza un resultado negativo y delega en
// update_batch_item_quantity (que también registra el movimiento) dentro de la
// misma transacción. Una confirmación concurrente espera al lock.
func (r *batchItemRepository) AdjustQuantity(ctx context.Context, id string, change int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var quantity int
	err = tx.QueryRowContext(ctx, `
		SELECT quantity FROM batch_items WHERE id = $1 FOR UPDATE
	`, id).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("batch item %s: %w", id, fulfillment.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock batch item: %w", err)
	}
	if quantity+change < 0 {
		return fmt.Errorf("batch item %s has %d, change %d: %w", id, quantity, change, fulfillment.ErrInsufficientQuantity)
	}

	if _, err := tx.ExecContext(ctx, `SELECT update_batch_item_quantity($1, $2)`, id, change); err != nil {
		return fmt.Errorf("failed to adjust batch item quantity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.logger.Debug("Cantidad ajustada",
		zap.String("batch_item_id", id),
		zap.Int("before", quantity),
		zap.Int("change", change))
	return nil
}
