package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"warehouse-service/internal/models"
)

const stockOutColumns = `id, product_id, product_name, quantity, processed_quantity, remaining_quantity,
		status, requested_by, requested_at, approved_by, approved_quantity, approved_at,
		processed_by, processed_at, customer_name, destination, notes, reservation_id,
		version, updated_at`

// StockOutRepository define las operaciones sobre stock_out_requests
type StockOutRepository interface {
	GetByID(ctx context.Context, id string) (*models.StockOutRequest, error)
	List(ctx context.Context, filter *models.StockOutFilter) ([]*models.StockOutRequest, error)
	Create(ctx context.Context, req *models.StockOutRequest) error

	// Las escrituras son condicionales a la versión; devuelven false si otra
	// escritura se adelantó.
	Approve(ctx context.Context, id string, approvedQty int, approver string, version int) (bool, error)
	UpdateStatus(ctx context.Context, id, status string, note *string, version int) (bool, error)

	ListProcessedItems(ctx context.Context, stockOutID string) ([]*models.ProcessedItem, error)
}

type stockOutRepository struct {
	db    *sql.DB
	stmts map[string]*sql.Stmt
}

// NewStockOutRepository crea el repository y prepara sus sentencias
func NewStockOutRepository(db *sql.DB) (StockOutRepository, error) {
	repo := &stockOutRepository{
		db:    db,
		stmts: make(map[string]*sql.Stmt),
	}

	if err := repo.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return repo, nil
}

func (r *stockOutRepository) prepareStatements() error {
	statements := map[string]string{
		"get_stock_out": `
			SELECT ` + stockOutColumns + `
			FROM stock_out_requests
			WHERE id = $1
		`,
		"create_stock_out": `
			INSERT INTO stock_out_requests
			(id, product_id, product_name, quantity, processed_quantity, remaining_quantity,
			 status, requested_by, customer_name, destination, notes, reservation_id)
			VALUES ($1, $2, $3, $4, 0, $4, $5, $6, $7, $8, $9, $10)
			RETURNING requested_at, updated_at, version
		`,
		"approve_stock_out": `
			UPDATE stock_out_requests
			SET status = 'approved', approved_by = $2, approved_quantity = $3, approved_at = NOW(),
				remaining_quantity = $3 - processed_quantity,
				version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $4
		`,
		"update_stock_out_status": `
			UPDATE stock_out_requests
			SET status = $2, notes = COALESCE($3, notes), version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $4
		`,
		"list_processed_items": `
			SELECT id, stock_out_id, stock_out_detail_id, batch_item_id, product_id, barcode,
				   quantity, processed_by, processed_at, warehouse_id, location_id, notes
			FROM stock_out_processed_items
			WHERE stock_out_id = $1
			ORDER BY processed_at ASC
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStockOut(row rowScanner) (*models.StockOutRequest, error) {
	var req models.StockOutRequest
	err := row.Scan(
		&req.ID, &req.ProductID, &req.ProductName, &req.Quantity, &req.ProcessedQuantity,
		&req.RemainingQuantity, &req.Status, &req.RequestedBy, &req.RequestedAt,
		&req.ApprovedBy, &req.ApprovedQuantity, &req.ApprovedAt, &req.ProcessedBy,
		&req.ProcessedAt, &req.CustomerName, &req.Destination, &req.Notes,
		&req.ReservationID, &req.Version, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetByID devuelve nil, nil si la solicitud no existe
func (r *stockOutRepository) GetByID(ctx context.Context, id string) (*models.StockOutRequest, error) {
	req, err := scanStockOut(r.stmts["get_stock_out"].QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock out request: %w", err)
	}
	return req, nil
}

// List arma la consulta según los filtros presentes
func (r *stockOutRepository) List(ctx context.Context, filter *models.StockOutFilter) ([]*models.StockOutRequest, error) {
	var conditions []string
	var args []any

	if filter != nil && filter.Status != nil && *filter.Status != "" {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter != nil && filter.ProductID != nil && *filter.ProductID != "" {
		args = append(args, *filter.ProductID)
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", len(args)))
	}

	query := "SELECT " + stockOutColumns + " FROM stock_out_requests"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY requested_at DESC"

	limit := 100
	if filter != nil && filter.Limit > 0 && filter.Limit < limit {
		limit = filter.Limit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter != nil && filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock out requests: %w", err)
	}
	defer rows.Close()

	requests := []*models.StockOutRequest{}
	for rows.Next() {
		req, err := scanStockOut(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock out request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// Create inserta la solicitud; remaining arranca igual a quantity
func (r *stockOutRepository) Create(ctx context.Context, req *models.StockOutRequest) error {
	err := r.stmts["create_stock_out"].QueryRowContext(ctx,
		req.ID, req.ProductID, req.ProductName, req.Quantity, req.Status, req.RequestedBy,
		req.CustomerName, req.Destination, req.Notes, req.ReservationID,
	).Scan(&req.RequestedAt, &req.UpdatedAt, &req.Version)
	if err != nil {
		return fmt.Errorf("failed to create stock out request: %w", err)
	}

	req.RemainingQuantity = req.Quantity
	return nil
}

func (r *stockOutRepository) Approve(ctx context.Context, id string, approvedQty int, approver string, version int) (bool, error) {
	result, err := r.stmts["approve_stock_out"].ExecContext(ctx, id, approver, approvedQty, version)
	if err != nil {
		return false, fmt.Errorf("failed to approve stock out request: %w", err)
	}
	return affectedOne(result)
}

// UpdateStatus cambia el estado; note, si viene, reemplaza las notas
func (r *stockOutRepository) UpdateStatus(ctx context.Context, id, status string, note *string, version int) (bool, error) {
	result, err := r.stmts["update_stock_out_status"].ExecContext(ctx, id, status, note, version)
	if err != nil {
		return false, fmt.Errorf("failed to update stock out status: %w", err)
	}
	return affectedOne(result)
}

// ListProcessedItems devuelve los ítems procesados de una solicitud en orden de proceso
func (r *stockOutRepository) ListProcessedItems(ctx context.Context, stockOutID string) ([]*models.ProcessedItem, error) {
	rows, err := r.stmts["list_processed_items"].QueryContext(ctx, stockOutID)
	if err != nil {
		return nil, fmt.Errorf("failed to list processed items: %w", err)
	}
	defer rows.Close()

	items := []*models.ProcessedItem{}
	for rows.Next() {
		var item models.ProcessedItem
		var notes sql.NullString
		err := rows.Scan(
			&item.ID, &item.StockOutID, &item.StockOutDetailID, &item.BatchItemID, &item.ProductID,
			&item.Barcode, &item.Quantity, &item.ProcessedBy, &item.ProcessedAt,
			&item.WarehouseID, &item.LocationID, &notes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan processed item: %w", err)
		}
		item.Notes = notes.String
		items = append(items, &item)
	}

	return items, rows.Err()
}

func affectedOne(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}
