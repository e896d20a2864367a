package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"warehouse-service/internal/models"
)

// LocationRepository consultas que alimentan la reconciliación de ubicaciones.
// Todas devuelven nil, nil cuando no hay fila.
type LocationRepository interface {
	FindInventoryByBarcode(ctx context.Context, barcode string) (*models.InventoryRecord, error)
	GetWarehouse(ctx context.Context, id string) (*models.Warehouse, error)
	GetLocation(ctx context.Context, id string) (*models.WarehouseLocation, error)
	FindViewByBarcode(ctx context.Context, barcode string) (*models.ViewLocation, error)
}

type locationRepository struct {
	db *sqlx.DB
}

func NewLocationRepository(db *sqlx.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) FindInventoryByBarcode(ctx context.Context, barcode string) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT barcode, warehouse_id, location_id
		FROM inventory
		WHERE barcode = $1
		LIMIT 1
	`, barcode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	return &rec, nil
}

func (r *locationRepository) GetWarehouse(ctx context.Context, id string) (*models.Warehouse, error) {
	var wh models.Warehouse
	err := r.db.GetContext(ctx, &wh, `SELECT id, name FROM warehouses WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get warehouse: %w", err)
	}
	return &wh, nil
}

func (r *locationRepository) GetLocation(ctx context.Context, id string) (*models.WarehouseLocation, error) {
	var loc models.WarehouseLocation
	err := r.db.GetContext(ctx, &loc, `
		SELECT id, warehouse_id, name, floor, zone
		FROM warehouse_locations
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get warehouse location: %w", err)
	}
	return &loc, nil
}

func (r *locationRepository) FindViewByBarcode(ctx context.Context, barcode string) (*models.ViewLocation, error) {
	var v models.ViewLocation
	err := r.db.GetContext(ctx, &v, `
		SELECT barcode, warehouse_id, warehouse_name, location_id, location_name, floor, zone
		FROM batch_item_locations_view
		WHERE barcode = $1
		LIMIT 1
	`, barcode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query location view: %w", err)
	}
	return &v, nil
}
