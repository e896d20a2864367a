package models

import "time"

// ProcessedItem representa la tabla stock_out_processed_items: registro de
// auditoría append-only de una deducción. Notes guarda el LocationInfo en JSON.
type ProcessedItem struct {
	ID               string        `json:"id" db:"id"`
	StockOutID       string        `json:"stock_out_id" db:"stock_out_id"`
	SessionID        string        `json:"session_id,omitempty" db:"session_id"`
	StockOutDetailID *string       `json:"stock_out_detail_id" db:"stock_out_detail_id"`
	BatchItemID      string        `json:"batch_item_id" db:"batch_item_id"`
	ProductID        string        `json:"product_id" db:"product_id"`
	Barcode          string        `json:"barcode" db:"barcode"`
	Quantity         int           `json:"quantity" db:"quantity"`
	ProcessedBy      string        `json:"processed_by" db:"processed_by"`
	ProcessedAt      time.Time     `json:"processed_at" db:"processed_at"`
	WarehouseID      *string       `json:"warehouse_id" db:"warehouse_id"`
	LocationID       *string       `json:"location_id" db:"location_id"`
	Notes            string        `json:"-" db:"notes"`
	LocationInfo     *LocationInfo `json:"location_info,omitempty" db:"-"`
}
