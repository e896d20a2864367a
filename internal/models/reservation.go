package models

import "time"

// Estados de una reserva
const (
	ReservationPending             = "pending"
	ReservationActive              = "active"
	ReservationCompleted           = "completed"
	ReservationCancelled           = "cancelled"
	ReservationConvertedToStockOut = "converted_to_stockout"
)

// CustomReservation representa la tabla custom_reservations
type CustomReservation struct {
	ID            string           `json:"id" db:"id"`
	ProductID     string           `json:"product_id" db:"product_id"`
	CustomerName  *string          `json:"customer_name" db:"customer_name"`
	Status        string           `json:"status" db:"status"`
	TotalQuantity int              `json:"total_quantity" db:"total_quantity"`
	ExpiresAt     *time.Time       `json:"expires_at" db:"expires_at"`
	CreatedBy     string           `json:"created_by" db:"created_by"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	StockOutID    *string          `json:"stock_out_id" db:"stock_out_id"`
	Boxes         []ReservationBox `json:"boxes,omitempty" db:"-"`
}

// ReservationBox representa la tabla custom_reservation_boxes
type ReservationBox struct {
	ID               string `json:"id" db:"id"`
	ReservationID    string `json:"reservation_id" db:"reservation_id"`
	BatchItemID      string `json:"batch_item_id" db:"batch_item_id"`
	Barcode          string `json:"barcode" db:"barcode"`
	ReservedQuantity int    `json:"reserved_quantity" db:"reserved_quantity"`
	TotalQuantity    int    `json:"total_quantity" db:"total_quantity"`
}
