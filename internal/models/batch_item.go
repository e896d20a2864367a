package models

import "time"

// Estados posibles de un batch item
const (
	BatchStatusAvailable = "available"
	BatchStatusPartial   = "partial"
	BatchStatusReserved  = "reserved"
	BatchStatusOut       = "out"
	BatchStatusUsed      = "used"
)

// BatchItem representa una unidad física (caja) de inventario, tabla batch_items.
// Nunca se elimina: al llegar a cantidad 0 queda con estado "out" para auditoría.
type BatchItem struct {
	ID            string    `json:"id" db:"id"`
	BatchID       string    `json:"batch_id" db:"batch_id"`
	ProductID     string    `json:"product_id" db:"product_id"`
	ProductName   string    `json:"product_name" db:"product_name"`
	Barcode       string    `json:"barcode" db:"barcode"`
	Quantity      int       `json:"quantity" db:"quantity"`
	BatchNumber   *string   `json:"batch_number" db:"batch_number"`
	WarehouseID   *string   `json:"warehouse_id" db:"warehouse_id"`
	WarehouseName *string   `json:"warehouse_name" db:"warehouse_name"`
	LocationID    *string   `json:"location_id" db:"location_id"`
	LocationName  *string   `json:"location_name" db:"location_name"`
	Floor         *string   `json:"floor" db:"floor"`
	Zone          *string   `json:"zone" db:"zone"`
	Color         *string   `json:"color,omitempty" db:"color"`
	Size          *string   `json:"size,omitempty" db:"size"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// StatusAfterDeduction devuelve el estado que corresponde a una cantidad restante
func StatusAfterDeduction(remaining int) string {
	if remaining <= 0 {
		return BatchStatusOut
	}
	return BatchStatusPartial
}

// DeductedBatch es una fila preparada en una sesión de escaneo, pendiente de confirmar.
// Los campos opcionales nunca quedan ausentes: se serializan como "".
type DeductedBatch struct {
	BatchItemID      string `json:"batch_item_id"`
	Barcode          string `json:"barcode"`
	BatchNumber      string `json:"batch_number"`
	ProductID        string `json:"product_id"`
	ProductName      string `json:"product_name"`
	QuantityDeducted int    `json:"quantity_deducted"`
	WarehouseID      string `json:"warehouse_id"`
	WarehouseName    string `json:"warehouse_name"`
	LocationID       string `json:"location_id"`
	LocationName     string `json:"location_name"`
	Floor            string `json:"floor"`
	Zone             string `json:"zone"`
}
