package models

import "time"

// ===== REQUEST DTOs =====

// CreateStockOutRequest DTO para crear una solicitud de salida
type CreateStockOutRequest struct {
	ProductID    string  `json:"product_id" validate:"required"`
	ProductName  string  `json:"product_name"`
	Quantity     int     `json:"quantity" validate:"required,gt=0"`
	CustomerName *string `json:"customer_name"`
	Destination  *string `json:"destination"`
	Notes        *string `json:"notes"`
	RequestedBy  string  `json:"-"` // Se obtiene del token
}

// ApproveStockOutRequest DTO para la aprobación de un gerente
type ApproveStockOutRequest struct {
	ApprovedQuantity int `json:"approved_quantity" validate:"required,gt=0"`
}

// RejectStockOutRequest DTO para rechazar una solicitud
type RejectStockOutRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ScanRequest DTO para escanear un código de barras dentro de una sesión
type ScanRequest struct {
	Barcode  string `json:"barcode" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// LocationLookupRequest DTO para resolver ubicaciones de varios códigos
type LocationLookupRequest struct {
	Barcodes []string `json:"barcodes" validate:"required,min=1,max=200,dive,required"`
}

// ReservationBoxInput una caja a reservar
type ReservationBoxInput struct {
	BatchItemID string `json:"batch_item_id" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
}

// CreateReservationRequest DTO para crear una reserva
type CreateReservationRequest struct {
	ProductID    string                `json:"product_id" validate:"required"`
	CustomerName *string               `json:"customer_name"`
	ExpiresAt    *time.Time            `json:"expires_at"`
	Boxes        []ReservationBoxInput `json:"boxes" validate:"required,min=1,dive"`
	CreatedBy    string                `json:"-"`
}

// AdjustBatchItemRequest DTO para ajustar la cantidad de un batch item
type AdjustBatchItemRequest struct {
	QuantityChange int `json:"quantity_change" validate:"required,ne=0"`
}

// UpdateUserRoleRequest DTO del endpoint de administración de roles
type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin manager operator viewer"`
}

// ===== RESPONSE DTOs =====

// ScanSessionView vista de una sesión de escaneo
type ScanSessionView struct {
	SessionID         string          `json:"session_id"`
	StockOutID        string          `json:"stock_out_id"`
	ProductID         string          `json:"product_id"`
	Operator          string          `json:"operator"`
	RemainingQuantity int             `json:"remaining_quantity"`
	StagedQuantity    int             `json:"staged_quantity"`
	Batches           []DeductedBatch `json:"batches"`
	StartedAt         time.Time       `json:"started_at"`
}

// ScanResult respuesta de un escaneo aceptado
type ScanResult struct {
	Batch   DeductedBatch   `json:"batch"`
	Session ScanSessionView `json:"session"`
}

// CompletionResult respuesta de la confirmación de una sesión
type CompletionResult struct {
	StockOut       *StockOutRequest `json:"stock_out"`
	ProcessedItems []ProcessedItem  `json:"processed_items"`
	Attempts       int              `json:"attempts"`
	Timestamp      string           `json:"timestamp"`
}

// ProcessedItemsResponse lista de ítems procesados con reconciliación pendiente
type ProcessedItemsResponse struct {
	StockOutID     string          `json:"stock_out_id"`
	Items          []ProcessedItem `json:"items"`
	PendingLookups []string        `json:"pending_lookups"`
	TotalQuantity  int             `json:"total_quantity"`
	TotalProcessed int             `json:"total_processed"`
}
