package models

import "time"

// Estados de una solicitud de salida de stock
const (
	StockOutPending    = "pending"
	StockOutApproved   = "approved"
	StockOutProcessing = "processing"
	StockOutCompleted  = "completed"
	StockOutRejected   = "rejected"
	StockOutCancelled  = "cancelled"
)

// StockOutRequest representa la tabla stock_out_requests.
// Version se incrementa en cada escritura y se usa como control optimista.
type StockOutRequest struct {
	ID                string     `json:"id" db:"id"`
	ProductID         string     `json:"product_id" db:"product_id"`
	ProductName       string     `json:"product_name" db:"product_name"`
	Quantity          int        `json:"quantity" db:"quantity"`
	ProcessedQuantity int        `json:"processed_quantity" db:"processed_quantity"`
	RemainingQuantity int        `json:"remaining_quantity" db:"remaining_quantity"`
	Status            string     `json:"status" db:"status"`
	RequestedBy       string     `json:"requested_by" db:"requested_by"`
	RequestedAt       time.Time  `json:"requested_at" db:"requested_at"`
	ApprovedBy        *string    `json:"approved_by" db:"approved_by"`
	ApprovedQuantity  *int       `json:"approved_quantity" db:"approved_quantity"`
	ApprovedAt        *time.Time `json:"approved_at" db:"approved_at"`
	ProcessedBy       *string    `json:"processed_by" db:"processed_by"`
	ProcessedAt       *time.Time `json:"processed_at" db:"processed_at"`
	CustomerName      *string    `json:"customer_name" db:"customer_name"`
	Destination       *string    `json:"destination" db:"destination"`
	Notes             *string    `json:"notes" db:"notes"`
	ReservationID     *string    `json:"reservation_id" db:"reservation_id"`
	Version           int        `json:"version" db:"version"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// TargetQuantity es la cantidad que hay que despachar: la aprobada si existe
func (r *StockOutRequest) TargetQuantity() int {
	if r.ApprovedQuantity != nil {
		return *r.ApprovedQuantity
	}
	return r.Quantity
}

// IsTerminal indica si la solicitud ya no admite cambios
func (r *StockOutRequest) IsTerminal() bool {
	switch r.Status {
	case StockOutCompleted, StockOutRejected, StockOutCancelled:
		return true
	}
	return false
}

// StockOutFilter filtros para listar solicitudes
type StockOutFilter struct {
	Status    *string `json:"status,omitempty"`
	ProductID *string `json:"product_id,omitempty"`
	Limit     int     `json:"limit,omitempty"`
	Offset    int     `json:"offset,omitempty"`
}
