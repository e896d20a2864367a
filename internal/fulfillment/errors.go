package fulfillment

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrScanRejected         = errors.New("scan rejected")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrConcurrentUpdate     = errors.New("stock out request was modified concurrently")
	ErrInsufficientQuantity = errors.New("insufficient batch item quantity")
	ErrOverFulfillment      = errors.New("deduction exceeds remaining quantity")
	ErrSessionNotFound      = errors.New("scan session not found")
	ErrEmptySession         = errors.New("scan session has no staged batches")
	ErrSessionClaimed       = errors.New("scan session is already being completed")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidInput         = errors.New("invalid input")
)

// Códigos de rechazo de un escaneo, en el orden en que se evalúan
const (
	ReasonInvalidBarcode  = "invalid_barcode"
	ReasonNoActiveRequest = "no_active_request"
	ReasonAlreadyScanned  = "already_scanned"
	ReasonProductMismatch = "product_mismatch"
	ReasonNoQuantity      = "no_quantity"
	ReasonFullyFulfilled  = "fully_fulfilled"
	ReasonNothingToDeduct = "nothing_to_deduct"
)

// ScanError describe por qué se rechazó un escaneo
type ScanError struct {
	Barcode string
	Reason  string
	Message string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *ScanError) Unwrap() error {
	return ErrScanRejected
}
