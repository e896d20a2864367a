package fulfillment

import (
	"fmt"

	"warehouse-service/internal/models"
)

// ValidationResult resultado de validar un escaneo
type ValidationResult struct {
	IsValid      bool   `json:"is_valid"`
	Reason       string `json:"reason,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Err convierte un resultado inválido en *ScanError
func (v ValidationResult) Err(barcode string) error {
	if v.IsValid {
		return nil
	}
	return &ScanError{Barcode: barcode, Reason: v.Reason, Message: v.ErrorMessage}
}

func invalid(reason, message string) ValidationResult {
	return ValidationResult{IsValid: false, Reason: reason, ErrorMessage: message}
}

// Validate comprueba un batch item escaneado contra la solicitud activa y los
// códigos ya escaneados en la sesión. Las comprobaciones siguen un orden fijo y
// la primera que falla determina el motivo.
func Validate(item *models.BatchItem, req *models.StockOutRequest, scanned map[string]struct{}) ValidationResult {
	if item == nil {
		return invalid(ReasonInvalidBarcode, "Invalid barcode")
	}
	if req == nil {
		return invalid(ReasonNoActiveRequest, "No active stock out request")
	}
	if _, ok := scanned[item.Barcode]; ok {
		return invalid(ReasonAlreadyScanned, fmt.Sprintf("Barcode %s has already been scanned", item.Barcode))
	}
	if item.ProductID != req.ProductID {
		return invalid(ReasonProductMismatch,
			fmt.Sprintf("Product mismatch: barcode %s belongs to %s, request is for %s", item.Barcode, item.ProductID, req.ProductID))
	}
	if item.Quantity <= 0 {
		return invalid(ReasonNoQuantity, fmt.Sprintf("Batch item %s has no quantity available", item.Barcode))
	}
	if req.RemainingQuantity <= 0 {
		return invalid(ReasonFullyFulfilled, "Stock out request is already fully fulfilled")
	}
	return ValidationResult{IsValid: true}
}
