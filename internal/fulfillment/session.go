package fulfillment

import (
	"time"

	"warehouse-service/internal/models"
)

// Session es una sesión de escaneo de un operador sobre una solicitud de salida.
// Guarda los códigos ya escaneados y las deducciones preparadas hasta que se confirman.
type Session struct {
	ID               string                 `json:"id"`
	StockOutID       string                 `json:"stock_out_id"`
	ProductID        string                 `json:"product_id"`
	Operator         string                 `json:"operator"`
	RequestRemaining int                    `json:"request_remaining"`
	Batches          []models.DeductedBatch `json:"batches"`
	StartedAt        time.Time              `json:"started_at"`
}

func NewSession(id string, req *models.StockOutRequest, operator string, now time.Time) *Session {
	return &Session{
		ID:               id,
		StockOutID:       req.ID,
		ProductID:        req.ProductID,
		Operator:         operator,
		RequestRemaining: req.RemainingQuantity,
		Batches:          []models.DeductedBatch{},
		StartedAt:        now,
	}
}

// Scanned devuelve el conjunto de códigos de barras ya preparados
func (s *Session) Scanned() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Batches))
	for _, b := range s.Batches {
		set[b.Barcode] = struct{}{}
	}
	return set
}

// Staged suma las cantidades preparadas
func (s *Session) Staged() int {
	total := 0
	for _, b := range s.Batches {
		total += b.QuantityDeducted
	}
	return total
}

// Remaining es lo que falta despachar descontando lo ya preparado
func (s *Session) Remaining() int {
	remaining := s.RequestRemaining - s.Staged()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Scan valida y prepara un batch item. req es la solicitud leída en vivo; si es
// nil o ya está cerrada el escaneo se rechaza. Un rechazo no altera la sesión.
func (s *Session) Scan(item *models.BatchItem, req *models.StockOutRequest, userQty int) (models.DeductedBatch, error) {
	var view *models.StockOutRequest
	if req != nil && !req.IsTerminal() && req.ID == s.StockOutID {
		s.RequestRemaining = req.RemainingQuantity
		view = &models.StockOutRequest{
			ID:                req.ID,
			ProductID:         req.ProductID,
			Status:            req.Status,
			RemainingQuantity: s.Remaining(),
		}
	}

	barcode := ""
	if item != nil {
		barcode = item.Barcode
	}

	if result := Validate(item, view, s.Scanned()); !result.IsValid {
		return models.DeductedBatch{}, result.Err(barcode)
	}

	qty := MaxDeductible(item, view, userQty)
	if qty <= 0 {
		return models.DeductedBatch{}, &ScanError{
			Barcode: barcode,
			Reason:  ReasonNothingToDeduct,
			Message: "Requested quantity must be greater than zero",
		}
	}

	batch := CreateDeductedBatch(item, qty)
	s.Batches = append(s.Batches, batch)
	return batch, nil
}

// Remove quita una fila preparada; devuelve false si el código no estaba
func (s *Session) Remove(barcode string) bool {
	for i, b := range s.Batches {
		if b.Barcode == barcode {
			s.Batches = append(s.Batches[:i], s.Batches[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Session) View() models.ScanSessionView {
	batches := make([]models.DeductedBatch, len(s.Batches))
	copy(batches, s.Batches)
	return models.ScanSessionView{
		SessionID:         s.ID,
		StockOutID:        s.StockOutID,
		ProductID:         s.ProductID,
		Operator:          s.Operator,
		RemainingQuantity: s.Remaining(),
		StagedQuantity:    s.Staged(),
		Batches:           batches,
		StartedAt:         s.StartedAt,
	}
}
