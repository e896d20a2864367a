package fulfillment

import "warehouse-service/internal/models"

// MaxDeductible es la única fuente de verdad sobre cuánto puede aportar un escaneo:
// el mínimo entre lo que queda en la caja, lo que falta en la solicitud y lo que
// pidió el operador. Nunca es negativo.
func MaxDeductible(item *models.BatchItem, req *models.StockOutRequest, userRequested int) int {
	if item == nil || req == nil {
		return 0
	}
	return clamp(item.Quantity, req.RemainingQuantity, userRequested)
}

func clamp(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	if m < 0 {
		return 0
	}
	return m
}
