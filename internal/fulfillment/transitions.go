package fulfillment

import "warehouse-service/internal/models"

// transitions lista los cambios de estado manuales permitidos.
// processing -> completed solo ocurre al confirmar deducciones.
var transitions = map[string][]string{
	models.StockOutPending:    {models.StockOutApproved, models.StockOutRejected, models.StockOutCancelled},
	models.StockOutApproved:   {models.StockOutRejected, models.StockOutCancelled},
	models.StockOutProcessing: {models.StockOutRejected},
}

// CanTransition indica si una solicitud puede pasar de from a to por una acción manual
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanDeduct indica si una solicitud en este estado acepta deducciones.
// Con aprobación obligatoria, una solicitud pendiente debe aprobarse primero.
func CanDeduct(status string, requireApproval bool) bool {
	switch status {
	case models.StockOutApproved, models.StockOutProcessing:
		return true
	case models.StockOutPending:
		return !requireApproval
	}
	return false
}

// StatusAfterProgress estado que resulta tras aplicar deducciones
func StatusAfterProgress(remaining int) string {
	if remaining <= 0 {
		return models.StockOutCompleted
	}
	return models.StockOutProcessing
}
