package fulfillment

import "warehouse-service/internal/models"

// CreateDeductedBatch arma la fila de sesión para un batch item y una cantidad
func CreateDeductedBatch(item *models.BatchItem, qty int) models.DeductedBatch {
	return models.DeductedBatch{
		BatchItemID:      item.ID,
		Barcode:          item.Barcode,
		BatchNumber:      deref(item.BatchNumber),
		ProductID:        item.ProductID,
		ProductName:      item.ProductName,
		QuantityDeducted: qty,
		WarehouseID:      deref(item.WarehouseID),
		WarehouseName:    deref(item.WarehouseName),
		LocationID:       deref(item.LocationID),
		LocationName:     deref(item.LocationName),
		Floor:            deref(item.Floor),
		Zone:             deref(item.Zone),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
