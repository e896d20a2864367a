package fulfillment

import "warehouse-service/internal/models"

func strPtr(s string) *string { return &s }

func batchItem(barcode, productID string, qty int) *models.BatchItem {
	return &models.BatchItem{
		ID:          "bi-" + barcode,
		BatchID:     "batch-1",
		ProductID:   productID,
		ProductName: "Widget",
		Barcode:     barcode,
		Quantity:    qty,
		Status:      models.BatchStatusAvailable,
	}
}

func stockOut(productID string, quantity, remaining int) *models.StockOutRequest {
	return &models.StockOutRequest{
		ID:                "so-1",
		ProductID:         productID,
		Quantity:          quantity,
		ProcessedQuantity: quantity - remaining,
		RemainingQuantity: remaining,
		Status:            models.StockOutPending,
	}
}
