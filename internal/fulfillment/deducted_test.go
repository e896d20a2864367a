package fulfillment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDeductedBatch_CopiesIdentity(t *testing.T) {
	item := batchItem("BX-1", "P1", 9)
	item.BatchNumber = strPtr("LOT-42")
	item.WarehouseID = strPtr("wh-1")
	item.WarehouseName = strPtr("Main")
	item.LocationID = strPtr("loc-1")
	item.LocationName = strPtr("A-01")

	got := CreateDeductedBatch(item, 4)

	assert.Equal(t, item.ID, got.BatchItemID)
	assert.Equal(t, "BX-1", got.Barcode)
	assert.Equal(t, "LOT-42", got.BatchNumber)
	assert.Equal(t, "P1", got.ProductID)
	assert.Equal(t, "Widget", got.ProductName)
	assert.Equal(t, 4, got.QuantityDeducted)
	assert.Equal(t, "loc-1", got.LocationID)
	assert.Equal(t, "A-01", got.LocationName)
	assert.Equal(t, 9, item.Quantity, "source item untouched")
}

func TestCreateDeductedBatch_OptionalFieldsDefaultToEmptyString(t *testing.T) {
	got := CreateDeductedBatch(batchItem("BX-2", "P1", 1), 1)

	assert.Equal(t, "", got.LocationID)
	assert.Equal(t, "", got.LocationName)
	assert.Equal(t, "", got.BatchNumber)

	raw, err := json.Marshal(got)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"location_id", "location_name", "batch_number", "warehouse_id", "floor", "zone"} {
		v, ok := fields[key]
		require.True(t, ok, key)
		assert.Equal(t, "", v, key)
	}
}
