package fulfillment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"warehouse-service/internal/models"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.StockOutPending, models.StockOutApproved))
	assert.True(t, CanTransition(models.StockOutPending, models.StockOutCancelled))
	assert.True(t, CanTransition(models.StockOutApproved, models.StockOutRejected))
	assert.True(t, CanTransition(models.StockOutProcessing, models.StockOutRejected))

	assert.False(t, CanTransition(models.StockOutProcessing, models.StockOutCancelled))
	assert.False(t, CanTransition(models.StockOutApproved, models.StockOutApproved))
	assert.False(t, CanTransition(models.StockOutCompleted, models.StockOutRejected))
	assert.False(t, CanTransition(models.StockOutRejected, models.StockOutPending))
}

func TestCanDeduct(t *testing.T) {
	assert.True(t, CanDeduct(models.StockOutPending, false))
	assert.False(t, CanDeduct(models.StockOutPending, true))
	assert.True(t, CanDeduct(models.StockOutApproved, true))
	assert.True(t, CanDeduct(models.StockOutProcessing, true))
	assert.False(t, CanDeduct(models.StockOutCompleted, false))
	assert.False(t, CanDeduct(models.StockOutCancelled, false))
}

func TestStatusAfterProgress(t *testing.T) {
	assert.Equal(t, models.StockOutCompleted, StatusAfterProgress(0))
	assert.Equal(t, models.StockOutProcessing, StatusAfterProgress(2))
}
