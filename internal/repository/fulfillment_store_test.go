package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-service/internal/fulfillment"
	"warehouse-service/internal/models"
)

func TestFulfillmentStore_CommitsUnit(t *testing.T) {
	db, mock := newMock(t)
	store := NewFulfillmentStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM stock_out_requests`).
		WithArgs("so-1").
		WillReturnRows(stockOutRow(sqlmock.NewRows(stockOutCols), "so-1", 5, 0, models.StockOutApproved, 3))
	mock.ExpectQuery(`FROM batch_items`).
		WithArgs("bi-1").
		WillReturnRows(batchItemRow(sqlmock.NewRows(batchItemCols), "bi-1", "B1", 4))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM warehouses`).
		WithArgs("wh-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`INSERT INTO stock_out_processed_items`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE batch_items`).
		WithArgs("bi-1", 4, models.BatchStatusOut, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE stock_out_requests`).
		WithArgs("so-1", 4, 1, models.StockOutProcessing, "op-1", sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.RunInTx(context.Background(), func(tx FulfillmentTx) error {
		ctx := context.Background()
		req, err := tx.GetRequest(ctx, "so-1")
		require.NoError(t, err)
		item, err := tx.GetBatchItem(ctx, "bi-1")
		require.NoError(t, err)

		ok, err := tx.WarehouseExists(ctx, *item.WarehouseID)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, tx.InsertProcessedItem(ctx, &models.ProcessedItem{
			ID: "pi-1", StockOutID: req.ID, BatchItemID: item.ID, ProductID: "P1",
			Barcode: "B1", Quantity: 4, ProcessedBy: "op-1", ProcessedAt: time.Now(), Notes: "{}",
		}))

		ok, err = tx.DeductBatchItem(ctx, item.ID, 4, 4, models.BatchStatusOut)
		require.NoError(t, err)
		assert.True(t, ok)

		operator := "op-1"
		now := time.Now()
		req.ProcessedQuantity, req.RemainingQuantity = 4, 1
		req.Status, req.ProcessedBy, req.ProcessedAt = models.StockOutProcessing, &operator, &now
		ok, err = tx.ApplyProgress(ctx, req, 3)
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFulfillmentStore_RollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	store := NewFulfillmentStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO stock_out_processed_items`).
		WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	err := store.RunInTx(context.Background(), func(tx FulfillmentTx) error {
		return tx.InsertProcessedItem(context.Background(), &models.ProcessedItem{ID: "pi-1"})
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert processed item")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFulfillmentStore_BeginFailureSkipsWork(t *testing.T) {
	db, mock := newMock(t)
	store := NewFulfillmentStore(db)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	called := false
	err := store.RunInTx(context.Background(), func(tx FulfillmentTx) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}

func TestFulfillmentTx_DeductReportsChangedRow(t *testing.T) {
	db, mock := newMock(t)
	store := NewFulfillmentStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE batch_items`).
		WithArgs("bi-1", 3, models.BatchStatusPartial, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	sentinel := errors.New("changed")
	err := store.RunInTx(context.Background(), func(tx FulfillmentTx) error {
		ok, err := tx.DeductBatchItem(context.Background(), "bi-1", 3, 5, models.BatchStatusPartial)
		require.NoError(t, err)
		if !ok {
			return sentinel
		}
		return nil
	})

	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFulfillmentTx_SessionCommitted(t *testing.T) {
	db, mock := newMock(t)
	store := NewFulfillmentStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM stock_out_processed_items WHERE session_id = \$1`).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := store.RunInTx(context.Background(), func(tx FulfillmentTx) error {
		done, err := tx.SessionCommitted(context.Background(), "sess-1")
		require.NoError(t, err)
		if done {
			return fulfillment.ErrSessionClaimed
		}
		return nil
	})

	assert.ErrorIs(t, err, fulfillment.ErrSessionClaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFulfillmentTx_DuplicateBarcodeInSession(t *testing.T) {
	db, mock := newMock(t)
	store := NewFulfillmentStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO stock_out_processed_items`).
		WithArgs("pi-2", "so-1", "sess-1", nil, "bi-1", "P1", "B1", 2, "op-1", sqlmock.AnyArg(), nil, nil, "{}").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "stock_out_processed_items_session_barcode_key"})
	mock.ExpectRollback()

	err := store.RunInTx(context.Background(), func(tx FulfillmentTx) error {
		return tx.InsertProcessedItem(context.Background(), &models.ProcessedItem{
			ID: "pi-2", StockOutID: "so-1", SessionID: "sess-1", BatchItemID: "bi-1", ProductID: "P1",
			Barcode: "B1", Quantity: 2, ProcessedBy: "op-1", ProcessedAt: time.Now(), Notes: "{}",
		})
	})

	assert.ErrorIs(t, err, fulfillment.ErrSessionClaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
