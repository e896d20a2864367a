package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newSqlxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock := newMock(t)
	return sqlx.NewDb(db, "postgres"), mock
}

var stockOutCols = []string{
	"id", "product_id", "product_name", "quantity", "processed_quantity", "remaining_quantity",
	"status", "requested_by", "requested_at", "approved_by", "approved_quantity", "approved_at",
	"processed_by", "processed_at", "customer_name", "destination", "notes", "reservation_id",
	"version", "updated_at",
}

func stockOutRow(rows *sqlmock.Rows, id string, quantity, processed int, status string, version int) *sqlmock.Rows {
	return rows.AddRow(
		id, "P1", "Widget", quantity, processed, quantity-processed,
		status, "op-1", fixedTime, nil, nil, nil,
		nil, nil, nil, nil, nil, nil,
		version, fixedTime,
	)
}

var batchItemCols = []string{
	"id", "batch_id", "product_id", "product_name", "barcode", "quantity", "batch_number",
	"warehouse_id", "warehouse_name", "location_id", "location_name", "floor", "zone", "color", "size",
	"status", "created_at", "updated_at",
}

func batchItemRow(rows *sqlmock.Rows, id, barcode string, qty int) *sqlmock.Rows {
	return rows.AddRow(
		id, "batch-1", "P1", "Widget", barcode, qty, "LOT-1",
		"wh-1", "Main", "loc-1", "A-01", "1", "Z", nil, nil,
		"available", fixedTime, fixedTime,
	)
}
