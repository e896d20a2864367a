package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationRepository_FindInventoryByBarcode(t *testing.T) {
	db, mock := newSqlxMock(t)
	repo := NewLocationRepository(db)

	mock.ExpectQuery(`FROM inventory`).
		WithArgs("B1").
		WillReturnRows(sqlmock.NewRows([]string{"barcode", "warehouse_id", "location_id"}).AddRow("B1", "wh-1", nil))

	rec, err := repo.FindInventoryByBarcode(context.Background(), "B1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "wh-1", *rec.WarehouseID)
	assert.Nil(t, rec.LocationID)
}

func TestLocationRepository_MissingRowsAreNil(t *testing.T) {
	db, mock := newSqlxMock(t)
	repo := NewLocationRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`FROM inventory`).WithArgs("B1").WillReturnRows(sqlmock.NewRows([]string{"barcode"}))
	mock.ExpectQuery(`FROM warehouses`).WithArgs("wh-x").WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery(`FROM warehouse_locations`).WithArgs("loc-x").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`FROM batch_item_locations_view`).WithArgs("B1").WillReturnRows(sqlmock.NewRows([]string{"barcode"}))

	rec, err := repo.FindInventoryByBarcode(ctx, "B1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	wh, err := repo.GetWarehouse(ctx, "wh-x")
	require.NoError(t, err)
	assert.Nil(t, wh)

	loc, err := repo.GetLocation(ctx, "loc-x")
	require.NoError(t, err)
	assert.Nil(t, loc)

	view, err := repo.FindViewByBarcode(ctx, "B1")
	require.NoError(t, err)
	assert.Nil(t, view)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationRepository_ViewQueryError(t *testing.T) {
	db, mock := newSqlxMock(t)
	repo := NewLocationRepository(db)

	mock.ExpectQuery(`FROM batch_item_locations_view`).WithArgs("B1").WillReturnError(errors.New("relation does not exist"))

	_, err := repo.FindViewByBarcode(context.Background(), "B1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query location view")
}
