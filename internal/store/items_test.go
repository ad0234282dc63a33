package store

import (
	"testing"

	"github.com/safar/wareq/internal/database"
	"github.com/safar/wareq/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimisticLocking(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	item := newItem(t, db, "ITM-001", "100", 50)

	first := *item
	first.Quantity = 40
	updated, err := UpdateItem(ctx, db, first)
	require.NoError(t, err)
	assert.Equal(t, item.Version+1, updated.Version)

	stale := *item
	stale.Quantity = 30
	_, err = UpdateItem(ctx, db, stale)
	assert.ErrorIs(t, err, database.ErrOptimisticLockFailed)

	missing := *item
	missing.ID = 999999
	_, err = UpdateItem(ctx, db, missing)
	assert.ErrorIs(t, err, database.ErrItemNotFound)

	assert.Equal(t, 40, quantityOf(t, db, item.ID))
}

func TestCreateItemValidation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	newItem(t, db, "ITM-002", "1.00", 0)

	_, err := CreateItem(ctx, db, testClock, models.Item{SKU: "ITM-002", Name: "Dup", Price: decimal.NewFromInt(1)}, nil)
	assert.ErrorIs(t, err, database.ErrDuplicate)

	_, err = CreateItem(ctx, db, testClock, models.Item{SKU: "ITM-003", Name: "Neg", Price: decimal.NewFromInt(-1)}, nil)
	assert.True(t, models.IsValidationError(err))

	missing := int64(999999)
	_, err = CreateItem(ctx, db, testClock, models.Item{SKU: "ITM-004", Name: "Orphan", Price: decimal.NewFromInt(1), SupplierID: &missing}, nil)
	assert.ErrorIs(t, err, database.ErrSupplierNotFound)

	found, err := GetItemBySKU(ctx, db, "ITM-002")
	require.NoError(t, err)
	assert.Equal(t, "Item ITM-002", found.Name)
}

func TestDeleteItem(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	unused := newItem(t, db, "ITM-005", "1.00", 0)
	stocked := newItem(t, db, "ITM-006", "1.00", 3)

	require.NoError(t, DeleteItem(ctx, db, unused.ID))
	assert.ErrorIs(t, DeleteItem(ctx, db, unused.ID), database.ErrItemNotFound)

	// Movement history keeps the item alive.
	assert.ErrorIs(t, DeleteItem(ctx, db, stocked.ID), database.ErrReferenced)
}

func TestListItemsAndLowStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	supplier := newSupplier(t, db, "parts@example.com")

	_, err := CreateItem(ctx, db, testClock, models.Item{
		SKU: "BOLT-1", Name: "Hex bolt", Price: decimal.NewFromInt(1), Quantity: 2, SupplierID: &supplier.ID,
	}, nil)
	require.NoError(t, err)
	newItem(t, db, "NUT-1", "0.10", 500)

	page, err := ListItems(ctx, db, ListParams{Search: "bolt"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = ListItems(ctx, db, ListParams{}, &supplier.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	low, err := ListLowStockItems(ctx, db, 10, 5)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "BOLT-1", low[0].SKU)
}
