package store

import (
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/safar/wareq/internal/database"
	"github.com/safar/wareq/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateItemRecordsInitialStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	item := newItem(t, db, "LED-001", "4.50", 12)

	assert.Equal(t, 12, item.Quantity)

	page, err := ListMovements(ctx, db, item.ID, "", 10)
	require.NoError(t, err)

	movements := page.Items.([]models.StockMovement)
	require.Len(t, movements, 1)
	assert.Equal(t, 12, movements[0].Delta)
	assert.Equal(t, 0, movements[0].QuantityBefore)
	assert.Equal(t, 12, movements[0].QuantityAfter)
	assert.Equal(t, models.ReasonInitialStock, movements[0].Reason)
	assert.Nil(t, movements[0].OrderID)
}

func TestAdjustItemStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	user, err := CreateUser(ctx, db, "clerk@example.com", "Clerk", models.RoleStaff)
	require.NoError(t, err)

	item := newItem(t, db, "LED-002", "1.00", 5)

	movement, err := AdjustItemStock(ctx, db, testClock, item.ID, -3, "damaged in transit", &user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, movement.QuantityBefore)
	assert.Equal(t, 2, movement.QuantityAfter)
	require.NotNil(t, movement.ActorID)
	assert.Equal(t, user.ID, *movement.ActorID)

	after, err := GetItem(ctx, db, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.Quantity)
	assert.Equal(t, item.Version+1, after.Version)
}

func TestAdjustItemStockRejectsNegativeResult(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	item := newItem(t, db, "LED-003", "1.00", 2)

	_, err := AdjustItemStock(ctx, db, testClock, item.ID, -3, "recount", nil)

	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, quantityOf(t, db, item.ID))

	page, err := ListMovements(ctx, db, item.ID, "", 10)
	require.NoError(t, err)
	assert.Len(t, page.Items.([]models.StockMovement), 1, "only the initial stock movement")
}

func TestAdjustItemStockValidation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	item := newItem(t, db, "LED-004", "1.00", 2)

	_, err := AdjustItemStock(ctx, db, testClock, item.ID, 0, "nothing", nil)
	assert.True(t, models.IsValidationError(err))

	_, err = AdjustItemStock(ctx, db, testClock, item.ID, 1, "   ", nil)
	assert.True(t, models.IsValidationError(err))

	_, err = AdjustItemStock(ctx, db, testClock, 999999, 1, "found", nil)
	assert.ErrorIs(t, err, database.ErrItemNotFound)
}

func TestConcurrentAdjustments(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	item := newItem(t, db, "LED-005", "1.00", 10)

	concurrency := 8
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := database.WithRetry(ctx, db, database.TxOptions{
				IsolationLevel: sql.LevelReadCommitted,
				MaxRetries:     20,
			}, func(tx *sql.Tx) error {
				_, err := AdjustStock(ctx, tx, testClock, item.ID, -2, "picked", nil)
				return err
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	succeeded, short := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrInsufficientStock):
			short++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 3, short)
	assert.Equal(t, 0, quantityOf(t, db, item.ID))
}

func TestAdjustNoWait(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	item := newItem(t, db, "LED-006", "1.00", 20)

	tx1, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer func() { _ = tx1.Rollback() }()

	_, err = AdjustStock(ctx, tx1, testClock, item.ID, -5, "held", nil)
	require.NoError(t, err)

	tx2, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer func() { _ = tx2.Rollback() }()

	_, err = NewLedger(tx2, testClock).NoWait().Adjust(ctx, item.ID, -3, "contended", nil)
	assert.ErrorIs(t, err, database.ErrLockTimeout)
}

func TestListMovementsPaging(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	item := newItem(t, db, "LED-007", "1.00", 1)

	for i := 0; i < 4; i++ {
		_, err := AdjustItemStock(ctx, db, testClock, item.ID, 1, "restock", nil)
		require.NoError(t, err)
	}

	page1, err := ListMovements(ctx, db, item.ID, "", 3)
	require.NoError(t, err)
	assert.True(t, page1.HasMore)
	assert.NotEmpty(t, page1.NextCursor)

	first := page1.Items.([]models.StockMovement)
	require.Len(t, first, 3)
	assert.Equal(t, 5, first[0].QuantityAfter, "newest first")

	page2, err := ListMovements(ctx, db, item.ID, page1.NextCursor, 3)
	require.NoError(t, err)
	assert.False(t, page2.HasMore)

	second := page2.Items.([]models.StockMovement)
	require.Len(t, second, 2)
	assert.Equal(t, models.ReasonInitialStock, second[1].Reason)
}
