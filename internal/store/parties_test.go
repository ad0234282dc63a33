package store

import (
	"testing"

	"github.com/safar/wareq/internal/database"
	"github.com/safar/wareq/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	c := newCustomer(t, db, "ada@example.com")
	assert.True(t, c.IsActive)

	_, err := CreateCustomer(ctx, db, models.Customer{Party: models.Party{Name: "Other", Email: "ada@example.com"}})
	assert.ErrorIs(t, err, database.ErrDuplicate)

	c.Phone = "+1-555-0100"
	updated, err := UpdateCustomer(ctx, db, *c)
	require.NoError(t, err)
	assert.Equal(t, "+1-555-0100", updated.Phone)

	newCustomer(t, db, "bob@example.com")
	require.NoError(t, SetCustomerActive(ctx, db, c.ID, false))

	all, err := ListCustomers(ctx, db, ListParams{}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)

	active, err := ListCustomers(ctx, db, ListParams{}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active.Total)

	found, err := ListCustomers(ctx, db, ListParams{Search: "ADA"}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.Total)

	require.NoError(t, DeleteCustomer(ctx, db, c.ID))
	_, err = GetCustomer(ctx, db, c.ID)
	assert.ErrorIs(t, err, database.ErrCustomerNotFound)
}

func TestDeletingSupplierKeepsItsOrders(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	s := newSupplier(t, db, "acme@example.com")
	item := newItem(t, db, "SUP-001", "1.00", 0)

	order, err := CreateOrder(ctx, db, testClock, CreateOrderRequest{
		Kind:       models.OrderKindPurchase,
		SupplierID: &s.ID,
		Lines:      []OrderLineRequest{{ItemID: item.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, DeleteSupplier(ctx, db, s.ID))
	assert.ErrorIs(t, DeleteSupplier(ctx, db, s.ID), database.ErrSupplierNotFound)

	got, err := GetOrder(ctx, db, order.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SupplierID)
}

func TestUsers(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()

	u, err := CreateUser(ctx, db, "ops@example.com", "Ops", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, u.Role)

	_, err = CreateUser(ctx, db, "ops@example.com", "Ops again", models.RoleAdmin)
	assert.ErrorIs(t, err, database.ErrDuplicate)

	_, err = CreateUser(ctx, db, "x@example.com", "X", models.Role("root"))
	assert.True(t, models.IsValidationError(err))

	got, err := GetUser(ctx, db, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	page, err := ListUsers(ctx, db, ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.TotalPages)
}

func TestDashboardStats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := testContext()
	customer := newCustomer(t, db, "dash@example.com")
	newSupplier(t, db, "dash-supply@example.com")
	low := newItem(t, db, "DSH-001", "1.00", 2)
	newItem(t, db, "DSH-002", "1.00", 100)

	saleOrder(t, db, customer.ID, OrderLineRequest{ItemID: low.ID, Quantity: 1})

	stats, err := GetDashboardStats(ctx, db, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Customers)
	assert.Equal(t, int64(1), stats.Suppliers)
	assert.Equal(t, int64(2), stats.Items)
	assert.Equal(t, int64(1), stats.Orders)
	assert.Equal(t, int64(1), stats.SaleOrders)
	assert.Equal(t, int64(0), stats.PurchaseOrders)
	assert.Equal(t, int64(1), stats.LowStockItems)
	assert.Len(t, stats.RecentOrders, 1)
	assert.Len(t, stats.RecentItems, 2)
}
