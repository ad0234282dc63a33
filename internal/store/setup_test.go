package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/safar/wareq/internal/clock"
	"github.com/safar/wareq/internal/database"
	"github.com/safar/wareq/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testClock = clock.Fixed(time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC))

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if _, err := database.Migrate(testContext(), db, "../../migrations", "up"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func testContext() context.Context {
	return zerolog.Nop().WithContext(context.Background())
}

func newCustomer(t *testing.T, db *sql.DB, email string) *models.Customer {
	t.Helper()
	c, err := CreateCustomer(testContext(), db, models.Customer{Party: models.Party{Name: "Customer " + email, Email: email}})
	require.NoError(t, err)
	return c
}

func newSupplier(t *testing.T, db *sql.DB, email string) *models.Supplier {
	t.Helper()
	s, err := CreateSupplier(testContext(), db, models.Supplier{Party: models.Party{Name: "Supplier " + email, Email: email}})
	require.NoError(t, err)
	return s
}

func newItem(t *testing.T, db *sql.DB, sku string, price string, quantity int) *models.Item {
	t.Helper()
	item, err := CreateItem(testContext(), db, testClock, models.Item{
		SKU:      sku,
		Name:     "Item " + sku,
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
	}, nil)
	require.NoError(t, err)
	return item
}

func saleOrder(t *testing.T, db *sql.DB, customerID int64, lines ...OrderLineRequest) *models.Order {
	t.Helper()
	order, err := CreateOrder(testContext(), db, testClock, CreateOrderRequest{
		Kind:       models.OrderKindSale,
		CustomerID: &customerID,
		Lines:      lines,
	})
	require.NoError(t, err)
	return order
}

func quantityOf(t *testing.T, db *sql.DB, itemID int64) int {
	t.Helper()
	item, err := GetItem(testContext(), db, itemID)
	require.NoError(t, err)
	return item.Quantity
}
