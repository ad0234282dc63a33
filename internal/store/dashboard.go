package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/wareq/internal/models"
)

const recentLimit = 5

type DashboardStats struct {
	Customers      int64          `json:"customers"`
	Suppliers      int64          `json:"suppliers"`
	Items          int64          `json:"items"`
	Orders         int64          `json:"orders"`
	SaleOrders     int64          `json:"sale_orders"`
	PurchaseOrders int64          `json:"purchase_orders"`
	LowStockItems  int64          `json:"low_stock_items"`
	RecentOrders   []models.Order `json:"recent_orders"`
	RecentItems    []models.Item  `json:"recent_items"`
}

func GetDashboardStats(ctx context.Context, db *sql.DB, lowStockThreshold int) (*DashboardStats, error) {
	stats := &DashboardStats{}

	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM suppliers),
			(SELECT COUNT(*) FROM items),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM orders WHERE order_type = 'SALE'),
			(SELECT COUNT(*) FROM orders WHERE order_type = 'PURCHASE'),
			(SELECT COUNT(*) FROM items WHERE quantity <= $1)`,
		lowStockThreshold).Scan(
		&stats.Customers,
		&stats.Suppliers,
		&stats.Items,
		&stats.Orders,
		&stats.SaleOrders,
		&stats.PurchaseOrders,
		&stats.LowStockItems,
	)
	if err != nil {
		return nil, fmt.Errorf("count dashboard stats: %w", err)
	}

	page, err := ListOrdersCursor(ctx, db, OrderFilter{}, "", recentLimit)
	if err != nil {
		return nil, err
	}
	stats.RecentOrders = page.Items.([]models.Order)

	items, err := ListItems(ctx, db, ListParams{Page: 1, PageSize: recentLimit}, nil)
	if err != nil {
		return nil, err
	}
	stats.RecentItems = items.Items.([]models.Item)

	return stats, nil
}
