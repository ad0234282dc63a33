package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/wareq/internal/clock"
	"github.com/safar/wareq/internal/database"
	"github.com/safar/wareq/internal/models"
)

const itemColumns = `id, sku, name, COALESCE(description, ''), price, quantity, supplier_id, created_at, updated_at, version`

func scanItem(row interface{ Scan(...any) error }, item *models.Item) error {
	var supplierID sql.NullInt64
	err := row.Scan(
		&item.ID,
		&item.SKU,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.Quantity,
		&supplierID,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.Version,
	)
	if err != nil {
		return err
	}
	item.SupplierID = nullableID(supplierID)
	return nil
}

// CreateItem inserts the item with zero stock and books any initial
// quantity through the ledger, so the movement history explains the
// starting level.
func CreateItem(ctx context.Context, db *sql.DB, clk clock.Clock, item models.Item, actor *int64) (*models.Item, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}

	var created *models.Item

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		now := clk.Now()
		row := &models.Item{}

		query := `
			INSERT INTO items (sku, name, description, price, quantity, supplier_id, created_at, updated_at, version)
			VALUES ($1, $2, $3, $4, 0, $5, $6, $6, 1)
			RETURNING ` + itemColumns

		err := scanItem(tx.QueryRowContext(ctx, query,
			item.SKU, item.Name, nullString(item.Description), item.Price, item.SupplierID, now), row)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("create item %s: %w", item.SKU, database.ErrDuplicate)
			}
			if database.IsForeignKeyViolation(err) {
				return database.ErrSupplierNotFound
			}
			return fmt.Errorf("create item: %w", err)
		}

		if item.Quantity > 0 {
			if _, err := AdjustStock(ctx, tx, clk, row.ID, item.Quantity, models.ReasonInitialStock, actor); err != nil {
				return err
			}
		}

		created, err = GetItem(ctx, tx, row.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func GetItem(ctx context.Context, q database.Querier, id int64) (*models.Item, error) {
	item := &models.Item{}

	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	err := scanItem(q.QueryRowContext(ctx, query, id), item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrItemNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	return item, nil
}

func GetItemBySKU(ctx context.Context, db *sql.DB, sku string) (*models.Item, error) {
	item := &models.Item{}

	query := `SELECT ` + itemColumns + ` FROM items WHERE sku = $1`

	err := scanItem(db.QueryRowContext(ctx, query, sku), item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrItemNotFound
		}
		return nil, fmt.Errorf("get item by sku: %w", err)
	}

	return item, nil
}

// ListItems filters by name/SKU/description search and, when supplierID is
// set, by supplier.
func ListItems(ctx context.Context, db *sql.DB, params ListParams, supplierID *int64) (*OffsetPage, error) {
	params = params.normalize()

	where := `
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR sku ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		  AND ($2::BIGINT IS NULL OR supplier_id = $2)`

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`+where, params.Search, supplierID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}

	query := `SELECT ` + itemColumns + ` FROM items` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`

	rows, err := db.QueryContext(ctx, query, params.Search, supplierID, params.PageSize, params.offset())
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(items, total, params), nil
}

func ListLowStockItems(ctx context.Context, db *sql.DB, threshold, limit int) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM items
		WHERE quantity <= $1
		ORDER BY quantity ASC, id ASC
		LIMIT $2`

	rows, err := db.QueryContext(ctx, query, threshold, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list low stock items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]models.Item, error) {
	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// UpdateItem is the administrative correction path. It writes every field,
// quantity included, without a ledger entry, and fails with
// ErrOptimisticLockFailed when item.Version is stale.
func UpdateItem(ctx context.Context, db *sql.DB, item models.Item) (*models.Item, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}

	updated := &models.Item{}

	query := `
		UPDATE items
		SET sku = $3, name = $4, description = $5, price = $6, quantity = $7, supplier_id = $8,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING ` + itemColumns

	err := scanItem(db.QueryRowContext(ctx, query,
		item.ID, item.Version, item.SKU, item.Name, nullString(item.Description),
		item.Price, item.Quantity, item.SupplierID), updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := GetItem(ctx, db, item.ID); getErr != nil {
				return nil, getErr
			}
			return nil, database.ErrOptimisticLockFailed
		}
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("update item %s: %w", item.SKU, database.ErrDuplicate)
		}
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrSupplierNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}

	return updated, nil
}

// DeleteItem fails with ErrReferenced once the item appears on an order
// line or in the movement history.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("delete item %d: %w", id, database.ErrReferenced)
		}
		return fmt.Errorf("delete item: %w", err)
	}
	return expectOneRow(result, database.ErrItemNotFound)
}
