package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/safar/wareq/internal/clock"
	"github.com/safar/wareq/internal/database"
	"github.com/safar/wareq/internal/lifecycle"
	"github.com/safar/wareq/internal/models"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	Kind       models.OrderKind
	CustomerID *int64
	SupplierID *int64
	Lines      []OrderLineRequest
}

// OrderLineRequest leaves Price nil to take the item's current price.
type OrderLineRequest struct {
	ItemID   int64
	Quantity int
	Price    *decimal.Decimal
}

type OrderFilter struct {
	Kind   models.OrderKind
	Status models.OrderStatus
}

const orderColumns = `id, order_number, order_type, customer_id, supplier_id, status, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }, order *models.Order) error {
	var customerID, supplierID sql.NullInt64
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.Kind,
		&customerID,
		&supplierID,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return err
	}
	order.CustomerID = nullableID(customerID)
	order.SupplierID = nullableID(supplierID)
	return nil
}

const lineColumns = `id, order_id, item_id, quantity, price, created_at`

func scanLine(row interface{ Scan(...any) error }, line *models.OrderLine) error {
	return row.Scan(
		&line.ID,
		&line.OrderID,
		&line.ItemID,
		&line.Quantity,
		&line.Price,
		&line.CreatedAt,
	)
}

func generateOrderNumber(kind models.OrderKind, now time.Time) string {
	prefix := "SO"
	if kind == models.OrderKindPurchase {
		prefix = "PO"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), suffix)
}

func (r CreateOrderRequest) toOrder() *models.Order {
	order := &models.Order{
		Kind:       r.Kind,
		CustomerID: r.CustomerID,
		SupplierID: r.SupplierID,
		Status:     models.OrderStatusPending,
	}
	for _, l := range r.Lines {
		order.Lines = append(order.Lines, l.toLine())
	}
	return order
}

func (r OrderLineRequest) toLine() models.OrderLine {
	line := models.OrderLine{ItemID: r.ItemID, Quantity: r.Quantity}
	if r.Price != nil {
		line.Price = *r.Price
	}
	return line
}

// CreateOrder stores a new order in PENDING with its initial lines. The
// status guard is not involved: there is no previous status.
func CreateOrder(ctx context.Context, db *sql.DB, clk clock.Clock, req CreateOrderRequest) (*models.Order, error) {
	draft := req.toOrder()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := checkCounterparty(ctx, tx, draft.Kind, draft.Counterparty()); err != nil {
			return err
		}

		now := clk.Now()
		var orderID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO orders (order_number, order_type, customer_id, supplier_id, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $6)
			 RETURNING id`,
			generateOrderNumber(req.Kind, now), req.Kind, req.CustomerID, req.SupplierID,
			models.OrderStatusPending, now).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, l := range req.Lines {
			if _, err := insertLine(ctx, tx, now, orderID, l); err != nil {
				return err
			}
		}

		order, err = GetOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func checkCounterparty(ctx context.Context, tx *sql.Tx, kind models.OrderKind, id *int64) error {
	table, field := customersTable, "customer_id"
	if kind == models.OrderKindPurchase {
		table, field = suppliersTable, "supplier_id"
	}

	party, err := table.get(ctx, tx, *id)
	if err != nil {
		return err
	}
	if !party.IsActive {
		return models.NewValidationError(field, fmt.Sprintf("%s %d is inactive", table.singular, party.ID))
	}
	return nil
}

// insertLine freezes the item's current price onto the line unless the
// request carries one.
func insertLine(ctx context.Context, tx *sql.Tx, now time.Time, orderID int64, req OrderLineRequest) (*models.OrderLine, error) {
	line := req.toLine()
	if err := line.Validate(); err != nil {
		return nil, err
	}

	if req.Price == nil {
		err := tx.QueryRowContext(ctx, `SELECT price FROM items WHERE id = $1`, req.ItemID).Scan(&line.Price)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("item %d: %w", req.ItemID, database.ErrItemNotFound)
			}
			return nil, fmt.Errorf("read item price: %w", err)
		}
	}

	created := &models.OrderLine{}
	err := scanLine(tx.QueryRowContext(ctx,
		`INSERT INTO order_lines (order_id, item_id, quantity, price, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+lineColumns,
		orderID, line.ItemID, line.Quantity, line.Price, now), created)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("item %d: %w", req.ItemID, database.ErrItemNotFound)
		}
		return nil, fmt.Errorf("create order line: %w", err)
	}

	return created, nil
}

func GetOrder(ctx context.Context, q database.Querier, id int64) (*models.Order, error) {
	return getOrder(ctx, q, id, false)
}

func getOrder(ctx context.Context, q database.Querier, id int64, forUpdate bool) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	err := scanOrder(q.QueryRowContext(ctx, query, id), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	lines, err := listLines(ctx, q, []int64{id})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[id]

	return order, nil
}

func listLines(ctx context.Context, q database.Querier, orderIDs []int64) (map[int64][]models.OrderLine, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+lineColumns+` FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, id`,
		pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	defer rows.Close()

	lines := make(map[int64][]models.OrderLine, len(orderIDs))
	for rows.Next() {
		var line models.OrderLine
		if err := scanLine(rows, &line); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines[line.OrderID] = append(lines[line.OrderID], line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lines, nil
}

func ListOrdersCursor(ctx context.Context, db *sql.DB, filter OrderFilter, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	limit = normalizeLimit(limit)

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR order_type = $1)
		  AND ($2 = '' OR status = $2)
		  AND (created_at, id) < ($3, $4)
		ORDER BY created_at DESC, id DESC
		LIMIT $5`

	rows, err := db.QueryContext(ctx, query, string(filter.Kind), string(filter.Status), cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	rows.Close()

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	if err := attachLines(ctx, db, orders); err != nil {
		return nil, err
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func attachLines(ctx context.Context, q database.Querier, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	lines, err := listLines(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return nil
}

// lockEditableOrder locks the order row and rejects the change once the
// order has left PENDING/PROCESSING.
func lockEditableOrder(ctx context.Context, tx *sql.Tx, orderID int64) (*models.Order, error) {
	order, err := getOrder(ctx, tx, orderID, true)
	if err != nil {
		return nil, err
	}
	if !order.IsEditable() {
		return nil, fmt.Errorf("order %d is %s: %w", order.ID, order.Status, models.ErrOrderNotEditable)
	}
	return order, nil
}

func touchOrder(ctx context.Context, tx *sql.Tx, orderID int64, now time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE orders SET updated_at = $2 WHERE id = $1`, orderID, now)
	if err != nil {
		return fmt.Errorf("touch order: %w", err)
	}
	return nil
}

func AddOrderLine(ctx context.Context, db *sql.DB, clk clock.Clock, orderID int64, req OrderLineRequest) (*models.OrderLine, error) {
	if err := req.toLine().Validate(); err != nil {
		return nil, err
	}

	var line *models.OrderLine

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if _, err := lockEditableOrder(ctx, tx, orderID); err != nil {
			return err
		}

		now := clk.Now()
		created, err := insertLine(ctx, tx, now, orderID, req)
		if err != nil {
			return err
		}
		line = created

		return touchOrder(ctx, tx, orderID, now)
	})
	if err != nil {
		return nil, err
	}

	return line, nil
}

// UpdateOrderLine changes the quantity only; the snapshot price stays.
func UpdateOrderLine(ctx context.Context, db *sql.DB, clk clock.Clock, orderID, lineID int64, quantity int) (*models.OrderLine, error) {
	if quantity <= 0 {
		return nil, models.NewValidationError("quantity", "must be greater than zero")
	}

	var line *models.OrderLine

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if _, err := lockEditableOrder(ctx, tx, orderID); err != nil {
			return err
		}

		updated := &models.OrderLine{}
		err := scanLine(tx.QueryRowContext(ctx,
			`UPDATE order_lines SET quantity = $3
			 WHERE id = $1 AND order_id = $2
			 RETURNING `+lineColumns,
			lineID, orderID, quantity), updated)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return database.ErrOrderLineNotFound
			}
			return fmt.Errorf("update order line: %w", err)
		}
		line = updated

		return touchOrder(ctx, tx, orderID, clk.Now())
	})
	if err != nil {
		return nil, err
	}

	return line, nil
}

func RemoveOrderLine(ctx context.Context, db *sql.DB, clk clock.Clock, orderID, lineID int64) error {
	return database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if _, err := lockEditableOrder(ctx, tx, orderID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM order_lines WHERE id = $1 AND order_id = $2`,
			lineID, orderID)
		if err != nil {
			return fmt.Errorf("remove order line: %w", err)
		}
		if err := expectOneRow(result, database.ErrOrderLineNotFound); err != nil {
			return err
		}

		return touchOrder(ctx, tx, orderID, clk.Now())
	})
}

// UpdateOrderStatus is the only way an order's status changes. Inside one
// transaction it re-reads the status under a row lock, runs the transition
// guard (which applies stock for fulfillment) and writes the new status.
// Any failure rolls back every stock adjustment made by the call.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, clk clock.Clock, orderID int64, status models.OrderStatus, actor *int64) (*models.Order, error) {
	var order *models.Order
	var movements []models.StockMovement

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		current, err := getOrder(ctx, tx, orderID, true)
		if err != nil {
			return err
		}

		from := current.Status
		ledger := NewLedger(tx, clk).ForOrder(orderID)

		movements, err = lifecycle.Transition(ctx, ledger, current, from, status, actor)
		if err != nil {
			return fmt.Errorf("order %d: %w", orderID, err)
		}

		if from == status {
			order = current
			return nil
		}

		now := clk.Now()
		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
			orderID, status, now)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		current.Status = status
		current.UpdatedAt = now
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(movements) > 0 {
		zerolog.Ctx(ctx).Info().
			Int64("order_id", order.ID).
			Str("order_number", order.OrderNumber).
			Str("kind", string(order.Kind)).
			Int("movements", len(movements)).
			Msg("order fulfilled")
	}

	return order, nil
}

// ClaimNextPendingOrder moves the oldest PENDING order of the given kind to
// PROCESSING. Rows locked by a concurrent claimer are skipped, so parallel
// pickers never receive the same order. Returns ErrOrderNotFound when the
// queue is empty.
func ClaimNextPendingOrder(ctx context.Context, db *sql.DB, clk clock.Clock, kind models.OrderKind, actor *int64) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		next := &models.Order{}
		err := scanOrder(tx.QueryRowContext(ctx,
			`SELECT `+orderColumns+`
			 FROM orders
			 WHERE status = $1 AND order_type = $2
			 ORDER BY created_at, id
			 FOR UPDATE SKIP LOCKED
			 LIMIT 1`,
			models.OrderStatusPending, kind), next)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("claim next pending order: %w", err)
		}

		ledger := NewLedger(tx, clk).ForOrder(next.ID)
		if _, err := lifecycle.Transition(ctx, ledger, next, next.Status, models.OrderStatusProcessing, actor); err != nil {
			return err
		}

		now := clk.Now()
		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
			next.ID, models.OrderStatusProcessing, now)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		order, err = GetOrder(ctx, tx, next.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// DeleteOrder removes a non-completed order and its lines.
func DeleteOrder(ctx context.Context, db *sql.DB, orderID int64) error {
	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		order, err := getOrder(ctx, tx, orderID, true)
		if err != nil {
			return err
		}
		if !order.CanBeDeleted() {
			return fmt.Errorf("order %d: %w", orderID, models.ErrOrderNotDeletable)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
}
