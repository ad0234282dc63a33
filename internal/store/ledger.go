package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/safar/wareq/internal/clock"
	"github.com/safar/wareq/internal/database"
	"github.com/safar/wareq/internal/lifecycle"
	"github.com/safar/wareq/internal/models"
)

var _ lifecycle.StockLedger = (*Ledger)(nil)

// Ledger is the stock ledger bound to one transaction. Movements it writes
// are tagged with orderID when set.
type Ledger struct {
	tx      *sql.Tx
	clock   clock.Clock
	orderID *int64
	noWait  bool
}

func NewLedger(tx *sql.Tx, clk clock.Clock) *Ledger {
	return &Ledger{tx: tx, clock: clk}
}

func (l *Ledger) ForOrder(orderID int64) *Ledger {
	c := *l
	c.orderID = &orderID
	return &c
}

// NoWait makes item locks fail fast with ErrLockTimeout instead of queueing
// behind another writer.
func (l *Ledger) NoWait() *Ledger {
	c := *l
	c.noWait = true
	return &c
}

// Quantities locks every item in ascending id order and returns its current
// quantity.
func (l *Ledger) Quantities(ctx context.Context, itemIDs []int64) (map[int64]int, error) {
	return lockItems(ctx, l.tx, itemIDs)
}

// AdjustStock is the only path that changes an item's quantity with an audit
// record. The item update and the movement insert both happen in tx; on
// InsufficientStockError neither is written.
func AdjustStock(ctx context.Context, tx *sql.Tx, clk clock.Clock, itemID int64, delta int, reason string, actor *int64) (*models.StockMovement, error) {
	return NewLedger(tx, clk).Adjust(ctx, itemID, delta, reason, actor)
}

// AdjustItemStock runs a single audited adjustment in its own transaction,
// retrying when the item row is busy.
func AdjustItemStock(ctx context.Context, db *sql.DB, clk clock.Clock, itemID int64, delta int, reason string, actor *int64) (*models.StockMovement, error) {
	var movement *models.StockMovement

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		mv, err := NewLedger(tx, clk).NoWait().Adjust(ctx, itemID, delta, reason, actor)
		if err != nil {
			return err
		}
		movement = mv
		return nil
	})
	if err != nil {
		return nil, err
	}

	return movement, nil
}

func (l *Ledger) Adjust(ctx context.Context, itemID int64, delta int, reason string, actor *int64) (*models.StockMovement, error) {
	if delta == 0 {
		return nil, models.NewValidationError("delta", "must not be zero")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.NewValidationError("reason", "must not be blank")
	}

	query := `SELECT quantity FROM items WHERE id = $1 FOR UPDATE`
	if l.noWait {
		query += ` NOWAIT`
	}

	var before int
	err := l.tx.QueryRowContext(ctx, query, itemID).Scan(&before)
	if err != nil {
		if database.IsLockNotAvailable(err) {
			return nil, database.ErrLockTimeout
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrItemNotFound
		}
		return nil, fmt.Errorf("lock item %d: %w", itemID, err)
	}

	after := before + delta
	if after < 0 {
		return nil, &models.InsufficientStockError{ItemID: itemID, Available: before, Requested: -delta}
	}

	now := l.clock.Now()

	_, err = l.tx.ExecContext(ctx,
		`UPDATE items
		 SET quantity = $2, version = version + 1, updated_at = $3
		 WHERE id = $1`,
		itemID, after, now)
	if err != nil {
		return nil, fmt.Errorf("update item quantity: %w", err)
	}

	movement := &models.StockMovement{
		ItemID:         itemID,
		OrderID:        l.orderID,
		Delta:          delta,
		QuantityBefore: before,
		QuantityAfter:  after,
		Reason:         reason,
		ActorID:        actor,
		CreatedAt:      now,
	}

	err = l.tx.QueryRowContext(ctx,
		`INSERT INTO stock_movements (item_id, order_id, delta, quantity_before, quantity_after, reason, actor_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		itemID, l.orderID, delta, before, after, reason, actor, now).Scan(&movement.ID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("record movement for actor %v: %w", derefID(actor), database.ErrUserNotFound)
		}
		return nil, fmt.Errorf("record stock movement: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Int64("item_id", itemID).
		Int("delta", delta).
		Int("quantity_after", after).
		Str("reason", reason).
		Msg("stock adjusted")

	return movement, nil
}

func lockItems(ctx context.Context, tx *sql.Tx, itemIDs []int64) (map[int64]int, error) {
	quantities := make(map[int64]int, len(itemIDs))
	if len(itemIDs) == 0 {
		return quantities, nil
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, quantity FROM items WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		pq.Array(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("lock items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var quantity int
		if err := rows.Scan(&id, &quantity); err != nil {
			return nil, fmt.Errorf("scan item quantity: %w", err)
		}
		quantities[id] = quantity
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for _, id := range itemIDs {
		if _, ok := quantities[id]; !ok {
			return nil, fmt.Errorf("item %d: %w", id, database.ErrItemNotFound)
		}
	}

	return quantities, nil
}

const movementColumns = `id, item_id, order_id, delta, quantity_before, quantity_after, reason, actor_id, created_at`

func scanMovement(row interface{ Scan(...any) error }, m *models.StockMovement) error {
	var orderID, actorID sql.NullInt64
	err := row.Scan(
		&m.ID,
		&m.ItemID,
		&orderID,
		&m.Delta,
		&m.QuantityBefore,
		&m.QuantityAfter,
		&m.Reason,
		&actorID,
		&m.CreatedAt,
	)
	if err != nil {
		return err
	}
	m.OrderID = nullableID(orderID)
	m.ActorID = nullableID(actorID)
	return nil
}

// ListMovements pages through an item's history, newest first.
func ListMovements(ctx context.Context, db *sql.DB, itemID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	limit = normalizeLimit(limit)

	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE item_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, itemID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	movements, err := scanMovements(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(movements) > limit
	if hasMore {
		movements = movements[:limit]
	}

	var nextCursor string
	if hasMore && len(movements) > 0 {
		last := movements[len(movements)-1]
		nextCursor = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &CursorPage{
		Items:      movements,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func ListOrderMovements(ctx context.Context, db *sql.DB, orderID int64) ([]models.StockMovement, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM stock_movements WHERE order_id = $1 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("list order movements: %w", err)
	}
	defer rows.Close()

	return scanMovements(rows)
}

func scanMovements(rows *sql.Rows) ([]models.StockMovement, error) {
	movements := []models.StockMovement{}
	for rows.Next() {
		var m models.StockMovement
		if err := scanMovement(rows, &m); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return movements, nil
}

func nullableID(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	id := n.Int64
	return &id
}

func derefID(id *int64) any {
	if id == nil {
		return "none"
	}
	return *id
}
