// Package lifecycle holds the order status state machine and the stock
// effects of fulfillment. It knows nothing about storage: the caller runs
// Transition inside its transaction and persists the new status only when
// Transition returns nil.
package lifecycle

import (
	"context"
	"fmt"
	"sort"

	"github.com/safar/wareq/internal/models"
)

// StockLedger is the part of the stock ledger fulfillment needs. Both
// methods must operate inside the same unit of work as the status write.
type StockLedger interface {
	// Quantities locks the items and returns their current quantities.
	Quantities(ctx context.Context, itemIDs []int64) (map[int64]int, error)
	Adjust(ctx context.Context, itemID int64, delta int, reason string, actor *int64) (*models.StockMovement, error)
}

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending: {
		models.OrderStatusProcessing,
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	},
	models.OrderStatusProcessing: {
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	},
}

// CanTransition reports whether from -> to is a legal status change.
// A same-state save is always allowed.
func CanTransition(from, to models.OrderStatus) bool {
	if from == to {
		return from.Valid()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition checks from -> to for order and, when the order becomes
// COMPLETED, moves stock for every line. It returns the movements written.
// Shortages are detected for all lines before the first adjustment; any
// later failure relies on the caller rolling back its transaction.
func Transition(ctx context.Context, ledger StockLedger, order *models.Order, from, to models.OrderStatus, actor *int64) ([]models.StockMovement, error) {
	if !to.Valid() {
		return nil, models.NewValidationError("status", fmt.Sprintf("unknown status %q", to))
	}
	if from == to {
		return nil, nil
	}
	if !CanTransition(from, to) {
		return nil, &models.TransitionError{From: from, To: to}
	}
	if to != models.OrderStatusCompleted {
		return nil, nil
	}

	return fulfill(ctx, ledger, order, actor)
}

func fulfill(ctx context.Context, ledger StockLedger, order *models.Order, actor *int64) ([]models.StockMovement, error) {
	if len(order.Lines) == 0 {
		return nil, nil
	}

	sign, reason := -1, models.ReasonOrderFulfilled
	if order.Kind == models.OrderKindPurchase {
		sign, reason = 1, models.ReasonOrderReceived
	}

	demand := make(map[int64]int)
	for _, line := range order.Lines {
		if line.Quantity <= 0 {
			return nil, models.NewValidationError("quantity", fmt.Sprintf("line %d must be greater than zero", line.ID))
		}
		demand[line.ItemID] += line.Quantity
	}

	ids := make([]int64, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	available, err := ledger.Quantities(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load stock: %w", err)
	}

	if sign < 0 {
		for _, id := range ids {
			if available[id] < demand[id] {
				return nil, fmt.Errorf("%w: %w", models.ErrCannotFulfillOrder, &models.InsufficientStockError{
					ItemID:    id,
					Available: available[id],
					Requested: demand[id],
				})
			}
		}
	}

	movements := make([]models.StockMovement, 0, len(order.Lines))
	for _, line := range order.Lines {
		mv, err := ledger.Adjust(ctx, line.ItemID, sign*line.Quantity, reason, actor)
		if err != nil {
			if sign < 0 && models.IsInsufficientStock(err) {
				return nil, fmt.Errorf("%w: %w", models.ErrCannotFulfillOrder, err)
			}
			return nil, fmt.Errorf("adjust item %d: %w", line.ItemID, err)
		}
		movements = append(movements, *mv)
	}

	return movements, nil
}
