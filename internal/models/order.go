package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderKind string

const (
	OrderKindSale     OrderKind = "SALE"
	OrderKindPurchase OrderKind = "PURCHASE"
)

func (k OrderKind) Valid() bool {
	return k == OrderKindSale || k == OrderKindPurchase
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status change is permitted.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type Order struct {
	ID          int64       `json:"id"`
	OrderNumber string      `json:"order_number"`
	Kind        OrderKind   `json:"order_type"`
	CustomerID  *int64      `json:"customer_id,omitempty"`
	SupplierID  *int64      `json:"supplier_id,omitempty"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Lines       []OrderLine `json:"lines,omitempty"`
}

type OrderLine struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ItemID    int64           `json:"item_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

func (l OrderLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Validate checks the line before its price snapshot is taken, so a zero
// price is allowed here.
func (l OrderLine) Validate() error {
	if l.ItemID <= 0 {
		return NewValidationError("item_id", "is required")
	}
	if l.Quantity <= 0 {
		return NewValidationError("quantity", "must be greater than zero")
	}
	if l.Price.IsNegative() {
		return NewValidationError("price", "cannot be negative")
	}
	return nil
}

// TotalAmount is recomputed on every call since lines change while the
// order is editable.
func (o *Order) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

func (o *Order) IsEditable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// CanBeDeleted is false for completed orders: their stock changes are
// already in the ledger.
func (o *Order) CanBeDeleted() bool {
	return o.Status != OrderStatusCompleted
}

// Counterparty returns the customer for a sale and the supplier for a purchase.
func (o *Order) Counterparty() *int64 {
	if o.Kind == OrderKindPurchase {
		return o.SupplierID
	}
	return o.CustomerID
}

func (o *Order) Validate() error {
	switch o.Kind {
	case OrderKindSale:
		if o.CustomerID == nil {
			return NewValidationError("customer_id", "is required for sale orders")
		}
		if o.SupplierID != nil {
			return NewValidationError("supplier_id", "must be empty for sale orders")
		}
	case OrderKindPurchase:
		if o.SupplierID == nil {
			return NewValidationError("supplier_id", "is required for purchase orders")
		}
		if o.CustomerID != nil {
			return NewValidationError("customer_id", "must be empty for purchase orders")
		}
	default:
		return NewValidationError("order_type", "must be SALE or PURCHASE")
	}

	for _, line := range o.Lines {
		if err := line.Validate(); err != nil {
			return err
		}
	}
	return nil
}
