package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleViewer  Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff, RoleViewer:
		return true
	}
	return false
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// Party is the shared shape of customers and suppliers.
type Party struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Party) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "must not be blank")
	}
	if !strings.Contains(p.Email, "@") {
		return NewValidationError("email", "must be a valid email address")
	}
	return nil
}

type Customer struct {
	Party
}

type Supplier struct {
	Party
}

type Item struct {
	ID          int64           `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	SupplierID  *int64          `json:"supplier_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

func (i *Item) Validate() error {
	if strings.TrimSpace(i.SKU) == "" {
		return NewValidationError("sku", "must not be blank")
	}
	if strings.TrimSpace(i.Name) == "" {
		return NewValidationError("name", "must not be blank")
	}
	if i.Price.IsNegative() {
		return NewValidationError("price", "cannot be negative")
	}
	if i.Quantity < 0 {
		return NewValidationError("quantity", "cannot be negative")
	}
	return nil
}

// StockMovement is one immutable ledger entry.
type StockMovement struct {
	ID             int64     `json:"id"`
	ItemID         int64     `json:"item_id"`
	OrderID        *int64    `json:"order_id,omitempty"`
	Delta          int       `json:"delta"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after"`
	Reason         string    `json:"reason"`
	ActorID        *int64    `json:"actor_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	ReasonInitialStock   = "initial stock"
	ReasonOrderFulfilled = "order fulfilled"
	ReasonOrderReceived  = "order received"
)
