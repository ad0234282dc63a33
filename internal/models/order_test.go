package models

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(v int64) *int64 { return &v }

func TestOrderTotalAmount(t *testing.T) {
	o := &Order{Lines: []OrderLine{
		{ItemID: 1, Quantity: 2, Price: decimal.RequireFromString("9.99")},
		{ItemID: 2, Quantity: 1, Price: decimal.RequireFromString("5.00")},
	}}

	assert.Equal(t, "24.98", o.TotalAmount().StringFixed(2))
	assert.True(t, (&Order{}).TotalAmount().IsZero())
}

func TestOrderEditableAndDeletable(t *testing.T) {
	tests := []struct {
		status    OrderStatus
		editable  bool
		deletable bool
	}{
		{OrderStatusPending, true, true},
		{OrderStatusProcessing, true, true},
		{OrderStatusCompleted, false, false},
		{OrderStatusCancelled, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			o := &Order{Status: tt.status}
			assert.Equal(t, tt.editable, o.IsEditable())
			assert.Equal(t, tt.deletable, o.CanBeDeleted())
		})
	}
}

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		field string
	}{
		{"sale", Order{Kind: OrderKindSale, CustomerID: id(1)}, ""},
		{"purchase", Order{Kind: OrderKindPurchase, SupplierID: id(1)}, ""},
		{"unknown kind", Order{Kind: "RETURN", CustomerID: id(1)}, "order_type"},
		{"sale without customer", Order{Kind: OrderKindSale}, "customer_id"},
		{"sale with supplier", Order{Kind: OrderKindSale, CustomerID: id(1), SupplierID: id(2)}, "supplier_id"},
		{"purchase without supplier", Order{Kind: OrderKindPurchase}, "supplier_id"},
		{"purchase with customer", Order{Kind: OrderKindPurchase, SupplierID: id(1), CustomerID: id(2)}, "customer_id"},
		{"zero quantity line", Order{Kind: OrderKindSale, CustomerID: id(1), Lines: []OrderLine{{ItemID: 1}}}, "quantity"},
		{"missing item", Order{Kind: OrderKindSale, CustomerID: id(1), Lines: []OrderLine{{Quantity: 1}}}, "item_id"},
		{"negative price", Order{Kind: OrderKindSale, CustomerID: id(1), Lines: []OrderLine{
			{ItemID: 1, Quantity: 1, Price: decimal.NewFromInt(-1)},
		}}, "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestOrderCounterparty(t *testing.T) {
	sale := &Order{Kind: OrderKindSale, CustomerID: id(3)}
	purchase := &Order{Kind: OrderKindPurchase, SupplierID: id(4)}

	assert.Equal(t, int64(3), *sale.Counterparty())
	assert.Equal(t, int64(4), *purchase.Counterparty())
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, OrderStatusCompleted.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.False(t, OrderStatusPending.Terminal())
	assert.False(t, OrderStatus("SHIPPED").Valid())
	assert.False(t, OrderKind("sale").Valid())
}

func TestItemValidate(t *testing.T) {
	valid := Item{SKU: "A-1", Name: "Widget", Price: decimal.RequireFromString("0.00")}
	assert.NoError(t, valid.Validate())

	noSKU := valid
	noSKU.SKU = " "
	assert.True(t, IsValidationError(noSKU.Validate()))

	negative := valid
	negative.Quantity = -1
	assert.True(t, IsValidationError(negative.Validate()))
}

func TestErrorWrapping(t *testing.T) {
	stock := &InsufficientStockError{ItemID: 9, Available: 1, Requested: 2}
	wrapped := fmt.Errorf("%w: %w", ErrCannotFulfillOrder, stock)

	assert.ErrorIs(t, wrapped, ErrCannotFulfillOrder)
	assert.True(t, IsInsufficientStock(wrapped))
	assert.EqualError(t, stock, "insufficient stock for item 9: have 1, need 2")

	te := &TransitionError{From: OrderStatusCompleted, To: OrderStatusPending}
	assert.ErrorIs(t, te, ErrIllegalStatusTransition)
	assert.EqualError(t, te, "illegal status transition COMPLETED -> PENDING")

	assert.False(t, IsValidationError(stock))
	assert.EqualError(t, NewValidationError("sku", "must not be blank"), "invalid sku: must not be blank")
}
