package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{name: "pending to processing", from: StatusPending, to: StatusProcessing, allowed: true},
		{name: "pending to cancelled", from: StatusPending, to: StatusCancelled, allowed: true},
		{name: "pending to shipped skips processing", from: StatusPending, to: StatusShipped, allowed: false},
		{name: "processing to shipped", from: StatusProcessing, to: StatusShipped, allowed: true},
		{name: "processing to cancelled", from: StatusProcessing, to: StatusCancelled, allowed: true},
		{name: "shipped to delivered", from: StatusShipped, to: StatusDelivered, allowed: true},
		{name: "shipped to cancelled", from: StatusShipped, to: StatusCancelled, allowed: false},
		{name: "delivered is terminal", from: StatusDelivered, to: StatusPending, allowed: false},
		{name: "cancelled is terminal", from: StatusCancelled, to: StatusProcessing, allowed: false},
		{name: "no self transition", from: StatusPending, to: StatusPending, allowed: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, StatusShipped.Terminal())
}

func TestOrderStatus_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusShipped.Valid())
	assert.False(t, OrderStatus("refunded").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestCart_DerivedTotals(t *testing.T) {
	t.Parallel()

	cart := &Cart{
		OwnerID: "u1",
		Items: []CartLineItem{
			{ProductID: "p1", UnitPrice: 100, Quantity: 2},
			{ProductID: "p2", UnitPrice: 350, Quantity: 1, Color: "red"},
		},
	}

	assert.Equal(t, 3, cart.TotalItemCount())
	assert.Equal(t, int64(550), cart.Subtotal())

	cart.Items = nil
	assert.Equal(t, 0, cart.TotalItemCount())
	assert.Equal(t, int64(0), cart.Subtotal())
}
