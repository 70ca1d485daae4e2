package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"pending to shipped", OrderStatusPending, OrderStatusShipped, true},
		{"pending to completed", OrderStatusPending, OrderStatusCompleted, true},
		{"pending to cancelled", OrderStatusPending, OrderStatusCancelled, true},
		{"shipped to completed", OrderStatusShipped, OrderStatusCompleted, true},
		{"shipped to cancelled", OrderStatusShipped, OrderStatusCancelled, true},
		{"shipped back to pending", OrderStatusShipped, OrderStatusPending, false},
		{"completed is terminal", OrderStatusCompleted, OrderStatusCancelled, false},
		{"cancelled is terminal", OrderStatusCancelled, OrderStatusPending, false},
		{"no self transition", OrderStatusPending, OrderStatusPending, false},
		{"unknown target", OrderStatusPending, OrderStatus("archived"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.False(t, OrderStatusPending.Terminal())
	assert.False(t, OrderStatusShipped.Terminal())
	assert.True(t, OrderStatusCompleted.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
}

func TestSale_LineTotal(t *testing.T) {
	sale := &Sale{UnitPrice: 80, Quantity: 2}
	assert.Equal(t, 160.0, sale.LineTotal())
}
