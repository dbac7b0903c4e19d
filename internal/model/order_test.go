package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_IsTerminal(t *testing.T) {
	terminal := []OrderStatus{OrderStatusCancelled, OrderStatusDelivered, OrderStatusRefunded}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}

	live := []OrderStatus{
		OrderStatusPending, OrderStatusPaid, OrderStatusPaymentFailed,
		OrderStatusProcessing, OrderStatusPreparing, OrderStatusShipped, OrderStatusInTransit,
	}
	for _, s := range live {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
}

func TestOrderStatus_InFulfillment(t *testing.T) {
	assert.True(t, OrderStatusPreparing.InFulfillment())
	assert.True(t, OrderStatusShipped.InFulfillment())
	assert.True(t, OrderStatusInTransit.InFulfillment())

	assert.False(t, OrderStatusPending.InFulfillment())
	assert.False(t, OrderStatusPaid.InFulfillment())
	assert.False(t, OrderStatusDelivered.InFulfillment())
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusPaymentFailed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusPaid, OrderStatusCancelled, true},
		{OrderStatusPreparing, OrderStatusShipped, true},
		{OrderStatusPreparing, OrderStatusCancelled, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusRefunded, OrderStatusPaid, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPaymentMethod_CreditBased(t *testing.T) {
	assert.True(t, PaymentMethodCreditCard.CreditBased())
	assert.True(t, PaymentMethodBoleto.CreditBased())
	assert.False(t, PaymentMethodPix.CreditBased())
	assert.False(t, PaymentMethodDebitCard.CreditBased())
}

func TestValidPaymentMethod(t *testing.T) {
	for _, m := range AllowedPaymentMethods {
		assert.True(t, ValidPaymentMethod(m))
	}
	assert.False(t, ValidPaymentMethod("CHEQUE"))
	assert.False(t, ValidPaymentMethod(""))
}

func TestMaskDocument(t *testing.T) {
	assert.Equal(t, "123*****901", MaskDocument("12345678901"))
	assert.Equal(t, "******", MaskDocument("123456"))
	assert.Equal(t, "", MaskDocument(""))
}
