package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderPending, OrderProcessing},
		{OrderPending, OrderCancelled},
		{OrderProcessing, OrderShipped},
		{OrderProcessing, OrderCancelled},
		{OrderShipped, OrderDelivered},
		{OrderShipped, OrderCancelled},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransitionOrder(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to OrderStatus }{
		{OrderPending, OrderShipped},
		{OrderPending, OrderDelivered},
		{OrderProcessing, OrderPending},
		{OrderShipped, OrderProcessing},
		{OrderDelivered, OrderCancelled},
		{OrderCancelled, OrderPending},
	}
	for _, tc := range denied {
		assert.False(t, CanTransitionOrder(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

// Terminal states have no exits at all.
func TestTerminalStatesAreClosed(t *testing.T) {
	all := []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}
	for _, terminal := range []OrderStatus{OrderDelivered, OrderCancelled} {
		assert.True(t, terminal.Terminal())
		for _, to := range all {
			assert.False(t, CanTransitionOrder(terminal, to), "%s must not leave terminal state", to)
		}
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentPaid))
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentFailed))
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentCancelled))
	assert.True(t, CanTransitionPayment(PaymentPaid, PaymentRefunded))

	assert.False(t, CanTransitionPayment(PaymentPaid, PaymentPending))
	assert.False(t, CanTransitionPayment(PaymentFailed, PaymentPaid))
	assert.False(t, CanTransitionPayment(PaymentRefunded, PaymentPaid))
	assert.False(t, CanTransitionPayment(PaymentCancelled, PaymentPaid))
}
