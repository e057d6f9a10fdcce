package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ariefcatur/go-shop-checkout.git/internal/checkout"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelopeMessage(t *testing.T, eventType string, payload any) kafkago.Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	env := checkout.Envelope{
		EventID:      "evt_1",
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload:      raw,
	}
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return kafkago.Message{Value: b}
}

func TestHandleOrderEventDecodesEnvelope(t *testing.T) {
	svc := &Service{ServiceName: "test-notifier"}

	m := envelopeMessage(t, checkout.EventOrderPaid, checkout.OrderStatusPayload{
		OrderID: "o1", OrderNumber: "ORD-20260830-0001", UserID: "u1",
		OrderStatus: "PROCESSING", PaymentStatus: "PAID",
	})
	assert.NoError(t, svc.HandleOrderEvent(context.Background(), m))

	// unknown event types from other producers are skipped, not failed
	m = envelopeMessage(t, "InventoryAudited", struct{}{})
	assert.NoError(t, svc.HandleOrderEvent(context.Background(), m))
}

func TestHandleOrderEventRejectsGarbage(t *testing.T) {
	svc := &Service{ServiceName: "test-notifier"}
	err := svc.HandleOrderEvent(context.Background(), kafkago.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
