package checkout

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderPaid      = "OrderPaid"
	EventPaymentFailed  = "PaymentFailed"
	EventOrderCancelled = "OrderCancelled"
	EventOrderShipped   = "OrderShipped"
	EventOrderDelivered = "OrderDelivered"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID       string      `json:"order_id"`
	OrderNumber   string      `json:"order_number"`
	UserID        string      `json:"user_id"`
	PaymentMethod string      `json:"payment_method"`
	Items         []OrderItem `json:"items"`
	TotalCents    int         `json:"total_cents"`
}

type OrderStatusPayload struct {
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	UserID        string `json:"user_id"`
	OrderStatus   string `json:"order_status"`
	PaymentStatus string `json:"payment_status"`
	Note          string `json:"note,omitempty"`
}
