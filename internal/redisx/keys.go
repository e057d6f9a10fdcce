package redisx

import (
	"fmt"
	"time"
)

// Key builders. Redis is always a fast path here; Postgres stays the
// source of truth.

// Idempotency-Key fast path for POST /checkout: key -> order_id.
func CheckoutIdemKey(key string) string {
	return fmt.Sprintf("idem:checkout:%s", key)
}

// Status cache for GET /checkout/{id}/status.
func OrderStatusKey(orderID string) string {
	return fmt.Sprintf("order_status:%s", orderID)
}

// Webhook dedup fast path: external event id already applied.
func WebhookDedupKey(eventID string) string {
	return fmt.Sprintf("dedup:webhook:%s", eventID)
}

// Notifier consumer dedup: event id already notified.
func NotifyDedupKey(eventID string) string {
	return fmt.Sprintf("dedup:notify:%s", eventID)
}

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
