package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/go-shop-checkout.git/internal/payments"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// WebhookProcessor consumes signed gateway callbacks and drives the order
// state machine. Delivery is at-least-once: every mutation goes through
// OrderStore.UpdateOrderByRef with the external event id, so the dedup
// ledger row and the state change commit together.
type WebhookProcessor struct {
	Orders   OrderStore
	Gateway  payments.Gateway
	Redis    *redis.Client // optional fast-path dedup; DB row is the truth
	Producer Publisher
	Name     string

	now func() time.Time
}

func (p *WebhookProcessor) clock() time.Time {
	if p.now != nil {
		return p.now().UTC()
	}
	return time.Now().UTC()
}

// Handle verifies and applies one raw webhook delivery. The returned type
// is the gateway event kind (empty if the signature failed).
// payments.ErrBadSignature means reject with 400; any other error means the
// mutation did not commit and the gateway should redeliver.
func (p *WebhookProcessor) Handle(ctx context.Context, payload []byte, sigHeader string) (string, error) {
	ev, err := p.Gateway.VerifyWebhook(payload, sigHeader)
	if err != nil {
		return "", err
	}

	if p.seenRecently(ctx, ev.ID) {
		return ev.Type, nil
	}

	o, err := p.dispatch(ctx, ev)
	if err != nil {
		return ev.Type, err
	}

	p.markSeen(ctx, ev.ID)
	if o != nil && p.Redis != nil {
		_ = p.Redis.Del(ctx, redisx.OrderStatusKey(o.ID)).Err()
	}
	return ev.Type, nil
}

func (p *WebhookProcessor) dispatch(ctx context.Context, ev payments.Event) (*Order, error) {
	now := p.clock()

	switch ev.Type {
	case payments.EventPaymentSucceeded:
		var changed bool
		o, applied, err := p.Orders.UpdateOrderByRef(ctx, ev.PaymentRef, ev.ID, func(o *Order) (Effects, error) {
			var err error
			changed, err = MarkPaid(o, "payment confirmed by gateway", now)
			return Effects{}, err
		})
		if err != nil {
			return nil, p.swallowStale(ev, err)
		}
		if applied && changed {
			p.publishStatus(TopicOrderPaid, EventOrderPaid, o, "payment settled")
		}
		return o, nil

	case payments.EventPaymentFailed:
		// Payment failed but the order stays put: the customer may retry or
		// cancel; nothing is decided for them here.
		note := "payment failed"
		if ev.Reason != "" {
			note = fmt.Sprintf("payment failed: %s", ev.Reason)
		}
		o, applied, err := p.Orders.UpdateOrderByRef(ctx, ev.PaymentRef, ev.ID, func(o *Order) (Effects, error) {
			if o.PaymentStatus == PaymentFailed {
				return Effects{}, nil
			}
			return Effects{}, TransitionPayment(o, PaymentFailed, note, now)
		})
		if err != nil {
			return nil, p.swallowStale(ev, err)
		}
		if applied {
			p.publishStatus(TopicOrderFailed, EventPaymentFailed, o, note)
		}
		return o, nil

	case payments.EventPaymentRequiresAction:
		o, _, err := p.Orders.UpdateOrderByRef(ctx, ev.PaymentRef, ev.ID, func(o *Order) (Effects, error) {
			Note(o, "payment requires customer action", now)
			return Effects{}, nil
		})
		if err != nil {
			return nil, p.swallowStale(ev, err)
		}
		return o, nil

	case payments.EventPaymentCanceled:
		o, applied, err := p.Orders.UpdateOrderByRef(ctx, ev.PaymentRef, ev.ID, func(o *Order) (Effects, error) {
			if o.OrderStatus == OrderCancelled {
				return Effects{}, nil
			}
			return Cancel(o, "payment cancelled at gateway", now)
		})
		if err != nil {
			return nil, p.swallowStale(ev, err)
		}
		if applied {
			p.publishStatus(TopicOrderCancelled, EventOrderCancelled, o, "payment cancelled at gateway")
		}
		return o, nil

	default:
		// Unknown kinds are acked and ignored so new gateway event types
		// never cause redelivery storms.
		log.Printf("webhook: ignoring event type %s id=%s", ev.Type, ev.ID)
		return nil, nil
	}
}

// swallowStale acks events that can no longer apply: a reference matching
// no order, or a transition the order has already moved past (a late
// payment.failed after a retry succeeded, a cancel on a delivered order).
// Rejecting them would only make the gateway redeliver forever.
func (p *WebhookProcessor) swallowStale(ev payments.Event, err error) error {
	var invalid *InvalidTransitionError
	switch {
	case errors.Is(err, ErrOrderNotFound):
		log.Printf("webhook: no order for ref=%s event=%s, acking", ev.PaymentRef, ev.ID)
		return nil
	case errors.As(err, &invalid):
		log.Printf("webhook: stale event %s id=%s (%v), acking", ev.Type, ev.ID, err)
		return nil
	}
	return err
}

func (p *WebhookProcessor) seenRecently(ctx context.Context, eventID string) bool {
	if p.Redis == nil {
		return false
	}
	ok, err := redisx.Exists(ctx, p.Redis, redisx.WebhookDedupKey(eventID))
	return err == nil && ok
}

func (p *WebhookProcessor) markSeen(ctx context.Context, eventID string) {
	if p.Redis == nil {
		return
	}
	_ = p.Redis.Set(ctx, redisx.WebhookDedupKey(eventID), "1", redisx.TTLDedup).Err()
}

func (p *WebhookProcessor) publishStatus(topic, eventType string, o *Order, note string) {
	publishEvent(p.Producer, p.Name, topic, eventType, o.ID, OrderStatusPayload{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		OrderStatus:   string(o.OrderStatus),
		PaymentStatus: string(o.PaymentStatus),
		Note:          note,
	})
}
