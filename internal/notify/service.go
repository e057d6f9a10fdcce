package notify

import (
	"context"
	"log"

	"github.com/ariefcatur/go-shop-checkout.git/internal/checkout"
	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Service turns order lifecycle events into customer notifications. It is
// a plain consumer-group worker: dedup via Redis, then emit.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleOrderEvent is installed as the consumer handler for every
// checkout.* topic.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env checkout.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}

	if s.Redis != nil {
		key := redisx.NotifyDedupKey(env.EventID)
		exists, _ := redisx.Exists(ctx, s.Redis, key)
		if exists {
			return nil
		}
		_ = s.Redis.Set(ctx, key, "1", redisx.TTLDedup).Err()
	}

	switch env.EventType {
	case checkout.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[checkout.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		log.Printf("notify user=%s: order %s received, %d item(s), total %d cents",
			p.UserID, p.OrderNumber, len(p.Items), p.TotalCents)

	case checkout.EventOrderPaid, checkout.EventOrderCancelled, checkout.EventOrderShipped,
		checkout.EventOrderDelivered, checkout.EventPaymentFailed:
		p, err := kafkax.UnwrapPayload[checkout.OrderStatusPayload](env.Payload)
		if err != nil {
			return err
		}
		log.Printf("notify user=%s: order %s is now %s (payment %s): %s",
			p.UserID, p.OrderNumber, p.OrderStatus, p.PaymentStatus, p.Note)

	default:
		// other producers may share these topics later; skip quietly
	}
	return nil
}
