package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/ariefcatur/go-shop-checkout.git/internal/payments"
	"github.com/google/uuid"
)

// Service is the checkout orchestrator: it turns the caller's cart into an
// immutable order and drives explicit status changes. All multi-step work
// is delegated to OrderStore so it commits or rolls back as one unit.
type Service struct {
	Orders    OrderStore
	Carts     CartStore
	Addresses AddressBook
	Gateway   payments.Gateway
	Producer  Publisher
	Currency  string
	Name      string

	now func() time.Time
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

type CheckoutResult struct {
	Order        *Order `json:"order"`
	ClientSecret string `json:"client_secret,omitempty"`
}

func (s *Service) Initiate(ctx context.Context, userID, addressID string, method PaymentMethod) (*CheckoutResult, error) {
	if !method.Valid() {
		return nil, ErrInvalidMethod
	}

	cart, err := s.Carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	addr, err := s.Addresses.Resolve(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, ErrInvalidAddress
	}

	now := s.clock()
	draft := &Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		AddressID:     addr.ID,
		PaymentMethod: method,
		OrderStatus:   OrderPending,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
	}
	for _, it := range cart.Items {
		draft.Items = append(draft.Items, OrderItem{
			ProductID: it.ProductID, Name: it.Name, UnitCents: it.UnitCents, Qty: it.Qty,
		})
	}
	draft.SubtotalCents = cart.TotalCents()
	draft.TotalCents = draft.SubtotalCents
	appendHistory(draft, string(OrderPending), "order created", now)

	// COD settles outside the gateway: straight to PROCESSING.
	if method == MethodCOD {
		if _, err := TransitionOrder(draft, OrderProcessing, "cash on delivery", now); err != nil {
			return nil, err
		}
	}

	var intent IntentFunc
	if method == MethodCard {
		intent = func(ctx context.Context, o *Order) (string, string, error) {
			in, err := s.Gateway.CreateIntent(ctx, o.TotalCents, s.Currency, map[string]string{
				"order_id":     o.ID,
				"order_number": o.OrderNumber,
			})
			if err != nil {
				return "", "", &GatewayError{Op: "create intent", Transient: payments.Transient(err), Err: err}
			}
			return in.Ref, in.ClientSecret, nil
		}
	}

	clientSecret, err := s.Orders.CreateOrder(ctx, draft, intent)
	if err != nil {
		return nil, err
	}

	s.publish(TopicOrderCreated, EventOrderCreated, draft.ID, OrderCreatedPayload{
		OrderID:       draft.ID,
		OrderNumber:   draft.OrderNumber,
		UserID:        draft.UserID,
		PaymentMethod: string(draft.PaymentMethod),
		Items:         draft.Items,
		TotalCents:    draft.TotalCents,
	})
	return &CheckoutResult{Order: draft, ClientSecret: clientSecret}, nil
}

// Confirm is the explicit customer confirmation used by COD flows. Valid
// from PENDING (moves to PROCESSING) and from PROCESSING (note only).
func (s *Service) Confirm(ctx context.Context, orderID, userID string) (*Order, error) {
	now := s.clock()
	o, _, err := s.mutateOwned(ctx, orderID, userID, func(o *Order) (Effects, error) {
		switch o.OrderStatus {
		case OrderProcessing:
			Note(o, "confirmed by customer", now)
			return Effects{}, nil
		case OrderPending:
			return TransitionOrder(o, OrderProcessing, "confirmed by customer", now)
		default:
			return Effects{}, &InvalidTransitionError{From: string(o.OrderStatus), To: string(OrderProcessing)}
		}
	})
	return o, err
}

// Cancel moves any non-terminal order to CANCELLED, restores stock inside
// the same transaction (once), and requests a refund when the payment had
// already settled. Refund failure is reported but never blocks the cancel.
func (s *Service) Cancel(ctx context.Context, orderID, userID, note string) (*Order, error) {
	now := s.clock()
	if note == "" {
		note = "cancelled by customer"
	}
	var fx Effects
	o, _, err := s.mutateOwned(ctx, orderID, userID, func(o *Order) (Effects, error) {
		var err error
		fx, err = Cancel(o, note, now)
		return fx, err
	})
	if err != nil {
		return nil, err
	}

	if fx.RequestRefund && o.PaymentRef != "" {
		if _, err := s.Gateway.Refund(ctx, o.PaymentRef, "order cancelled"); err != nil {
			log.Printf("refund request failed order=%s ref=%s: %v", o.ID, o.PaymentRef, err)
		} else if ro, _, err := s.Orders.UpdateOrder(ctx, o.ID, "", func(o *Order) (Effects, error) {
			return Effects{}, TransitionPayment(o, PaymentRefunded, "refund issued", s.clock())
		}); err == nil {
			o = ro
		}
	}
	s.publishStatus(TopicOrderCancelled, EventOrderCancelled, o, note)
	return o, nil
}

// MarkShipped and MarkDelivered are the fulfillment-side transitions.

func (s *Service) MarkShipped(ctx context.Context, orderID, note string) (*Order, error) {
	now := s.clock()
	o, _, err := s.Orders.UpdateOrder(ctx, orderID, "", func(o *Order) (Effects, error) {
		return TransitionOrder(o, OrderShipped, note, now)
	})
	if err != nil {
		return nil, err
	}
	s.publishStatus(TopicOrderShipped, EventOrderShipped, o, note)
	return o, nil
}

func (s *Service) MarkDelivered(ctx context.Context, orderID, note string) (*Order, error) {
	now := s.clock()
	o, _, err := s.Orders.UpdateOrder(ctx, orderID, "", func(o *Order) (Effects, error) {
		return TransitionOrder(o, OrderDelivered, note, now)
	})
	if err != nil {
		return nil, err
	}
	s.publishStatus(TopicOrderDelivered, EventOrderDelivered, o, note)
	return o, nil
}

func (s *Service) Get(ctx context.Context, orderID, userID string) (*Order, error) {
	o, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotOwner
	}
	return o, nil
}

func (s *Service) mutateOwned(ctx context.Context, orderID, userID string, mutate MutateFunc) (*Order, bool, error) {
	return s.Orders.UpdateOrder(ctx, orderID, "", func(o *Order) (Effects, error) {
		if o.UserID != userID {
			return Effects{}, ErrNotOwner
		}
		return mutate(o)
	})
}

func (s *Service) publishStatus(topic, eventType string, o *Order, note string) {
	s.publish(topic, eventType, o.ID, OrderStatusPayload{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		OrderStatus:   string(o.OrderStatus),
		PaymentStatus: string(o.PaymentStatus),
		Note:          note,
	})
}

func (s *Service) publish(topic, eventType, orderID string, payload any) {
	publishEvent(s.Producer, s.Name, topic, eventType, orderID, payload)
}

func publishEvent(pub Publisher, producer, topic, eventType, orderID string, payload any) {
	if pub == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("publish %s order=%s: %v", eventType, orderID, err)
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: orderID,
		Payload:       body,
	}
	out, err := json.Marshal(env)
	if err != nil {
		log.Printf("publish %s order=%s: %v", eventType, orderID, err)
		return
	}
	pub.Publish(topic, PartitionKey(orderID), out)
}

// IsConflict reports whether err should surface as an HTTP 409.
func IsConflict(err error) bool {
	var it *InvalidTransitionError
	return errors.As(err, &it)
}
