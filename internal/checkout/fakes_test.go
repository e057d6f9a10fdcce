package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/ariefcatur/go-shop-checkout.git/internal/payments"
)

// memStore is an in-memory OrderStore + CartStore + AddressBook with the
// same transactional semantics as the pgx repo: a failed step leaves
// nothing applied, the dedup map wins races, stock never goes negative.
type memStore struct {
	mu     sync.Mutex
	stock  map[string]int
	orders map[string]*Order
	byRef  map[string]string
	events map[string]bool
	carts  map[string][]CartItem
	addrs  map[string]Address
	seq    int
}

func newMemStore() *memStore {
	return &memStore{
		stock:  map[string]int{},
		orders: map[string]*Order{},
		byRef:  map[string]string{},
		events: map[string]bool{},
		carts:  map[string][]CartItem{},
		addrs:  map[string]Address{},
	}
}

func cloneOrder(o *Order) *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	c.History = append([]StatusEntry(nil), o.History...)
	return &c
}

func (m *memStore) Get(_ context.Context, userID string) (*Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &Cart{UserID: userID, Items: append([]CartItem(nil), m.carts[userID]...)}, nil
}

func (m *memStore) Resolve(_ context.Context, userID, addressID string) (*Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.addrs[addressID]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	return &a, nil
}

func (m *memStore) CreateOrder(ctx context.Context, draft *Order, intent IntentFunc) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var shortages []StockShortage
	for _, it := range draft.Items {
		if m.stock[it.ProductID] < it.Qty {
			shortages = append(shortages, StockShortage{
				ProductID: it.ProductID, Required: it.Qty, Available: m.stock[it.ProductID],
			})
		}
	}
	if len(shortages) > 0 {
		return "", &InsufficientStockError{Shortages: shortages}
	}

	m.seq++
	draft.OrderNumber = FormatOrderNumber(DayKey(draft.CreatedAt), m.seq)

	var secret string
	if intent != nil {
		ref, s, err := intent(ctx, draft)
		if err != nil {
			return "", err // nothing applied
		}
		draft.PaymentRef = ref
		secret = s
	}

	for _, it := range draft.Items {
		m.stock[it.ProductID] -= it.Qty
	}
	m.orders[draft.ID] = cloneOrder(draft)
	if draft.PaymentRef != "" {
		m.byRef[draft.PaymentRef] = draft.ID
	}
	m.carts[draft.UserID] = nil
	return secret, nil
}

func (m *memStore) GetOrder(_ context.Context, orderID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *memStore) GetOrderByRef(_ context.Context, ref string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byRef[ref]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(m.orders[id]), nil
}

func (m *memStore) UpdateOrder(ctx context.Context, orderID, eventID string, mutate MutateFunc) (*Order, bool, error) {
	return m.update(orderID, eventID, mutate)
}

func (m *memStore) UpdateOrderByRef(ctx context.Context, ref, eventID string, mutate MutateFunc) (*Order, bool, error) {
	m.mu.Lock()
	id, ok := m.byRef[ref]
	m.mu.Unlock()
	if !ok {
		return nil, false, ErrOrderNotFound
	}
	return m.update(id, eventID, mutate)
}

func (m *memStore) update(orderID, eventID string, mutate MutateFunc) (*Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[orderID]
	if !ok {
		return nil, false, ErrOrderNotFound
	}
	if eventID != "" {
		if m.events[eventID] {
			return cloneOrder(stored), false, nil
		}
	}

	o := cloneOrder(stored)
	fx, err := mutate(o)
	if err != nil {
		return nil, false, err
	}
	if fx.RestoreStock {
		for _, it := range o.Items {
			m.stock[it.ProductID] += it.Qty
		}
	}
	if eventID != "" {
		m.events[eventID] = true
	}
	m.orders[orderID] = cloneOrder(o)
	return o, true, nil
}

// fakeGateway satisfies payments.Gateway without any network.
type fakeGateway struct {
	mu         sync.Mutex
	n          int
	createErr  error
	refundErr  error
	refunds    []string
	nextEvent  payments.Event
	goodHeader string
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount int, currency string, md map[string]string) (payments.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return payments.Intent{}, g.createErr
	}
	g.n++
	ref := fmt.Sprintf("pi_%03d", g.n)
	return payments.Intent{
		Ref:          ref,
		ClientSecret: ref + "_secret",
		AmountCents:  amount,
		Currency:     currency,
		Status:       payments.IntentProcessing,
	}, nil
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, ref string) (payments.Intent, error) {
	return payments.Intent{Ref: ref, Status: payments.IntentProcessing}, nil
}

func (g *fakeGateway) Refund(_ context.Context, ref, reason string) (payments.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return payments.RefundResult{}, g.refundErr
	}
	g.refunds = append(g.refunds, ref)
	return payments.RefundResult{ID: "re_" + ref, Status: "succeeded"}, nil
}

func (g *fakeGateway) VerifyWebhook(payload []byte, sigHeader string) (payments.Event, error) {
	if sigHeader != g.goodHeader {
		return payments.Event{}, payments.ErrBadSignature
	}
	return g.nextEvent, nil
}

func (g *fakeGateway) PublicKey() string { return "pk_test" }

type capturedEvent struct {
	Topic string
	Key   string
	Value []byte
}

type memPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *memPublisher) Publish(topic string, key, value []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Topic: topic, Key: string(key), Value: value})
}

func (p *memPublisher) byTopic(topic string) []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []capturedEvent
	for _, e := range p.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}
