package checkout

import "context"

// IntentFunc creates the gateway payment intent for a draft order. The pgx
// store calls it as the last step before commit, so an intent failure rolls
// the whole checkout back.
type IntentFunc func(ctx context.Context, o *Order) (ref, clientSecret string, err error)

// MutateFunc applies a state change to a loaded order. It must be pure:
// the store persists whatever it changed and executes the returned effects
// inside the same transaction.
type MutateFunc func(o *Order) (Effects, error)

type OrderStore interface {
	// CreateOrder executes the checkout unit atomically: reserve stock for
	// every item, assign the per-day order number, persist order + items +
	// history, clear the cart, and (when intent is non-nil) create the
	// payment intent last. Any failure leaves nothing applied.
	CreateOrder(ctx context.Context, draft *Order, intent IntentFunc) (clientSecret string, err error)

	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetOrderByRef(ctx context.Context, paymentRef string) (*Order, error)

	// UpdateOrder locks the order, runs mutate, persists the status fields
	// and new history entries, and restores stock when the effects demand
	// it. A non-empty eventID is recorded in the dedup ledger inside the
	// same transaction; if it was recorded before, mutate is skipped and
	// applied is false.
	UpdateOrder(ctx context.Context, orderID, eventID string, mutate MutateFunc) (o *Order, applied bool, err error)
	UpdateOrderByRef(ctx context.Context, paymentRef, eventID string, mutate MutateFunc) (o *Order, applied bool, err error)
}

type CartStore interface {
	Get(ctx context.Context, userID string) (*Cart, error)
}

type AddressBook interface {
	// Resolve returns the address only if it belongs to userID.
	Resolve(ctx context.Context, userID, addressID string) (*Address, error)
}

// Publisher decouples the service from the Kafka producer so tests can
// capture events.
type Publisher interface {
	Publish(topic string, key, value []byte)
}
