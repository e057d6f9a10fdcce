package checkout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrInvalidAddress = errors.New("shipping address not found")
	ErrInvalidMethod  = errors.New("invalid payment method")
	ErrOrderNotFound  = errors.New("order not found")
	ErrNotOwner       = errors.New("order belongs to another user")
)

type StockShortage struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

// InsufficientStockError is a normal checkout outcome, not a fault. It
// carries every offending line so the caller can report them all at once.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s need %d have %d", s.ProductID, s.Required, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

type InvalidTransitionError struct {
	From, To string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// GatewayError wraps a failed call to the payment provider. Network-level
// failures are transient: they prove nothing about the payment itself.
type GatewayError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
