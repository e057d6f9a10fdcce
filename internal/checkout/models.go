package checkout

import "time"

type PaymentMethod string

const (
	MethodCOD  PaymentMethod = "COD"
	MethodCard PaymentMethod = "CARD"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCOD || m == MethodCard
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitCents int    `json:"unit_cents"`
	Qty       int    `json:"qty"`
}

func (it CartItem) SubtotalCents() int { return it.UnitCents * it.Qty }

type Cart struct {
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}

func (c *Cart) TotalCents() int {
	total := 0
	for _, it := range c.Items {
		total += it.SubtotalCents()
	}
	return total
}

// OrderItem is a snapshot of a cart line at checkout time. Later catalog
// changes never touch it.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitCents int    `json:"unit_cents"`
	Qty       int    `json:"qty"`
}

func (it OrderItem) SubtotalCents() int { return it.UnitCents * it.Qty }

type StatusEntry struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Order struct {
	ID            string        `json:"id"`
	OrderNumber   string        `json:"order_number"`
	UserID        string        `json:"user_id"`
	AddressID     string        `json:"address_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Items         []OrderItem   `json:"items"`
	SubtotalCents int           `json:"subtotal_cents"`
	TotalCents    int           `json:"total_cents"`
	OrderStatus   OrderStatus   `json:"order_status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentRef    string        `json:"payment_ref,omitempty"`
	StockRestored bool          `json:"-"`
	History       []StatusEntry `json:"history,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type Address struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Line1   string `json:"line1"`
	City    string `json:"city"`
	Country string `json:"country"`
	Primary bool   `json:"primary"`
}
