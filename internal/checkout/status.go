package checkout

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

var validNextOrder = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:    {OrderProcessing: true, OrderCancelled: true},
	OrderProcessing: {OrderShipped: true, OrderCancelled: true},
	OrderShipped:    {OrderDelivered: true, OrderCancelled: true},
	OrderDelivered:  {},
	OrderCancelled:  {},
}

var validNextPayment = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:   {PaymentPaid: true, PaymentFailed: true, PaymentCancelled: true},
	PaymentPaid:      {PaymentRefunded: true},
	PaymentFailed:    {},
	PaymentCancelled: {},
	PaymentRefunded:  {},
}

func CanTransitionOrder(from, to OrderStatus) bool {
	return validNextOrder[from][to]
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return validNextPayment[from][to]
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

func (s OrderStatus) Valid() bool {
	_, ok := validNextOrder[s]
	return ok
}

func (s PaymentStatus) Valid() bool {
	_, ok := validNextPayment[s]
	return ok
}
