package checkout

const (
	TopicOrderCreated   = "checkout.order.created"
	TopicOrderPaid      = "checkout.order.paid"
	TopicOrderFailed    = "checkout.order.payment_failed"
	TopicOrderCancelled = "checkout.order.cancelled"
	TopicOrderShipped   = "checkout.order.shipped"
	TopicOrderDelivered = "checkout.order.delivered"
)

// Partition key = order id so every event for one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
