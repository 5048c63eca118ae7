package orders

const (
	TopicOrderCreated       = "order.created"
	TopicOrderInvoiceFailed = "order.invoice.failed"
)

// PartitionKey keeps every event of one order on one partition, in order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
