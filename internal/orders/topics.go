package orders

const (
	TopicOrderEvents   = "order.events"
	TopicStockRejected = "order.stock.rejected"
)

// TopicFor routes an event type to its topic.
func TopicFor(eventType string) string {
	if eventType == EventStockRejected {
		return TopicStockRejected
	}
	return TopicOrderEvents
}

// Partition key = order_id so every event of one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
