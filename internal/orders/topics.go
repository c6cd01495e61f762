package orders

import "strconv"

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
	TopicOrderAmended       = "order.amended"
	TopicOrderDeleted       = "order.deleted"
	TopicStockLow           = "product.stock.low"
)

// Partition key = order id, so every event of one order stays ordered.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }
