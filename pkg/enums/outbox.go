package enums

import "slices"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder           OutboxAggregateType = "order"
	AggregateDeliveryRequest OutboxAggregateType = "delivery_request"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateDeliveryRequest,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseOneOf(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType names a domain event written to outbox_events.
type OutboxEventType string

const (
	EventOrderCreated           OutboxEventType = "order_created"
	EventOrderItemDecided       OutboxEventType = "order_item_decided"
	EventOrderStatusChanged     OutboxEventType = "order_status_changed"
	EventOrderCustomerDecided   OutboxEventType = "order_customer_decided"
	EventOrderDeliveryAccepted  OutboxEventType = "order_delivery_accepted"
	EventLoyaltyPointsProcessed OutboxEventType = "loyalty_points_processed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderItemDecided,
	EventOrderStatusChanged,
	EventOrderCustomerDecided,
	EventOrderDeliveryAccepted,
	EventLoyaltyPointsProcessed,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseOneOf(validOutboxEventTypes, value, "event type")
}
