package enums

import "slices"

// OrderStatus is the order-level status derived from vendor item decisions.
type OrderStatus string

const (
	OrderStatusRequested                OrderStatus = "requested"
	OrderStatusAwaitingCustomerDecision OrderStatus = "awaiting_customer_decision"
	OrderStatusCancelled                OrderStatus = "cancelled"
	// OrderStatusAccepted means a delivery company took the order.
	OrderStatusAccepted OrderStatus = "accepted"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusRequested,
	OrderStatusAwaitingCustomerDecision,
	OrderStatusCancelled,
	OrderStatusAccepted,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	return slices.Contains(validOrderStatuses, o)
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return parseOneOf(validOrderStatuses, value, "order status")
}
