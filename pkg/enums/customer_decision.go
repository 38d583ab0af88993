package enums

import "slices"

// CustomerDecision resolves an order whose vendors disagreed.
type CustomerDecision string

const (
	CustomerDecisionCancelOrder            CustomerDecision = "cancel_order"
	CustomerDecisionProceedWithoutRejected CustomerDecision = "proceed_without_rejected"
)

var validCustomerDecisions = []CustomerDecision{
	CustomerDecisionCancelOrder,
	CustomerDecisionProceedWithoutRejected,
}

// String implements fmt.Stringer.
func (c CustomerDecision) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CustomerDecision.
func (c CustomerDecision) IsValid() bool {
	return slices.Contains(validCustomerDecisions, c)
}

// ParseCustomerDecision converts raw input into a CustomerDecision.
func ParseCustomerDecision(value string) (CustomerDecision, error) {
	return parseOneOf(validCustomerDecisions, value, "customer decision")
}
