package enums

import "slices"

// PaymentStatus tracks whether an order has been paid for.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	return slices.Contains(validPaymentStatuses, p)
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parseOneOf(validPaymentStatuses, value, "payment status")
}

// PaymentStatusFor returns the initial payment status for a checkout.
func PaymentStatusFor(method PaymentMethod) PaymentStatus {
	if method.CollectsOnDelivery() {
		return PaymentStatusPending
	}
	return PaymentStatusPaid
}
