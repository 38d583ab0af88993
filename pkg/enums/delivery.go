package enums

import "slices"

// DeliveryRequestStatus tracks one company's candidacy for an order.
type DeliveryRequestStatus string

const (
	DeliveryRequestStatusPending  DeliveryRequestStatus = "pending"
	DeliveryRequestStatusAccepted DeliveryRequestStatus = "accepted"
	DeliveryRequestStatusRejected DeliveryRequestStatus = "rejected"
)

var validDeliveryRequestStatuses = []DeliveryRequestStatus{
	DeliveryRequestStatusPending,
	DeliveryRequestStatusAccepted,
	DeliveryRequestStatusRejected,
}

// String implements fmt.Stringer.
func (d DeliveryRequestStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryRequestStatus.
func (d DeliveryRequestStatus) IsValid() bool {
	return slices.Contains(validDeliveryRequestStatuses, d)
}

// ParseDeliveryRequestStatus converts raw input into a DeliveryRequestStatus.
func ParseDeliveryRequestStatus(value string) (DeliveryRequestStatus, error) {
	return parseOneOf(validDeliveryRequestStatuses, value, "delivery request status")
}

// DeliveryCompanyStatus is the admin approval state of a delivery company.
type DeliveryCompanyStatus string

const (
	DeliveryCompanyStatusPending   DeliveryCompanyStatus = "pending"
	DeliveryCompanyStatusApproved  DeliveryCompanyStatus = "approved"
	DeliveryCompanyStatusSuspended DeliveryCompanyStatus = "suspended"
)

// String implements fmt.Stringer.
func (d DeliveryCompanyStatus) String() string {
	return string(d)
}
