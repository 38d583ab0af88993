package enums

import "slices"

// VendorItemStatus is the per-line decision made by the owning vendor.
type VendorItemStatus string

const (
	VendorItemStatusPending  VendorItemStatus = "pending"
	VendorItemStatusAccepted VendorItemStatus = "accepted"
	VendorItemStatusRejected VendorItemStatus = "rejected"
)

var validVendorItemStatuses = []VendorItemStatus{
	VendorItemStatusPending,
	VendorItemStatusAccepted,
	VendorItemStatusRejected,
}

// String implements fmt.Stringer.
func (v VendorItemStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VendorItemStatus.
func (v VendorItemStatus) IsValid() bool {
	return slices.Contains(validVendorItemStatuses, v)
}

// ParseVendorItemStatus converts raw input into a VendorItemStatus.
func ParseVendorItemStatus(value string) (VendorItemStatus, error) {
	return parseOneOf(validVendorItemStatuses, value, "vendor item status")
}

// ItemAction is the verb a vendor sends for a single order item.
type ItemAction string

const (
	ItemActionAccept ItemAction = "accept"
	ItemActionReject ItemAction = "reject"
)

// ParseItemAction converts raw input into an ItemAction.
func ParseItemAction(value string) (ItemAction, error) {
	return parseOneOf([]ItemAction{ItemActionAccept, ItemActionReject}, value, "item action")
}

// TargetStatus maps the action onto the item status it produces.
func (a ItemAction) TargetStatus() VendorItemStatus {
	if a == ItemActionAccept {
		return VendorItemStatusAccepted
	}
	return VendorItemStatusRejected
}
