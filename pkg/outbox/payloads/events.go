package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when checkout commits an order.
type OrderCreatedEvent struct {
	OrderID            uuid.UUID           `json:"order_id" validate:"required"`
	CustomerID         uuid.UUID           `json:"customer_id" validate:"required"`
	VendorIDs          []uuid.UUID         `json:"vendor_ids"`
	CandidateCompanies []uuid.UUID         `json:"candidate_company_ids"`
	FinalAmount        string              `json:"final_amount"`
	DeliveryFee        string              `json:"delivery_fee"`
	TotalWithShipping  string              `json:"total_with_shipping"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
}

// OrderItemDecidedEvent is emitted for every vendor accept or reject.
type OrderItemDecidedEvent struct {
	OrderID  uuid.UUID              `json:"order_id" validate:"required"`
	ItemID   uuid.UUID              `json:"item_id" validate:"required"`
	VendorID uuid.UUID              `json:"vendor_id" validate:"required"`
	Status   enums.VendorItemStatus `json:"status" validate:"required"`
	Reason   *string                `json:"reason,omitempty"`
}

// OrderStatusChangedEvent is emitted when the derived order status moves.
type OrderStatusChangedEvent struct {
	OrderID                uuid.UUID         `json:"order_id" validate:"required"`
	CustomerID             uuid.UUID         `json:"customer_id"`
	From                   enums.OrderStatus `json:"from"`
	To                     enums.OrderStatus `json:"to" validate:"required"`
	CustomerActionRequired bool              `json:"customer_action_required"`
}

// OrderCustomerDecidedEvent records the customer's answer to a split decision.
type OrderCustomerDecidedEvent struct {
	OrderID    uuid.UUID              `json:"order_id" validate:"required"`
	CustomerID uuid.UUID              `json:"customer_id"`
	Decision   enums.CustomerDecision `json:"decision" validate:"required"`
	Status     enums.OrderStatus      `json:"status"`
}

// OrderDeliveryAcceptedEvent is emitted when a delivery company takes an order.
type OrderDeliveryAcceptedEvent struct {
	OrderID    uuid.UUID `json:"order_id" validate:"required"`
	CompanyID  uuid.UUID `json:"company_id" validate:"required"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// LoyaltyPointsProcessedEvent is emitted once per order by the loyalty ledger.
type LoyaltyPointsProcessedEvent struct {
	OrderID        uuid.UUID `json:"order_id" validate:"required"`
	UserID         uuid.UUID `json:"user_id" validate:"required"`
	PointsRedeemed int       `json:"points_redeemed"`
	PointsEarned   int       `json:"points_earned"`
	Balance        int       `json:"balance"`
}
