package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// Order is the checkout aggregate. Monetary columns are written once at insert.
type Order struct {
	ID                     uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID             uuid.UUID               `gorm:"column:customer_id;type:uuid;not null"`
	AddressID              uuid.UUID               `gorm:"column:address_id;type:uuid;not null"`
	DeliveryCompanyID      *uuid.UUID              `gorm:"column:delivery_company_id;type:uuid"`
	TotalAmount            decimal.Decimal         `gorm:"column:total_amount;type:numeric(12,2);not null"`
	CouponDiscount         decimal.Decimal         `gorm:"column:coupon_discount;type:numeric(12,2);not null"`
	LoyaltyDiscount        decimal.Decimal         `gorm:"column:loyalty_discount;type:numeric(12,2);not null"`
	DiscountAmount         decimal.Decimal         `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	FinalAmount            decimal.Decimal         `gorm:"column:final_amount;type:numeric(12,2);not null"`
	DeliveryFee            decimal.Decimal         `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	TotalWithShipping      decimal.Decimal         `gorm:"column:total_with_shipping;type:numeric(12,2);not null"`
	DistanceKm             float64                 `gorm:"column:distance_km;not null"`
	DurationMin            *float64                `gorm:"column:duration_min"`
	CouponID               *uuid.UUID              `gorm:"column:coupon_id;type:uuid"`
	CouponCode             *string                 `gorm:"column:coupon_code"`
	LoyaltyPointsRequested int                     `gorm:"column:loyalty_points_requested;not null;default:0"`
	LoyaltyPointsUsed      int                     `gorm:"column:loyalty_points_used;not null;default:0"`
	PaymentMethod          enums.PaymentMethod     `gorm:"column:payment_method;not null"`
	PaymentStatus          enums.PaymentStatus     `gorm:"column:payment_status;not null"`
	Status                 enums.OrderStatus       `gorm:"column:status;not null;default:'requested'"`
	CustomerActionRequired bool                    `gorm:"column:customer_action_required;not null;default:false"`
	CustomerDecision       *enums.CustomerDecision `gorm:"column:customer_decision"`
	Items                  []OrderItem             `gorm:"foreignKey:OrderID"`
	CreatedAt              time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one (product, vendor) line of an order.
type OrderItem struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	ProductID       uuid.UUID              `gorm:"column:product_id;type:uuid;not null"`
	VendorID        uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null"`
	Variant         *string                `gorm:"column:variant"`
	Quantity        int                    `gorm:"column:quantity;not null"`
	UnitPrice       decimal.Decimal        `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal       decimal.Decimal        `gorm:"column:line_total;type:numeric(12,2);not null"`
	VendorStatus    enums.VendorItemStatus `gorm:"column:vendor_status;not null;default:'pending'"`
	RejectionReason *string                `gorm:"column:rejection_reason"`
	AcceptedAt      *time.Time             `gorm:"column:accepted_at"`
	RejectedAt      *time.Time             `gorm:"column:rejected_at"`
	Dropped         bool                   `gorm:"column:dropped;not null;default:false"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// Payment records a settled non cash-on-delivery payment.
type Payment struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	Amount    decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Method    enums.PaymentMethod `gorm:"column:method;not null"`
	Status    enums.PaymentStatus `gorm:"column:status;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}
