package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// Coupon is vendor scoped when VendorID is set, global otherwise.
// A nil UsageLimit means unlimited; it is decremented on every use.
type Coupon struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID          *uuid.UUID         `gorm:"column:vendor_id;type:uuid"`
	Code              string             `gorm:"column:code;not null"`
	DiscountType      enums.DiscountType `gorm:"column:discount_type;not null"`
	DiscountValue     decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MinPurchaseAmount decimal.Decimal    `gorm:"column:min_purchase_amount;type:numeric(12,2);not null;default:0"`
	ValidFrom         time.Time          `gorm:"column:valid_from;not null"`
	ValidTo           time.Time          `gorm:"column:valid_to;not null"`
	UsageLimit        *int               `gorm:"column:usage_limit"`
	IsActive          bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// CouponUsage records one redemption of a coupon by an order.
type CouponUsage struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID       uuid.UUID       `gorm:"column:coupon_id;type:uuid;not null"`
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	UsedAt         time.Time       `gorm:"column:used_at;not null"`
}
