package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// LoyaltyAccount holds one user's balance and its append-only history.
type LoyaltyAccount struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID             `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	PointsBalance int                   `gorm:"column:points_balance;not null;default:0"`
	History       []LoyaltyHistoryEntry `gorm:"column:points_history;type:jsonb;serializer:json"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name used by migrations.
func (LoyaltyAccount) TableName() string {
	return "loyalty_points"
}

// LoyaltyHistoryEntry is one earn or redeem movement.
type LoyaltyHistoryEntry struct {
	Type        enums.LoyaltyEntryType `json:"type"`
	Points      int                    `json:"points"`
	Description string                 `json:"description"`
	OrderID     *uuid.UUID             `json:"order_id,omitempty"`
	Date        time.Time              `json:"date"`
}

// LoyaltyApplication marks that an order's points were processed.
type LoyaltyApplication struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	PointsRedeemed int       `gorm:"column:points_redeemed;not null"`
	PointsEarned   int       `gorm:"column:points_earned;not null"`
	AppliedAt      time.Time `gorm:"column:applied_at;not null"`
}
