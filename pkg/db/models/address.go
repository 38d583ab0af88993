package models

import (
	"time"

	"github.com/google/uuid"
)

// Address belongs to a user and is never edited once an order points at it.
type Address struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	AddressLine1 string    `gorm:"column:address_line1;not null"`
	AddressLine2 *string   `gorm:"column:address_line2"`
	City         string    `gorm:"column:city;not null"`
	State        *string   `gorm:"column:state"`
	PostalCode   *string   `gorm:"column:postal_code"`
	Country      *string   `gorm:"column:country"`
	Latitude     *float64  `gorm:"column:latitude"`
	Longitude    *float64  `gorm:"column:longitude"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// HasLocation reports whether both coordinates are present.
func (a Address) HasLocation() bool {
	return a.Latitude != nil && a.Longitude != nil
}
