package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// DeliveryCompany declares the cities it serves in coverage_areas.
type DeliveryCompany struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID                   `gorm:"column:user_id;type:uuid;not null"`
	Name          string                      `gorm:"column:name;not null"`
	Status        enums.DeliveryCompanyStatus `gorm:"column:status;not null;default:'pending'"`
	CoverageAreas pq.StringArray              `gorm:"column:coverage_areas;type:text[]"`
	Locations     []CoverageLocation          `gorm:"foreignKey:CompanyID"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

// CoverageLocation is a depot a company can start a route from.
type CoverageLocation struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;not null"`
	City      string    `gorm:"column:city;not null"`
	Latitude  float64   `gorm:"column:latitude;not null"`
	Longitude float64   `gorm:"column:longitude;not null"`
}

// TableName pins the table name used by migrations.
func (CoverageLocation) TableName() string {
	return "delivery_coverage_locations"
}

// DeliveryRequest offers an order to one candidate company.
type DeliveryRequest struct {
	ID         uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID                   `gorm:"column:order_id;type:uuid;not null"`
	CompanyID  uuid.UUID                   `gorm:"column:company_id;type:uuid;not null"`
	Status     enums.DeliveryRequestStatus `gorm:"column:status;not null;default:'pending'"`
	AcceptedAt *time.Time                  `gorm:"column:accepted_at"`
	CreatedAt  time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
