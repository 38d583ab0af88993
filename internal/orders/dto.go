package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// OrderDTO is the API view of an order. Money fields never change after checkout.
type OrderDTO struct {
	ID                     uuid.UUID               `json:"id"`
	CustomerID             uuid.UUID               `json:"customer_id"`
	AddressID              uuid.UUID               `json:"address_id"`
	DeliveryCompanyID      *uuid.UUID              `json:"delivery_company_id,omitempty"`
	Status                 enums.OrderStatus       `json:"status"`
	PaymentMethod          enums.PaymentMethod     `json:"payment_method"`
	PaymentStatus          enums.PaymentStatus     `json:"payment_status"`
	TotalAmount            decimal.Decimal         `json:"total_amount"`
	CouponDiscount         decimal.Decimal         `json:"coupon_discount"`
	LoyaltyDiscount        decimal.Decimal         `json:"loyalty_discount"`
	DiscountAmount         decimal.Decimal         `json:"discount_amount"`
	FinalAmount            decimal.Decimal         `json:"final_amount"`
	DeliveryFee            decimal.Decimal         `json:"delivery_fee"`
	TotalWithShipping      decimal.Decimal         `json:"total_with_shipping"`
	DistanceKm             float64                 `json:"distance_km"`
	DurationMin            *float64                `json:"duration_min"`
	CouponCode             *string                 `json:"coupon_code,omitempty"`
	LoyaltyPointsUsed      int                     `json:"loyalty_points_used"`
	CustomerActionRequired bool                    `json:"customer_action_required"`
	CustomerDecision       *enums.CustomerDecision `json:"customer_decision,omitempty"`
	CreatedAt              time.Time               `json:"created_at"`
	UpdatedAt              time.Time               `json:"updated_at"`
}

// OrderItemDTO is the API view of one order line.
type OrderItemDTO struct {
	ID              uuid.UUID              `json:"id"`
	OrderID         uuid.UUID              `json:"order_id"`
	ProductID       uuid.UUID              `json:"product_id"`
	VendorID        uuid.UUID              `json:"vendor_id"`
	Variant         *string                `json:"variant,omitempty"`
	Quantity        int                    `json:"quantity"`
	UnitPrice       decimal.Decimal        `json:"unit_price"`
	LineTotal       decimal.Decimal        `json:"line_total"`
	VendorStatus    enums.VendorItemStatus `json:"vendor_status"`
	RejectionReason *string                `json:"rejection_reason,omitempty"`
	AcceptedAt      *time.Time             `json:"accepted_at,omitempty"`
	RejectedAt      *time.Time             `json:"rejected_at,omitempty"`
	Dropped         bool                   `json:"dropped"`
}

// DeliveryRequestDTO is the API view of an offer to a delivery company.
type DeliveryRequestDTO struct {
	ID         uuid.UUID                   `json:"id"`
	OrderID    uuid.UUID                   `json:"order_id"`
	CompanyID  uuid.UUID                   `json:"company_id"`
	Status     enums.DeliveryRequestStatus `json:"status"`
	AcceptedAt *time.Time                  `json:"accepted_at,omitempty"`
}

func NewOrderDTO(o models.Order) OrderDTO {
	return OrderDTO{
		ID:                     o.ID,
		CustomerID:             o.CustomerID,
		AddressID:              o.AddressID,
		DeliveryCompanyID:      o.DeliveryCompanyID,
		Status:                 o.Status,
		PaymentMethod:          o.PaymentMethod,
		PaymentStatus:          o.PaymentStatus,
		TotalAmount:            o.TotalAmount,
		CouponDiscount:         o.CouponDiscount,
		LoyaltyDiscount:        o.LoyaltyDiscount,
		DiscountAmount:         o.DiscountAmount,
		FinalAmount:            o.FinalAmount,
		DeliveryFee:            o.DeliveryFee,
		TotalWithShipping:      o.TotalWithShipping,
		DistanceKm:             o.DistanceKm,
		DurationMin:            o.DurationMin,
		CouponCode:             o.CouponCode,
		LoyaltyPointsUsed:      o.LoyaltyPointsUsed,
		CustomerActionRequired: o.CustomerActionRequired,
		CustomerDecision:       o.CustomerDecision,
		CreatedAt:              o.CreatedAt,
		UpdatedAt:              o.UpdatedAt,
	}
}

func NewOrderItemDTO(i models.OrderItem) OrderItemDTO {
	return OrderItemDTO{
		ID:              i.ID,
		OrderID:         i.OrderID,
		ProductID:       i.ProductID,
		VendorID:        i.VendorID,
		Variant:         i.Variant,
		Quantity:        i.Quantity,
		UnitPrice:       i.UnitPrice,
		LineTotal:       i.LineTotal,
		VendorStatus:    i.VendorStatus,
		RejectionReason: i.RejectionReason,
		AcceptedAt:      i.AcceptedAt,
		RejectedAt:      i.RejectedAt,
		Dropped:         i.Dropped,
	}
}

func NewOrderItemDTOs(items []models.OrderItem) []OrderItemDTO {
	out := make([]OrderItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, NewOrderItemDTO(item))
	}
	return out
}

func NewDeliveryRequestDTO(row models.DeliveryRequest) DeliveryRequestDTO {
	return DeliveryRequestDTO{
		ID:         row.ID,
		OrderID:    row.OrderID,
		CompanyID:  row.CompanyID,
		Status:     row.Status,
		AcceptedAt: row.AcceptedAt,
	}
}

func NewDeliveryRequestDTOs(rows []models.DeliveryRequest) []DeliveryRequestDTO {
	out := make([]DeliveryRequestDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewDeliveryRequestDTO(row))
	}
	return out
}
