package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fulfillment-backend/internal/address"
	"github.com/angelmondragon/fulfillment-backend/internal/cart"
	"github.com/angelmondragon/fulfillment-backend/internal/checkout/helpers"
	"github.com/angelmondragon/fulfillment-backend/internal/delivery"
	"github.com/angelmondragon/fulfillment-backend/internal/discounts"
	"github.com/angelmondragon/fulfillment-backend/internal/distance"
	"github.com/angelmondragon/fulfillment-backend/internal/loyalty"
	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/internal/routing"
)

// QuoteInput is everything needed to price a cart for delivery.
type QuoteInput struct {
	CartID        uuid.UUID
	Address       address.Input
	CouponCode    string
	LoyaltyPoints int
}

// CheckoutInput adds payment to a quote. PaymentData is accepted and ignored;
// no payment gateway is called.
type CheckoutInput struct {
	QuoteInput
	PaymentMethod string
	PaymentData   map[string]any
}

// Quote is a priced cart computed before any transaction is opened. Preview
// and checkout both build one with the same planner and fee calculator.
type Quote struct {
	Cart              *cart.Snapshot
	Address           address.Resolved
	Delivery          delivery.Selection
	Depot             routing.Stop
	Route             routing.Route
	DeliveryFee       decimal.Decimal
	Coupon            *discounts.CouponResult
	LoyaltyBalance    int
	LoyaltyRequested  int
	Breakdown         discounts.Breakdown
	Redemption        discounts.Redemption
	TotalWithShipping decimal.Decimal
}

// Result is a committed checkout.
type Result struct {
	Order            orders.OrderDTO             `json:"order"`
	Items            []orders.OrderItemDTO       `json:"items"`
	DeliveryRequests []orders.DeliveryRequestDTO `json:"delivery_requests"`
	Loyalty          *loyalty.Outcome            `json:"loyalty"`
}

// Preview is the delivery breakdown returned without persisting anything.
type Preview struct {
	TotalAmount       decimal.Decimal        `json:"total_amount"`
	DeliveryFee       decimal.Decimal        `json:"delivery_fee"`
	TotalWithShipping decimal.Decimal        `json:"total_with_shipping"`
	DistanceKm        float64                `json:"distance_km"`
	DurationMin       *float64               `json:"duration_min"`
	Vendors           []helpers.VendorTotals `json:"vendors"`
	Route             routing.Route          `json:"route"`
	DeliveryCompany   CompanyView            `json:"delivery_company"`
	CustomerLocation  *distance.Point        `json:"customer_location"`
	Discounts         DiscountsView          `json:"discounts"`
}

// CompanyView names the company the order would be offered to first.
type CompanyView struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Covered    bool      `json:"covered"`
	Candidates int       `json:"candidates"`
}

// DiscountsView explains how the goods total was reduced.
type DiscountsView struct {
	Coupon            *CouponView     `json:"coupon,omitempty"`
	CouponDiscount    decimal.Decimal `json:"coupon_discount"`
	LoyaltyDiscount   decimal.Decimal `json:"loyalty_discount"`
	LoyaltyPercent    decimal.Decimal `json:"loyalty_percent"`
	LoyaltyPointsUsed int             `json:"loyalty_points_used"`
	LoyaltyBalance    int             `json:"loyalty_balance"`
	TotalDiscount     decimal.Decimal `json:"total_discount"`
	FinalAmount       decimal.Decimal `json:"final_amount"`
}

// CouponView is a coupon evaluation as shown to the customer.
type CouponView struct {
	Code               string          `json:"code"`
	Valid              bool            `json:"valid"`
	Message            string          `json:"message,omitempty"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	FinalAmount        decimal.Decimal `json:"final_amount"`
	ApplicableVendorID *uuid.UUID      `json:"applicable_vendor_id,omitempty"`
}

func newCouponView(res discounts.CouponResult, total decimal.Decimal) *CouponView {
	return &CouponView{
		Code:               res.Code,
		Valid:              res.Valid,
		Message:            res.Message,
		DiscountAmount:     res.Discount,
		TotalAmount:        total,
		FinalAmount:        total.Sub(res.Discount),
		ApplicableVendorID: res.ApplicableVendorID,
	}
}

// Preview renders the quote for the delivery preview endpoint.
func (q *Quote) Preview() Preview {
	view := Preview{
		TotalAmount:       q.Breakdown.Total,
		DeliveryFee:       q.DeliveryFee,
		TotalWithShipping: q.TotalWithShipping,
		DistanceKm:        q.Route.TotalDistanceKm,
		DurationMin:       q.Route.TotalDurationMin,
		Vendors:           helpers.ComputeTotalsByVendor(q.Cart.Lines),
		Route:             q.Route,
		DeliveryCompany: CompanyView{
			ID:         q.Delivery.Selected.ID,
			Name:       q.Delivery.Selected.Name,
			Covered:    q.Delivery.Covered,
			Candidates: len(q.Delivery.Candidates),
		},
		Discounts: DiscountsView{
			CouponDiscount:    q.Breakdown.CouponDiscount,
			LoyaltyDiscount:   q.Breakdown.LoyaltyDiscount,
			LoyaltyPercent:    q.Redemption.Percent,
			LoyaltyPointsUsed: q.Redemption.PointsUsed,
			LoyaltyBalance:    q.LoyaltyBalance,
			TotalDiscount:     q.Breakdown.Discount,
			FinalAmount:       q.Breakdown.Final,
		},
	}
	if n := len(q.Route.Legs); n > 0 {
		view.CustomerLocation = q.Route.Legs[n-1].To.Location
	}
	if q.Coupon != nil {
		view.Discounts.Coupon = newCouponView(*q.Coupon, q.Breakdown.Total)
	}
	return view
}
