package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/internal/address"
	"github.com/angelmondragon/fulfillment-backend/internal/cart"
	"github.com/angelmondragon/fulfillment-backend/internal/checkout/helpers"
	"github.com/angelmondragon/fulfillment-backend/internal/coupons"
	"github.com/angelmondragon/fulfillment-backend/internal/delivery"
	"github.com/angelmondragon/fulfillment-backend/internal/discounts"
	"github.com/angelmondragon/fulfillment-backend/internal/distance"
	"github.com/angelmondragon/fulfillment-backend/internal/loyalty"
	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/internal/routing"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartReader interface {
	Snapshot(ctx context.Context, userID, cartID uuid.UUID) (*cart.Snapshot, error)
}

type addressResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, input address.Input) (*address.Resolved, error)
}

type companySelector interface {
	SelectCompany(ctx context.Context, city string) (*delivery.Selection, error)
}

type routePlanner interface {
	Plan(ctx context.Context, depot routing.Stop, stops []routing.Stop, destination routing.Stop) routing.Route
}

type feeCalculator interface {
	Fee(totalDistanceKm float64) decimal.Decimal
}

type couponValidator interface {
	ValidateCoupon(ctx context.Context, code string, lines []discounts.Line) (discounts.CouponResult, error)
}

type loyaltyLedger interface {
	Balance(ctx context.Context, userID uuid.UUID) (*loyalty.Account, error)
	ApplyOrder(ctx context.Context, orderID uuid.UUID) (*loyalty.Outcome, error)
}

// Service prices carts and turns them into orders.
type Service interface {
	Quote(ctx context.Context, userID uuid.UUID, input QuoteInput) (*Quote, error)
	Execute(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*Result, error)
	ValidateCoupon(ctx context.Context, userID, cartID uuid.UUID, code string) (*CouponView, error)
}

// ServiceParams wires the checkout coordinator. Read-side collaborators run
// before the transaction; the repositories are rebound to it.
type ServiceParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Carts     cartReader
	Addresses addressResolver
	Companies companySelector
	Planner   routePlanner
	Fees      feeCalculator
	Coupons   couponValidator
	Loyalty   loyaltyLedger
	Outbox    outbox.Emitter

	CartRepo     cart.CartRepository
	AddressRepo  *address.Repository
	CouponRepo   coupons.Repository
	OrdersRepo   orders.Repository
	DeliveryRepo *delivery.Repository
}

type service struct {
	logg      *logger.Logger
	tx        txRunner
	carts     cartReader
	addresses addressResolver
	companies companySelector
	planner   routePlanner
	fees      feeCalculator
	coupons   couponValidator
	loyalty   loyaltyLedger
	outbox    outbox.Emitter

	cartRepo     cart.CartRepository
	addressRepo  *address.Repository
	couponRepo   coupons.Repository
	ordersRepo   orders.Repository
	deliveryRepo *delivery.Repository
	now          func() time.Time
}

// NewService builds the checkout service.
func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case p.DB == nil:
		return nil, fmt.Errorf("tx runner required")
	case p.Carts == nil || p.CartRepo == nil:
		return nil, fmt.Errorf("cart reader and repository required")
	case p.Addresses == nil || p.AddressRepo == nil:
		return nil, fmt.Errorf("address resolver and repository required")
	case p.Companies == nil || p.DeliveryRepo == nil:
		return nil, fmt.Errorf("delivery selector and repository required")
	case p.Planner == nil:
		return nil, fmt.Errorf("route planner required")
	case p.Fees == nil:
		return nil, fmt.Errorf("fee calculator required")
	case p.Coupons == nil || p.CouponRepo == nil:
		return nil, fmt.Errorf("coupon validator and repository required")
	case p.Loyalty == nil:
		return nil, fmt.Errorf("loyalty ledger required")
	case p.OrdersRepo == nil:
		return nil, fmt.Errorf("orders repository required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		logg:         p.Logger,
		tx:           p.DB,
		carts:        p.Carts,
		addresses:    p.Addresses,
		companies:    p.Companies,
		planner:      p.Planner,
		fees:         p.Fees,
		coupons:      p.Coupons,
		loyalty:      p.Loyalty,
		outbox:       p.Outbox,
		cartRepo:     p.CartRepo,
		addressRepo:  p.AddressRepo,
		couponRepo:   p.CouponRepo,
		ordersRepo:   p.OrdersRepo,
		deliveryRepo: p.DeliveryRepo,
		now:          time.Now,
	}, nil
}

// Quote resolves the cart, address, company and route, and prices the order.
// Every external call of a checkout happens here, before any row is locked.
func (s *service) Quote(ctx context.Context, userID uuid.UUID, input QuoteInput) (*Quote, error) {
	if input.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	if err := helpers.ValidateLoyaltyPoints(input.LoyaltyPoints); err != nil {
		return nil, err
	}

	snap, err := s.carts.Snapshot(ctx, userID, input.CartID)
	if err != nil {
		return nil, err
	}
	resolved, err := s.addresses.Resolve(ctx, userID, input.Address)
	if err != nil {
		return nil, err
	}
	selection, err := s.companies.SelectCompany(ctx, resolved.Address.City)
	if err != nil {
		return nil, err
	}

	vendors := snap.Vendors()
	firstVendor := helpers.FirstVendorPoint(vendors)
	depot := routing.Stop{
		ID:       selection.Selected.ID.String(),
		Label:    selection.Selected.Name,
		Location: delivery.SelectDepot(selection.Selected, firstVendor, firstVendor),
	}
	destination := routing.Stop{
		ID:    resolved.Address.ID.String(),
		Label: "customer",
	}
	if resolved.Address.HasLocation() {
		destination.Location = &distance.Point{Lat: *resolved.Address.Latitude, Lng: *resolved.Address.Longitude}
	}
	route := s.planner.Plan(ctx, depot, helpers.VendorStops(vendors), destination)
	fee := s.fees.Fee(route.TotalDistanceKm)

	lines := snap.DiscountLines()
	var coupon *discounts.CouponResult
	if input.CouponCode != "" {
		res, err := s.coupons.ValidateCoupon(ctx, input.CouponCode, lines)
		if err != nil {
			return nil, err
		}
		coupon = &res
	}

	balance := 0
	if input.LoyaltyPoints > 0 {
		account, err := s.loyalty.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
		balance = account.Balance
	}
	breakdown, redemption := discounts.Quote(lines, coupon, input.LoyaltyPoints, balance)

	return &Quote{
		Cart:              snap,
		Address:           *resolved,
		Delivery:          *selection,
		Depot:             depot,
		Route:             route,
		DeliveryFee:       fee,
		Coupon:            coupon,
		LoyaltyBalance:    balance,
		LoyaltyRequested:  input.LoyaltyPoints,
		Breakdown:         breakdown,
		Redemption:        redemption,
		TotalWithShipping: breakdown.Final.Add(fee),
	}, nil
}

// Execute quotes the cart and persists the order in one transaction. Loyalty
// points move afterwards in their own transaction; a failure there is logged
// and left to the reconcile job.
func (s *service) Execute(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*Result, error) {
	method, paymentStatus, err := helpers.ValidatePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	q, err := s.Quote(ctx, userID, input.QuoteInput)
	if err != nil {
		return nil, err
	}
	if q.Coupon != nil && !q.Coupon.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, q.Coupon.Message).
			WithDetails(map[string]any{"coupon_code": q.Coupon.Code})
	}

	var (
		order    *models.Order
		items    []models.OrderItem
		requests []models.DeliveryRequest
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)
		now := s.now().UTC()

		locked, err := cartRepo.LockItems(ctx, q.Cart.CartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart items")
		}
		if !q.Cart.Matches(locked) {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout")
		}

		if q.Address.IsNew {
			addr := q.Address.Address
			if err := s.addressRepo.WithTx(tx).Create(ctx, &addr); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save address")
			}
		}

		order = s.buildOrder(userID, q, method, paymentStatus)
		if q.Coupon != nil {
			if err := s.redeemCoupon(ctx, tx, userID, order.ID, q, now); err != nil {
				return err
			}
		}

		if err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		items = buildItems(order.ID, q.Cart.Lines)
		if err := ordersRepo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		requests, err = s.deliveryRepo.WithTx(tx).CreateRequests(ctx, order.ID, q.Delivery.CandidateIDs())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery requests")
		}
		if !method.CollectsOnDelivery() {
			if err := ordersRepo.CreatePayment(ctx, &models.Payment{
				OrderID: order.ID,
				Amount:  order.TotalWithShipping,
				Method:  method,
				Status:  enums.PaymentStatusPaid,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
			}
		}

		if err := cartRepo.MarkConverted(ctx, q.Cart.CartID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
		}
		if err := cartRepo.DeleteItems(ctx, q.Cart.CartID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		return s.emitCreated(ctx, tx, userID, order, q)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, userID.String()), order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"final_amount": order.FinalAmount.String(),
		"delivery_fee": order.DeliveryFee.String(),
		"distance_km":  order.DistanceKm,
		"candidates":   len(requests),
	})
	s.logg.Info(logCtx, "checkout.order_created")

	outcome, loyaltyErr := s.loyalty.ApplyOrder(ctx, order.ID)
	if loyaltyErr != nil {
		s.logg.Error(logCtx, "loyalty.apply_failed", loyaltyErr)
		outcome = nil
	}

	return &Result{
		Order:            orders.NewOrderDTO(*order),
		Items:            orders.NewOrderItemDTOs(items),
		DeliveryRequests: orders.NewDeliveryRequestDTOs(requests),
		Loyalty:          outcome,
	}, nil
}

// redeemCoupon re-evaluates the coupon under a row lock and consumes one use.
// The discount must still be what the customer was quoted.
func (s *service) redeemCoupon(ctx context.Context, tx *gorm.DB, userID, orderID uuid.UUID, q *Quote, now time.Time) error {
	repo := s.couponRepo.WithTx(tx)
	coupon, err := repo.FindByCodeForUpdate(ctx, q.Coupon.Code)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock coupon")
	}
	current := discounts.EvaluateCoupon(coupon, q.Coupon.Code, q.Cart.DiscountLines(), now)
	if !current.Valid {
		return pkgerrors.New(pkgerrors.CodeValidation, current.Message).
			WithDetails(map[string]any{"coupon_code": q.Coupon.Code})
	}
	if !current.Discount.Equal(q.Coupon.Discount) {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon changed during checkout")
	}
	if err := repo.ConsumeUsage(ctx, coupon.ID); err != nil {
		if coupons.IsUsageExhausted(err) {
			return pkgerrors.New(pkgerrors.CodeValidation, "coupon usage limit reached")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume coupon")
	}
	if err := repo.InsertUsage(ctx, &models.CouponUsage{
		CouponID:       coupon.ID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: q.Breakdown.CouponDiscount,
		UsedAt:         now,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon usage")
	}
	return nil
}

func (s *service) buildOrder(userID uuid.UUID, q *Quote, method enums.PaymentMethod, status enums.PaymentStatus) *models.Order {
	order := &models.Order{
		ID:                     uuid.New(),
		CustomerID:             userID,
		AddressID:              q.Address.Address.ID,
		TotalAmount:            q.Breakdown.Total,
		CouponDiscount:         q.Breakdown.CouponDiscount,
		LoyaltyDiscount:        q.Breakdown.LoyaltyDiscount,
		DiscountAmount:         q.Breakdown.Discount,
		FinalAmount:            q.Breakdown.Final,
		DeliveryFee:            q.DeliveryFee,
		TotalWithShipping:      q.TotalWithShipping,
		DistanceKm:             q.Route.TotalDistanceKm,
		DurationMin:            q.Route.TotalDurationMin,
		LoyaltyPointsRequested: q.LoyaltyRequested,
		LoyaltyPointsUsed:      q.Redemption.PointsUsed,
		PaymentMethod:          method,
		PaymentStatus:          status,
		Status:                 enums.OrderStatusRequested,
	}
	if q.Coupon != nil && q.Coupon.Valid {
		code := q.Coupon.Code
		order.CouponCode = &code
		order.CouponID = q.Coupon.CouponID
	}
	return order
}

func buildItems(orderID uuid.UUID, lines []cart.Line) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ID:           uuid.New(),
			OrderID:      orderID,
			ProductID:    line.ProductID,
			VendorID:     line.Vendor.ID,
			Variant:      line.Variant,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			LineTotal:    line.LineTotal,
			VendorStatus: enums.VendorItemStatusPending,
		})
	}
	return items
}

func (s *service) emitCreated(ctx context.Context, tx *gorm.DB, userID uuid.UUID, order *models.Order, q *Quote) error {
	vendorIDs := make([]uuid.UUID, 0, len(q.Cart.Lines))
	for _, v := range q.Cart.Vendors() {
		vendorIDs = append(vendorIDs, v.ID)
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: userID, Role: enums.ActorRoleCustomer},
		Data: payloads.OrderCreatedEvent{
			OrderID:            order.ID,
			CustomerID:         userID,
			VendorIDs:          vendorIDs,
			CandidateCompanies: q.Delivery.CandidateIDs(),
			FinalAmount:        order.FinalAmount.StringFixed(2),
			DeliveryFee:        order.DeliveryFee.StringFixed(2),
			TotalWithShipping:  order.TotalWithShipping.StringFixed(2),
			PaymentMethod:      order.PaymentMethod,
			PaymentStatus:      order.PaymentStatus,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order created")
	}
	return nil
}

// ValidateCoupon evaluates a code against the customer's current cart.
func (s *service) ValidateCoupon(ctx context.Context, userID, cartID uuid.UUID, code string) (*CouponView, error) {
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	snap, err := s.carts.Snapshot(ctx, userID, cartID)
	if err != nil {
		return nil, err
	}
	res, err := s.coupons.ValidateCoupon(ctx, code, snap.DiscountLines())
	if err != nil {
		return nil, err
	}
	return newCouponView(res, snap.Total()), nil
}
