package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fulfillment-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/fulfillment-backend/internal/checkout"
	"github.com/angelmondragon/fulfillment-backend/internal/discounts"
	"github.com/angelmondragon/fulfillment-backend/internal/distance"
	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/internal/routing"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

type stubCheckoutService struct {
	quote     *checkoutsvc.Quote
	result    *checkoutsvc.Result
	coupon    *checkoutsvc.CouponView
	err       error
	gotQuote  checkoutsvc.QuoteInput
	gotInput  checkoutsvc.CheckoutInput
	gotUserID uuid.UUID
	gotCode   string
}

func (s *stubCheckoutService) Quote(_ context.Context, userID uuid.UUID, input checkoutsvc.QuoteInput) (*checkoutsvc.Quote, error) {
	s.gotUserID, s.gotQuote = userID, input
	return s.quote, s.err
}

func (s *stubCheckoutService) Execute(_ context.Context, userID uuid.UUID, input checkoutsvc.CheckoutInput) (*checkoutsvc.Result, error) {
	s.gotUserID, s.gotInput = userID, input
	return s.result, s.err
}

func (s *stubCheckoutService) ValidateCoupon(_ context.Context, userID, _ uuid.UUID, code string) (*checkoutsvc.CouponView, error) {
	s.gotUserID, s.gotCode = userID, code
	return s.coupon, s.err
}

func TestCheckoutSuccess(t *testing.T) {
	t.Parallel()

	userID, cartID, addressID := uuid.New(), uuid.New(), uuid.New()
	orderID := uuid.New()
	svc := &stubCheckoutService{result: &checkoutsvc.Result{
		Order: orders.OrderDTO{ID: orderID, Status: enums.OrderStatusRequested, FinalAmount: decimal.RequireFromString("95")},
	}}

	body := `{"cart_id":"` + cartID.String() + `","addressId":"` + addressID.String() + `","paymentMethod":"card","coupon_code":" SAVE10 ","use_loyalty_points":50}`
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/checkout", body, userID, nil))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.gotUserID != userID {
		t.Fatalf("expected user %s got %s", userID, svc.gotUserID)
	}
	in := svc.gotInput
	if in.CartID != cartID || in.Address.AddressID == nil || *in.Address.AddressID != addressID || in.Address.New != nil {
		t.Fatalf("unexpected quote input %+v", in.QuoteInput)
	}
	if in.PaymentMethod != "card" {
		t.Fatalf("expected normalized payment method, got %q", in.PaymentMethod)
	}
	if in.CouponCode != "SAVE10" || in.LoyaltyPoints != 50 {
		t.Fatalf("unexpected discount input code=%q points=%d", in.CouponCode, in.LoyaltyPoints)
	}

	var data struct {
		Order struct {
			ID          uuid.UUID `json:"id"`
			FinalAmount string    `json:"final_amount"`
		} `json:"order"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Order.ID != orderID || data.Order.FinalAmount != "95" {
		t.Fatalf("unexpected order payload %+v", data.Order)
	}
}

func TestCheckoutWithNewAddress(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{result: &checkoutsvc.Result{}}
	body := `{"cart_id":"` + uuid.NewString() + `","address":{"address_line1":"1 Main St","city":"Lahore","latitude":31.5,"longitude":74.3},"paymentMethod":"cod"}`
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/checkout", body, uuid.New(), nil))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.gotInput.Address.New == nil || svc.gotInput.Address.New.City != "Lahore" {
		t.Fatalf("expected new address forwarded, got %+v", svc.gotInput.Address)
	}
}

func TestCheckoutAcceptsMixedCasePaymentMethod(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"COD", " Card ", "WALLET"} {
		svc := &stubCheckoutService{result: &checkoutsvc.Result{}}
		body := `{"cart_id":"` + uuid.NewString() + `","addressId":"` + uuid.NewString() + `","paymentMethod":"` + raw + `"}`
		resp := httptest.NewRecorder()
		Checkout(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/checkout", body, uuid.New(), nil))

		if resp.Code != http.StatusCreated {
			t.Fatalf("%q: expected 201 got %d: %s", raw, resp.Code, resp.Body.String())
		}
		if want := strings.ToLower(strings.TrimSpace(raw)); svc.gotInput.PaymentMethod != want {
			t.Fatalf("%q: expected %q forwarded, got %q", raw, want, svc.gotInput.PaymentMethod)
		}
	}
}

func TestCheckoutValidation(t *testing.T) {
	t.Parallel()

	cartID := uuid.NewString()
	tests := []struct {
		name string
		body string
	}{
		{name: "missing address", body: `{"cart_id":"` + cartID + `","paymentMethod":"cod"}`},
		{name: "unknown payment method", body: `{"cart_id":"` + cartID + `","addressId":"` + uuid.NewString() + `","paymentMethod":"barter"}`},
		{name: "missing cart", body: `{"addressId":"` + uuid.NewString() + `","paymentMethod":"cod"}`},
		{name: "bad cart id", body: `{"cart_id":"12","addressId":"` + uuid.NewString() + `","paymentMethod":"cod"}`},
		{name: "negative points", body: `{"cart_id":"` + cartID + `","addressId":"` + uuid.NewString() + `","paymentMethod":"cod","use_loyalty_points":-1}`},
		{name: "address without city", body: `{"cart_id":"` + cartID + `","address":{"address_line1":"x"},"paymentMethod":"cod"}`},
		{name: "unknown field", body: `{"cart_id":"` + cartID + `","addressId":"` + uuid.NewString() + `","paymentMethod":"cod","tip":5}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubCheckoutService{}
			resp := httptest.NewRecorder()
			Checkout(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/checkout", tt.body, uuid.New(), nil))
			expectError(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
		})
	}
}

func TestCheckoutPropagatesServiceErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   pkgerrors.Code
	}{
		{name: "empty cart", err: pkgerrors.New(pkgerrors.CodeValidation, "cart is empty"), status: http.StatusBadRequest, code: pkgerrors.CodeValidation},
		{name: "stale cart", err: pkgerrors.New(pkgerrors.CodeConflict, "cart changed"), status: http.StatusConflict, code: pkgerrors.CodeConflict},
		{name: "foreign address", err: pkgerrors.New(pkgerrors.CodeNotFound, "address not found"), status: http.StatusNotFound, code: pkgerrors.CodeNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubCheckoutService{err: tt.err}
			body := `{"cart_id":"` + uuid.NewString() + `","addressId":"` + uuid.NewString() + `","paymentMethod":"cod"}`
			resp := httptest.NewRecorder()
			Checkout(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/checkout", body, uuid.New(), nil))
			expectError(t, resp, tt.status, string(tt.code))
		})
	}
}

func TestCheckoutRequiresUser(t *testing.T) {
	t.Parallel()

	resp := httptest.NewRecorder()
	Checkout(&stubCheckoutService{}, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/checkout", `{}`, uuid.Nil, nil))
	expectError(t, resp, http.StatusUnauthorized, string(pkgerrors.CodeUnauthorized))
}

func TestDeliveryPreview(t *testing.T) {
	t.Parallel()

	customer := &distance.Point{Lat: 31.5, Lng: 74.3}
	quote := &checkoutsvc.Quote{
		Cart: &cart.Snapshot{},
		Route: routing.Route{
			TotalDistanceKm: 10,
			Legs: []routing.Leg{
				{To: routing.Stop{ID: "customer", Label: "customer", Location: customer}, DistanceKm: 10},
			},
		},
		DeliveryFee:       decimal.RequireFromString("5"),
		TotalWithShipping: decimal.RequireFromString("105"),
		Breakdown:         discounts.Breakdown{Total: decimal.RequireFromString("100")},
	}
	svc := &stubCheckoutService{quote: quote}

	body := `{"cart_id":"` + uuid.NewString() + `","addressId":"` + uuid.NewString() + `"}`
	resp := httptest.NewRecorder()
	DeliveryPreview(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/calculate-delivery-preview", body, uuid.New(), nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var data struct {
		DeliveryFee       string  `json:"delivery_fee"`
		TotalWithShipping string  `json:"total_with_shipping"`
		DistanceKm        float64 `json:"distance_km"`
		CustomerLocation  struct {
			Lat float64 `json:"lat"`
		} `json:"customer_location"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.DeliveryFee != "5" || data.TotalWithShipping != "105" || data.DistanceKm != 10 || data.CustomerLocation.Lat != 31.5 {
		t.Fatalf("unexpected preview %+v", data)
	}
}
