package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	checkoutsvc "github.com/angelmondragon/fulfillment-backend/internal/checkout"
	"github.com/angelmondragon/fulfillment-backend/internal/coupons"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

type stubCoupons struct {
	createInput coupons.CreateInput
	toggledID   uuid.UUID
	toggledTo   bool
	vendorUser  uuid.UUID
	err         error
}

func (s *stubCoupons) Create(_ context.Context, vendorUserID uuid.UUID, input coupons.CreateInput) (*models.Coupon, error) {
	s.vendorUser, s.createInput = vendorUserID, input
	if s.err != nil {
		return nil, s.err
	}
	return &models.Coupon{
		ID:            uuid.New(),
		Code:          input.Code,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		ValidFrom:     input.ValidFrom,
		ValidTo:       input.ValidTo,
		UsageLimit:    input.UsageLimit,
		IsActive:      true,
	}, nil
}

func (s *stubCoupons) Toggle(_ context.Context, vendorUserID, couponID uuid.UUID, active bool) (*models.Coupon, error) {
	s.vendorUser, s.toggledID, s.toggledTo = vendorUserID, couponID, active
	if s.err != nil {
		return nil, s.err
	}
	return &models.Coupon{ID: couponID, Code: "SAVE10", IsActive: active}, nil
}

func TestCreateCoupon(t *testing.T) {
	t.Parallel()

	vendorUser := uuid.New()
	svc := &stubCoupons{}
	body := `{"code":" SAVE10 ","discount_type":"percentage","discount_value":"10","min_purchase_amount":"50","valid_from":"2026-01-01T00:00:00Z","valid_to":"2026-12-31T00:00:00Z","usage_limit":100}`
	resp := httptest.NewRecorder()
	CreateCoupon(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/coupons", body, vendorUser, nil))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	in := svc.createInput
	if svc.vendorUser != vendorUser || in.Code != "SAVE10" || in.DiscountType != enums.DiscountTypePercentage {
		t.Fatalf("unexpected create input %+v", in)
	}
	if !in.DiscountValue.Equal(decimal.NewFromInt(10)) || !in.MinPurchaseAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected amounts %s %s", in.DiscountValue, in.MinPurchaseAmount)
	}
	if in.UsageLimit == nil || *in.UsageLimit != 100 {
		t.Fatalf("unexpected usage limit %v", in.UsageLimit)
	}
	if !in.ValidTo.Equal(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected valid_to %s", in.ValidTo)
	}

	var data struct {
		Code     string `json:"code"`
		IsActive bool   `json:"is_active"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Code != "SAVE10" || !data.IsActive {
		t.Fatalf("unexpected coupon %+v", data)
	}
}

func TestCreateCouponValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "missing code", body: `{"discount_type":"fixed","discount_value":"5","valid_from":"2026-01-01T00:00:00Z","valid_to":"2026-02-01T00:00:00Z"}`},
		{name: "unknown type", body: `{"code":"X","discount_type":"bogo","discount_value":"5","valid_from":"2026-01-01T00:00:00Z","valid_to":"2026-02-01T00:00:00Z"}`},
		{name: "missing window", body: `{"code":"X","discount_type":"fixed","discount_value":"5"}`},
		{name: "negative usage limit", body: `{"code":"X","discount_type":"fixed","discount_value":"5","valid_from":"2026-01-01T00:00:00Z","valid_to":"2026-02-01T00:00:00Z","usage_limit":-1}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := httptest.NewRecorder()
			CreateCoupon(&stubCoupons{}, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/coupons", tt.body, uuid.New(), nil))
			expectError(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
		})
	}
}

func TestToggleCoupon(t *testing.T) {
	t.Parallel()

	couponID := uuid.New()
	svc := &stubCoupons{}
	req := newRequest(http.MethodPatch, "/", `{"is_active":false}`, uuid.New(), map[string]string{"id": couponID.String()})
	resp := httptest.NewRecorder()
	ToggleCoupon(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.toggledID != couponID || svc.toggledTo {
		t.Fatalf("unexpected toggle id=%s active=%t", svc.toggledID, svc.toggledTo)
	}
}

func TestToggleCouponRequiresFlag(t *testing.T) {
	t.Parallel()

	req := newRequest(http.MethodPatch, "/", `{}`, uuid.New(), map[string]string{"id": uuid.NewString()})
	resp := httptest.NewRecorder()
	ToggleCoupon(&stubCoupons{}, nil).ServeHTTP(resp, req)

	expectError(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
}

func TestToggleCouponForeignVendor(t *testing.T) {
	t.Parallel()

	svc := &stubCoupons{err: pkgerrors.New(pkgerrors.CodeForbidden, "coupon belongs to another vendor")}
	req := newRequest(http.MethodPatch, "/", `{"is_active":true}`, uuid.New(), map[string]string{"id": uuid.NewString()})
	resp := httptest.NewRecorder()
	ToggleCoupon(svc, nil).ServeHTTP(resp, req)

	expectError(t, resp, http.StatusForbidden, string(pkgerrors.CodeForbidden))
}

func TestValidateCouponReportsInapplicableAsOK(t *testing.T) {
	t.Parallel()

	cartID := uuid.New()
	svc := &stubCheckoutService{coupon: &checkoutsvc.CouponView{
		Code:    "SAVE10",
		Valid:   false,
		Message: "minimum purchase not met",
	}}
	body := `{"coupon_code":"SAVE10","cart_id":"` + cartID.String() + `"}`
	resp := httptest.NewRecorder()
	ValidateCoupon(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/coupons/validate", body, uuid.New(), nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.gotCode != "SAVE10" {
		t.Fatalf("unexpected code %q", svc.gotCode)
	}
	var data struct {
		Valid   bool   `json:"valid"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Valid || data.Message != "minimum purchase not met" {
		t.Fatalf("unexpected view %+v", data)
	}
}

func TestValidateCouponRequiresCart(t *testing.T) {
	t.Parallel()

	resp := httptest.NewRecorder()
	ValidateCoupon(&stubCheckoutService{}, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/", `{"coupon_code":"SAVE10"}`, uuid.New(), nil))

	expectError(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
}
