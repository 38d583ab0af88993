package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/api/middleware"
	"github.com/angelmondragon/fulfillment-backend/internal/fulfillment"
	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/pkg/auth"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

type stubFulfillment struct {
	itemInput   fulfillment.DecideItemInput
	orderInput  fulfillment.DecideInput
	viewInput   fulfillment.ViewInput
	itemCalls   int
	decideCalls int
	view        *fulfillment.OrderView
	err         error
}

func (s *stubFulfillment) DecideItem(_ context.Context, input fulfillment.DecideItemInput) (*fulfillment.ItemResult, error) {
	s.itemCalls++
	s.itemInput = input
	if s.err != nil {
		return nil, s.err
	}
	return &fulfillment.ItemResult{}, nil
}

func (s *stubFulfillment) Decide(_ context.Context, input fulfillment.DecideInput) (*fulfillment.DecisionResult, error) {
	s.decideCalls++
	s.orderInput = input
	if s.err != nil {
		return nil, s.err
	}
	return &fulfillment.DecisionResult{}, nil
}

func (s *stubFulfillment) GetOrder(_ context.Context, input fulfillment.ViewInput) (*fulfillment.OrderView, error) {
	s.viewInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.view, nil
}

func TestDecideOrderItemForwardsDecision(t *testing.T) {
	t.Parallel()

	vendorID, orderID, itemID := uuid.New(), uuid.New(), uuid.New()
	svc := &stubFulfillment{}
	req := newRequest(http.MethodPatch, "/api/orders/x/items/y", `{"action":"reject","reason":"  out of stock  "}`, vendorID,
		map[string]string{"orderId": orderID.String(), "itemId": itemID.String()})
	resp := httptest.NewRecorder()
	DecideOrderItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	in := svc.itemInput
	if in.OrderID != orderID || in.ItemID != itemID || in.VendorUserID != vendorID {
		t.Fatalf("unexpected ids %+v", in)
	}
	if in.Action != enums.ItemActionReject {
		t.Fatalf("expected reject got %s", in.Action)
	}
	if in.Reason == nil || *in.Reason != "out of stock" {
		t.Fatalf("expected trimmed reason, got %v", in.Reason)
	}
}

func TestDecideOrderItemDropsBlankReason(t *testing.T) {
	t.Parallel()

	svc := &stubFulfillment{}
	req := newRequest(http.MethodPatch, "/", `{"action":"accept","reason":"   "}`, uuid.New(),
		map[string]string{"orderId": uuid.NewString(), "itemId": uuid.NewString()})
	resp := httptest.NewRecorder()
	DecideOrderItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.itemInput.Reason != nil {
		t.Fatalf("expected nil reason, got %q", *svc.itemInput.Reason)
	}
}

func TestDecideOrderItemRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		params map[string]string
	}{
		{name: "unknown action", body: `{"action":"maybe"}`, params: map[string]string{"orderId": uuid.NewString(), "itemId": uuid.NewString()}},
		{name: "bad order id", body: `{"action":"accept"}`, params: map[string]string{"orderId": "nope", "itemId": uuid.NewString()}},
		{name: "bad item id", body: `{"action":"accept"}`, params: map[string]string{"orderId": uuid.NewString(), "itemId": "nope"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubFulfillment{}
			resp := httptest.NewRecorder()
			DecideOrderItem(svc, nil).ServeHTTP(resp, newRequest(http.MethodPatch, "/", tt.body, uuid.New(), tt.params))
			expectError(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
			if svc.itemCalls != 0 {
				t.Fatal("service should not be called")
			}
		})
	}
}

func TestDecideOrderItemSurfacesStateConflict(t *testing.T) {
	t.Parallel()

	svc := &stubFulfillment{err: pkgerrors.New(pkgerrors.CodeStateConflict, "item already decided")}
	req := newRequest(http.MethodPatch, "/", `{"action":"accept"}`, uuid.New(),
		map[string]string{"orderId": uuid.NewString(), "itemId": uuid.NewString()})
	resp := httptest.NewRecorder()
	DecideOrderItem(svc, nil).ServeHTTP(resp, req)

	env := expectError(t, resp, http.StatusUnprocessableEntity, string(pkgerrors.CodeStateConflict))
	if env.Error.Message != "item already decided" {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
}

func TestDecideOrder(t *testing.T) {
	t.Parallel()

	customerID, orderID := uuid.New(), uuid.New()
	svc := &stubFulfillment{}
	req := newRequest(http.MethodPost, "/", `{"action":"proceed_without_rejected"}`, customerID,
		map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	DecideOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	in := svc.orderInput
	if in.OrderID != orderID || in.CustomerID != customerID || in.Action != enums.CustomerDecisionProceedWithoutRejected {
		t.Fatalf("unexpected input %+v", in)
	}
}

func TestDecideOrderRejectsUnknownAction(t *testing.T) {
	t.Parallel()

	svc := &stubFulfillment{}
	req := newRequest(http.MethodPost, "/", `{"action":"refund"}`, uuid.New(), map[string]string{"orderId": uuid.NewString()})
	resp := httptest.NewRecorder()
	DecideOrder(svc, nil).ServeHTTP(resp, req)

	expectError(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
	if svc.decideCalls != 0 {
		t.Fatal("service should not be called")
	}
}

func TestGetOrderForwardsPrincipal(t *testing.T) {
	t.Parallel()

	vendorUser, orderID := uuid.New(), uuid.New()
	svc := &stubFulfillment{view: &fulfillment.OrderView{
		Order: orders.OrderDTO{ID: orderID, Status: enums.OrderStatusRequested},
		Phase: fulfillment.PhaseAwaitingVendors,
	}}
	req := newRequest(http.MethodGet, "/", "", uuid.Nil, map[string]string{"orderId": orderID.String()})
	req = req.WithContext(middleware.WithPrincipal(req.Context(), auth.Principal{UserID: vendorUser, Role: enums.ActorRoleVendor}))
	resp := httptest.NewRecorder()
	GetOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	want := fulfillment.ViewInput{OrderID: orderID, ActorUserID: vendorUser, Role: enums.ActorRoleVendor}
	if svc.viewInput != want {
		t.Fatalf("expected %+v got %+v", want, svc.viewInput)
	}
	var data struct {
		Order struct {
			ID uuid.UUID `json:"id"`
		} `json:"order"`
		Phase string `json:"phase"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Order.ID != orderID || data.Phase != string(fulfillment.PhaseAwaitingVendors) {
		t.Fatalf("unexpected payload %+v", data)
	}
}

func TestGetOrderErrors(t *testing.T) {
	t.Parallel()

	resp := httptest.NewRecorder()
	svc := &stubFulfillment{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	GetOrder(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/", "", uuid.New(), map[string]string{"orderId": uuid.NewString()}))
	expectError(t, resp, http.StatusNotFound, string(pkgerrors.CodeNotFound))

	resp = httptest.NewRecorder()
	GetOrder(&stubFulfillment{}, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/", "", uuid.New(), map[string]string{"orderId": "nope"}))
	expectError(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))

	resp = httptest.NewRecorder()
	GetOrder(&stubFulfillment{}, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/", "", uuid.Nil, map[string]string{"orderId": uuid.NewString()}))
	expectError(t, resp, http.StatusUnauthorized, string(pkgerrors.CodeUnauthorized))
}
