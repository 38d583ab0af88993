package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/internal/delivery"
	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

type stubDelivery struct {
	input     delivery.AcceptInput
	result    *delivery.AcceptResult
	requested []delivery.RequestedOrder
	companyID uuid.UUID
	userID    uuid.UUID
	err       error
}

func (s *stubDelivery) AcceptOrder(_ context.Context, input delivery.AcceptInput) (*delivery.AcceptResult, error) {
	s.input = input
	return s.result, s.err
}

func (s *stubDelivery) RequestedOrders(_ context.Context, companyID, actorUserID uuid.UUID) ([]delivery.RequestedOrder, error) {
	s.companyID, s.userID = companyID, actorUserID
	return s.requested, s.err
}

func TestAcceptDeliveryOrder(t *testing.T) {
	t.Parallel()

	userID, companyID, orderID := uuid.New(), uuid.New(), uuid.New()
	svc := &stubDelivery{result: &delivery.AcceptResult{
		Order:    models.Order{ID: orderID, DeliveryCompanyID: &companyID, Status: enums.OrderStatusAccepted},
		Request:  models.DeliveryRequest{ID: uuid.New(), OrderID: orderID, CompanyID: companyID, Status: enums.DeliveryRequestStatusAccepted},
		Rejected: 2,
	}}
	req := newRequest(http.MethodPost, "/", "", userID, map[string]string{"id": companyID.String(), "orderId": orderID.String()})
	resp := httptest.NewRecorder()
	AcceptDeliveryOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.CompanyID != companyID || svc.input.OrderID != orderID || svc.input.ActorUserID != userID {
		t.Fatalf("unexpected input %+v", svc.input)
	}

	var data struct {
		Order struct {
			Status            string     `json:"status"`
			DeliveryCompanyID *uuid.UUID `json:"delivery_company_id"`
		} `json:"order"`
		DeliveryRequest struct {
			Status string `json:"status"`
		} `json:"delivery_request"`
		RejectedRequests int64 `json:"rejected_requests"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Order.Status != string(enums.OrderStatusAccepted) || data.Order.DeliveryCompanyID == nil || *data.Order.DeliveryCompanyID != companyID {
		t.Fatalf("unexpected order %+v", data.Order)
	}
	if data.DeliveryRequest.Status != "accepted" || data.RejectedRequests != 2 {
		t.Fatalf("unexpected request payload %+v", data)
	}
}

func TestAcceptDeliveryOrderConflict(t *testing.T) {
	t.Parallel()

	svc := &stubDelivery{err: pkgerrors.New(pkgerrors.CodeConflict, "order already assigned")}
	req := newRequest(http.MethodPost, "/", "", uuid.New(), map[string]string{"id": uuid.NewString(), "orderId": uuid.NewString()})
	resp := httptest.NewRecorder()
	AcceptDeliveryOrder(svc, nil).ServeHTTP(resp, req)

	expectError(t, resp, http.StatusConflict, string(pkgerrors.CodeConflict))
}

func TestAcceptDeliveryOrderBadCompanyID(t *testing.T) {
	t.Parallel()

	req := newRequest(http.MethodPost, "/", "", uuid.New(), map[string]string{"id": "abc", "orderId": uuid.NewString()})
	resp := httptest.NewRecorder()
	AcceptDeliveryOrder(&stubDelivery{}, nil).ServeHTTP(resp, req)

	env := expectError(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
	if env.Error.Details["field"] != "id" {
		t.Fatalf("expected field detail, got %v", env.Error.Details)
	}
}

func TestRequestedOrders(t *testing.T) {
	t.Parallel()

	userID, companyID, orderID := uuid.New(), uuid.New(), uuid.New()
	svc := &stubDelivery{requested: []delivery.RequestedOrder{{
		Order:   orders.OrderDTO{ID: orderID, Status: enums.OrderStatusRequested},
		Items:   []orders.OrderItemDTO{{ID: uuid.New(), OrderID: orderID, VendorStatus: enums.VendorItemStatusAccepted}},
		Request: orders.DeliveryRequestDTO{ID: uuid.New(), OrderID: orderID, CompanyID: companyID, Status: enums.DeliveryRequestStatusPending},
	}}}
	resp := httptest.NewRecorder()
	RequestedOrders(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/", "", userID, map[string]string{"id": companyID.String()}))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.companyID != companyID || svc.userID != userID {
		t.Fatalf("unexpected forwarded ids company=%s user=%s", svc.companyID, svc.userID)
	}
	var data []struct {
		Order struct {
			ID uuid.UUID `json:"id"`
		} `json:"order"`
		Request struct {
			Status string `json:"status"`
		} `json:"request"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data) != 1 || data[0].Order.ID != orderID || data[0].Request.Status != "pending" {
		t.Fatalf("unexpected payload %+v", data)
	}
}

func TestRequestedOrdersForbidden(t *testing.T) {
	t.Parallel()

	svc := &stubDelivery{err: pkgerrors.New(pkgerrors.CodeForbidden, "user does not operate this delivery company")}
	resp := httptest.NewRecorder()
	RequestedOrders(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/", "", uuid.New(), map[string]string{"id": uuid.NewString()}))

	expectError(t, resp, http.StatusForbidden, string(pkgerrors.CodeForbidden))
}
