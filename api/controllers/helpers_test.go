package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/api/middleware"
	"github.com/angelmondragon/fulfillment-backend/pkg/auth"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// newRequest builds a request as the router would hand it over: user in
// context and chi URL params bound.
func newRequest(method, target, body string, userID uuid.UUID, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := req.Context()
	if userID != uuid.Nil {
		ctx = middleware.WithPrincipal(ctx, auth.Principal{UserID: userID, Role: enums.ActorRoleCustomer})
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", resp.Body.String(), err)
	}
	return env
}

func expectError(t *testing.T, resp *httptest.ResponseRecorder, status int, code string) envelope {
	t.Helper()
	if resp.Code != status {
		t.Fatalf("expected status %d got %d: %s", status, resp.Code, resp.Body.String())
	}
	env := decodeEnvelope(t, resp)
	if env.Error == nil {
		t.Fatalf("expected error envelope, got %s", resp.Body.String())
	}
	if env.Error.Code != code {
		t.Fatalf("expected error code %s got %s", code, env.Error.Code)
	}
	return env
}
