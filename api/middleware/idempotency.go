package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/fulfillment-backend/api/responses"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/idempotency"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour

	idempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replayed"
)

type idempotencyRule struct {
	ttl      time.Duration
	required bool
}

// idempotencyRules is keyed by method and chi route pattern. Checkout must
// carry a key and keeps it for a week; the other mutations honour a key when
// one is sent.
var idempotencyRules = map[string]idempotencyRule{
	http.MethodPost + " /api/checkout":                                       {ttl: criticalIdempotencyTTL, required: true},
	http.MethodPatch + " /api/orders/{orderId}/items/{itemId}":               {ttl: defaultIdempotencyTTL},
	http.MethodPost + " /api/orders/{orderId}/decision":                      {ttl: defaultIdempotencyTTL},
	http.MethodPost + " /api/delivery-companies/{id}/accept-order/{orderId}": {ttl: defaultIdempotencyTTL},
	http.MethodPost + " /api/coupons":                                        {ttl: defaultIdempotencyTTL},
}

// IdempotencyStore is satisfied by *idempotency.Manager.
type IdempotencyStore interface {
	Claim(ctx context.Context, scope, key, requestHash string) (*idempotency.Record, bool, error)
	Complete(ctx context.Context, scope, key string, rec idempotency.Record, ttl time.Duration) error
	Release(ctx context.Context, scope, key string) error
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// the routes listed in idempotencyRules. A key reused with a different body is
// rejected. Server errors release the key so the client can retry.
func Idempotency(store IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := ruleFor(r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			idempotencyKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if idempotencyKey == "" {
				if rule.required {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			scope := buildScope(r)

			existing, claimed, err := store.Claim(ctx, scope, idempotencyKey, requestHash)
			if err != nil {
				if errors.Is(err, idempotency.ErrRecordMissing) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if !claimed {
				switch {
				case existing.RequestHash != requestHash:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
				case existing.Pending:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
				default:
					writeStoredResponse(w, existing)
				}
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			// Detached so a client disconnect does not strand the claim.
			settleCtx := context.WithoutCancel(ctx)
			status := defaultStatus(ww.Status())
			if status >= http.StatusInternalServerError {
				if err := store.Release(settleCtx, scope, idempotencyKey); err != nil {
					logError(settleCtx, logg, "idempotency.release_failed", err)
				}
				return
			}

			record := idempotency.Record{
				RequestHash: requestHash,
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
			}
			if err := store.Complete(settleCtx, scope, idempotencyKey, record, rule.ttl); err != nil {
				logError(settleCtx, logg, "idempotency.persist_failed", err)
			}
		})
	}
}

func buildScope(r *http.Request) string {
	parts := []string{
		callerID(r.Context()),
		r.Method,
		r.URL.Path,
	}
	return strings.Join(parts, "|")
}

func writeStoredResponse(w http.ResponseWriter, record *idempotency.Record) {
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(replayHeader, "true")
	w.WriteHeader(defaultStatus(record.Status))
	_, _ = w.Write(record.Body)
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func ruleFor(method, pattern string) (idempotencyRule, bool) {
	rule, ok := idempotencyRules[method+" "+pattern]
	return rule, ok
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
