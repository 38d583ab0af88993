package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeWalksWrappedChain(t *testing.T) {
	inner := New(CodeConflict, "order cancelled")
	outer := fmt.Errorf("deciding item: %w", inner)
	if !IsCode(outer, CodeConflict) {
		t.Fatalf("expected conflict code through wrapping")
	}
	if IsCode(outer, CodeNotFound) {
		t.Fatalf("unexpected not found match")
	}
	if IsCode(stdErrors.New("plain"), CodeConflict) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestEmptyCartMapsToBadRequest(t *testing.T) {
	meta := MetadataFor(CodeEmptyCart)
	if meta.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", meta.HTTPStatus)
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("socket closed"), "loading order")
	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", d.Code)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %d", len(d.Chain))
	}
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "coupons_code_key", TableName: "coupons"}
	d := Dump(Wrap(CodeConflict, fmt.Errorf("insert coupon: %w", pgErr), "coupon code taken"))
	if d.PG == nil {
		t.Fatal("expected postgres details")
	}
	if d.PG.Code != "23505" || d.PG.Constraint != "coupons_code_key" || d.PG.Table != "coupons" {
		t.Fatalf("unexpected postgres details %+v", d.PG)
	}
	if fields := d.Fields(); fields["pg"] == nil || fields["error_code"] != CodeConflict {
		t.Fatalf("unexpected log fields %v", fields)
	}
	if Dump(stdErrors.New("plain")).PG != nil {
		t.Fatal("plain errors carry no postgres details")
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "geocode address")
	if got, want := err.Error(), "DEPENDENCY_ERROR: geocode address: dial tcp: refused"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if got := Newf(CodeNotFound, "order %s not found", "o-1").Error(); got != "NOT_FOUND: order o-1 not found" {
		t.Fatalf("unexpected Newf message %q", got)
	}
}

func TestCallerFaultCodes(t *testing.T) {
	for _, code := range []Code{CodeValidation, CodeEmptyCart, CodeConflict, CodeRateLimit} {
		if !code.PublicMessage() {
			t.Fatalf("%s should expose its message", code)
		}
	}
	for _, code := range []Code{CodeInternal, CodeDependency, Code("UNKNOWN")} {
		if code.PublicMessage() {
			t.Fatalf("%s should hide its message", code)
		}
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load order: %w", New(CodeNotFound, "order o-1 not found"))
	if !stdErrors.Is(err, New(CodeNotFound, "")) {
		t.Fatal("expected match on code")
	}
	if stdErrors.Is(err, New(CodeConflict, "")) {
		t.Fatal("different codes must not match")
	}
	if stdErrors.Is(stdErrors.New("plain"), New(CodeNotFound, "")) {
		t.Fatal("plain errors carry no code")
	}
}

func TestCodeOfAndRetryable(t *testing.T) {
	tests := []struct {
		err       error
		code      Code
		retryable bool
	}{
		{err: New(CodeValidation, "bad"), code: CodeValidation},
		{err: fmt.Errorf("wrapped: %w", New(CodeDependency, "maps down")), code: CodeDependency, retryable: true},
		{err: stdErrors.New("plain"), code: CodeInternal, retryable: true},
	}
	for _, tt := range tests {
		if got := CodeOf(tt.err); got != tt.code {
			t.Fatalf("CodeOf(%v) = %s, want %s", tt.err, got, tt.code)
		}
		if got := Retryable(tt.err); got != tt.retryable {
			t.Fatalf("Retryable(%v) = %v, want %v", tt.err, got, tt.retryable)
		}
	}
	if Retryable(nil) {
		t.Fatal("nil is not retryable")
	}
}
