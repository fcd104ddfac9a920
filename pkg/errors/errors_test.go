package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
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
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeCheckout, status: http.StatusBadGateway, publicMsg: "checkout failed", retryable: true, detailsOK: true},
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
	err := New(CodeNotFound, "no order")
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	cause := stdErrors.New("commit rejected")
	err := Wrap(CodeCheckout, cause, "seller batch")

	dump := Dump(err)
	if dump.Code != CodeCheckout {
		t.Fatalf("expected checkout code, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d: %v", len(dump.Chain), dump.Chain)
	}
	if dump.PGCode != "" {
		t.Fatalf("expected no postgres code, got %q", dump.PGCode)
	}
}

func TestDumpExtractsPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "documents_pkey", TableName: "documents", Message: "duplicate key"}
	err := Wrap(CodeDependency, fmt.Errorf("commit batch: %w", pgErr), "document store unavailable")

	dump := Dump(err)
	if dump.PGCode != "23505" || dump.PGConstraint != "documents_pkey" || dump.PGTable != "documents" {
		t.Fatalf("unexpected postgres fields %+v", dump)
	}
}

func TestDumpExtractsGRPCStatus(t *testing.T) {
	err := fmt.Errorf("commit batch: %w", status.Error(codes.Unavailable, "firestore down"))

	dump := Dump(err)
	if dump.GRPCCode != codes.Unavailable.String() {
		t.Fatalf("expected Unavailable, got %q", dump.GRPCCode)
	}
	if dump.GRPCMessage != "firestore down" {
		t.Fatalf("unexpected grpc message %q", dump.GRPCMessage)
	}
}

func TestCodeHelpers(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", New(CodeRateLimit, "slow down"))
	if CodeOf(wrapped) != CodeRateLimit {
		t.Fatalf("expected rate limit code, got %s", CodeOf(wrapped))
	}
	if !IsCode(wrapped, CodeRateLimit) || IsCode(nil, CodeRateLimit) {
		t.Fatalf("IsCode mismatch")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("untyped errors should map to internal")
	}
	if !IsRetryable(New(CodeCheckout, "partial")) || IsRetryable(New(CodeValidation, "bad")) {
		t.Fatalf("retryable mismatch")
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("redis timeout"), "rate limit unavailable")
	if got := err.Error(); got != "DEPENDENCY_ERROR: rate limit unavailable: redis timeout" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestMetadataTableMatchesDeclaredCodes(t *testing.T) {
	declared := []Code{
		CodeValidation, CodeUnauthorized, CodeNotFound, CodeConflict, CodeIdempotency,
		CodeRateLimit, CodeInternal, CodeDependency, CodeCheckout,
	}
	if len(metadataByCode) != len(declared) {
		t.Fatalf("expected %d codes in the metadata table, got %d", len(declared), len(metadataByCode))
	}
	for _, code := range declared {
		if _, ok := metadataByCode[code]; !ok {
			t.Fatalf("code %s has no metadata", code)
		}
	}
	if MetadataFor("FORBIDDEN").HTTPStatus != http.StatusInternalServerError {
		t.Fatal("codes outside the table must map to internal error")
	}
}
