package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/multierr"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodePrecondition, status: http.StatusPreconditionFailed, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
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

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "load booking")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if !strings.Contains(wrapped.Error(), "boom") {
		t.Fatalf("expected cause in message, got %q", wrapped.Error())
	}

	outer := fmt.Errorf("run: %w", wrapped)
	if !IsCode(outer, CodeDependency) {
		t.Fatalf("expected IsCode to see through fmt wrapping")
	}
	if IsCode(outer, CodeNotFound) {
		t.Fatalf("unexpected code match")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := Newf(CodePrecondition, "booking %s has no renter", "b-1")
	if got := As(err); got == nil || got.Code() != CodePrecondition {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
	if err.WithDetails(map[string]any{"booking_id": "b-1"}).Details() == nil {
		t.Fatalf("details should be preserved")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := fmt.Errorf("apply match: %w", Wrap(CodeDependency, stdErrors.New("conn reset"), "insert match"))
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(dump.Chain))
	}
}

func TestDumpFlattensAggregatesAndPostgres(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "rentals_match_id_key", TableName: "rentals"}
	err := multierr.Combine(
		fmt.Errorf("expire match a: %w", stdErrors.New("lock timeout")),
		fmt.Errorf("expire match b: %w", pgErr),
	)

	dump := Dump(err)
	if len(dump.Chain) != 4 {
		t.Fatalf("expected 4 chain entries, got %d: %v", len(dump.Chain), dump.Chain)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "rentals_match_id_key" || dump.PGTable != "rentals" {
		t.Fatalf("unexpected pg fields: %+v", dump)
	}
	if Dump(nil).Chain != nil {
		t.Fatal("expected empty dump for nil")
	}
}
