package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataFor(t *testing.T) {
	cases := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeValidation, http.StatusBadRequest, false},
		{CodeUnauthorized, http.StatusUnauthorized, false},
		{CodeForbidden, http.StatusForbidden, false},
		{CodeNotFound, http.StatusNotFound, false},
		{CodeAlreadyClaimed, http.StatusConflict, false},
		{CodeStateConflict, http.StatusUnprocessableEntity, false},
		{CodeIdempotency, http.StatusConflict, false},
		{CodeInternal, http.StatusInternalServerError, true},
		{CodeDependency, http.StatusServiceUnavailable, true},
	}

	for _, tc := range cases {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Fatalf("code %s: expected status %d, got %d", tc.code, tc.status, meta.HTTPStatus)
		}
		if meta.Retryable != tc.retryable {
			t.Fatalf("code %s: expected retryable %v, got %v", tc.code, tc.retryable, meta.Retryable)
		}
	}
}

func TestMetadataForUnknownCode(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(CodeDependency, cause, "publish failed")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause in chain")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("expected %s, got %s", CodeDependency, err.Code())
	}
	if err.Error() != "DEPENDENCY_ERROR: publish failed" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}

func TestWrapNilCause(t *testing.T) {
	err := Wrap(CodeNotFound, nil, "order missing")
	if err.Unwrap() != nil {
		t.Fatal("expected nil cause")
	}
	if err.Code() != CodeNotFound {
		t.Fatalf("expected %s, got %s", CodeNotFound, err.Code())
	}
}

func TestAs(t *testing.T) {
	inner := New(CodeAlreadyClaimed, "order taken")
	wrapped := fmt.Errorf("accept: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeAlreadyClaimed {
		t.Fatalf("expected %s, got %s", CodeAlreadyClaimed, typed.Code())
	}

	if As(fmt.Errorf("plain")) != nil {
		t.Fatal("expected nil for untyped error")
	}
	if As(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeStateConflict, "bad transition").
		WithDetails(map[string]string{"from": "completed", "to": "pending"})

	details, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatal("expected map details")
	}
	if details["from"] != "completed" {
		t.Fatalf("unexpected details %v", details)
	}
}
