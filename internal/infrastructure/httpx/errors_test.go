package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{name: "service unavailable", err: &HTTPStatusError{StatusCode: http.StatusServiceUnavailable}, retryable: true, record: true},
		{name: "bad request", err: fmt.Errorf("wrapped: %w", &HTTPStatusError{StatusCode: http.StatusBadRequest})},
		{name: "canceled", err: context.Canceled},
		{name: "unknown", err: errors.New("decode failed"), record: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyError(tc.err)
			if got.Retryable != tc.retryable || got.RecordFailure != tc.record {
				t.Fatalf("ClassifyError() = %+v, want retryable=%v record=%v", got, tc.retryable, tc.record)
			}
		})
	}
}

func TestWrapTemporaryOnlyWrapsUnavailability(t *testing.T) {
	if err := WrapTemporary("op", &HTTPStatusError{StatusCode: http.StatusBadGateway}); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if err := WrapTemporary("op", &HTTPStatusError{StatusCode: http.StatusNotFound}); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 404 to stay permanent, got %v", err)
	}
	if WrapTemporary("op", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestDoJSONReturnsStatusErrorWithBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection missing", http.StatusNotFound)
	}))
	defer server.Close()

	err := DoJSON(context.Background(), server.Client(), http.MethodGet, server.URL+"/collections/x", nil, nil, nil, "qdrant.get")
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if statusErr.Error() != "qdrant.get status: 404 Not Found: collection missing" {
		t.Fatalf("unexpected message: %q", statusErr.Error())
	}
}
