package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected scrape status %d", rec.Code)
	}
	return rec.Body.String()
}

func TestMiddlewareNormalizesReloadPath(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/clients/demo.com/reload", nil))

	body := scrape(t, m.Handler())
	want := `sfa_http_requests_total{method="POST",path="/v1/clients/{client_id}/reload",service="api",status="202"} 1`
	if !strings.Contains(body, want) {
		t.Fatalf("expected %q in scrape:\n%s", want, body)
	}
}

func TestObserveAnswerRecordsFaultsAndRelaxation(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.ObserveAnswer("demo.com", domain.RouteProduct, "", 2, 300*time.Millisecond)
	m.ObserveAnswer("demo.com", domain.RouteApology, "faq", 0, time.Second)
	m.SetBreakerState("ollama.generate", "open")

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`sfa_pipeline_answers_total{client="demo.com",route="product",service="api"} 1`,
		`sfa_pipeline_faults_total{service="api",stage="faq"} 1`,
		`sfa_pipeline_relaxation_steps_count{service="api"} 1`,
		`sfa_resilience_breaker_state{operation="ollama.generate",service="api"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in scrape:\n%s", want, body)
		}
	}
}
