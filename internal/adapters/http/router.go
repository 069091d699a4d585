package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
	"github.com/kirillkom/storefront-assistant/internal/core/ports"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/resilience"
)

const (
	defaultMaxBodyBytes = 1 << 20
	healthCheckTimeout  = 2 * time.Second
)

// HealthCheck probes one dependency for /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type breakerReporter interface {
	States() []resilience.OperationState
}

type httpMetrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
	RecordRejected(reason string)
}

type Options struct {
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration
	MaxBodyBytes     int64

	HealthChecks []HealthCheck
	Breakers     breakerReporter
	Metrics      httpMetrics
}

type Router struct {
	answerer ports.QueryAnswerer
	reloader ports.ClientReloader
	opts     Options
}

func NewRouter(answerer ports.QueryAnswerer, reloader ports.ClientReloader, opts Options) *Router {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Router{
		answerer: answerer,
		reloader: reloader,
		opts:     opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/answer", rt.answer)
	mux.HandleFunc("POST /v1/clients/{client_id}/reload", rt.reloadClient)
	if rt.opts.Metrics != nil {
		mux.Handle("GET /metrics", rt.opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.BackpressureWait, rt.rejected("backpressure"))
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst, rt.rejected("rate_limit"))
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) rejected(reason string) func() {
	if rt.opts.Metrics == nil {
		return nil
	}
	return func() { rt.opts.Metrics.RecordRejected(reason) }
}

type answerRequest struct {
	ClientID            string `json:"client_id"`
	Query               string `json:"query"`
	ConversationContext string `json:"conversation_context"`
}

type answerResponse struct {
	Answer         *string      `json:"answer"`
	Route          domain.Route `json:"route,omitempty"`
	CorrectedQuery string       `json:"corrected_query,omitempty"`
	QueryLabel     domain.Label `json:"query_label,omitempty"`
	TaskLabel      domain.Label `json:"task_label,omitempty"`
	RequestID      string       `json:"request_id,omitempty"`
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxBodyBytes)

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	answer, ok, err := rt.answerer.Answer(r.Context(), strings.TrimSpace(req.ClientID), req.Query, req.ConversationContext)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		writeError(w, status, errorMessage(r.Context(), status, err))
		return
	}

	resp := answerResponse{RequestID: domain.RequestIDFromContext(r.Context())}
	if ok {
		text := answer.Text
		resp.Answer = &text
		resp.Route = answer.Route
		resp.CorrectedQuery = answer.CorrectedQuery
		resp.QueryLabel = answer.QueryLabel
		resp.TaskLabel = answer.TaskLabel
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) reloadClient(w http.ResponseWriter, r *http.Request) {
	clientID := strings.TrimSpace(r.PathValue("client_id"))
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "client id is required")
		return
	}
	rt.reloader.Invalidate(clientID)
	writeJSON(w, http.StatusAccepted, map[string]string{"client_id": clientID, "status": "reload scheduled"})
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(rt.opts.HealthChecks))
	for _, hc := range rt.opts.HealthChecks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := hc.Check(ctx)
		cancel()
		if err != nil {
			checks[hc.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[hc.Name] = "ok"
	}

	payload := map[string]any{"status": "ok"}
	if status != http.StatusOK {
		payload["status"] = "degraded"
	}
	if len(checks) > 0 {
		payload["checks"] = checks
	}
	if rt.opts.Breakers != nil {
		breakers := make(map[string]string)
		for _, st := range rt.opts.Breakers.States() {
			breakers[st.Operation] = st.State
		}
		payload["breakers"] = breakers
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
