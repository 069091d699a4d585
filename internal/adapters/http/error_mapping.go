package httpadapter

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrClientNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage keeps caller-facing detail for client faults only. Server-side
// causes can carry file paths or upstream bodies, so they are logged instead.
func errorMessage(ctx context.Context, status int, err error) string {
	switch {
	case status == http.StatusServiceUnavailable:
		slog.WarnContext(ctx, "answer_unavailable", "error", err)
		return "service temporarily unavailable"
	case status >= http.StatusInternalServerError:
		slog.ErrorContext(ctx, "answer_failed", "error", err)
		return "internal error"
	default:
		return err.Error()
	}
}
