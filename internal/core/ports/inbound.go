package ports

import (
	"context"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
)

// QueryAnswerer is the inbound contract for answering one customer query.
// ok is false when the query was empty and there is nothing to answer.
type QueryAnswerer interface {
	Answer(ctx context.Context, clientID, query, conversationContext string) (answer domain.Answer, ok bool, err error)
}

// ClientReloader drops a cached client profile so the next request reloads it.
type ClientReloader interface {
	Invalidate(clientID string)
}

// AnswerEventRecorder is the inbound contract for the audit worker.
type AnswerEventRecorder interface {
	Record(ctx context.Context, event domain.AnswerEvent) error
}
