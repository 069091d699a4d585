package ports

import (
	"context"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
)

// Generator calls the generative language model.
type Generator interface {
	Generate(ctx context.Context, messages []domain.Message, params domain.GenerationParams) (string, error)
}

// Embedder builds vectors for query and candidate text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// FAQIndex reads the FAQ namespace of the embedding index.
type FAQIndex interface {
	AllEntries(ctx context.Context, collection string) ([]domain.FAQEntry, error)
}

// ProductIndex performs vector search over the product namespace. A nil
// filter means unfiltered search.
type ProductIndex interface {
	SearchProducts(ctx context.Context, collection string, vector []float32, limit int, filter *domain.FilterExpression) ([]domain.RetrievalMatch, error)
}

// ProfileStore loads per-client configuration and templates.
type ProfileStore interface {
	LoadProfile(ctx context.Context, clientID string) (*domain.ClientProfile, error)
}

// AnswerEventPublisher emits audit events for answered queries.
type AnswerEventPublisher interface {
	PublishAnswerEvent(ctx context.Context, event domain.AnswerEvent) error
}

// AnswerEventSubscriber consumes audit events until ctx is done.
type AnswerEventSubscriber interface {
	SubscribeAnswerEvents(ctx context.Context, handler func(context.Context, domain.AnswerEvent) error) error
}

// AnswerEventRepository persists audit events.
type AnswerEventRepository interface {
	SaveAnswerEvent(ctx context.Context, event domain.AnswerEvent) error
}
