package qdrant

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
)

type ScoreKind string

const (
	// ScoreSimilarity is reported by Cosine and Dot collections.
	ScoreSimilarity ScoreKind = "similarity"
	// ScoreDistance is reported by Euclid and Manhattan collections.
	ScoreDistance ScoreKind = "distance"
)

type ProductIndex struct {
	client    *Client
	scoreKind ScoreKind
}

func NewProductIndex(client *Client, scoreKind ScoreKind) *ProductIndex {
	if scoreKind == "" {
		scoreKind = ScoreSimilarity
	}
	return &ProductIndex{client: client, scoreKind: scoreKind}
}

func (i *ProductIndex) SearchProducts(
	ctx context.Context,
	collection string,
	vector []float32,
	limit int,
	filter *domain.FilterExpression,
) ([]domain.RetrievalMatch, error) {
	request := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		request["filter"] = f
	}

	var response struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := i.client.do(ctx, "qdrant.search", http.MethodPost, collectionPath(collection, "/points/search"), request, &response); err != nil {
		return nil, fmt.Errorf("search product collection %s: %w", collection, err)
	}

	out := make([]domain.RetrievalMatch, 0, len(response.Result))
	for _, r := range response.Result {
		out = append(out, domain.RetrievalMatch{
			SourceID: fmt.Sprintf("%v", r.ID),
			Score:    i.normalizeScore(r.Score),
			Snippet:  payloadString(r.Payload, "description"),
			Metadata: r.Payload,
		})
	}
	return out, nil
}

func (i *ProductIndex) normalizeScore(score float64) float64 {
	if i.scoreKind == ScoreDistance {
		return 1 / (1 + score)
	}
	return score
}
