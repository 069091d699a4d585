package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/httpx"
)

const scrollPageSize = 256

type FAQIndex struct {
	client *Client
}

func NewFAQIndex(client *Client) *FAQIndex {
	return &FAQIndex{client: client}
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			ID      any            `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
		NextPageOffset any `json:"next_page_offset"`
	} `json:"result"`
}

// AllEntries scrolls the whole FAQ collection. A missing collection reads as
// an empty corpus.
func (i *FAQIndex) AllEntries(ctx context.Context, collection string) ([]domain.FAQEntry, error) {
	entries := make([]domain.FAQEntry, 0)
	var offset any

	for {
		request := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": true,
			"with_vector":  false,
		}
		if offset != nil {
			request["offset"] = offset
		}

		var response scrollResponse
		err := i.client.do(ctx, "qdrant.scroll", http.MethodPost, collectionPath(collection, "/points/scroll"), request, &response)
		if err != nil {
			var statusErr *httpx.HTTPStatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
				slog.Warn("faq_collection_missing", "collection", collection)
				return entries, nil
			}
			return nil, fmt.Errorf("scroll faq collection %s: %w", collection, err)
		}

		for _, p := range response.Result.Points {
			entries = append(entries, faqEntryFromPayload(fmt.Sprintf("%v", p.ID), p.Payload))
		}
		if response.Result.NextPageOffset == nil || len(response.Result.Points) == 0 {
			return entries, nil
		}
		offset = response.Result.NextPageOffset
	}
}

func faqEntryFromPayload(id string, payload map[string]any) domain.FAQEntry {
	return domain.FAQEntry{
		ID:       id,
		Question: payloadString(payload, "question"),
		Answer:   payloadString(payload, "answer"),
		Keywords: payloadKeywords(payload["keywords"]),
		Text:     payloadString(payload, "text"),
		ClientID: payloadString(payload, "client_id"),
	}
}

// payloadKeywords accepts a list or a comma separated string.
func payloadKeywords(v any) []string {
	var raw []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = t
	case string:
		raw = strings.Split(t, ",")
	}

	out := make([]string, 0, len(raw))
	for _, kw := range raw {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
