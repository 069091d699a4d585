package ollama

import (
	"strings"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
)

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options *requestOptions `json:"options,omitempty"`
}

type requestOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

func buildOptions(params domain.GenerationParams) *requestOptions {
	if params.Temperature == nil && params.TopP == nil && params.MaxTokens <= 0 {
		return nil
	}
	opts := &requestOptions{
		Temperature: params.Temperature,
		TopP:        params.TopP,
	}
	if params.MaxTokens > 0 {
		opts.NumPredict = params.MaxTokens
	}
	return opts
}

func flattenMessages(messages []domain.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}
