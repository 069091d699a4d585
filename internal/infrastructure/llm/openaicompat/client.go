package openaicompat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/httpx"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/resilience"
)

const (
	defaultTemperature = 0.7
	defaultTopP        = 1.0
	defaultMaxTokens   = 2048
)

// Client talks to an OpenAI-compatible chat completions endpoint such as
// DeepSeek.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey, model string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	TopP        float64          `json:"top_p"`
	MaxTokens   int              `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Generate(ctx context.Context, messages []domain.Message, params domain.GenerationParams) (string, error) {
	if c.apiKey == "" {
		return "", domain.WrapError(domain.ErrConfiguration, "chat completion", fmt.Errorf("api key is not set"))
	}
	if len(messages) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "chat completion", fmt.Errorf("messages are empty"))
	}

	request := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: defaultTemperature,
		TopP:        defaultTopP,
		MaxTokens:   defaultMaxTokens,
	}
	if params.Temperature != nil {
		request.Temperature = *params.Temperature
	}
	if params.TopP != nil {
		request.TopP = *params.TopP
	}
	if params.MaxTokens > 0 {
		request.MaxTokens = params.MaxTokens
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	var response chatResponse
	run := func(callCtx context.Context) error {
		return httpx.PostJSON(callCtx, c.httpClient, c.baseURL+"/chat/completions", headers, request, &response, "chat.completions")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "chat.completions", run, httpx.ClassifyError)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return "", httpx.WrapTemporary("chat completion", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("chat completion: response has no choices")
	}
	return response.Choices[0].Message.Content, nil
}
