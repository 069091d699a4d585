package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/storefront-assistant/internal/infrastructure/httpx"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/resilience"
)

// Client is a thin REST client for Qdrant. Each client keeps its FAQ and
// product points in separate collections.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	APIKey             string
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(options.APIKey),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// Ping lists collections to confirm the index is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "qdrant.collections", http.MethodGet, "/collections", nil, nil)
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload any, out any) error {
	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"api-key": c.apiKey}
	}
	run := func(callCtx context.Context) error {
		return httpx.DoJSON(callCtx, c.httpClient, method, c.baseURL+path, headers, payload, out, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, run, httpx.ClassifyError)
	} else {
		err = run(ctx)
	}
	return httpx.WrapTemporary(operation, err)
}

func collectionPath(collection, suffix string) string {
	return fmt.Sprintf("/collections/%s%s", url.PathEscape(collection), suffix)
}

func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
