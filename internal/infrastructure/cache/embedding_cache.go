package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/storefront-assistant/internal/core/ports"
)

const embeddingKeyPrefix = "sfa:emb:"

// EmbeddingCache memoizes vectors in Redis in front of another embedder.
// Redis faults never fail a request; the wrapped embedder answers instead.
type EmbeddingCache struct {
	client *redis.Client
	next   ports.Embedder
	model  string
	ttl    time.Duration
}

func NewEmbeddingCache(client *redis.Client, next ports.Embedder, model string, ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{
		client: client,
		next:   next,
		model:  model,
		ttl:    ttl,
	}
}

func (c *EmbeddingCache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}

	out := make([][]float32, len(texts))
	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Warn("embedding_cache_read_failed", "error", err)
		cached = nil
	}
	for i, v := range cached {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(s), &vec); err == nil && len(vec) > 0 {
			out[i] = vec
		}
	}

	missing := make([]int, 0, len(texts))
	for i := range out {
		if out[i] == nil {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	pending := make([]string, len(missing))
	for j, idx := range missing {
		pending[j] = texts[idx]
	}
	fresh, err := c.next.Embed(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(pending) {
		return nil, fmt.Errorf("embedding cache: got %d vectors for %d texts", len(fresh), len(pending))
	}

	pipe := c.client.Pipeline()
	for j, idx := range missing {
		out[idx] = fresh[j]
		raw, err := json.Marshal(fresh[j])
		if err != nil {
			continue
		}
		pipe.Set(ctx, keys[idx], raw, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("embedding_cache_write_failed", "error", err, "entries", len(missing))
	}
	return out, nil
}

func (c *EmbeddingCache) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (c *EmbeddingCache) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return embeddingKeyPrefix + hex.EncodeToString(sum[:])
}
