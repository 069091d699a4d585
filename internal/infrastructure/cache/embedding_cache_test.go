package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingEmbedder struct {
	calls [][]string
	err   error
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, append([]string(nil), texts...))
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func (e *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func setupCache(t *testing.T, next *countingEmbedder) (*EmbeddingCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewEmbeddingCache(client, next, "nomic-embed-text", time.Hour), mr
}

func TestEmbeddingCacheEmbedsOnlyMisses(t *testing.T) {
	next := &countingEmbedder{}
	cache, mr := setupCache(t, next)
	ctx := context.Background()

	if _, err := cache.Embed(ctx, []string{"hours", "returns"}); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	got, err := cache.Embed(ctx, []string{"returns", "shipping", "hours"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if len(next.calls) != 2 || len(next.calls[1]) != 1 || next.calls[1][0] != "shipping" {
		t.Fatalf("expected second call to embed only the miss, got %+v", next.calls)
	}
	if got[0][0] != 7 || got[1][0] != 8 || got[2][0] != 5 {
		t.Fatalf("vectors out of order: %+v", got)
	}
	if n := len(mr.Keys()); n != 3 {
		t.Fatalf("expected 3 cached keys, got %d", n)
	}
	if ttl := mr.TTL(cache.key("hours")); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
}

func TestEmbeddingCacheKeyIsScopedByModel(t *testing.T) {
	a := &EmbeddingCache{model: "m1"}
	b := &EmbeddingCache{model: "m2"}
	if a.key("hours") == b.key("hours") {
		t.Fatalf("expected different keys per model")
	}
}

func TestEmbeddingCacheFallsBackWhenRedisIsDown(t *testing.T) {
	next := &countingEmbedder{}
	cache, mr := setupCache(t, next)
	mr.Close()

	vec, err := cache.EmbedQuery(context.Background(), "hours")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vec) != 2 || len(next.calls) != 1 {
		t.Fatalf("expected fallback embedding, got %v after %d calls", vec, len(next.calls))
	}
}

func TestEmbeddingCachePropagatesEmbedderError(t *testing.T) {
	cache, _ := setupCache(t, &countingEmbedder{err: errors.New("ollama down")})

	if _, err := cache.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatalf("expected error")
	}
}
