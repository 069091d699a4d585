package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
)

func TestFAQIndexScrollsAllPages(t *testing.T) {
	var offsets []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/faq_demo_com/points/scroll" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		offsets = append(offsets, req["offset"])

		if req["offset"] == nil {
			_, _ = w.Write([]byte(`{"result":{"points":[
				{"id":1,"payload":{"question":"Hours?","answer":"9-5","keywords":["hours", " open "]}}
			],"next_page_offset":2}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{"points":[
			{"id":2,"payload":{"question":"Returns?","answer":"30 days","keywords":"return, refund","text":"Q: Returns?"}}
		],"next_page_offset":null}}`))
	}))
	defer server.Close()

	entries, err := NewFAQIndex(New(server.URL, Options{})).AllEntries(context.Background(), "faq_demo_com")
	if err != nil {
		t.Fatalf("AllEntries() error = %v", err)
	}
	if len(entries) != 2 || len(offsets) != 2 {
		t.Fatalf("expected two pages, got %d entries over %d requests", len(entries), len(offsets))
	}
	if !reflect.DeepEqual(entries[0].Keywords, []string{"hours", "open"}) {
		t.Fatalf("unexpected list keywords: %+v", entries[0].Keywords)
	}
	if !reflect.DeepEqual(entries[1].Keywords, []string{"return", "refund"}) || entries[1].Text != "Q: Returns?" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
	if entries[0].ID != "1" {
		t.Fatalf("unexpected id: %q", entries[0].ID)
	}
}

func TestFAQIndexMissingCollectionIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	entries, err := NewFAQIndex(New(server.URL, Options{})).AllEntries(context.Background(), "faq_missing")
	if err != nil {
		t.Fatalf("AllEntries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty corpus, got %d", len(entries))
	}
}

func TestProductIndexSendsMustFilter(t *testing.T) {
	var req map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/products_demo_com/points/search" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("api-key") != "k" {
			t.Fatalf("expected api key header")
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_, _ = w.Write([]byte(`{"result":[{"id":"p-1","score":0.91,"payload":{"name":"Storm Shell","category":"jacket","price":350,"description":"Waterproof"}}]}`))
	}))
	defer server.Close()

	filter := domain.NewFilterExpression([]domain.FilterClause{
		{Field: "category", Operator: domain.OpIn, Values: []string{"jacket"}},
		{Field: "price", Operator: domain.OpLessThan, Number: 400},
	})
	index := NewProductIndex(New(server.URL, Options{APIKey: "k"}), "")
	got, err := index.SearchProducts(context.Background(), "products_demo_com", []float32{0.1, 0.2}, 20, filter)
	if err != nil {
		t.Fatalf("SearchProducts() error = %v", err)
	}
	if len(got) != 1 || got[0].SourceID != "p-1" || got[0].Score != 0.91 || got[0].Snippet != "Waterproof" {
		t.Fatalf("unexpected matches: %+v", got)
	}
	if got[0].Metadata["category"] != "jacket" {
		t.Fatalf("expected payload as metadata, got %+v", got[0].Metadata)
	}

	if req["limit"] != float64(20) {
		t.Fatalf("unexpected limit: %v", req["limit"])
	}
	wantFilter := map[string]any{"must": []any{
		map[string]any{"key": "category", "match": map[string]any{"any": []any{"jacket"}}},
		map[string]any{"key": "price", "range": map[string]any{"lt": float64(400)}},
	}}
	if !reflect.DeepEqual(req["filter"], wantFilter) {
		t.Fatalf("unexpected filter: %#v", req["filter"])
	}
}

func TestProductIndexOmitsFilterWhenNil(t *testing.T) {
	var req map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		_, _ = w.Write([]byte(`{"result":[{"id":7,"score":1.5,"payload":{}}]}`))
	}))
	defer server.Close()

	index := NewProductIndex(New(server.URL, Options{}), ScoreDistance)
	got, err := index.SearchProducts(context.Background(), "products", []float32{1}, 20, nil)
	if err != nil {
		t.Fatalf("SearchProducts() error = %v", err)
	}
	if _, present := req["filter"]; present {
		t.Fatalf("expected no filter key, got %v", req["filter"])
	}
	if got[0].Score != 0.4 {
		t.Fatalf("expected distance converted to similarity, got %v", got[0].Score)
	}
}

func TestProductIndexWrapsUnavailableAsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewProductIndex(New(server.URL, Options{}), "").SearchProducts(context.Background(), "products", []float32{1}, 20, nil)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestBuildFilterSingleClauseWithLowerBound(t *testing.T) {
	got := buildFilter(domain.NewFilterExpression([]domain.FilterClause{{Field: "price", Operator: domain.OpGreaterThan, Number: 50}}))
	want := map[string]any{"must": []map[string]any{{"key": "price", "range": map[string]any{"gt": float64(50)}}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("buildFilter() = %#v", got)
	}
}
