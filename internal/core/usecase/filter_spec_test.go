package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
)

func TestParseFilterSpecDropsFieldsOutsideWhitelist(t *testing.T) {
	spec, ok := ParseFilterSpec(`{"category": ["jacket"], "brand": ["Acme"]}`, testProfile())
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if _, present := spec.Values["brand"]; present {
		t.Fatalf("expected brand to be dropped, got %+v", spec.Values)
	}
	if !reflect.DeepEqual(spec.Values["category"], []string{"jacket"}) {
		t.Fatalf("unexpected category values: %+v", spec.Values["category"])
	}
}

func TestParseFilterSpecOpenPriceRangeIsNoOp(t *testing.T) {
	spec, ok := ParseFilterSpec(`{"price": {"min": 0, "max": "unbounded"}}`, testProfile())
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if len(spec.Ranges) != 0 {
		t.Fatalf("expected no price range, got %+v", spec.Ranges)
	}
	if clauses := spec.Clauses(nil); len(clauses) != 0 {
		t.Fatalf("expected zero clauses, got %+v", clauses)
	}
}

func TestParseFilterSpecKeepsUpperBoundWithZeroMin(t *testing.T) {
	spec, ok := ParseFilterSpec(`{"category": ["Jacket"], "price": {"min": 0, "max": 400}}`, testProfile())
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	rng, present := spec.Ranges["price"]
	if !present || rng.Min != nil || rng.Max == nil || *rng.Max != 400 {
		t.Fatalf("unexpected price range: %+v", rng)
	}
	if !reflect.DeepEqual(spec.Values["category"], []string{"jacket"}) {
		t.Fatalf("expected canonical vocabulary value, got %+v", spec.Values["category"])
	}
}

func TestParseFilterSpecToleratesQuotingArtifacts(t *testing.T) {
	raw := "Here you go:\n{{'color': ['red', 'Any'], 'season': []}}\nDone."
	spec, ok := ParseFilterSpec(raw, testProfile())
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if !reflect.DeepEqual(spec.Values["color"], []string{"Red"}) {
		t.Fatalf("unexpected color values: %+v", spec.Values["color"])
	}
	if _, present := spec.Values["season"]; present {
		t.Fatalf("expected empty season list to be dropped")
	}
}

func TestParseFilterSpecCoercesScalarToList(t *testing.T) {
	spec, ok := ParseFilterSpec(`{"color": "black"}`, testProfile())
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if !reflect.DeepEqual(spec.Values["color"], []string{"Black"}) {
		t.Fatalf("unexpected color values: %+v", spec.Values["color"])
	}
}

func TestParseFilterSpecRejectsMalformedFieldOnly(t *testing.T) {
	spec, ok := ParseFilterSpec(`{"price": "cheap", "color": ["Blue"]}`, testProfile())
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if _, present := spec.Ranges["price"]; present {
		t.Fatalf("expected malformed price to be rejected")
	}
	if len(spec.Values["color"]) != 1 {
		t.Fatalf("expected color to survive, got %+v", spec.Values)
	}
}

func TestParseFilterSpecReturnsFalseForGarbage(t *testing.T) {
	if _, ok := ParseFilterSpec("no json here", testProfile()); ok {
		t.Fatalf("expected parse failure")
	}
	if _, ok := ParseFilterSpec("{not: valid, json", testProfile()); ok {
		t.Fatalf("expected parse failure")
	}
}

func TestFilterSpecGeneratorExtractUsesDeterministicSettings(t *testing.T) {
	gen := &generatorFake{replies: []generatorReply{
		{contains: "[FILTERS]", text: `{"category": ["jacket"], "price": {"min": 0, "max": 400}}`},
	}}
	extractor := NewFilterSpecGenerator(gen)

	spec, err := extractor.Extract(context.Background(), testProfile(), "waterproof jackets under $400")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if spec.IsEmpty() {
		t.Fatalf("expected non-empty spec")
	}

	calls := gen.callsContaining("[FILTERS]")
	if len(calls) != 1 {
		t.Fatalf("expected one filter call, got %d", len(calls))
	}
	params := calls[0].params
	if params.Temperature == nil || *params.Temperature != 0 || params.MaxTokens != 1500 {
		t.Fatalf("unexpected params: %+v", params)
	}
	want := `[FILTERS] {"category":["jacket","dress","shirt"]} :: waterproof jackets under $400`
	if calls[0].prompt() != want {
		t.Fatalf("unexpected prompt: %q", calls[0].prompt())
	}
}

func TestFilterSpecGeneratorExtractIsStableForSameOutput(t *testing.T) {
	gen := &generatorFake{replies: []generatorReply{
		{contains: "[FILTERS]", text: `{"color": ["Red", "Blue"], "price": {"min": 10, "max": 50}}`},
	}}
	extractor := NewFilterSpecGenerator(gen)

	first, err := extractor.Extract(context.Background(), testProfile(), "red or blue under 50")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	second, err := extractor.Extract(context.Background(), testProfile(), "red or blue under 50")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !reflect.DeepEqual(first.Clauses(nil), second.Clauses(nil)) {
		t.Fatalf("expected identical clauses, got %+v and %+v", first.Clauses(nil), second.Clauses(nil))
	}
}

func TestFilterSpecGeneratorExtractReturnsNilOnUnparseableOutput(t *testing.T) {
	gen := &generatorFake{replies: []generatorReply{{contains: "[FILTERS]", text: "sorry, I cannot help"}}}

	spec, err := NewFilterSpecGenerator(gen).Extract(context.Background(), testProfile(), "anything")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if spec != nil {
		t.Fatalf("expected nil spec, got %+v", spec)
	}
}

func TestFilterSpecGeneratorExtractPropagatesGenerationFault(t *testing.T) {
	gen := &generatorFake{replies: []generatorReply{{contains: "[FILTERS]", err: errors.New("llm down")}}}

	_, err := NewFilterSpecGenerator(gen).Extract(context.Background(), testProfile(), "anything")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestFilterSpecGeneratorExtractRequiresTemplate(t *testing.T) {
	profile := testProfile()
	delete(profile.Templates, domain.TemplateMetadataFilters)

	_, err := NewFilterSpecGenerator(&generatorFake{}).Extract(context.Background(), profile, "anything")
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
