package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
)

type generatorReply struct {
	contains string
	text     string
	err      error
}

type generatorCall struct {
	messages []domain.Message
	params   domain.GenerationParams
}

func (c generatorCall) prompt() string {
	if len(c.messages) == 0 {
		return ""
	}
	return c.messages[len(c.messages)-1].Content
}

// generatorFake answers with the first reply whose marker appears in the
// last message.
type generatorFake struct {
	mu      sync.Mutex
	replies []generatorReply
	calls   []generatorCall
}

func (f *generatorFake) Generate(_ context.Context, messages []domain.Message, params domain.GenerationParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := generatorCall{messages: append([]domain.Message(nil), messages...), params: params}
	f.calls = append(f.calls, call)
	for _, r := range f.replies {
		if strings.Contains(call.prompt(), r.contains) {
			return r.text, r.err
		}
	}
	return "", nil
}

func (f *generatorFake) callsContaining(marker string) []generatorCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]generatorCall, 0)
	for _, c := range f.calls {
		if strings.Contains(c.prompt(), marker) {
			out = append(out, c)
		}
	}
	return out
}

type embedderFake struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, ok := f.vectors[text]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type faqIndexFake struct {
	entries    []domain.FAQEntry
	err        error
	collection string
}

func (f *faqIndexFake) AllEntries(_ context.Context, collection string) ([]domain.FAQEntry, error) {
	f.collection = collection
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

type productIndexFake struct {
	mu      sync.Mutex
	filters []*domain.FilterExpression
	limits  []int
	search  func(filter *domain.FilterExpression) []domain.RetrievalMatch
	err     error
}

func (f *productIndexFake) SearchProducts(_ context.Context, _ string, _ []float32, limit int, filter *domain.FilterExpression) ([]domain.RetrievalMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	if f.search == nil {
		return nil, nil
	}
	return f.search(filter), nil
}

func productMatches(n int) []domain.RetrievalMatch {
	out := make([]domain.RetrievalMatch, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.RetrievalMatch{
			SourceID: "p" + string(rune('a'+i)),
			Score:    1 - float64(i)/100,
			Metadata: map[string]any{"name": "item", "color": "Blue"},
		})
	}
	return out
}

func testProfile() *domain.ClientProfile {
	return &domain.ClientProfile{
		ClientID:          "demo.com",
		FAQCollection:     "faq_demo_com",
		ProductCollection: "products_demo_com",
		Templates: map[domain.TemplatePurpose]string{
			domain.TemplateQueryType:           "[QUERY_TYPE] {query}",
			domain.TemplateTechnicalOrCreative: "[TASK] {query}",
			domain.TemplateMetadataFilters:     "[FILTERS] {values} :: {query}",
			domain.TemplateProductAnswer:       "[PRODUCTS] {context} :: {query}",
			domain.TemplateFallThrough:         "[FALLTHROUGH] {query}",
		},
		FilterableFields: []string{"category", "price", "color", "season"},
		RelaxationOrder:  []string{"category", "price", "color", "season"},
		MetadataFields:   []string{"name", "category", "color", "price"},
		ValidValues: map[string][]string{
			"category": {"jacket", "dress", "shirt"},
			"color":    {"Blue", "Red", "Black"},
			"season":   {"Summer", "Winter"},
		},
		ValidValuesText: `{"category":["jacket","dress","shirt"]}`,
		RangeFields:     []string{"price"},
	}
}
