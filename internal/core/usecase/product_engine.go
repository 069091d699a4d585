package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
	"github.com/kirillkom/storefront-assistant/internal/core/ports"
)

const productAnswerTokens = 2048

type ProductEngineConfig struct {
	// TopN is the result count requested from every index query.
	TopN int
	// RelaxBelow triggers relaxation when the full filter returns fewer results.
	RelaxBelow int
	// Enough stops relaxation once a step returns at least this many results.
	Enough int
}

type filterExtractor interface {
	Extract(ctx context.Context, profile *domain.ClientProfile, query string) (*domain.FilterSpec, error)
}

type queryClassifier interface {
	Classify(ctx context.Context, profile *domain.ClientProfile, query string, axis domain.ClassificationAxis) (domain.Label, error)
}

// ProductSearch is the outcome of a filtered search with relaxation.
type ProductSearch struct {
	Results         []domain.RetrievalMatch
	Filtered        bool
	RelaxationSteps int
	Unfiltered      bool
}

type ProductEngine struct {
	filters    filterExtractor
	classifier queryClassifier
	embedder   ports.Embedder
	index      ports.ProductIndex
	generator  ports.Generator
	cfg        ProductEngineConfig
}

func NewProductEngine(
	filters filterExtractor,
	classifier queryClassifier,
	embedder ports.Embedder,
	index ports.ProductIndex,
	generator ports.Generator,
	cfg ProductEngineConfig,
) *ProductEngine {
	if cfg.TopN <= 0 {
		cfg.TopN = 20
	}
	if cfg.RelaxBelow <= 0 {
		cfg.RelaxBelow = 10
	}
	if cfg.Enough <= 0 {
		cfg.Enough = 5
	}
	return &ProductEngine{
		filters:    filters,
		classifier: classifier,
		embedder:   embedder,
		index:      index,
		generator:  generator,
		cfg:        cfg,
	}
}

// Answer retrieves evidence for query and synthesizes the product answer.
// The conversation transcript only reaches the final synthesis call.
func (e *ProductEngine) Answer(ctx context.Context, profile *domain.ClientProfile, query, conversation string) (domain.ProductAnswer, error) {
	search, err := e.Search(ctx, profile, query)
	if err != nil {
		return domain.ProductAnswer{}, err
	}

	label, err := e.classifier.Classify(ctx, profile, query, domain.AxisTechnicalOrCreative)
	if err != nil {
		return domain.ProductAnswer{}, err
	}
	params := domain.ParamsForLabel(label)
	params.MaxTokens = productAnswerTokens
	params.Model = profile.LLMBackend

	tmpl, err := profile.Template(domain.TemplateProductAnswer)
	if err != nil {
		return domain.ProductAnswer{}, err
	}
	prompt := renderTemplate(tmpl, map[string]string{
		placeholderContext: BuildEvidenceContext(search.Results, profile.MetadataFields),
		placeholderQuery:   query,
	})

	messages := withConversation(conversation, domain.Message{Role: domain.RoleAssistant, Content: prompt})
	text, err := e.generator.Generate(ctx, messages, params)
	if err != nil {
		return domain.ProductAnswer{}, fmt.Errorf("synthesize product answer: %w", err)
	}

	return domain.ProductAnswer{
		Text:            text,
		Label:           domain.NormalizeLabel(string(label)),
		Results:         len(search.Results),
		RelaxationSteps: search.RelaxationSteps,
		Filtered:        search.Filtered,
	}, nil
}

// Search runs the filtered query and, when it comes back short, relaxes it by
// field importance: step i keeps the fields ranked 0..i plus any field the
// ordering does not list, so the first step filters on the most important
// field alone and later steps add fields back. The first step with enough
// results wins. When the ordering is exhausted one unfiltered query is the
// last resort.
func (e *ProductEngine) Search(ctx context.Context, profile *domain.ClientProfile, query string) (ProductSearch, error) {
	spec, err := e.filters.Extract(ctx, profile, query)
	if err != nil {
		return ProductSearch{}, err
	}

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return ProductSearch{}, fmt.Errorf("embed product query: %w", err)
	}

	order := relaxationOrder(profile)
	base := domain.NewFilterExpression(spec.Clauses(order))
	if base == nil {
		results, err := e.run(ctx, profile, vector, nil)
		return ProductSearch{Results: results, Unfiltered: true}, err
	}

	results, err := e.run(ctx, profile, vector, base)
	if err != nil {
		return ProductSearch{}, err
	}
	out := ProductSearch{Results: results, Filtered: true}
	if len(results) >= e.cfg.RelaxBelow {
		return out, nil
	}

	rank := make(map[string]int, len(order))
	for i, field := range order {
		rank[field] = i
	}
	// Filters that differ only in dropped fields can collapse to the same
	// expression; those reuse the earlier results instead of querying again.
	seen := map[string][]domain.RetrievalMatch{base.Key(): results}
	for cursor := range order {
		boundary := cursor
		reduced := spec.Retain(func(field string) bool {
			r, ok := rank[field]
			return !ok || r <= boundary
		})
		expr := domain.NewFilterExpression(reduced.Clauses(order))
		key := expr.Key()
		if cached, ok := seen[key]; ok {
			out.Results = cached
		} else {
			out.RelaxationSteps++
			slog.DebugContext(ctx, "filter_relaxation_step",
				"client", profile.ClientID,
				"keep_through", order[boundary],
				"clauses", len(expr.Clauses()),
				"previous_results", len(out.Results),
			)
			out.Results, err = e.run(ctx, profile, vector, expr)
			if err != nil {
				return ProductSearch{}, err
			}
			seen[key] = out.Results
		}
		if len(out.Results) >= e.cfg.Enough {
			return out, nil
		}
	}

	if cached, ok := seen[""]; ok {
		out.Results = cached
	} else {
		out.Results, err = e.run(ctx, profile, vector, nil)
		if err != nil {
			return ProductSearch{}, err
		}
	}
	out.Unfiltered = true
	return out, nil
}

func (e *ProductEngine) run(ctx context.Context, profile *domain.ClientProfile, vector []float32, filter *domain.FilterExpression) ([]domain.RetrievalMatch, error) {
	results, err := e.index.SearchProducts(ctx, profile.ProductCollection, vector, e.cfg.TopN, filter)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return results, nil
}

func relaxationOrder(profile *domain.ClientProfile) []string {
	if len(profile.RelaxationOrder) > 0 {
		return profile.RelaxationOrder
	}
	return profile.FilterableFields
}

// BuildEvidenceContext lists every configured metadata field of every record
// as "field: value. ", one record per line. Missing values render as N/A.
func BuildEvidenceContext(records []domain.RetrievalMatch, fields []string) string {
	lines := make([]string, 0, len(records))
	for _, record := range records {
		var b strings.Builder
		for _, field := range fields {
			b.WriteString(field)
			b.WriteString(": ")
			b.WriteString(metadataValue(record.Metadata, field))
			b.WriteString(". ")
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func metadataValue(metadata map[string]any, field string) string {
	v, ok := metadata[field]
	if !ok || v == nil {
		return "N/A"
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return "N/A"
	}
	return s
}
