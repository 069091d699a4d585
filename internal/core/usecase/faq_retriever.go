package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
	"github.com/kirillkom/storefront-assistant/internal/core/ports"
)

const (
	defaultFAQTopK      = 3
	faqSynthesisTokens  = 1024
	faqFallbackTemplate = "You are a helpful assistant answering user questions based on an FAQ.\n\n" +
		"Here are relevant FAQ entries (question and answer):\n\n" +
		"{faq_context}\n\n" +
		"User question: {query}\n\n" +
		"Provide a concise, direct answer to the user, based only on the FAQ information. " +
		"If the answer is not in the FAQ, return '' (empty string)."
)

// FAQRetriever answers from the FAQ corpus: keyword pre-filter, embedding
// re-rank inside the hits, then synthesis. It never falls back to pure
// semantic search when no keyword matches.
type FAQRetriever struct {
	index     ports.FAQIndex
	embedder  ports.Embedder
	generator ports.Generator
	topK      int
}

func NewFAQRetriever(index ports.FAQIndex, embedder ports.Embedder, generator ports.Generator, topK int) *FAQRetriever {
	if topK <= 0 {
		topK = defaultFAQTopK
	}
	return &FAQRetriever{
		index:     index,
		embedder:  embedder,
		generator: generator,
		topK:      topK,
	}
}

func (r *FAQRetriever) Retrieve(ctx context.Context, profile *domain.ClientProfile, query string) (domain.FAQAnswer, error) {
	normalizedQuery := strings.ToLower(strings.TrimSpace(query))
	if normalizedQuery == "" {
		return domain.FAQAnswer{}, nil
	}

	entries, err := r.index.AllEntries(ctx, profile.FAQCollection)
	if err != nil {
		return domain.FAQAnswer{}, fmt.Errorf("load faq corpus: %w", err)
	}
	if len(entries) == 0 {
		return domain.FAQAnswer{}, nil
	}

	candidates := keywordCandidates(normalizedQuery, entries)
	if len(candidates) == 0 {
		slog.DebugContext(ctx, "faq_no_keyword_hit", "client", profile.ClientID)
		return domain.FAQAnswer{}, nil
	}

	queryVector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return domain.FAQAnswer{}, fmt.Errorf("embed faq query: %w", err)
	}
	texts := make([]string, 0, len(candidates))
	for _, entry := range candidates {
		texts = append(texts, entry.EmbeddingText())
	}
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return domain.FAQAnswer{}, fmt.Errorf("embed faq candidates: %w", err)
	}
	if len(vectors) != len(candidates) {
		return domain.FAQAnswer{}, fmt.Errorf("embed faq candidates: got %d vectors for %d entries", len(vectors), len(candidates))
	}

	ranked := topKBySimilarity(queryVector, vectors, r.topK)
	matches := make([]domain.RetrievalMatch, 0, len(ranked))
	top := make([]domain.FAQEntry, 0, len(ranked))
	for _, hit := range ranked {
		entry := candidates[hit.index]
		top = append(top, entry)
		matches = append(matches, domain.RetrievalMatch{
			SourceID: entry.ID,
			Score:    hit.score,
			Snippet:  entry.Question,
			Metadata: map[string]any{"question": entry.Question, "answer": entry.Answer},
		})
	}

	text, err := r.synthesize(ctx, profile, query, top)
	if err != nil {
		return domain.FAQAnswer{}, err
	}
	if isEmptySentinel(text) {
		slog.DebugContext(ctx, "faq_synthesis_empty", "client", profile.ClientID, "matches", len(matches))
		return domain.FAQAnswer{Matches: matches}, nil
	}
	return domain.FAQAnswer{Text: text, Matched: true, Matches: matches}, nil
}

func (r *FAQRetriever) synthesize(ctx context.Context, profile *domain.ClientProfile, query string, entries []domain.FAQEntry) (string, error) {
	tmpl, ok := profile.Templates[domain.TemplateFAQSynthesis]
	if !ok || strings.TrimSpace(tmpl) == "" {
		tmpl = faqFallbackTemplate
	}
	prompt := renderTemplate(tmpl, map[string]string{
		placeholderFAQContext: buildFAQContext(entries),
		placeholderQuery:      query,
	})

	text, err := r.generator.Generate(ctx, []domain.Message{{Role: domain.RoleUser, Content: prompt}}, domain.GenerationParams{
		Temperature: domain.Float64(0.2),
		TopP:        domain.Float64(0.8),
		MaxTokens:   faqSynthesisTokens,
		Model:       profile.LLMBackend,
	})
	if err != nil {
		return "", fmt.Errorf("synthesize faq answer: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// keywordCandidates keeps entries with at least one keyword phrase contained
// in the normalized query.
func keywordCandidates(normalizedQuery string, entries []domain.FAQEntry) []domain.FAQEntry {
	out := make([]domain.FAQEntry, 0)
	for _, entry := range entries {
		for _, kw := range entry.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(normalizedQuery, kw) {
				out = append(out, entry)
				break
			}
		}
	}
	return out
}

// buildFAQContext numbers entries by rank; entries missing a question or an
// answer are left out.
func buildFAQContext(entries []domain.FAQEntry) string {
	blocks := make([]string, 0, len(entries))
	for i, entry := range entries {
		q := strings.TrimSpace(entry.Question)
		a := strings.TrimSpace(entry.Answer)
		if q == "" || a == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("FAQ %d - Q: %s\nFAQ %d - A: %s", i+1, q, i+1, a))
	}
	return strings.Join(blocks, "\n\n")
}

func isEmptySentinel(text string) bool {
	switch strings.TrimSpace(text) {
	case "", "''", `""`:
		return true
	default:
		return false
	}
}
