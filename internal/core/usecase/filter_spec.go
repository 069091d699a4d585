package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
	"github.com/kirillkom/storefront-assistant/internal/core/ports"
)

const filterSpecMaxTokens = 1500

var (
	categoricalFieldSchema = map[string]any{
		"anyOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "number"},
			map[string]any{
				"type":  "array",
				"items": map[string]any{"type": []any{"string", "number"}},
			},
		},
	}
	rangeFieldSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"min": map[string]any{"type": []any{"number", "string", "null"}},
			"max": map[string]any{"type": []any{"number", "string", "null"}},
		},
	}
)

// FilterSpecGenerator asks the model for a structured constraint set and
// validates it field by field against the client whitelist and vocabulary.
type FilterSpecGenerator struct {
	generator ports.Generator
}

func NewFilterSpecGenerator(generator ports.Generator) *FilterSpecGenerator {
	return &FilterSpecGenerator{generator: generator}
}

// Extract returns nil when the model output cannot be parsed at all; callers
// fall back to unfiltered search. Generation failures are returned as errors.
func (g *FilterSpecGenerator) Extract(ctx context.Context, profile *domain.ClientProfile, query string) (*domain.FilterSpec, error) {
	tmpl, err := profile.Template(domain.TemplateMetadataFilters)
	if err != nil {
		return nil, err
	}

	prompt := renderTemplate(tmpl, map[string]string{
		placeholderValues: profile.ValidValuesText,
		placeholderQuery:  query,
	})
	raw, err := g.generator.Generate(ctx, []domain.Message{{Role: domain.RoleUser, Content: prompt}}, domain.GenerationParams{
		Temperature: domain.Float64(0),
		MaxTokens:   filterSpecMaxTokens,
		Model:       profile.LLMBackend,
	})
	if err != nil {
		return nil, fmt.Errorf("generate filter spec: %w", err)
	}

	spec, ok := ParseFilterSpec(raw, profile)
	if !ok {
		slog.WarnContext(ctx, "filter_spec_unparseable", "client", profile.ClientID, "raw_len", len(raw))
		return nil, nil
	}
	return spec, nil
}

// ParseFilterSpec decodes near-JSON model output into a FilterSpec. Fields
// outside the whitelist, failing schema validation, or coercing to nothing
// are dropped. ok is false only when no JSON object can be recovered.
func ParseFilterSpec(raw string, profile *domain.ClientProfile) (*domain.FilterSpec, bool) {
	doc, ok := decodeLooseObject(raw)
	if !ok {
		return nil, false
	}

	invalid, ok := schemaRejectedFields(doc, profile)
	if !ok {
		return nil, false
	}

	spec := &domain.FilterSpec{
		Values: make(map[string][]string),
		Ranges: make(map[string]domain.NumericRange),
	}
	for field, value := range doc {
		if !profile.IsFilterable(field) {
			continue
		}
		if _, rejected := invalid[field]; rejected {
			slog.Debug("filter_field_rejected", "client", profile.ClientID, "field", field)
			continue
		}

		if profile.IsRangeField(field) {
			if rng, keep := coerceRange(value); keep {
				spec.Ranges[field] = rng
			}
			continue
		}
		if values := coerceCategorical(value, profile.ValidValues[field]); len(values) > 0 {
			spec.Values[field] = values
		}
	}
	return spec, true
}

func decodeLooseObject(raw string) (map[string]any, bool) {
	text := extractJSONObject(raw)
	if text == "" {
		return nil, false
	}
	collapsed := strings.NewReplacer("{{", "{", "}}", "}").Replace(text)
	candidates := []string{
		text,
		collapsed,
		strings.ReplaceAll(text, "'", `"`),
		strings.ReplaceAll(collapsed, "'", `"`),
	}
	for _, candidate := range candidates {
		var doc map[string]any
		if err := json.Unmarshal([]byte(candidate), &doc); err == nil {
			return doc, true
		}
	}
	return nil, false
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return ""
}

// schemaRejectedFields validates the whole object once and reports the
// top-level fields that failed. ok is false when the root itself is invalid.
func schemaRejectedFields(doc map[string]any, profile *domain.ClientProfile) (map[string]struct{}, bool) {
	props := make(map[string]any, len(profile.FilterableFields))
	for _, field := range profile.FilterableFields {
		if profile.IsRangeField(field) {
			props[field] = rangeFieldSchema
			continue
		}
		props[field] = categoricalFieldSchema
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, false
	}

	invalid := make(map[string]struct{})
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" || field == "(root)" {
			return nil, false
		}
		top := strings.SplitN(field, ".", 2)[0]
		invalid[top] = struct{}{}
	}
	return invalid, true
}

func coerceRange(value any) (domain.NumericRange, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		return domain.NumericRange{}, false
	}
	var rng domain.NumericRange
	if lo, ok := boundValue(obj["min"]); ok && lo > 0 {
		rng.Min = domain.Float64(lo)
	}
	if hi, ok := boundValue(obj["max"]); ok {
		rng.Max = domain.Float64(hi)
	}
	if rng.Min == nil && rng.Max == nil {
		return domain.NumericRange{}, false
	}
	return rng, true
}

// boundValue reports a finite numeric bound. Unbounded markers and
// unparseable strings report false.
func boundValue(v any) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		if math.IsInf(typed, 0) || math.IsNaN(typed) {
			return 0, false
		}
		return typed, true
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(typed), "$"))
		switch strings.ToLower(s) {
		case "", "inf", "+inf", "infinity", "unbounded", "any", "none", "null":
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// coerceCategorical turns a scalar or list into trimmed values. When the
// field has a vocabulary, values are matched case-insensitively and replaced
// by their canonical spelling; unknown values are dropped.
func coerceCategorical(value any, vocabulary []string) []string {
	var items []any
	switch typed := value.(type) {
	case []any:
		items = typed
	default:
		items = []any{typed}
	}

	canonical := make(map[string]string, len(vocabulary))
	for _, v := range vocabulary {
		canonical[strings.ToLower(strings.TrimSpace(v))] = v
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		s := scalarString(item)
		if s == "" || strings.EqualFold(s, "any") {
			continue
		}
		if len(canonical) > 0 {
			v, ok := canonical[strings.ToLower(s)]
			if !ok {
				continue
			}
			s = v
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func scalarString(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return ""
	}
}
