package qdrant

import "github.com/kirillkom/storefront-assistant/internal/core/domain"

// buildFilter translates a filter expression into a Qdrant "must" filter.
// A nil expression yields nil so the request carries no filter at all.
func buildFilter(expr *domain.FilterExpression) map[string]any {
	clauses := expr.Clauses()
	if len(clauses) == 0 {
		return nil
	}

	must := make([]map[string]any, 0, len(clauses))
	for _, c := range clauses {
		switch c.Operator {
		case domain.OpIn:
			must = append(must, map[string]any{
				"key":   c.Field,
				"match": map[string]any{"any": c.Values},
			})
		case domain.OpGreaterThan:
			must = append(must, map[string]any{
				"key":   c.Field,
				"range": map[string]any{"gt": c.Number},
			})
		case domain.OpLessThan:
			must = append(must, map[string]any{
				"key":   c.Field,
				"range": map[string]any{"lt": c.Number},
			})
		}
	}
	return map[string]any{"must": must}
}
