package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
	"github.com/kirillkom/storefront-assistant/internal/core/ports"
)

type axisSettings struct {
	template    domain.TemplatePurpose
	temperature float64
	maxTokens   int
}

var classifierAxes = map[domain.ClassificationAxis]axisSettings{
	domain.AxisProductOrOther:      {template: domain.TemplateQueryType, temperature: 0.3, maxTokens: 2048},
	domain.AxisTechnicalOrCreative: {template: domain.TemplateTechnicalOrCreative, temperature: 0, maxTokens: 2048},
}

// TaskClassifier labels a query along one axis. It returns the model output
// trimmed of whitespace; mapping unexpected labels to a fallback is the
// caller's job. Failures are returned as-is, never retried here.
type TaskClassifier struct {
	generator ports.Generator
}

func NewTaskClassifier(generator ports.Generator) *TaskClassifier {
	return &TaskClassifier{generator: generator}
}

func (c *TaskClassifier) Classify(
	ctx context.Context,
	profile *domain.ClientProfile,
	query string,
	axis domain.ClassificationAxis,
) (domain.Label, error) {
	settings, ok := classifierAxes[axis]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "classify query", fmt.Errorf("unknown axis %q", axis))
	}
	tmpl, err := profile.Template(settings.template)
	if err != nil {
		return "", err
	}

	prompt := renderTemplate(tmpl, map[string]string{placeholderQuery: query})
	raw, err := c.generator.Generate(ctx, []domain.Message{{Role: domain.RoleUser, Content: prompt}}, domain.GenerationParams{
		Temperature: domain.Float64(settings.temperature),
		MaxTokens:   settings.maxTokens,
		Model:       profile.LLMBackend,
	})
	if err != nil {
		return "", fmt.Errorf("classify %s: %w", axis, err)
	}
	return domain.Label(strings.TrimSpace(raw)), nil
}
