package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
	"github.com/kirillkom/storefront-assistant/internal/core/ports"
)

const (
	stageFAQ         = "faq"
	stageClassify    = "classify"
	stageProduct     = "product"
	stageFallThrough = "fallthrough"

	apologyTemplate = "User provided a question that broke the querying system. Instruct them to rephrase it. " +
		"Answer it based on the context you already have so far. Query provided by the user: {query}"
)

type faqAnswerer interface {
	Retrieve(ctx context.Context, profile *domain.ClientProfile, query string) (domain.FAQAnswer, error)
}

type productAnswerer interface {
	Answer(ctx context.Context, profile *domain.ClientProfile, query, conversation string) (domain.ProductAnswer, error)
}

// Orchestrator routes one query through FAQ, classification and product or
// fall-through answering. Upstream faults end in a generated apology;
// configuration faults are returned to the caller.
type Orchestrator struct {
	corrector  *SpellCorrector
	faq        faqAnswerer
	classifier queryClassifier
	products   productAnswerer
	generator  ports.Generator
	maxPairs   int
}

func NewOrchestrator(
	corrector *SpellCorrector,
	faq faqAnswerer,
	classifier queryClassifier,
	products productAnswerer,
	generator ports.Generator,
	maxContextPairs int,
) *Orchestrator {
	return &Orchestrator{
		corrector:  corrector,
		faq:        faq,
		classifier: classifier,
		products:   products,
		generator:  generator,
		maxPairs:   maxContextPairs,
	}
}

// Answer returns ok=false only for an empty query.
func (o *Orchestrator) Answer(ctx context.Context, profile *domain.ClientProfile, query, conversation string) (domain.Answer, bool, error) {
	if strings.TrimSpace(query) == "" {
		return domain.Answer{}, false, nil
	}

	var (
		corrected string
		history   string
	)
	var g errgroup.Group
	g.Go(func() error {
		corrected = o.corrector.Correct(query)
		return nil
	})
	g.Go(func() error {
		history, _ = TrimConversationContext(conversation, o.maxPairs)
		return nil
	})
	_ = g.Wait()

	out := domain.Answer{CorrectedQuery: corrected}

	faq, err := o.faq.Retrieve(ctx, profile, corrected)
	if err != nil {
		return o.failSoft(ctx, profile, out, history, stageFAQ, err)
	}
	if faq.Matched {
		out.Text = faq.Text
		out.Route = domain.RouteFAQ
		out.Sources = len(faq.Matches)
		return out, true, nil
	}

	label, err := o.classifier.Classify(ctx, profile, corrected, domain.AxisProductOrOther)
	if err != nil {
		return o.failSoft(ctx, profile, out, history, stageClassify, err)
	}
	out.QueryLabel = domain.NormalizeLabel(string(label))

	if label.Is(domain.LabelProduct) {
		product, err := o.products.Answer(ctx, profile, corrected, history)
		if err != nil {
			return o.failSoft(ctx, profile, out, history, stageProduct, err)
		}
		out.Text = product.Text
		out.Route = domain.RouteProduct
		out.TaskLabel = product.Label
		out.Sources = product.Results
		out.RelaxationSteps = product.RelaxationSteps
		return out, true, nil
	}

	text, err := o.fallThrough(ctx, profile, corrected, history)
	if err != nil {
		return o.failSoft(ctx, profile, out, history, stageFallThrough, err)
	}
	out.Text = text
	out.Route = domain.RouteFallThrough
	return out, true, nil
}

func (o *Orchestrator) fallThrough(ctx context.Context, profile *domain.ClientProfile, query, history string) (string, error) {
	tmpl, err := profile.Template(domain.TemplateFallThrough)
	if err != nil {
		return "", err
	}
	prompt := renderTemplate(tmpl, map[string]string{
		placeholderQuery:   query,
		placeholderContext: history,
	})
	messages := []domain.Message{{Role: domain.RoleUser, Content: prompt}}
	// Templates that place the transcript themselves get it exactly once.
	if !hasPlaceholder(tmpl, placeholderContext) {
		messages = withConversation(history, messages...)
	}
	text, err := o.generator.Generate(ctx, messages, domain.GenerationParams{
		Temperature: domain.Float64(0.5),
		Model:       profile.LLMBackend,
	})
	if err != nil {
		return "", fmt.Errorf("generate fall-through answer: %w", err)
	}
	return text, nil
}

func (o *Orchestrator) failSoft(
	ctx context.Context,
	profile *domain.ClientProfile,
	out domain.Answer,
	history string,
	stage string,
	cause error,
) (domain.Answer, bool, error) {
	if domain.IsKind(cause, domain.ErrConfiguration) {
		return domain.Answer{}, false, cause
	}
	slog.WarnContext(ctx, "answer_fail_soft",
		"client", profile.ClientID,
		"stage", stage,
		"error", cause,
	)

	prompt := renderTemplate(apologyTemplate, map[string]string{placeholderQuery: out.CorrectedQuery})
	text, err := o.generator.Generate(ctx, withConversation(history, domain.Message{Role: domain.RoleUser, Content: prompt}), domain.GenerationParams{
		Temperature: domain.Float64(1.0),
		Model:       profile.LLMBackend,
	})
	if err != nil {
		return domain.Answer{}, false, domain.WrapError(domain.ErrTemporary, "generate apology", fmt.Errorf("%s stage: %v: %w", stage, cause, err))
	}

	out.Text = text
	out.Route = domain.RouteApology
	out.FaultStage = stage
	return out, true, nil
}
