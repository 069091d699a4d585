package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
	"github.com/kirillkom/storefront-assistant/internal/core/ports"
)

// AnswerObserver receives one observation per answered query.
type AnswerObserver interface {
	ObserveAnswer(clientID string, route domain.Route, faultStage string, relaxationSteps int, duration time.Duration)
}

type queryRouter interface {
	Answer(ctx context.Context, profile *domain.ClientProfile, query, conversation string) (domain.Answer, bool, error)
}

type AssistantService struct {
	registry  *ClientRegistry
	router    queryRouter
	publisher ports.AnswerEventPublisher
	observer  AnswerObserver
}

// NewAssistantService accepts a nil publisher or observer.
func NewAssistantService(
	registry *ClientRegistry,
	router queryRouter,
	publisher ports.AnswerEventPublisher,
	observer AnswerObserver,
) *AssistantService {
	return &AssistantService{
		registry:  registry,
		router:    router,
		publisher: publisher,
		observer:  observer,
	}
}

// Answer reports ok=false without an error for a blank query, before the
// client is resolved.
func (s *AssistantService) Answer(ctx context.Context, clientID, query, conversationContext string) (domain.Answer, bool, error) {
	if strings.TrimSpace(query) == "" {
		return domain.Answer{}, false, nil
	}

	profile, err := s.registry.Profile(ctx, clientID)
	if err != nil {
		return domain.Answer{}, false, err
	}

	started := time.Now()
	answer, ok, err := s.router.Answer(ctx, profile, query, conversationContext)
	if err != nil || !ok {
		return answer, ok, err
	}
	duration := time.Since(started)

	if s.observer != nil {
		s.observer.ObserveAnswer(profile.ClientID, answer.Route, answer.FaultStage, answer.RelaxationSteps, duration)
	}
	slog.InfoContext(ctx, "query_answered",
		"client", profile.ClientID,
		"route", answer.Route,
		"relaxation_steps", answer.RelaxationSteps,
		"duration_ms", duration.Milliseconds(),
	)

	s.publish(ctx, profile.ClientID, answer, duration)
	return answer, true, nil
}

func (s *AssistantService) Invalidate(clientID string) {
	s.registry.Invalidate(clientID)
}

// publish is best-effort: a failed event never fails the answer.
func (s *AssistantService) publish(ctx context.Context, clientID string, answer domain.Answer, duration time.Duration) {
	if s.publisher == nil {
		return
	}
	event := domain.AnswerEvent{
		ID:              uuid.NewString(),
		RequestID:       domain.RequestIDFromContext(ctx),
		ClientID:        clientID,
		Route:           answer.Route,
		CorrectedQuery:  answer.CorrectedQuery,
		QueryLabel:      answer.QueryLabel,
		TaskLabel:       answer.TaskLabel,
		RelaxationSteps: answer.RelaxationSteps,
		Sources:         answer.Sources,
		FaultStage:      answer.FaultStage,
		Duration:        duration,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.publisher.PublishAnswerEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "answer_event_publish_failed",
			"client", clientID,
			"event_id", event.ID,
			"error", err,
		)
	}
}
