package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
	"github.com/kirillkom/storefront-assistant/internal/core/ports"
)

// AnswerAuditUseCase persists answer events consumed by the worker.
type AnswerAuditUseCase struct {
	repo ports.AnswerEventRepository
}

func NewAnswerAuditUseCase(repo ports.AnswerEventRepository) *AnswerAuditUseCase {
	return &AnswerAuditUseCase{repo: repo}
}

func (uc *AnswerAuditUseCase) Record(ctx context.Context, event domain.AnswerEvent) error {
	if strings.TrimSpace(event.ID) == "" || strings.TrimSpace(event.ClientID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record answer event", fmt.Errorf("event id and client id are required"))
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := uc.repo.SaveAnswerEvent(ctx, event); err != nil {
		return fmt.Errorf("save answer event: %w", err)
	}
	return nil
}
