package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/ports"
)

var (
	// ErrInvalidBrief is returned when a draft request has no topic.
	ErrInvalidBrief = errors.New("draft brief requires a topic")
	// ErrDrafterUnavailable is returned when no AI drafter is configured.
	ErrDrafterUnavailable = errors.New("ai drafter not configured")
)

// DraftService asks the AI generator for news article drafts.
type DraftService struct {
	drafter ports.Drafter
}

func NewDraftService(drafter ports.Drafter) *DraftService {
	return &DraftService{drafter: drafter}
}

// Draft validates brief and returns the generated draft.
func (s *DraftService) Draft(ctx context.Context, brief domain.DraftBrief) (domain.NewsDraft, error) {
	brief.Topic = strings.TrimSpace(brief.Topic)
	brief.Category = strings.TrimSpace(brief.Category)
	if brief.Topic == "" {
		return domain.NewsDraft{}, ErrInvalidBrief
	}
	if s.drafter == nil {
		return domain.NewsDraft{}, ErrDrafterUnavailable
	}

	draft, err := s.drafter.DraftArticle(ctx, brief)
	if err != nil {
		return domain.NewsDraft{}, fmt.Errorf("draft article: %w", err)
	}
	return draft, nil
}
