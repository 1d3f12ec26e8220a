package leads

import (
	"context"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

// Service turns conversations that reached deal closure into stored leads.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

// NewService wraps a repository.
func NewService(repo Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("leads: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// CaptureQualified records the conversation as a lead.
func (s *Service) CaptureQualified(ctx context.Context, state *dialogue.ConversationState) error {
	if state == nil {
		return ErrMissingConversationID
	}
	lead, err := s.repo.Upsert(ctx, RequestFromState(state))
	if err != nil {
		return err
	}
	s.logger.Info("qualified lead captured",
		"lead_id", lead.ID,
		"conversation_id", lead.ConversationID,
		"score", lead.Score,
		"signals", len(lead.Signals),
	)
	return nil
}
