package leads

import (
	"strings"
	"time"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
)

// Lead is a conversation that reached deal closure, captured for the sales team.
type Lead struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id"`
	UserID         string             `json:"user_id"`
	Score          int                `json:"score"`
	Phase          string             `json:"phase"`
	Facts          dialogue.UserFacts `json:"facts"`
	Signals        []string           `json:"signals"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// CaptureRequest is what gets persisted for a qualified conversation.
type CaptureRequest struct {
	ConversationID string
	UserID         string
	Score          int
	Phase          string
	Facts          dialogue.UserFacts
	Signals        []string
}

// Validate validates the capture request
func (r *CaptureRequest) Validate() error {
	if strings.TrimSpace(r.ConversationID) == "" {
		return ErrMissingConversationID
	}
	if r.Score < 0 || r.Score > 100 {
		return ErrScoreOutOfRange
	}
	return nil
}

// RequestFromState builds a capture request from a committed conversation.
func RequestFromState(state *dialogue.ConversationState) *CaptureRequest {
	signals := make([]string, 0, len(state.Signals))
	seen := make(map[dialogue.BuyingSignal]bool, len(state.Signals))
	for _, s := range state.Signals {
		if seen[s] {
			continue
		}
		seen[s] = true
		signals = append(signals, string(s))
	}
	return &CaptureRequest{
		ConversationID: state.ID,
		UserID:         state.Facts.UserID,
		Score:          state.QualificationScore,
		Phase:          string(state.Phase),
		Facts:          state.Facts.Clone(),
		Signals:        signals,
	}
}

// ListFilter pages through captured leads, newest first.
type ListFilter struct {
	MinScore int
	Limit    int
	Offset   int
}
