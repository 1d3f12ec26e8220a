package leads

import "errors"

var (
	// ErrMissingConversationID is returned when a lead has no source conversation
	ErrMissingConversationID = errors.New("leads: conversation id is required")

	// ErrScoreOutOfRange is returned when the qualification score is outside 0-100
	ErrScoreOutOfRange = errors.New("leads: score must be between 0 and 100")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("leads: lead not found")
)
