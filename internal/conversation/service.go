package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
)

var (
	// ErrConversationNotFound is returned when no state exists for an id.
	ErrConversationNotFound = errors.New("conversation: not found")
	// ErrInvalidTransition is returned when a lifecycle callback does not apply to the current phase.
	ErrInvalidTransition = errors.New("conversation: invalid phase transition")
	// ErrEmptyMessage is returned for a turn with neither text nor a tool result.
	ErrEmptyMessage = errors.New("conversation: message or tool result required")
	// ErrMissingConversationID is returned when a request has no conversation id.
	ErrMissingConversationID = errors.New("conversation: conversation id required")
	// ErrStateConflict is returned by Store.Save when another writer committed first.
	ErrStateConflict = errors.New("conversation: state changed concurrently")
	// ErrToolResultApplied is returned for a tool result whose call was already answered.
	ErrToolResultApplied = errors.New("conversation: tool result already applied")
)

// Service describes the dialogue engine as seen by transports.
type Service interface {
	StartConversation(ctx context.Context, req StartRequest) (*Response, error)
	ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error)
	GetState(ctx context.Context, conversationID string) (*dialogue.ConversationState, error)
	Export(ctx context.Context, conversationID string) (dialogue.ConversationRecord, error)
	Complete(ctx context.Context, conversationID string) (*Response, error)
}

// StartRequest opens a conversation. An empty ConversationID gets a generated one.
type StartRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// MessageRequest is a single inbound turn. Either Message or ToolResult must be set.
type MessageRequest struct {
	ConversationID string               `json:"conversation_id"`
	UserID         string               `json:"user_id,omitempty"`
	Message        string               `json:"message"`
	ToolResult     *dialogue.ToolResult `json:"tool_result,omitempty"`
}

// Response is returned to the transport after every turn.
type Response struct {
	ConversationID     string                  `json:"conversation_id"`
	Message            string                  `json:"message"`
	Phase              dialogue.Phase          `json:"phase"`
	Intent             dialogue.Intent         `json:"intent"`
	Signals            []dialogue.BuyingSignal `json:"signals"`
	QualificationScore int                     `json:"qualification_score"`
	ReadyToClose       bool                    `json:"ready_to_close"`
	ToolCalls          []dialogue.ToolCall     `json:"tool_calls,omitempty"`
	Timestamp          time.Time               `json:"timestamp"`
}
