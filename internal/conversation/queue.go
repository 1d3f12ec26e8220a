package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
)

// Queue is the transport for tool requests and results: SQS in production,
// MemoryQueue locally.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]QueueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// QueueMessage is one received message.
type QueueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// ToolRequest is the message published for the tool backend.
type ToolRequest struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	Call           dialogue.ToolCall `json:"call"`
	RequestedAt    time.Time         `json:"requested_at"`
}

// ToolResultMessage is what the tool backend sends back once a call finishes.
type ToolResultMessage struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversation_id"`
	UserID         string              `json:"user_id,omitempty"`
	CallID         string              `json:"call_id"`
	Tool           string              `json:"tool"`
	Properties     []dialogue.Property `json:"properties"`
}

func encodeMessage[T any](payload T) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("conversation: failed to encode payload: %w", err)
	}
	return string(body), nil
}

func newMessageID() string {
	return uuid.NewString()
}
