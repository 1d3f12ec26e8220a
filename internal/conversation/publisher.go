package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

// Publisher enqueues tool calls for the execution backend.
type Publisher struct {
	queue  Queue
	logger *logging.Logger
	now    func() time.Time
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue Queue, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
		now:    time.Now,
	}
}

// PublishToolCall sends one tool request.
func (p *Publisher) PublishToolCall(ctx context.Context, conversationID string, call dialogue.ToolCall) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req := ToolRequest{
		ID:             newMessageID(),
		ConversationID: conversationID,
		Call:           call,
		RequestedAt:    p.now().UTC(),
	}
	body, err := encodeMessage(req)
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("conversation: failed to enqueue tool call: %w", err)
	}

	p.logger.Debug("tool call enqueued", "message_id", req.ID, "conversation_id", conversationID, "tool", call.Tool, "call_id", call.ID)
	return nil
}

// ResultPublisher enqueues tool results. The tool backend uses it to answer
// calls; the simulator uses it to stand in for the backend.
type ResultPublisher struct {
	queue Queue
}

// NewResultPublisher creates a publisher for the tool result queue.
func NewResultPublisher(queue Queue) *ResultPublisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	return &ResultPublisher{queue: queue}
}

// PublishResult sends one tool result.
func (p *ResultPublisher) PublishResult(ctx context.Context, msg ToolResultMessage) error {
	if msg.ID == "" {
		msg.ID = newMessageID()
	}
	body, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("conversation: failed to enqueue tool result: %w", err)
	}
	return nil
}
