package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/wolfman30/property-match-ai/internal/conversation"
	"github.com/wolfman30/property-match-ai/internal/dialogue"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

// toolBackend plays the external tool executor: it drains tool requests and
// answers each with a result message.
type toolBackend struct {
	requests conversation.Queue
	results  *conversation.ResultPublisher
	catalog  []listing
	logger   *logging.Logger
}

func (b *toolBackend) run(ctx context.Context) {
	for {
		msgs, err := b.requests.Receive(ctx, 10, 1)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			b.logger.Error("failed to receive tool request", "error", err)
			continue
		}
		for _, msg := range msgs {
			b.handle(ctx, msg)
		}
	}
}

func (b *toolBackend) handle(ctx context.Context, msg conversation.QueueMessage) {
	defer func() { _ = b.requests.Delete(ctx, msg.ReceiptHandle) }()

	var req conversation.ToolRequest
	if err := json.Unmarshal([]byte(msg.Body), &req); err != nil {
		b.logger.Warn("dropping undecodable tool request", "error", err, "message_id", msg.ID)
		return
	}

	var properties []dialogue.Property
	if req.Call.Tool == dialogue.ToolSearchProperties {
		properties = matchListings(b.catalog, req.Call.Parameters)
	}
	b.logger.Debug("tool executed", "tool", req.Call.Tool, "call_id", req.Call.ID, "matches", len(properties))

	err := b.results.PublishResult(ctx, conversation.ToolResultMessage{
		ConversationID: req.ConversationID,
		CallID:         req.Call.ID,
		Tool:           req.Call.Tool,
		Properties:     properties,
	})
	if err != nil {
		b.logger.Error("failed to publish tool result", "error", err, "call_id", req.Call.ID)
	}
}
