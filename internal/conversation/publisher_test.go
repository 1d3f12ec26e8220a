package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

func TestPublisher_PublishToolCall(t *testing.T) {
	queue := &stubQueue{}
	publisher := NewPublisher(queue, logging.Default())

	call := dialogue.ToolCall{
		ID:         "call-1",
		Tool:       dialogue.ToolSearchProperties,
		Parameters: map[string]any{"location": "Karen", "price_max": 150000},
	}
	if err := publisher.PublishToolCall(context.Background(), "conv-1", call); err != nil {
		t.Fatalf("publish returned error: %v", err)
	}
	if len(queue.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(queue.sent))
	}

	var req ToolRequest
	if err := json.Unmarshal([]byte(queue.sent[0]), &req); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if req.ID == "" {
		t.Fatalf("expected message id to be generated")
	}
	if req.ConversationID != "conv-1" {
		t.Fatalf("expected conversation conv-1, got %s", req.ConversationID)
	}
	if req.Call.ID != "call-1" || req.Call.Tool != dialogue.ToolSearchProperties {
		t.Fatalf("unexpected call %#v", req.Call)
	}
	if req.Call.Parameters["location"] != "Karen" {
		t.Fatalf("expected location parameter, got %#v", req.Call.Parameters)
	}
	if req.RequestedAt.IsZero() {
		t.Fatalf("expected requested_at to be set")
	}
}

func TestPublisher_SendError(t *testing.T) {
	publisher := NewPublisher(&stubQueue{sendErr: errors.New("throttled")}, nil)
	err := publisher.PublishToolCall(context.Background(), "conv-1", dialogue.ToolCall{Tool: dialogue.ToolTenantAssistant})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestResultPublisher_RoundTripsThroughMemoryQueue(t *testing.T) {
	queue := NewMemoryQueue(4)
	pub := NewResultPublisher(queue)

	err := pub.PublishResult(context.Background(), ToolResultMessage{
		ConversationID: "conv-1",
		CallID:         "call-1",
		Tool:           dialogue.ToolSearchProperties,
		Properties:     []dialogue.Property{{ID: "p1", Price: "10"}},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	msgs, err := queue.Receive(context.Background(), 10, 1)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("expected one message, got %d (%v)", len(msgs), err)
	}
	var got ToolResultMessage
	if err := json.Unmarshal([]byte(msgs[0].Body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID == "" || got.CallID != "call-1" || len(got.Properties) != 1 {
		t.Fatalf("unexpected payload %#v", got)
	}
}

type stubQueue struct {
	mu      sync.Mutex
	sent    []string
	sendErr error
}

func (s *stubQueue) Send(ctx context.Context, body string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.mu.Lock()
	s.sent = append(s.sent, body)
	s.mu.Unlock()
	return nil
}

func (s *stubQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]QueueMessage, error) {
	return nil, context.Canceled
}

func (s *stubQueue) Delete(ctx context.Context, receiptHandle string) error {
	return nil
}
