package conversation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wolfman30/property-match-ai/pkg/logging"
)

// ConversationEvent is one structured entry in the conversation event log.
type ConversationEvent struct {
	Time           string         `json:"time"`
	Event          string         `json:"event"`
	ConversationID string         `json:"conversation_id"`
	UserID         string         `json:"user_id,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

// EventLogger emits one JSON line per decision point so a conversation can be
// replayed from logs:
//
//	grep '"event":"turn_processed"' /var/log/app.log
//	grep '"conversation_id":"conv_abc"' /var/log/app.log
type EventLogger struct {
	logger *logging.Logger
	now    func() time.Time
}

// NewEventLogger creates a conversation event logger.
func NewEventLogger(logger *logging.Logger) *EventLogger {
	return &EventLogger{logger: logger, now: time.Now}
}

// Log emits a structured conversation event.
func (e *EventLogger) Log(_ context.Context, event, convID, userID string, data map[string]any) {
	if e == nil || e.logger == nil {
		return
	}
	evt := ConversationEvent{
		Time:           e.now().UTC().Format(time.RFC3339Nano),
		Event:          event,
		ConversationID: convID,
		UserID:         userID,
		Data:           data,
	}
	b, _ := json.Marshal(evt)
	e.logger.Info(string(b))
}

func (e *EventLogger) ConversationStarted(ctx context.Context, convID, userID string) {
	e.Log(ctx, "conversation_started", convID, userID, nil)
}

func (e *EventLogger) TurnProcessed(ctx context.Context, convID, userID string, from, to string, intent string, score int, signals []string) {
	e.Log(ctx, "turn_processed", convID, userID, map[string]any{
		"from_phase": from,
		"to_phase":   to,
		"intent":     intent,
		"score":      score,
		"signals":    signals,
	})
}

func (e *EventLogger) ToolCallEmitted(ctx context.Context, convID, callID, tool string, published bool) {
	e.Log(ctx, "tool_call_emitted", convID, "", map[string]any{
		"call_id":   callID,
		"tool":      tool,
		"published": published,
	})
}

func (e *EventLogger) DealReady(ctx context.Context, convID, userID string, score int) {
	e.Log(ctx, "deal_ready", convID, userID, map[string]any{
		"score": score,
	})
}

func (e *EventLogger) ConversationCompleted(ctx context.Context, convID, userID string) {
	e.Log(ctx, "conversation_completed", convID, userID, nil)
}

func (e *EventLogger) ErrorOccurred(ctx context.Context, convID, step string, err error) {
	e.Log(ctx, "error", convID, "", map[string]any{
		"step":  step,
		"error": err.Error(),
	})
}
