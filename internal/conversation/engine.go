package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
	"github.com/wolfman30/property-match-ai/internal/observability/metrics"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

// ErrConversationExists is returned when starting a conversation under an id already in use.
var ErrConversationExists = errors.New("conversation: already exists")

// ToolPublisher hands emitted tool calls to the execution backend.
type ToolPublisher interface {
	PublishToolCall(ctx context.Context, conversationID string, call dialogue.ToolCall) error
}

// LeadRecorder captures a conversation that became ready to close.
type LeadRecorder interface {
	CaptureQualified(ctx context.Context, state *dialogue.ConversationState) error
}

// Engine applies user turns to conversation state. All turns for one
// conversation id are serialized; a turn either commits fully or not at all.
// The keyed mutex orders turns inside one process. Across processes sharing a
// store, a turn that loses the versioned save is recomputed on the new state.
type Engine struct {
	store      Store
	responder  Responder
	locks      *KeyedMutex
	classifier *dialogue.Classifier
	tools      ToolPublisher
	leads      LeadRecorder
	metrics    *metrics.DialogueMetrics
	events     *EventLogger
	logger     *logging.Logger
	tracer     trace.Tracer
	now        func() time.Time
	newID      func() string
}

// EngineOption customizes engine collaborators.
type EngineOption func(*Engine)

// WithToolPublisher forwards emitted tool calls after each committed turn.
func WithToolPublisher(p ToolPublisher) EngineOption {
	return func(e *Engine) {
		e.tools = p
	}
}

// WithLeadRecorder records qualified leads when a conversation enters deal closure.
func WithLeadRecorder(r LeadRecorder) EngineOption {
	return func(e *Engine) {
		e.leads = r
	}
}

// WithMetrics wires prometheus dialogue metrics.
func WithMetrics(m *metrics.DialogueMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClassifier swaps the vocabulary used for classification and extraction.
func WithClassifier(c *dialogue.Classifier) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

// WithKeyedMutex shares a lock table between engines using the same store.
func WithKeyedMutex(k *KeyedMutex) EngineOption {
	return func(e *Engine) {
		if k != nil {
			e.locks = k
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides how conversation and tool call ids are generated.
func WithIDGenerator(gen func() string) EngineOption {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// WithTracer sets the tracer used for turn spans.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewEngine builds the turn orchestrator.
func NewEngine(store Store, responder Responder, logger *logging.Logger, opts ...EngineOption) *Engine {
	if store == nil {
		panic("conversation: store cannot be nil")
	}
	if responder == nil {
		responder = NewTemplateResponder()
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		store:      store,
		responder:  responder,
		locks:      NewKeyedMutex(),
		classifier: dialogue.Default(),
		logger:     logger,
		events:     NewEventLogger(logger),
		tracer:     otel.Tracer("propertymatch.internal.conversation.engine"),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ Service = (*Engine)(nil)

// StartConversation creates a conversation in the greeting phase and returns the greeting.
func (e *Engine) StartConversation(ctx context.Context, req StartRequest) (*Response, error) {
	id := strings.TrimSpace(req.ConversationID)
	if id == "" {
		id = e.newID()
	}
	ctx, span := e.tracer.Start(ctx, "conversation.start",
		trace.WithAttributes(attribute.String("conversation.id", id)))
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	if _, err := e.store.Get(ctx, id); err == nil {
		return nil, ErrConversationExists
	} else if !errors.Is(err, ErrConversationNotFound) {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: load %s: %w", id, err)
	}

	now := e.now()
	state := dialogue.NewConversationState(id, strings.TrimSpace(req.UserID), now)
	plan := dialogue.Plan(dialogue.PhaseGreeting, dialogue.PhaseGreeting, dialogue.IntentUnknown, state, nil, nil)
	message, err := e.responder.Respond(ctx, plan)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	state.AppendTurn(dialogue.Turn{Role: dialogue.RoleAssistant, Content: message, Timestamp: now})

	if err := e.store.Save(ctx, state); err != nil {
		if errors.Is(err, ErrStateConflict) {
			// another process created it between the load and the save
			return nil, ErrConversationExists
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: save %s: %w", id, err)
	}

	e.events.ConversationStarted(ctx, id, state.Facts.UserID)
	return e.response(state, message, nil, nil, now), nil
}

// ProcessMessage applies one inbound turn. An unknown conversation id starts a
// new conversation transparently.
func (e *Engine) ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error) {
	started := time.Now()
	resp, err := e.processMessage(ctx, req)
	status := "ok"
	switch {
	case errors.Is(err, ErrToolResultApplied):
		status = "duplicate"
	case err != nil:
		status = "error"
	}
	e.metrics.ObserveLatency(status, time.Since(started).Seconds())
	return resp, err
}

func (e *Engine) processMessage(ctx context.Context, req MessageRequest) (*Response, error) {
	id := strings.TrimSpace(req.ConversationID)
	if id == "" {
		return nil, ErrMissingConversationID
	}
	text := strings.TrimSpace(req.Message)
	if text == "" && req.ToolResult == nil {
		return nil, ErrEmptyMessage
	}

	ctx, span := e.tracer.Start(ctx, "conversation.process_message",
		trace.WithAttributes(attribute.String("conversation.id", id)))
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	var resp *Response
	err := e.retryOnConflict(id, func() error {
		var err error
		resp, err = e.applyTurn(ctx, span, id, text, req)
		return err
	})
	return resp, err
}

// applyTurn loads the latest state and commits one turn on top of it. The
// caller holds the conversation lock.
func (e *Engine) applyTurn(ctx context.Context, span trace.Span, id, text string, req MessageRequest) (*Response, error) {
	now := e.now()
	current, err := e.store.Get(ctx, id)
	created := false
	switch {
	case errors.Is(err, ErrConversationNotFound):
		current = dialogue.NewConversationState(id, strings.TrimSpace(req.UserID), now)
		created = true
	case err != nil:
		span.RecordError(err)
		e.events.ErrorOccurred(ctx, id, "load", err)
		return nil, fmt.Errorf("conversation: load %s: %w", id, err)
	}

	if req.ToolResult != nil && current.HasToolResult(req.ToolResult.CallID) {
		e.logger.Info("ignoring tool result already applied", "conversation_id", id, "call_id", req.ToolResult.CallID)
		return nil, fmt.Errorf("%w: %s", ErrToolResultApplied, req.ToolResult.CallID)
	}

	// work on a copy so a failed turn leaves the stored state untouched
	state := current.Clone()
	prev := state.Phase
	greeted := hasAssistantTurn(state)

	if req.ToolResult != nil {
		state.RecordResults(req.ToolResult.Properties)
		state.AppendTurn(dialogue.Turn{
			Role:       dialogue.RoleTool,
			Content:    toolSummary(req.ToolResult),
			Timestamp:  now,
			ToolCallID: req.ToolResult.CallID,
		})
	}

	var turnSignals []dialogue.BuyingSignal
	if text != "" {
		state.AppendTurn(dialogue.Turn{Role: dialogue.RoleUser, Content: text, Timestamp: now})
		turnSignals = e.analyze(ctx, state, text)
	}

	state.QualificationScore = dialogue.Score(state)
	next := dialogue.NextPhase(prev, state.Intent, state)

	planPrev := prev
	if prev == dialogue.PhaseGreeting && greeted {
		planPrev = dialogue.PhaseIntentDetection
	}
	plan := dialogue.Plan(planPrev, next, state.Intent, state, turnSignals, req.ToolResult)
	for i := range plan.ToolCalls {
		plan.ToolCalls[i].ID = e.newID()
	}

	message, err := e.responder.Respond(ctx, plan)
	if err != nil {
		span.RecordError(err)
		e.events.ErrorOccurred(ctx, id, "respond", err)
		return nil, err
	}

	state.Phase = next
	state.UpdatedAt = now
	state.AppendTurn(dialogue.Turn{
		Role:      dialogue.RoleAssistant,
		Content:   message,
		Timestamp: now,
		ToolCalls: plan.ToolCalls,
	})

	if err := e.store.Save(ctx, state); err != nil {
		if errors.Is(err, ErrStateConflict) {
			return nil, err
		}
		span.RecordError(err)
		e.events.ErrorOccurred(ctx, id, "save", err)
		return nil, fmt.Errorf("conversation: save %s: %w", id, err)
	}

	if created {
		e.events.ConversationStarted(ctx, id, state.Facts.UserID)
	}
	e.afterCommit(ctx, state, prev, turnSignals, plan.ToolCalls)
	span.SetAttributes(
		attribute.String("dialogue.intent", string(state.Intent)),
		attribute.String("dialogue.phase", string(next)),
		attribute.Int("dialogue.score", state.QualificationScore),
	)

	return e.response(state, message, turnSignals, plan.ToolCalls, now), nil
}

// analyze classifies the latest user text and folds what it found into state.
func (e *Engine) analyze(ctx context.Context, state *dialogue.ConversationState, text string) []dialogue.BuyingSignal {
	_, span := e.tracer.Start(ctx, "dialogue.analyze")
	defer span.End()

	state.Intent = e.classifier.Classify(text)
	signals := e.classifier.DetectSignals(text)
	state.AddSignals(signals)
	state.Facts.Merge(e.classifier.Extract(text))

	span.SetAttributes(
		attribute.String("dialogue.intent", string(state.Intent)),
		attribute.Int("dialogue.signals", len(signals)),
	)
	return signals
}

// afterCommit runs the best-effort side effects of a committed turn.
func (e *Engine) afterCommit(ctx context.Context, state *dialogue.ConversationState, prev dialogue.Phase, turnSignals []dialogue.BuyingSignal, calls []dialogue.ToolCall) {
	signalNames := signalStrings(turnSignals)
	e.metrics.ObserveTurn(string(state.Intent), string(state.Phase), state.QualificationScore, signalNames)
	e.events.TurnProcessed(ctx, state.ID, state.Facts.UserID, string(prev), string(state.Phase),
		string(state.Intent), state.QualificationScore, signalNames)

	for _, call := range calls {
		published := false
		if e.tools != nil {
			if err := e.tools.PublishToolCall(ctx, state.ID, call); err != nil {
				e.logger.Warn("failed to publish tool call", "error", err, "conversation_id", state.ID, "tool", call.Tool, "call_id", call.ID)
			} else {
				published = true
			}
		}
		e.metrics.ObserveToolCall(call.Tool, published)
		e.events.ToolCallEmitted(ctx, state.ID, call.ID, call.Tool, published)
	}

	if state.Phase == dialogue.PhaseDealClosure && prev != dialogue.PhaseDealClosure {
		e.metrics.ObserveDealReady()
		e.events.DealReady(ctx, state.ID, state.Facts.UserID, state.QualificationScore)
		if e.leads != nil {
			if err := e.leads.CaptureQualified(ctx, state); err != nil {
				e.logger.Warn("failed to record qualified lead", "error", err, "conversation_id", state.ID)
			}
		}
	}
}

// GetState returns a copy of the current conversation state.
func (e *Engine) GetState(ctx context.Context, conversationID string) (*dialogue.ConversationState, error) {
	state, err := e.store.Get(ctx, strings.TrimSpace(conversationID))
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Export returns the analytics record for a conversation.
func (e *Engine) Export(ctx context.Context, conversationID string) (dialogue.ConversationRecord, error) {
	state, err := e.GetState(ctx, conversationID)
	if err != nil {
		return dialogue.ConversationRecord{}, err
	}
	return dialogue.Export(state), nil
}

// Complete marks a conversation in deal closure as completed. It is the
// callback used once the viewing or booking has been confirmed.
func (e *Engine) Complete(ctx context.Context, conversationID string) (*Response, error) {
	id := strings.TrimSpace(conversationID)
	if id == "" {
		return nil, ErrMissingConversationID
	}
	unlock := e.locks.Lock(id)
	defer unlock()

	var resp *Response
	err := e.retryOnConflict(id, func() error {
		var err error
		resp, err = e.complete(ctx, id)
		return err
	})
	return resp, err
}

func (e *Engine) complete(ctx context.Context, id string) (*Response, error) {
	current, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Phase != dialogue.PhaseDealClosure {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Phase, dialogue.PhaseCompleted)
	}

	now := e.now()
	state := current.Clone()
	plan := dialogue.Plan(state.Phase, dialogue.PhaseCompleted, state.Intent, state, nil, nil)
	message, err := e.responder.Respond(ctx, plan)
	if err != nil {
		return nil, err
	}
	state.Phase = dialogue.PhaseCompleted
	state.UpdatedAt = now
	state.AppendTurn(dialogue.Turn{Role: dialogue.RoleAssistant, Content: message, Timestamp: now})

	if err := e.store.Save(ctx, state); err != nil {
		if errors.Is(err, ErrStateConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("conversation: save %s: %w", id, err)
	}
	e.events.ConversationCompleted(ctx, id, state.Facts.UserID)
	return e.response(state, message, nil, nil, now), nil
}

// maxCommitAttempts bounds how often a turn is recomputed after losing a save race.
const maxCommitAttempts = 3

// retryOnConflict reruns fn while another process commits the same
// conversation first. Each attempt reloads the state it builds on.
func (e *Engine) retryOnConflict(id string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		if err = fn(); !errors.Is(err, ErrStateConflict) {
			return err
		}
		e.logger.Warn("conversation changed concurrently, recomputing turn", "conversation_id", id, "attempt", attempt)
	}
	return err
}

func (e *Engine) response(state *dialogue.ConversationState, message string, signals []dialogue.BuyingSignal, calls []dialogue.ToolCall, now time.Time) *Response {
	if signals == nil {
		signals = []dialogue.BuyingSignal{}
	}
	return &Response{
		ConversationID:     state.ID,
		Message:            message,
		Phase:              state.Phase,
		Intent:             state.Intent,
		Signals:            signals,
		QualificationScore: state.QualificationScore,
		ReadyToClose:       dialogue.ShouldCloseDeal(state),
		ToolCalls:          calls,
		Timestamp:          now,
	}
}

func hasAssistantTurn(state *dialogue.ConversationState) bool {
	for _, t := range state.Turns {
		if t.Role == dialogue.RoleAssistant {
			return true
		}
	}
	return false
}

func toolSummary(result *dialogue.ToolResult) string {
	tool := result.Tool
	if tool == "" {
		tool = dialogue.ToolSearchProperties
	}
	return fmt.Sprintf("%s returned %d result(s)", tool, len(result.Properties))
}

func signalStrings(signals []dialogue.BuyingSignal) []string {
	out := make([]string, 0, len(signals))
	for _, s := range signals {
		out = append(out, string(s))
	}
	return out
}
