package dialogue

import (
	"bytes"
	"encoding/json"
	"time"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Tool names the engine may request from the execution backend.
const (
	ToolSearchProperties = "search_properties"
	ToolRequestSurveyor  = "request_surveyor"
	ToolTenantAssistant  = "tenant_assistant"
)

// ToolCall is a structured request for an external system to fulfil asynchronously.
type ToolCall struct {
	ID         string         `json:"id"`
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// Price keeps whatever the backend sent ("120,000 KSh" or 120000) as display text.
type Price string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

// Property is one listing returned by the search backend.
type Property struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Price        Price  `json:"price"`
	Location     string `json:"location"`
	Bedrooms     int    `json:"bedrooms"`
	PropertyType string `json:"propertyType"`
	Description  string `json:"description"`
}

// ToolResult is the payload delivered by the tool backend on a later turn.
type ToolResult struct {
	Tool       string     `json:"tool,omitempty"`
	CallID     string     `json:"call_id,omitempty"`
	Properties []Property `json:"properties"`
}

// Turn is one entry in the append-only conversation log.
type Turn struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Timestamp  time.Time  `json:"timestamp"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ConversationState is the mutable state of one active conversation.
type ConversationState struct {
	ID                 string         `json:"conversation_id"`
	Facts              UserFacts      `json:"facts"`
	Phase              Phase          `json:"phase"`
	Intent             Intent         `json:"intent"`
	Turns              []Turn         `json:"turns"`
	Signals            []BuyingSignal `json:"signals"`
	LastResults        []Property     `json:"last_results,omitempty"`
	PropertiesShown    []string       `json:"properties_shown,omitempty"`
	QualificationScore int            `json:"qualification_score"`
	EngagementScore    int            `json:"engagement_score"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`

	// Version counts committed saves; stores use it to reject stale writes.
	Version int64 `json:"version"`
}

// NewConversationState creates state for a first contact, starting in the greeting phase.
func NewConversationState(id, userID string, now time.Time) *ConversationState {
	if userID == "" {
		userID = id
	}
	return &ConversationState{
		ID:        id,
		Facts:     NewUserFacts(userID),
		Phase:     PhaseGreeting,
		Intent:    IntentUnknown,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendTurn adds a turn to the log.
func (s *ConversationState) AppendTurn(t Turn) {
	s.Turns = append(s.Turns, t)
}

// AddSignals accumulates detected signals; repeats are kept.
func (s *ConversationState) AddSignals(signals []BuyingSignal) {
	s.Signals = append(s.Signals, signals...)
}

// HasSignal reports whether the signal was ever detected in this conversation.
func (s *ConversationState) HasSignal(signal BuyingSignal) bool {
	for _, seen := range s.Signals {
		if seen == signal {
			return true
		}
	}
	return false
}

// RecordResults stores the latest batch of search results and remembers which listings were shown.
func (s *ConversationState) RecordResults(props []Property) {
	s.LastResults = append([]Property(nil), props...)
	seen := make(map[string]struct{}, len(s.PropertiesShown))
	for _, id := range s.PropertiesShown {
		seen[id] = struct{}{}
	}
	for _, p := range props {
		if p.ID == "" {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		s.PropertiesShown = append(s.PropertiesShown, p.ID)
	}
}

// LastUserMessage returns the content of the most recent user turn.
func (s *ConversationState) LastUserMessage() string {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == RoleUser {
			return s.Turns[i].Content
		}
	}
	return ""
}

// HasToolResult reports whether a tool turn answering callID was recorded.
func (s *ConversationState) HasToolResult(callID string) bool {
	if callID == "" {
		return false
	}
	for _, t := range s.Turns {
		if t.Role == RoleTool && t.ToolCallID == callID {
			return true
		}
	}
	return false
}

// Clone deep-copies the state so a turn can be applied to the copy and committed as a unit.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.Facts = s.Facts.Clone()
	out.Turns = make([]Turn, len(s.Turns))
	for i, t := range s.Turns {
		out.Turns[i] = t
		if t.ToolCalls != nil {
			out.Turns[i].ToolCalls = make([]ToolCall, len(t.ToolCalls))
			for j, call := range t.ToolCalls {
				out.Turns[i].ToolCalls[j] = cloneToolCall(call)
			}
		}
	}
	out.Signals = append([]BuyingSignal(nil), s.Signals...)
	out.LastResults = append([]Property(nil), s.LastResults...)
	out.PropertiesShown = append([]string(nil), s.PropertiesShown...)
	return &out
}

func cloneToolCall(c ToolCall) ToolCall {
	out := c
	if c.Parameters != nil {
		out.Parameters = make(map[string]any, len(c.Parameters))
		for k, v := range c.Parameters {
			out.Parameters[k] = v
		}
	}
	return out
}
