package dialogue

import (
	"regexp"
	"strings"
)

// Category names the response template the engine wants rendered. Wording is
// the responder's concern; the engine only decides which category applies.
type Category string

const (
	CategoryGreeting      Category = "greeting"
	CategoryClarifyIntent Category = "clarify_intent"
	CategoryAskMissing    Category = "ask_missing_field"
	CategorySearching     Category = "searching"
	CategoryAwaitResults  Category = "await_results"
	CategoryPresentation  Category = "presentation"
	CategoryNoResults     Category = "no_results"
	CategoryFollowUp      Category = "follow_up"
	CategoryDetails       Category = "property_details"
	CategoryObjection     Category = "objection"
	CategoryCloser        Category = "closer"
	CategoryCompleted     Category = "completed"
	CategoryFallback      Category = "fallback"
)

// Objection kinds.
const (
	ObjectionPrice       = "price"
	ObjectionThinking    = "thinking"
	ObjectionMoreOptions = "more_options"
	ObjectionGeneral     = "general"
)

// maxPresented caps how many listings a presentation shows.
const maxPresented = 5

// ResponsePlan is everything the responder needs to produce the outgoing text.
type ResponsePlan struct {
	Category      Category   `json:"category"`
	Phase         Phase      `json:"phase"`
	MissingField  string     `json:"missing_field,omitempty"`
	ObjectionKind string     `json:"objection_kind,omitempty"`
	Properties    []Property `json:"properties,omitempty"`
	Featured      *Property  `json:"featured,omitempty"`
	ToolCalls     []ToolCall `json:"tool_calls,omitempty"`
	Facts         UserFacts  `json:"facts"`
}

var (
	priceObjectionRE = regexp.MustCompile(`\b(price|expensive|cost|afford\w*|cheaper|too much)\b`)
	thinkingRE       = regexp.MustCompile(`\b(think|thinking|consider\w*|not sure|unsure|hesitant|later)\b`)
	moreOptionsRE    = regexp.MustCompile(`\b(more options|other options|alternatives?|something else|anything else|show me more)\b`)
)

// Plan picks the template category for a turn that moved the conversation from
// prev to next. toolResult is the search payload delivered with this turn, if any.
func Plan(prev, next Phase, intent Intent, state *ConversationState, turnSignals []BuyingSignal, toolResult *ToolResult) ResponsePlan {
	plan := ResponsePlan{Phase: next}
	if state == nil {
		plan.Category = CategoryFallback
		return plan
	}
	plan.Facts = state.Facts

	if prev == PhaseGreeting {
		plan.Category = CategoryGreeting
		return plan
	}

	switch next {
	case PhaseIntentDetection:
		switch intent {
		case IntentGreeting:
			plan.Category = CategoryGreeting
		case IntentUnknown:
			plan.Category = CategoryClarifyIntent
		default:
			plan.Category = CategoryFallback
		}

	case PhaseInfoGathering:
		missing := state.Facts.MissingInfo()
		if len(missing) == 0 {
			plan.Category = CategoryFallback
			break
		}
		plan.Category = CategoryAskMissing
		plan.MissingField = missing[0]

	case PhaseSearchExecution:
		plan.Category = CategorySearching
		plan.ToolCalls = []ToolCall{BuildToolCall(intent, state)}

	case PhaseResultsPresentation:
		switch {
		case toolResult != nil && len(toolResult.Properties) == 0:
			plan.Category = CategoryNoResults
		case toolResult != nil:
			plan.Category = CategoryPresentation
			plan.Properties = firstN(toolResult.Properties, maxPresented)
		case prev == PhaseSearchExecution:
			plan.Category = CategoryAwaitResults
		default:
			plan.Category = CategoryFollowUp
		}

	case PhasePropertyDetails:
		plan.Category = CategoryDetails
		plan.Featured = featured(state)

	case PhaseObjectionHandling:
		plan.Category = CategoryObjection
		plan.ObjectionKind = ClassifyObjection(state.LastUserMessage(), turnSignals)

	case PhaseDealClosure:
		plan.Category = CategoryCloser
		plan.Featured = featured(state)

	case PhaseCompleted:
		plan.Category = CategoryCompleted

	default:
		plan.Category = CategoryFallback
	}
	return plan
}

// ClassifyObjection decides which objection template fits the user's last message.
func ClassifyObjection(text string, signals []BuyingSignal) string {
	lower := strings.ToLower(text)
	for _, s := range signals {
		if s == SignalPriceNegotiation {
			return ObjectionPrice
		}
	}
	switch {
	case priceObjectionRE.MatchString(lower):
		return ObjectionPrice
	case moreOptionsRE.MatchString(lower):
		return ObjectionMoreOptions
	case thinkingRE.MatchString(lower):
		return ObjectionThinking
	}
	for _, s := range signals {
		if s == SignalComparison {
			return ObjectionMoreOptions
		}
	}
	return ObjectionGeneral
}

// BuildToolCall prepares the backend request for the search_execution phase.
// The call ID is assigned by the caller.
func BuildToolCall(intent Intent, state *ConversationState) ToolCall {
	f := state.Facts
	tool := ToolSearchProperties
	switch intent {
	case IntentSurveyorRequest:
		tool = ToolRequestSurveyor
	case IntentTenantManagement:
		tool = ToolTenantAssistant
	}

	params := map[string]any{
		"query": state.LastUserMessage(),
	}
	if f.Location != nil {
		params["location"] = *f.Location
	}
	if tool == ToolSearchProperties {
		if f.BudgetMin != nil {
			params["price_min"] = *f.BudgetMin
		}
		if f.BudgetMax != nil {
			params["price_max"] = *f.BudgetMax
		}
		if f.Bedrooms != nil {
			params["bedrooms"] = *f.Bedrooms
		}
		if f.Bathrooms != nil {
			params["bathrooms"] = *f.Bathrooms
		}
		if f.PropertyType != nil {
			params["property_type"] = string(*f.PropertyType)
		}
		transaction := TransactionRental
		if f.TransactionType != nil {
			transaction = *f.TransactionType
		}
		params["transaction_type"] = string(transaction)
	}
	return ToolCall{Tool: tool, Parameters: params}
}

func featured(state *ConversationState) *Property {
	if len(state.LastResults) == 0 {
		return nil
	}
	p := state.LastResults[0]
	return &p
}

func firstN(props []Property, n int) []Property {
	if len(props) > n {
		props = props[:n]
	}
	return append([]Property(nil), props...)
}
