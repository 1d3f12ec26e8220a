package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listings(n int) []Property {
	out := make([]Property, n)
	for i := range out {
		out[i] = Property{ID: string(rune('a' + i)), Title: "Listing", Price: "100000"}
	}
	return out
}

func withUserTurn(s *ConversationState, text string) *ConversationState {
	s.AppendTurn(Turn{Role: RoleUser, Content: text})
	return s
}

func TestPlan_Categories(t *testing.T) {
	tests := []struct {
		name     string
		prev     Phase
		next     Phase
		intent   Intent
		result   *ToolResult
		want     Category
		wantMiss string
	}{
		{"first turn greets", PhaseGreeting, PhaseIntentDetection, IntentPropertySearch, nil, CategoryGreeting, ""},
		{"repeat greeting", PhaseIntentDetection, PhaseIntentDetection, IntentGreeting, nil, CategoryGreeting, ""},
		{"clarify", PhaseIntentDetection, PhaseIntentDetection, IntentUnknown, nil, CategoryClarifyIntent, ""},
		{"general inquiry", PhaseIntentDetection, PhaseIntentDetection, IntentGeneralInquiry, nil, CategoryFallback, ""},
		{"ask first missing", PhaseIntentDetection, PhaseInfoGathering, IntentPropertySearch, nil, CategoryAskMissing, FactLocation},
		{"await", PhaseSearchExecution, PhaseResultsPresentation, IntentUnknown, nil, CategoryAwaitResults, ""},
		{"follow up", PhaseResultsPresentation, PhaseResultsPresentation, IntentUnknown, nil, CategoryFollowUp, ""},
		{"no results", PhaseSearchExecution, PhaseResultsPresentation, IntentUnknown, &ToolResult{}, CategoryNoResults, ""},
		{"details", PhaseIntentDetection, PhasePropertyDetails, IntentPropertyDetails, nil, CategoryDetails, ""},
		{"objection", PhasePropertyDetails, PhaseObjectionHandling, IntentUnknown, nil, CategoryObjection, ""},
		{"closer", PhaseResultsPresentation, PhaseDealClosure, IntentDealClosure, nil, CategoryCloser, ""},
		{"completed", PhaseDealClosure, PhaseCompleted, IntentUnknown, nil, CategoryCompleted, ""},
		{"unknown phase", PhaseIntentDetection, Phase("bogus"), IntentUnknown, nil, CategoryFallback, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := withUserTurn(newState(), "hello")
			plan := Plan(tt.prev, tt.next, tt.intent, s, nil, tt.result)
			assert.Equal(t, tt.want, plan.Category)
			assert.Equal(t, tt.next, plan.Phase)
			assert.Equal(t, tt.wantMiss, plan.MissingField)
		})
	}

	assert.Equal(t, CategoryFallback, Plan(PhaseGreeting, PhaseIntentDetection, IntentUnknown, nil, nil, nil).Category)
}

func TestPlan_SearchExecutionBuildsToolCall(t *testing.T) {
	s := withUserTurn(newState(), "3 bedroom apartment in Kilimani 50k to 100k")
	s.Facts.Merge(Extract(s.LastUserMessage()))

	plan := Plan(PhaseIntentDetection, PhaseSearchExecution, IntentPropertySearch, s, nil, nil)

	assert.Equal(t, CategorySearching, plan.Category)
	require.Len(t, plan.ToolCalls, 1)
	call := plan.ToolCalls[0]
	assert.Equal(t, ToolSearchProperties, call.Tool)
	assert.Empty(t, call.ID)
	assert.Equal(t, map[string]any{
		"query":            "3 bedroom apartment in Kilimani 50k to 100k",
		"location":         "Kilimani",
		"price_min":        50000,
		"price_max":        100000,
		"bedrooms":         3,
		"property_type":    "apartment",
		"transaction_type": "rental",
	}, call.Parameters)
}

func TestBuildToolCall_ToolByIntent(t *testing.T) {
	s := withUserTurn(newState(), "I need a valuation for my land in Karen")
	s.Facts.Merge(Extract(s.LastUserMessage()))

	call := BuildToolCall(IntentSurveyorRequest, s)
	assert.Equal(t, ToolRequestSurveyor, call.Tool)
	assert.Equal(t, map[string]any{
		"query":    "I need a valuation for my land in Karen",
		"location": "Karen",
	}, call.Parameters)

	call = BuildToolCall(IntentTenantManagement, s)
	assert.Equal(t, ToolTenantAssistant, call.Tool)

	s.Facts.TransactionType = ptr(TransactionSale)
	call = BuildToolCall(IntentPropertySearch, s)
	assert.Equal(t, ToolSearchProperties, call.Tool)
	assert.Equal(t, "sale", call.Parameters["transaction_type"])
}

func TestPlan_PresentationCapsAtFive(t *testing.T) {
	s := withUserTurn(newState(), "ok")
	result := &ToolResult{Tool: ToolSearchProperties, Properties: listings(7)}

	plan := Plan(PhaseSearchExecution, PhaseResultsPresentation, IntentUnknown, s, nil, result)

	assert.Equal(t, CategoryPresentation, plan.Category)
	assert.Len(t, plan.Properties, 5)
	assert.Equal(t, "a", plan.Properties[0].ID)
}

func TestPlan_FeaturedListing(t *testing.T) {
	s := withUserTurn(newState(), "tell me more about this property")
	s.RecordResults(listings(2))

	plan := Plan(PhaseIntentDetection, PhasePropertyDetails, IntentPropertyDetails, s, nil, nil)
	require.NotNil(t, plan.Featured)
	assert.Equal(t, "a", plan.Featured.ID)

	plan = Plan(PhaseIntentDetection, PhasePropertyDetails, IntentPropertyDetails, withUserTurn(newState(), "x"), nil, nil)
	assert.Nil(t, plan.Featured)
}

func TestClassifyObjection(t *testing.T) {
	tests := []struct {
		text    string
		signals []BuyingSignal
		want    string
	}{
		{"hmm", []BuyingSignal{SignalPriceNegotiation}, ObjectionPrice},
		{"that is too expensive for us", nil, ObjectionPrice},
		{"do you have other options?", nil, ObjectionMoreOptions},
		{"let me think about it", nil, ObjectionThinking},
		{"hmm", []BuyingSignal{SignalComparison}, ObjectionMoreOptions},
		{"hmm", nil, ObjectionGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyObjection(tt.text, tt.signals))
		})
	}
}
