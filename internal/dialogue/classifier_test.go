package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Intent
	}{
		{"bare hi", "hi", IntentGreeting},
		{"hello with punctuation", "Hello!", IntentGreeting},
		{"good morning", "Good morning there", IntentGreeting},
		{"bedroom search", "I'm looking for a 3 bedroom apartment", IntentPropertySearch},
		{"budget only", "In Westlands, under 150k", IntentPropertySearch},
		{"rent keyword", "Yes, for rent", IntentPropertySearch},
		{"details", "Tell me more about this property", IntentPropertyDetails},
		{"property id", "What's the status of property id 42?", IntentPropertyDetails},
		{"valuation", "Can I get a valuation done?", IntentSurveyorRequest},
		{"appraisal", "I'd like an appraisal of my plot", IntentSurveyorRequest},
		{"tenant reminder", "Send my tenant a reminder", IntentTenantManagement},
		{"viewing", "Can we schedule a viewing?", IntentDealClosure},
		{"price beats general inquiry", "What is the best price?", IntentDealClosure},
		{"when can we", "When can we move forward?", IntentDealClosure},
		{"general", "How does the process work?", IntentGeneralInquiry},
		{"gibberish", "asdfgh", IntentUnknown},
		{"empty", "", IntentUnknown},
		{"hi inside word", "this thing", IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message))
		})
	}
}

func TestClassify_DeclarationOrderBreaksTies(t *testing.T) {
	// matches greeting and property_search; greeting is declared first
	assert.Equal(t, IntentGreeting, Classify("hi, I want to rent a flat"))
	// matches property_search and deal_closure
	assert.Equal(t, IntentPropertySearch, Classify("I want to buy, what's the price?"))
}

func TestDetectSignals(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    []BuyingSignal
	}{
		{
			name:    "several at once",
			message: "Can I see it next month? What documents do I need?",
			want:    []BuyingSignal{SignalViewingRequest, SignalTimelineDiscussion, SignalPaperworkInquiry},
		},
		{
			name:    "price question",
			message: "Is the price flexible?",
			want:    []BuyingSignal{SignalPriceNegotiation},
		},
		{
			name:    "negotiation",
			message: "Could we negotiate on the price?",
			want:    []BuyingSignal{SignalPriceNegotiation},
		},
		{
			name:    "comparison",
			message: "Which one is better, this one or that one",
			want:    []BuyingSignal{SignalComparison},
		},
		{
			name:    "one flag per type",
			message: "Send the contract, the lease agreement and the offer",
			want:    []BuyingSignal{SignalPaperworkInquiry},
		},
		{
			name:    "nothing",
			message: "hello",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectSignals(tt.message))
		})
	}
}

func TestClassifierIsDeterministic(t *testing.T) {
	inputs := []string{
		"I'm looking for a 3 bedroom apartment",
		"Can I see it next month?",
		"50k to 100k in Kilimani",
		"",
	}
	for _, in := range inputs {
		firstIntent := Classify(in)
		firstSignals := DetectSignals(in)
		firstEntities := Extract(in)
		for i := 0; i < 20; i++ {
			require.Equal(t, firstIntent, Classify(in))
			require.Equal(t, firstSignals, DetectSignals(in))
			require.Equal(t, firstEntities, Extract(in))
		}
	}
}

func TestNewClassifier_CustomVocabulary(t *testing.T) {
	c, err := NewClassifier(Vocabulary{
		Intents: []IntentPatterns{
			{IntentSurveyorRequest, []string{`\bsurvey\b`}},
		},
		Locations: []string{"Kigali Heights"},
	})
	require.NoError(t, err)

	assert.Equal(t, IntentSurveyorRequest, c.Classify("I need a SURVEY"))
	assert.Equal(t, IntentUnknown, c.Classify("hello"))
	assert.Empty(t, c.DetectSignals("can i see it"))

	e := c.Extract("something near kigali heights")
	require.NotNil(t, e.Location)
	assert.Equal(t, "Kigali Heights", *e.Location)
	assert.Nil(t, e.PropertyType)
	assert.Nil(t, e.TransactionType)
}

func TestNewClassifier_InvalidPattern(t *testing.T) {
	_, err := NewClassifier(Vocabulary{
		Intents: []IntentPatterns{{IntentGreeting, []string{`(unclosed`}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greeting")

	assert.Panics(t, func() {
		MustClassifier(Vocabulary{Signals: []SignalPatterns{{SignalComparison, []string{`[`}}}})
	})
}
