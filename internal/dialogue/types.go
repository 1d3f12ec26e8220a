package dialogue

// Intent is the single best-guess category of what the user wants from one message.
type Intent string

const (
	IntentGreeting         Intent = "greeting"
	IntentPropertySearch   Intent = "property_search"
	IntentPropertyDetails  Intent = "property_details"
	IntentSurveyorRequest  Intent = "surveyor_request"
	IntentTenantManagement Intent = "tenant_management"
	IntentGeneralInquiry   Intent = "general_inquiry"
	IntentDealClosure      Intent = "deal_closure"
	IntentUnknown          Intent = "unknown"
)

// Valid reports whether the intent is one of the closed enumeration values.
func (i Intent) Valid() bool {
	switch i {
	case IntentGreeting, IntentPropertySearch, IntentPropertyDetails, IntentSurveyorRequest,
		IntentTenantManagement, IntentGeneralInquiry, IntentDealClosure, IntentUnknown:
		return true
	}
	return false
}

// BuyingSignal is a textual cue correlated with purchase/rental readiness.
type BuyingSignal string

const (
	SignalViewingRequest     BuyingSignal = "viewing_request"
	SignalPriceNegotiation   BuyingSignal = "price_negotiation"
	SignalTimelineDiscussion BuyingSignal = "timeline_discussion"
	SignalPaperworkInquiry   BuyingSignal = "paperwork_inquiry"
	SignalComparison         BuyingSignal = "comparison"
)

// Phase is the dialogue engine's current stage in the conversation state machine.
type Phase string

const (
	PhaseGreeting            Phase = "greeting"
	PhaseIntentDetection     Phase = "intent_detection"
	PhaseInfoGathering       Phase = "info_gathering"
	PhaseSearchExecution     Phase = "search_execution"
	PhaseResultsPresentation Phase = "results_presentation"
	PhasePropertyDetails     Phase = "property_details"
	PhaseObjectionHandling   Phase = "objection_handling"
	PhaseDealClosure         Phase = "deal_closure"
	PhaseCompleted           Phase = "completed"
)

var allPhases = []Phase{
	PhaseGreeting,
	PhaseIntentDetection,
	PhaseInfoGathering,
	PhaseSearchExecution,
	PhaseResultsPresentation,
	PhasePropertyDetails,
	PhaseObjectionHandling,
	PhaseDealClosure,
	PhaseCompleted,
}

// AllPhases returns the phases in their fixed declaration order.
func AllPhases() []Phase {
	out := make([]Phase, len(allPhases))
	copy(out, allPhases)
	return out
}

// Valid reports whether the phase is one of the enumerated phases.
func (p Phase) Valid() bool {
	for _, known := range allPhases {
		if p == known {
			return true
		}
	}
	return false
}

// PropertyType is the canonical property category.
type PropertyType string

const (
	PropertyApartment  PropertyType = "apartment"
	PropertyHouse      PropertyType = "house"
	PropertyVilla      PropertyType = "villa"
	PropertyLand       PropertyType = "land"
	PropertyCommercial PropertyType = "commercial"
)

// TransactionType distinguishes buying from renting.
type TransactionType string

const (
	TransactionSale   TransactionType = "sale"
	TransactionRental TransactionType = "rental"
)

// Required fact names, in the order they are asked for.
const (
	FactLocation     = "location"
	FactBudgetMax    = "budget_max"
	FactPropertyType = "property_type"
)

var requiredFacts = []string{FactLocation, FactBudgetMax, FactPropertyType}
