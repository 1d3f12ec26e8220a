package dialogue

// NextPhase is the dialogue state machine. It is total: every input yields one
// of the enumerated phases, and a phase with no outgoing rule (including an
// unrecognized value) stays where it is so the conversation keeps going.
//
// deal_closure has no automatic exit; completion is signalled by the booking
// collaborator.
func NextPhase(current Phase, intent Intent, state *ConversationState) Phase {
	if state == nil {
		state = &ConversationState{}
	}

	switch current {
	case PhaseGreeting:
		return PhaseIntentDetection

	case PhaseIntentDetection:
		switch intent {
		case IntentPropertySearch:
			if len(state.Facts.MissingInfo()) > 0 {
				return PhaseInfoGathering
			}
			return PhaseSearchExecution
		case IntentPropertyDetails:
			return PhasePropertyDetails
		case IntentSurveyorRequest, IntentTenantManagement:
			return PhaseSearchExecution
		case IntentDealClosure:
			return PhaseDealClosure
		default:
			return PhaseIntentDetection
		}

	case PhaseInfoGathering:
		if len(state.Facts.MissingInfo()) == 0 {
			return PhaseSearchExecution
		}
		return PhaseInfoGathering

	case PhaseSearchExecution:
		return PhaseResultsPresentation

	case PhaseResultsPresentation:
		if ShouldCloseDeal(state) {
			return PhaseDealClosure
		}
		return PhaseResultsPresentation

	case PhasePropertyDetails:
		if ShouldCloseDeal(state) {
			return PhaseDealClosure
		}
		if len(state.Signals) > 0 {
			return PhaseObjectionHandling
		}
		return PhasePropertyDetails

	case PhaseObjectionHandling, PhaseDealClosure, PhaseCompleted:
		return current
	}

	return current
}
